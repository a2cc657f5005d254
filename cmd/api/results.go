package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"labdesk/internal/models"
	"labdesk/internal/notice"
	"labdesk/internal/results"
)

const samplePageLimit = 10

var subResultFields = []string{"testName", "resultValue", "unit", "normalRange", "abnormal"}

type resultRow struct {
	Test   models.LabTest
	Result models.TestResult
}

type resultsData struct {
	Samples    []models.Sample
	Page       int
	Pager      pager
	SelectedID string
	Sample     *models.Sample
	Rows       []resultRow
}

func resultsURL(page int, sampleID string) string {
	u := fmt.Sprintf("/results?page=%d", page)
	if sampleID != "" {
		u += "&sample=" + url.QueryEscape(sampleID)
	}
	return u
}

// handleResults lists pending samples. With ?sample= the sample's result
// form is shown; choosing a different sample starts a fresh entry.
func (a *app) handleResults(c echo.Context) error {
	ctx := c.Request().Context()
	sess := sessionFrom(c)
	data := resultsData{Page: pageParam(c, "page")}

	page, err := a.api.PendingSamples(ctx, data.Page, samplePageLimit)
	if err != nil {
		a.log.Warn().Err(err).Msg("pending samples")
		sess.board.Push(notice.Error, "Failed to load samples")
		page = &models.SamplePage{Page: data.Page, Pages: 1}
	}
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Pages < 1 {
		page.Pages = 1
	}
	data.Samples = page.Samples
	data.Page = page.Page
	data.Pager = linkPager("samples-pager", page.Page, page.Pages, func(n int) string {
		return resultsURL(n, "")
	})

	if id := c.QueryParam("sample"); id != "" {
		current, ok := sess.results.Sample()
		if !ok || current.ID != id {
			for _, s := range page.Samples {
				if s.ID == id {
					sess.results.Select(s)
					break
				}
			}
		}
		if s, ok := sess.results.Sample(); ok && s.ID == id {
			data.SelectedID = id
			data.Sample = &s
			data.Rows = resultRows(s, sess.results)
		}
	}
	return a.render(c, "results", "Result Entry", data)
}

func resultRows(s models.Sample, e *results.Entry) []resultRow {
	sub, err := e.Submission()
	if err != nil {
		return nil
	}
	byTest := make(map[string]models.TestResult, len(sub.Results))
	for _, r := range sub.Results {
		byTest[r.TestID] = r
	}
	rows := make([]resultRow, 0, len(s.Tests))
	seen := make(map[string]bool, len(s.Tests))
	for _, t := range s.Tests {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		rows = append(rows, resultRow{Test: t, Result: byTest[t.ID]})
	}
	return rows
}

// applyResultForm copies the posted inputs into the entry. Unchecked
// boxes are absent from the form and read as false.
func applyResultForm(c echo.Context, e *results.Entry) error {
	sub, err := e.Submission()
	if err != nil {
		return err
	}
	for _, r := range sub.Results {
		id := r.TestID
		if err := e.Set(id, "value", c.FormValue("value-"+id)); err != nil {
			return err
		}
		if err := e.Set(id, "remarks", c.FormValue("remarks-"+id)); err != nil {
			return err
		}
		if err := e.Set(id, "abnormal", c.FormValue("abnormal-"+id)); err != nil {
			return err
		}
		for i := range r.Subtests {
			for _, field := range subResultFields {
				name := fmt.Sprintf("sub-%s-%d-%s", id, i, field)
				if err := e.SetSubResult(id, i, field, c.FormValue(name)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// resultAction applies the posted form and then runs fn. Without a
// selected sample the page is simply shown again.
func (a *app) resultAction(fn func(c echo.Context, e *results.Entry, page int) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := sessionFrom(c)
		page, _ := strconv.Atoi(c.FormValue("page"))
		if page < 1 {
			page = 1
		}
		if _, ok := sess.results.Sample(); !ok {
			return redirect(c, resultsURL(page, ""))
		}
		if err := applyResultForm(c, sess.results); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return fn(c, sess.results, page)
	}
}

func (a *app) handleAddSubResult(c echo.Context, e *results.Entry, page int) error {
	s, _ := e.Sample()
	if err := e.AddSubResult(c.QueryParam("test")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return redirect(c, resultsURL(page, s.ID))
}

func (a *app) handleRemoveSubResult(c echo.Context, e *results.Entry, page int) error {
	s, _ := e.Sample()
	idx, err := strconv.Atoi(c.QueryParam("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	if err := e.RemoveSubResult(c.QueryParam("test"), idx); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return redirect(c, resultsURL(page, s.ID))
}

// handleSubmitResults sends the results. On failure the entry is kept and
// the same sample is shown again.
func (a *app) handleSubmitResults(c echo.Context, e *results.Entry, page int) error {
	board := sessionFrom(c).board
	s, _ := e.Sample()
	if err := e.Submit(c.Request().Context(), a.api); err != nil {
		a.log.Warn().Err(err).Str("sample", s.ID).Msg("submit results")
		board.Push(notice.Error, results.MsgSubmitFailed)
		return redirect(c, resultsURL(page, s.ID))
	}
	board.Push(notice.Success, results.MsgSubmitted)
	return redirect(c, resultsURL(page, ""))
}

func (a *app) handleCloseResults(c echo.Context) error {
	sess := sessionFrom(c)
	sess.results.Close()
	page, _ := strconv.Atoi(c.FormValue("page"))
	if page < 1 {
		page = 1
	}
	return redirect(c, resultsURL(page, ""))
}
