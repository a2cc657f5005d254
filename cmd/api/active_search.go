package main

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"labdesk/internal/models"
	"labdesk/internal/notice"
)

type ActiveSearchSignals struct {
	Search string `json:"search"`
}

// filterDepartments keeps departments whose name or description contains
// the query, ignoring case. An empty query keeps everything.
func filterDepartments(depts []models.Department, query string) []models.Department {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return depts
	}
	var out []models.Department
	for _, d := range depts {
		if strings.Contains(strings.ToLower(d.Name), query) || strings.Contains(strings.ToLower(d.Description), query) {
			out = append(out, d)
		}
	}
	return out
}

func (a *app) handleDepartmentSearch(c echo.Context) error {
	signals := &ActiveSearchSignals{}
	if err := datastar.ReadSignals(c.Request(), signals); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	depts, err := a.api.ListDepartments(c.Request().Context())
	if err != nil {
		a.log.Warn().Err(err).Msg("list departments")
		sess := sessionFrom(c)
		sess.board.Push(notice.Error, "Failed to load departments")
		sse := datastar.NewSSE(c.Response(), c.Request())
		return a.patchNotices(sse, sess.board)
	}

	html, err := a.views.fragment("departments", "department-rows", filterDepartments(depts, signals.Search))
	if err != nil {
		return err
	}
	sse := datastar.NewSSE(c.Response(), c.Request())
	return sse.PatchElements(html)
}
