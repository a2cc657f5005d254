package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"labdesk/internal/labapi"
	"labdesk/internal/models"
	"labdesk/internal/notice"
)

const (
	testPageLimit = 50

	MsgDepartmentNameRequired = "Department name is required"
	MsgTestNameRequired       = "Test name is required"
	MsgDepartmentRequired     = "Please select a department"
	MsgPriceInvalid           = "Price must be a positive number"
)

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// decodeForm parses the posted form into dst.
func decodeForm(c echo.Context, dst interface{}) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := formDecoder.Decode(dst, form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func pageParam(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// redirect finishes a plain form post.
func redirect(c echo.Context, url string) error {
	return c.Redirect(http.StatusSeeOther, url)
}

// navigate finishes a Datastar action by sending the browser elsewhere.
func navigate(c echo.Context, url string) error {
	sse := datastar.NewSSE(c.Response(), c.Request())
	return sse.ExecuteScript(fmt.Sprintf("window.location.href = %q", url))
}

// Departments

type departmentsData struct {
	Departments []models.Department
	Form        models.Department
	Error       string
}

type departmentForm struct {
	Name        string `schema:"name"`
	Description string `schema:"description"`
}

func (a *app) handleDepartments(c echo.Context) error {
	return a.renderDepartments(c, departmentsData{})
}

func (a *app) renderDepartments(c echo.Context, data departmentsData) error {
	depts, err := a.api.ListDepartments(c.Request().Context())
	if err != nil {
		a.log.Warn().Err(err).Msg("list departments")
		sessionFrom(c).board.Push(notice.Error, "Failed to load departments")
	}
	data.Departments = depts
	return a.render(c, "departments", "Departments", data)
}

func (a *app) handleCreateDepartment(c echo.Context) error {
	var form departmentForm
	if err := decodeForm(c, &form); err != nil {
		return err
	}
	dept := models.Department{
		Name:        strings.TrimSpace(form.Name),
		Description: strings.TrimSpace(form.Description),
	}
	board := sessionFrom(c).board

	if dept.Name == "" {
		board.Push(notice.Error, MsgDepartmentNameRequired)
		return a.renderDepartments(c, departmentsData{Form: dept, Error: MsgDepartmentNameRequired})
	}
	if _, err := a.api.CreateDepartment(c.Request().Context(), dept); err != nil {
		a.log.Warn().Err(err).Msg("create department")
		board.Push(notice.Error, labapi.MessageOr(err, "Failed to create department"))
		return a.renderDepartments(c, departmentsData{Form: dept})
	}
	board.Push(notice.Success, "Department created successfully")
	return redirect(c, "/departments")
}

// handleDeleteDepartment answers a Datastar action: the rows are refreshed
// under the current search and the outcome is shown as a notice.
func (a *app) handleDeleteDepartment(c echo.Context) error {
	signals := &ActiveSearchSignals{}
	if err := datastar.ReadSignals(c.Request(), signals); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	board := sessionFrom(c).board

	if err := a.api.DeleteDepartment(ctx, c.Param("id")); err != nil {
		a.log.Warn().Err(err).Str("department", c.Param("id")).Msg("delete department")
		board.Push(notice.Error, "Failed to delete department")
	} else {
		board.Push(notice.Success, "Department deleted successfully")
	}

	sse := datastar.NewSSE(c.Response(), c.Request())
	depts, err := a.api.ListDepartments(ctx)
	if err == nil {
		html, err := a.views.fragment("departments", "department-rows", filterDepartments(depts, signals.Search))
		if err != nil {
			return err
		}
		if err := sse.PatchElements(html); err != nil {
			return err
		}
	}
	return a.patchNotices(sse, board)
}

// Tests

// testForm is the flat form behind a lab test; range bounds are kept as
// typed.
type testForm struct {
	TestName   string `schema:"testName"`
	Department string `schema:"department"`
	SampleType string `schema:"sampleType"`
	Unit       string `schema:"unit"`
	Method     string `schema:"method"`
	Price      string `schema:"price"`
	TAT        string `schema:"tat"`
	MaleMin    string `schema:"maleMin"`
	MaleMax    string `schema:"maleMax"`
	FemaleMin  string `schema:"femaleMin"`
	FemaleMax  string `schema:"femaleMax"`
	ChildMin   string `schema:"childMin"`
	ChildMax   string `schema:"childMax"`
	General    string `schema:"general"`
	Page       int    `schema:"page"`
}

func testFormFrom(t models.LabTest) testForm {
	f := testForm{
		TestName:   t.TestName,
		Department: t.Department.ID,
		SampleType: t.SampleType,
		Unit:       t.Unit,
		Method:     t.Method,
		TAT:        t.TAT,
		MaleMin:    string(t.NormalRanges.Male.Min),
		MaleMax:    string(t.NormalRanges.Male.Max),
		FemaleMin:  string(t.NormalRanges.Female.Min),
		FemaleMax:  string(t.NormalRanges.Female.Max),
		ChildMin:   string(t.NormalRanges.Child.Min),
		ChildMax:   string(t.NormalRanges.Child.Max),
		General:    t.NormalRanges.General,
	}
	if t.Price != 0 {
		f.Price = strconv.FormatFloat(t.Price, 'f', -1, 64)
	}
	return f
}

// labTest builds the payload, or returns the message for the first
// problem with the form.
func (f testForm) labTest() (models.LabTest, string) {
	t := models.LabTest{
		TestName:   strings.TrimSpace(f.TestName),
		Department: models.DepartmentRef{ID: f.Department},
		SampleType: f.SampleType,
		Unit:       f.Unit,
		Method:     f.Method,
		TAT:        f.TAT,
		NormalRanges: models.NormalRanges{
			Male:    models.Range{Min: models.Bound(f.MaleMin), Max: models.Bound(f.MaleMax)},
			Female:  models.Range{Min: models.Bound(f.FemaleMin), Max: models.Bound(f.FemaleMax)},
			Child:   models.Range{Min: models.Bound(f.ChildMin), Max: models.Bound(f.ChildMax)},
			General: f.General,
		},
	}
	if t.TestName == "" {
		return t, MsgTestNameRequired
	}
	if t.Department.ID == "" {
		return t, MsgDepartmentRequired
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64)
	if err != nil || price < 0 {
		return t, MsgPriceInvalid
	}
	t.Price = price
	return t, ""
}

type testsData struct {
	Tests       []models.LabTest
	Departments []models.Department
	Form        testForm
	EditingID   string
	Page        int
	Pager       pager
}

func testsURL(n int) string { return fmt.Sprintf("/tests?page=%d", n) }

func (a *app) handleTests(c echo.Context) error {
	data := testsData{Page: pageParam(c, "page"), EditingID: c.QueryParam("edit")}
	return a.renderTests(c, data, data.EditingID != "")
}

// renderTests lists one page of tests. With fill set, the form is filled
// from the test being edited.
func (a *app) renderTests(c echo.Context, data testsData, fill bool) error {
	ctx := c.Request().Context()
	board := sessionFrom(c).board

	page, err := a.api.ListTests(ctx, data.Page, testPageLimit)
	if err != nil {
		a.log.Warn().Err(err).Msg("list tests")
		board.Push(notice.Error, "Failed to load tests")
		page = &models.TestPage{Page: data.Page, Pages: 1}
	}
	depts, err := a.api.ListDepartments(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("list departments")
		board.Push(notice.Error, "Failed to load departments")
	}

	if page.Page < 1 {
		page.Page = 1
	}
	if page.Pages < 1 {
		page.Pages = 1
	}
	data.Tests = page.Tests
	data.Departments = depts
	data.Page = page.Page
	data.Pager = linkPager("tests-pager", page.Page, page.Pages, testsURL)

	if fill {
		for _, t := range page.Tests {
			if t.ID == data.EditingID {
				data.Form = testFormFrom(t)
			}
		}
	}
	return a.render(c, "tests", "Test Master", data)
}

// handleSaveTest creates a test, or updates one when the route carries an id.
func (a *app) handleSaveTest(c echo.Context) error {
	var form testForm
	if err := decodeForm(c, &form); err != nil {
		return err
	}
	if form.Page < 1 {
		form.Page = 1
	}
	id := c.Param("id")
	board := sessionFrom(c).board

	t, problem := form.labTest()
	if problem != "" {
		board.Push(notice.Error, problem)
		return a.renderTests(c, testsData{Page: form.Page, EditingID: id, Form: form}, false)
	}

	ctx := c.Request().Context()
	msg := "Test created successfully"
	var err error
	if id != "" {
		_, err = a.api.UpdateTest(ctx, id, t)
		msg = "Test updated successfully"
	} else {
		_, err = a.api.CreateTest(ctx, t)
	}
	if err != nil {
		a.log.Warn().Err(err).Str("test", id).Msg("save test")
		board.Push(notice.Error, labapi.MessageOr(err, "Failed to save test"))
		return a.renderTests(c, testsData{Page: form.Page, EditingID: id, Form: form}, false)
	}
	board.Push(notice.Success, msg)
	return redirect(c, testsURL(form.Page))
}

func (a *app) handleDeleteTest(c echo.Context) error {
	board := sessionFrom(c).board
	if err := a.api.DeleteTest(c.Request().Context(), c.Param("id")); err != nil {
		a.log.Warn().Err(err).Str("test", c.Param("id")).Msg("delete test")
		board.Push(notice.Error, "Failed to delete test")
	} else {
		board.Push(notice.Success, "Test deleted successfully")
	}
	return navigate(c, testsURL(pageParam(c, "page")))
}
