package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"labdesk/internal/models"
	"labdesk/internal/registration"
	"labdesk/internal/validate"
)

// RegistrationSignals mirrors the inputs bound on the registration page.
type RegistrationSignals struct {
	Search          string `json:"search"`
	Name            string `json:"name"`
	Age             string `json:"age"`
	AgeMonths       string `json:"ageMonths"`
	Gender          string `json:"gender"`
	Mobile          string `json:"mobile"`
	Email           string `json:"email"`
	Address         string `json:"address"`
	ReferringDoctor string `json:"referringDoctor"`
}

func (s RegistrationSignals) field(name string) (string, bool) {
	switch name {
	case validate.Name:
		return s.Name, true
	case validate.Age:
		return s.Age, true
	case validate.AgeMonths:
		return s.AgeMonths, true
	case validate.Gender:
		return s.Gender, true
	case validate.Mobile:
		return s.Mobile, true
	case validate.Email:
		return s.Email, true
	case validate.Address:
		return s.Address, true
	case validate.ReferringDoctor:
		return s.ReferringDoctor, true
	}
	return "", false
}

func registrationSignals(v registration.View) RegistrationSignals {
	return RegistrationSignals{
		Search:          v.Search,
		Name:            v.Values[validate.Name],
		Age:             v.Values[validate.Age],
		AgeMonths:       v.Values[validate.AgeMonths],
		Gender:          v.Values[validate.Gender],
		Mobile:          v.Values[validate.Mobile],
		Email:           v.Values[validate.Email],
		Address:         v.Values[validate.Address],
		ReferringDoctor: v.Values[validate.ReferringDoctor],
	}
}

var fieldLabels = map[string]string{
	validate.Name:            "Full Name *",
	validate.Age:             "Age (Years) *",
	validate.AgeMonths:       "Months",
	validate.Gender:          "Gender",
	validate.Mobile:          "Mobile Number *",
	validate.Email:           "Email",
	validate.Address:         "Address",
	validate.ReferringDoctor: "Referring Doctor",
}

type formField struct {
	Name    string
	Label   string
	Numeric bool
	Error   string
}

type registrationData struct {
	Fields  []formField
	Genders []models.Gender
	View    registration.View
	Pager   pager
	Signals RegistrationSignals
}

func newRegistrationData(v registration.View) registrationData {
	fields := make([]formField, 0, len(registration.Fields))
	for _, name := range registration.Fields {
		fields = append(fields, formField{
			Name:    name,
			Label:   fieldLabels[name],
			Numeric: name == validate.Age || name == validate.AgeMonths || name == validate.Mobile,
			Error:   v.Errors[name],
		})
	}
	return registrationData{
		Fields:  fields,
		Genders: genders,
		View:    v,
		Pager: actionPager("registration-pager", v.Page, v.Pages, func(n int) string {
			return fmt.Sprintf("/registration/page/%d", n)
		}),
		Signals: registrationSignals(v),
	}
}

func (a *app) handleRegistration(c echo.Context) error {
	page := a.registrationFor(c.Request().Context(), sessionFrom(c))
	return a.render(c, "registration", "Patient Registration", newRegistrationData(page.Snapshot()))
}

func (a *app) handleRegistrationStream(c echo.Context) error {
	sess := sessionFrom(c)
	page := a.registrationFor(c.Request().Context(), sess)
	return a.stream(c, sess, "registration", func() (string, error) {
		return a.views.fragments("registration", newRegistrationData(page.Snapshot()), "registration-form", "registration-list")
	})
}

type registrationHandler func(c echo.Context, page *registration.Page, s RegistrationSignals, sse lazySSE) error

func (a *app) registrationAction(fn registrationHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		var signals RegistrationSignals
		if err := datastar.ReadSignals(c.Request(), &signals); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		sess := sessionFrom(c)
		page := a.registrationFor(c.Request().Context(), sess)

		var gen *datastar.ServerSentEventGenerator
		sse := func() *datastar.ServerSentEventGenerator {
			if gen == nil {
				gen = datastar.NewSSE(c.Response(), c.Request())
			}
			return gen
		}
		if err := fn(c, page, signals, sse); err != nil {
			return err
		}
		sess.board.Signal().Fire()
		if gen == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return nil
	}
}

func (a *app) handleRegistrationSearch(c echo.Context, page *registration.Page, s RegistrationSignals, _ lazySSE) error {
	page.Type(s.Search)
	return nil
}

func (a *app) handleRegistrationSearchSubmit(c echo.Context, page *registration.Page, s RegistrationSignals, _ lazySSE) error {
	if page.Snapshot().Search != s.Search {
		page.Type(s.Search)
	}
	page.SubmitSearch(c.Request().Context())
	return nil
}

func (a *app) handleRegistrationPage(c echo.Context, page *registration.Page, _ RegistrationSignals, _ lazySSE) error {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	page.GoTo(c.Request().Context(), n)
	return nil
}

// handleRegistrationInput applies one keystroke and writes the filtered
// value back when it differs from what was typed.
func (a *app) handleRegistrationInput(c echo.Context, page *registration.Page, s RegistrationSignals, sse lazySSE) error {
	field := c.Param("field")
	raw, ok := s.field(field)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown field")
	}
	page.Input(field, raw)

	stored := page.Snapshot().Values[field]
	if stored == raw {
		return nil
	}
	return sse().MarshalAndPatchSignals(map[string]string{field: stored})
}

// handleRegister submits the form. The first invalid field takes focus;
// after a successful registration the inputs are reset.
func (a *app) handleRegister(c echo.Context, page *registration.Page, _ RegistrationSignals, sse lazySSE) error {
	_, err := page.Register(c.Request().Context())
	if errors.Is(err, validate.ErrInvalid) {
		focus := page.Snapshot().Focus
		return sse().ExecuteScript(fmt.Sprintf("document.getElementById('reg-%s')?.focus()", focus))
	}
	if err != nil {
		return nil
	}
	return sse().MarshalAndPatchSignals(registrationSignals(page.Snapshot()))
}
