package main

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"labdesk/internal/billing"
	"labdesk/internal/invoicedoc"
	"labdesk/internal/models"
	"labdesk/internal/validate"
)

var genders = []models.Gender{models.GenderMale, models.GenderFemale, models.GenderOther}

var billingFragments = []string{
	"billing-banner",
	"billing-patients",
	"billing-selected-patient",
	"billing-catalog",
	"billing-selection",
	"billing-amounts",
	"billing-quick-add",
}

// BillingSignals mirrors the inputs bound on the billing page.
type BillingSignals struct {
	Search            string             `json:"search"`
	TestID            string             `json:"testId"`
	Discount          string             `json:"discount"`
	Paid              string             `json:"paid"`
	PaymentMode       models.PaymentMode `json:"paymentMode"`
	NPName            string             `json:"npName"`
	NPAge             string             `json:"npAge"`
	NPGender          string             `json:"npGender"`
	NPMobile          string             `json:"npMobile"`
	NPReferringDoctor string             `json:"npReferringDoctor"`
}

func billingSignals(v billing.View) BillingSignals {
	return BillingSignals{
		Search:            v.Search,
		Discount:          v.Discount,
		Paid:              v.Paid,
		PaymentMode:       v.PaymentMode,
		NPName:            v.NewPatient.Name,
		NPAge:             v.NewPatient.Age,
		NPGender:          v.NewPatient.Gender,
		NPMobile:          v.NewPatient.Mobile,
		NPReferringDoctor: v.NewPatient.ReferringDoctor,
	}
}

// newPatientSignal maps a quick-add form field to its signal name and value.
func (s BillingSignals) newPatientSignal(field string) (string, string, bool) {
	switch field {
	case validate.Name:
		return "npName", s.NPName, true
	case validate.Age:
		return "npAge", s.NPAge, true
	case validate.Gender:
		return "npGender", s.NPGender, true
	case validate.Mobile:
		return "npMobile", s.NPMobile, true
	case validate.ReferringDoctor:
		return "npReferringDoctor", s.NPReferringDoctor, true
	}
	return "", "", false
}

type billingData struct {
	View         billing.View
	InvoiceKey   string
	PaymentModes []models.PaymentMode
	Genders      []models.Gender
	Signals      BillingSignals
}

func newBillingData(v billing.View) billingData {
	key, _ := invoicedoc.DocumentKey(v.LastInvoice)
	return billingData{
		View:         v,
		InvoiceKey:   key,
		PaymentModes: models.PaymentModes,
		Genders:      genders,
		Signals:      billingSignals(v),
	}
}

func (a *app) workflow(c echo.Context) (*billing.Workflow, *Session, error) {
	sess := sessionFrom(c)
	wf, err := a.billingFor(c.Request().Context(), sess)
	if err != nil {
		return nil, nil, err
	}
	return wf, sess, nil
}

func (a *app) handleBilling(c echo.Context) error {
	wf, _, err := a.workflow(c)
	if err != nil {
		return err
	}
	return a.render(c, "billing", "Billing", newBillingData(wf.Snapshot()))
}

func (a *app) handleBillingStream(c echo.Context) error {
	wf, sess, err := a.workflow(c)
	if err != nil {
		return err
	}
	return a.stream(c, sess, "billing", func() (string, error) {
		return a.views.fragments("billing", newBillingData(wf.Snapshot()), billingFragments...)
	})
}

// lazySSE opens the event stream on first use, so actions that only
// change state can answer 204.
type lazySSE func() *datastar.ServerSentEventGenerator

type billingHandler func(c echo.Context, wf *billing.Workflow, s BillingSignals, sse lazySSE) error

// billingAction reads the page signals and runs fn against the workflow.
// Fragments are re-rendered by the page stream.
func (a *app) billingAction(fn billingHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		var signals BillingSignals
		if err := datastar.ReadSignals(c.Request(), &signals); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		wf, sess, err := a.workflow(c)
		if err != nil {
			return err
		}

		var gen *datastar.ServerSentEventGenerator
		sse := func() *datastar.ServerSentEventGenerator {
			if gen == nil {
				gen = datastar.NewSSE(c.Response(), c.Request())
			}
			return gen
		}
		if err := fn(c, wf, signals, sse); err != nil {
			return err
		}
		sess.board.Signal().Fire()
		if gen == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return nil
	}
}

func (a *app) handleBillingSearch(c echo.Context, wf *billing.Workflow, s BillingSignals, _ lazySSE) error {
	wf.TypeSearch(c.Request().Context(), s.Search)
	return nil
}

func (a *app) handleBillingSearchSubmit(c echo.Context, wf *billing.Workflow, s BillingSignals, _ lazySSE) error {
	ctx := c.Request().Context()
	if wf.Snapshot().Search != s.Search {
		wf.TypeSearch(ctx, s.Search)
	}
	wf.SubmitSearch(ctx)
	return nil
}

func (a *app) handleBillingSelectPatient(c echo.Context, wf *billing.Workflow, _ BillingSignals, _ lazySSE) error {
	if err := wf.SelectPatient(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return nil
}

func (a *app) handleBillingClearPatient(c echo.Context, wf *billing.Workflow, _ BillingSignals, _ lazySSE) error {
	wf.ClearPatient(c.Request().Context())
	return nil
}

func (a *app) handleBillingAddTest(c echo.Context, wf *billing.Workflow, s BillingSignals, sse lazySSE) error {
	if s.TestID == "" {
		return nil
	}
	if err := wf.AddTest(c.Request().Context(), s.TestID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return sse().MarshalAndPatchSignals(map[string]string{"testId": ""})
}

func (a *app) handleBillingRemoveTest(c echo.Context, wf *billing.Workflow, _ BillingSignals, _ lazySSE) error {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	if err := wf.RemoveTest(c.Request().Context(), i); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return nil
}

func (a *app) handleBillingAmounts(c echo.Context, wf *billing.Workflow, s BillingSignals, _ lazySSE) error {
	ctx := c.Request().Context()
	wf.SetDiscount(ctx, s.Discount)
	wf.SetPaid(ctx, s.Paid)
	if s.PaymentMode != "" {
		if err := wf.SetPaymentMode(ctx, s.PaymentMode); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return nil
}

func (a *app) handleQuickAddOpen(c echo.Context, wf *billing.Workflow, _ BillingSignals, _ lazySSE) error {
	wf.OpenQuickAdd()
	return nil
}

func (a *app) handleQuickAddClose(c echo.Context, wf *billing.Workflow, _ BillingSignals, _ lazySSE) error {
	wf.CloseQuickAdd()
	return nil
}

// handleQuickAddInput applies one keystroke. When filtering changed what
// was typed, the cleaned value is written back to the input.
func (a *app) handleQuickAddInput(c echo.Context, wf *billing.Workflow, s BillingSignals, sse lazySSE) error {
	field := c.Param("field")
	signal, raw, ok := s.newPatientSignal(field)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown field")
	}
	wf.InputNewPatient(c.Request().Context(), field, raw)

	_, stored, _ := billingSignals(wf.Snapshot()).newPatientSignal(field)
	if stored == raw {
		return nil
	}
	return sse().MarshalAndPatchSignals(map[string]string{signal: stored})
}

func (a *app) handleQuickAddSubmit(c echo.Context, wf *billing.Workflow, _ BillingSignals, sse lazySSE) error {
	if _, err := wf.RegisterNewPatient(c.Request().Context()); err != nil {
		return nil
	}
	np := billingSignals(wf.Snapshot())
	return sse().MarshalAndPatchSignals(map[string]string{
		"npName":            np.NPName,
		"npAge":             np.NPAge,
		"npGender":          np.NPGender,
		"npMobile":          np.NPMobile,
		"npReferringDoctor": np.NPReferringDoctor,
	})
}

// handleGenerate runs on the session context so a navigation away does
// not abandon an invoice the server may already have created.
func (a *app) handleGenerate(c echo.Context, wf *billing.Workflow, _ BillingSignals, sse lazySSE) error {
	sess := sessionFrom(c)
	if _, err := wf.Generate(sess.ctx); err != nil {
		// failures other than ErrBusy are already on the board
		return nil
	}
	if err := sse().MarshalAndPatchSignals(billingSignals(wf.Snapshot())); err != nil {
		return err
	}
	return sse().ExecuteScript("window.scrollTo({top: 0, behavior: 'smooth'})")
}
