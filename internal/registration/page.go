package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"labdesk/internal/labapi"
	"labdesk/internal/models"
	"labdesk/internal/notice"
	"labdesk/internal/patientsearch"
	"labdesk/internal/validate"
)

const (
	PageLimit    = 8
	MsgNoInvoice = "No invoice found for this patient"
)

var ErrNoInvoice = errors.New("registration: patient has no invoice")

type API interface {
	patientsearch.Finder
	RegisterPatient(ctx context.Context, p models.NewPatient) (*models.Patient, error)
	ListInvoices(ctx context.Context, patientID string, limit int) (*models.InvoicePage, error)
}

// View is a snapshot of the page for rendering.
type View struct {
	Patients []models.Patient
	Page     int
	Pages    int
	Total    int
	Search   string
	Values   map[string]string
	Errors   map[string]string
	Focus    string
	Loading  bool
}

type Page struct {
	api    API
	log    zerolog.Logger
	board  *notice.Board
	search *patientsearch.Search

	mu      sync.Mutex
	form    *validate.Form
	list    models.PatientPage
	focus   string
	loading bool
}

// New builds the page. base bounds searches fired by the debounce timer.
func New(base context.Context, api API, debounce time.Duration, board *notice.Board, log zerolog.Logger) *Page {
	p := &Page{
		api:   api,
		log:   log,
		board: board,
		form:  NewForm(),
		list:  models.PatientPage{Page: 1, Pages: 1},
	}
	p.search = patientsearch.New(base, api, patientsearch.Options{
		Delay:   debounce,
		Limit:   PageLimit,
		OnEmpty: patientsearch.ListOnEmpty,
	}, p.onResults, log)
	return p
}

func (p *Page) Board() *notice.Board { return p.board }

func (p *Page) onResults(query string, res *models.PatientPage, err error) {
	p.mu.Lock()
	p.loading = false
	if err == nil && res != nil {
		p.list = *res
		if p.list.Page < 1 {
			p.list.Page = 1
		}
		if p.list.Pages < 1 {
			p.list.Pages = 1
		}
	}
	p.mu.Unlock()

	if err != nil {
		p.board.Push(notice.Error, "Failed to fetch patients")
		return
	}
	p.board.Signal().Fire()
}

// Load fetches the current page of the current query.
func (p *Page) Load(ctx context.Context) {
	p.mu.Lock()
	page := p.list.Page
	p.loading = true
	p.mu.Unlock()
	p.search.GoTo(ctx, page)
}

func (p *Page) Type(query string) { p.search.Type(query) }

func (p *Page) SubmitSearch(ctx context.Context) { p.search.Submit(ctx) }

// GoTo moves to page n, clamped to the known page range.
func (p *Page) GoTo(ctx context.Context, n int) {
	p.mu.Lock()
	if n > p.list.Pages {
		n = p.list.Pages
	}
	if n < 1 {
		n = 1
	}
	p.loading = true
	p.mu.Unlock()
	p.search.GoTo(ctx, n)
}

// Input applies a keystroke to a form field and returns its error.
func (p *Page) Input(field, raw string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if field == validate.Gender {
		p.form.Set(field, raw)
		return ""
	}
	return p.form.Input(field, raw)
}

// Register validates and submits the form. On a validation failure the
// first invalid field is remembered for focus and validate.ErrInvalid
// returned.
func (p *Page) Register(ctx context.Context) (*models.Patient, error) {
	p.mu.Lock()
	field, msg := p.form.Validate()
	if field != "" {
		p.focus = field
		p.mu.Unlock()
		p.board.Push(notice.Error, msg)
		return nil, validate.ErrInvalid
	}
	p.focus = ""
	payload := BuildPatient(p.form)
	p.mu.Unlock()

	created, err := p.api.RegisterPatient(ctx, payload)
	if err != nil {
		p.log.Warn().Err(err).Msg("register patient")
		p.board.Push(notice.Error, labapi.MessageOr(err, "Registration Failed."))
		return nil, err
	}

	p.mu.Lock()
	p.form.Reset(defaults())
	p.mu.Unlock()
	p.board.Push(notice.Success, fmt.Sprintf("Patient registered successfully! ID: %s", created.PatientID))
	p.Load(ctx)
	return created, nil
}

// LatestInvoice finds the patient's most recent invoice for printing.
func (p *Page) LatestInvoice(ctx context.Context, patientID string) (models.Invoice, error) {
	res, err := p.api.ListInvoices(ctx, patientID, 1)
	if err != nil {
		return models.Invoice{}, err
	}
	if len(res.Invoices) == 0 {
		return models.Invoice{}, ErrNoInvoice
	}
	return res.Invoices[0], nil
}

func (p *Page) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return View{
		Patients: append([]models.Patient(nil), p.list.Patients...),
		Page:     p.list.Page,
		Pages:    p.list.Pages,
		Total:    p.list.Total,
		Search:   p.search.Query(),
		Values:   p.form.Values(),
		Errors:   p.form.Errors(),
		Focus:    p.focus,
		Loading:  p.loading,
	}
}

func (p *Page) Close() { p.search.Stop() }
