// Package billing implements the billing page: patient lookup, test
// selection, amount computation, draft persistence and invoice generation.
package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"labdesk/internal/draft"
	"labdesk/internal/models"
	"labdesk/internal/notice"
	"labdesk/internal/patientsearch"
	"labdesk/internal/validate"
)

const (
	DefaultBanner = 30 * time.Second
	catalogLimit  = 1000
)

const (
	MsgNoPatient      = "Please select a patient"
	MsgNoTests        = "Please select at least one test"
	MsgGenerateFailed = "Failed to generate invoice"
)

var (
	ErrNoPatient      = errors.New("billing: no patient selected")
	ErrNoTests        = errors.New("billing: no tests selected")
	ErrBusy           = errors.New("billing: invoice generation in progress")
	ErrUnknownPatient = errors.New("billing: patient not in results")
	ErrUnknownTest    = errors.New("billing: test not in catalog")
	ErrBadIndex       = errors.New("billing: no test at index")
	ErrPaymentMode    = errors.New("billing: unknown payment mode")
)

type Config struct {
	Debounce time.Duration
	Banner   time.Duration
}

// View is a snapshot of the page for rendering.
type View struct {
	Search          string
	Patients        []models.Patient
	SelectedPatient *models.Patient
	Catalog         []models.LabTest
	SelectedTests   []models.LabTest
	Discount        string
	Paid            string
	PaymentMode     models.PaymentMode
	Amounts         Amounts

	QuickAddOpen     bool
	NewPatient       draft.PatientForm
	NewPatientErrors map[string]string

	Submitting  bool
	Banner      string
	LastInvoice *models.Invoice
}

// Workflow is one client's billing page. All methods are safe for
// concurrent use; network calls are made without holding the state lock.
type Workflow struct {
	api    API
	store  draft.Store
	board  *notice.Board
	search *patientsearch.Search
	cfg    Config
	log    zerolog.Logger

	// persistMu orders draft writes so a later state is never overwritten
	// by an earlier snapshot.
	persistMu sync.Mutex

	mu               sync.Mutex
	catalog          []models.LabTest
	patients         []models.Patient
	selectedPatient  *models.Patient
	selectedTests    []models.LabTest
	discount         string
	paid             string
	mode             models.PaymentMode
	newPatient       *validate.Form
	quickAddOpen     bool
	pendingPatientID string
	pendingTestIDs   []string
	testsRestored    bool
	submitting       bool
	banner           string
	lastInvoice      *models.Invoice
	bannerTimer      *time.Timer
}

// New builds the workflow. base bounds work that outlives a request:
// debounced searches.
func New(base context.Context, api API, store draft.Store, board *notice.Board, cfg Config, log zerolog.Logger) *Workflow {
	if cfg.Banner <= 0 {
		cfg.Banner = DefaultBanner
	}
	w := &Workflow{
		api:        api,
		store:      store,
		board:      board,
		cfg:        cfg,
		log:        log,
		mode:       models.PaymentCash,
		newPatient: newPatientForm(),
	}
	w.search = patientsearch.New(base, api, patientsearch.Options{
		Delay:   cfg.Debounce,
		OnEmpty: patientsearch.ClearOnEmpty,
	}, w.onResults, log)
	return w
}

func (w *Workflow) Board() *notice.Board { return w.board }

// Mount restores the stored draft and loads the test catalog. The stored
// patient is looked up among all patients; stored tests are resolved once,
// the first time the catalog arrives non-empty.
func (w *Workflow) Mount(ctx context.Context) {
	d, ok, err := draft.LoadBilling(ctx, w.store, w.log)
	if err != nil {
		w.log.Warn().Err(err).Msg("read billing draft")
	}

	if ok {
		w.mu.Lock()
		w.discount = FormatAmount(d.Discount)
		w.paid = FormatAmount(d.PaidAmount)
		if d.PaymentMode != "" {
			w.mode = d.PaymentMode
		}
		w.newPatient = formFromDraft(d.NewPatient)
		w.pendingPatientID = d.SelectedPatientID
		w.pendingTestIDs = d.SelectedTestIDs
		w.mu.Unlock()
		if d.Search != "" {
			w.search.Type(d.Search)
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		w.LoadCatalog(ctx)
		return nil
	})
	if ok && d.SelectedPatientID != "" {
		g.Go(func() error {
			w.restorePatient(ctx, d.SelectedPatientID)
			return nil
		})
	}
	g.Wait()
	w.board.Signal().Fire()
}

// LoadCatalog fetches the billable tests.
func (w *Workflow) LoadCatalog(ctx context.Context) {
	page, err := w.api.ListTests(ctx, 1, catalogLimit)
	if err != nil {
		w.log.Warn().Err(err).Msg("load test catalog")
		w.board.Push(notice.Error, "Failed to load tests")
		return
	}

	w.mu.Lock()
	w.catalog = page.Tests
	restored := w.restoreTestsLocked()
	w.mu.Unlock()

	if restored {
		w.persist(ctx)
	}
	w.board.Signal().Fire()
}

// restoreTestsLocked applies the stored test ids exactly once. Ids not in
// the catalog are dropped.
func (w *Workflow) restoreTestsLocked() bool {
	if w.testsRestored || len(w.catalog) == 0 {
		return false
	}
	w.testsRestored = true
	ids := w.pendingTestIDs
	w.pendingTestIDs = nil
	if len(ids) == 0 {
		return false
	}

	var restored []models.LabTest
	for _, id := range ids {
		t, ok := w.findTestLocked(id)
		if !ok || containsTest(restored, id) {
			continue
		}
		restored = append(restored, t)
	}
	if len(restored) > 0 {
		w.selectedTests = restored
	}
	return true
}

func (w *Workflow) restorePatient(ctx context.Context, id string) {
	page, err := w.api.SearchPatients(ctx, "", 0, 0)

	w.mu.Lock()
	defer w.mu.Unlock()
	// the user may have chosen someone else meanwhile
	if w.pendingPatientID != id {
		return
	}
	w.pendingPatientID = ""
	if err != nil {
		w.log.Warn().Err(err).Msg("restore draft patient")
		return
	}
	for i := range page.Patients {
		if page.Patients[i].ID == id {
			p := page.Patients[i]
			w.selectedPatient = &p
			return
		}
	}
}

func (w *Workflow) onResults(query string, page *models.PatientPage, err error) {
	if err != nil {
		w.board.Push(notice.Error, "Failed to search patients")
		return
	}
	w.mu.Lock()
	if page == nil {
		w.patients = nil
	} else {
		w.patients = page.Patients
	}
	w.mu.Unlock()
	w.board.Signal().Fire()
}

// TypeSearch records a keystroke in the patient search box.
func (w *Workflow) TypeSearch(ctx context.Context, q string) {
	w.search.Type(q)
	w.persist(ctx)
}

// SubmitSearch searches immediately, whatever the query length.
func (w *Workflow) SubmitSearch(ctx context.Context) {
	w.search.Submit(ctx)
}

func (w *Workflow) SelectPatient(ctx context.Context, id string) error {
	w.mu.Lock()
	var found *models.Patient
	for i := range w.patients {
		if w.patients[i].ID == id {
			p := w.patients[i]
			found = &p
			break
		}
	}
	if found == nil {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPatient, id)
	}
	w.selectedPatient = found
	w.pendingPatientID = ""
	w.mu.Unlock()

	w.persist(ctx)
	return nil
}

func (w *Workflow) ClearPatient(ctx context.Context) {
	w.mu.Lock()
	w.selectedPatient = nil
	w.pendingPatientID = ""
	w.mu.Unlock()
	w.persist(ctx)
}

// AddTest appends a catalog test to the selection. Adding a test that is
// already selected changes nothing.
func (w *Workflow) AddTest(ctx context.Context, id string) error {
	w.mu.Lock()
	t, ok := w.findTestLocked(id)
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTest, id)
	}
	if containsTest(w.selectedTests, id) {
		w.mu.Unlock()
		return nil
	}
	w.selectedTests = append(w.selectedTests, t)
	w.mu.Unlock()

	w.persist(ctx)
	return nil
}

// RemoveTest drops the selection entry at index i, keeping the order of
// the rest.
func (w *Workflow) RemoveTest(ctx context.Context, i int) error {
	w.mu.Lock()
	if i < 0 || i >= len(w.selectedTests) {
		w.mu.Unlock()
		return ErrBadIndex
	}
	next := make([]models.LabTest, 0, len(w.selectedTests)-1)
	next = append(next, w.selectedTests[:i]...)
	next = append(next, w.selectedTests[i+1:]...)
	w.selectedTests = next
	w.mu.Unlock()

	w.persist(ctx)
	return nil
}

func (w *Workflow) SetDiscount(ctx context.Context, raw string) {
	w.mu.Lock()
	w.discount = raw
	w.mu.Unlock()
	w.persist(ctx)
}

func (w *Workflow) SetPaid(ctx context.Context, raw string) {
	w.mu.Lock()
	w.paid = raw
	w.mu.Unlock()
	w.persist(ctx)
}

func (w *Workflow) SetPaymentMode(ctx context.Context, m models.PaymentMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %s", ErrPaymentMode, m)
	}
	w.mu.Lock()
	w.mode = m
	w.mu.Unlock()
	w.persist(ctx)
	return nil
}

func (w *Workflow) Amounts() Amounts {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Compute(w.selectedTests, w.discount, w.paid)
}

func (w *Workflow) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := View{
		Search:           w.search.Query(),
		Patients:         append([]models.Patient(nil), w.patients...),
		Catalog:          append([]models.LabTest(nil), w.catalog...),
		SelectedTests:    append([]models.LabTest(nil), w.selectedTests...),
		Discount:         w.discount,
		Paid:             w.paid,
		PaymentMode:      w.mode,
		Amounts:          Compute(w.selectedTests, w.discount, w.paid),
		QuickAddOpen:     w.quickAddOpen,
		NewPatient:       draftFromForm(w.newPatient),
		NewPatientErrors: w.newPatient.Errors(),
		Submitting:       w.submitting,
		Banner:           w.banner,
	}
	if w.selectedPatient != nil {
		p := *w.selectedPatient
		v.SelectedPatient = &p
	}
	if w.lastInvoice != nil {
		inv := *w.lastInvoice
		v.LastInvoice = &inv
	}
	return v
}

// Close stops pending timers.
func (w *Workflow) Close() {
	w.search.Stop()
	w.mu.Lock()
	if w.bannerTimer != nil {
		w.bannerTimer.Stop()
	}
	w.mu.Unlock()
}

// persist overwrites the stored draft with the current state. Until the
// deferred restores have run, the stored patient and test ids are carried
// over so an early edit cannot wipe them.
func (w *Workflow) persist(ctx context.Context) {
	w.persistMu.Lock()
	defer w.persistMu.Unlock()

	w.mu.Lock()
	d := w.draftLocked()
	w.mu.Unlock()

	if err := draft.SaveBilling(ctx, w.store, d); err != nil {
		w.log.Warn().Err(err).Msg("save billing draft")
	}
}

func (w *Workflow) draftLocked() draft.BillingDraft {
	d := draft.BillingDraft{
		Discount:    ParseAmount(w.discount),
		PaidAmount:  ParseAmount(w.paid),
		PaymentMode: w.mode,
		Search:      w.search.Query(),
		NewPatient:  draftFromForm(w.newPatient),
	}
	switch {
	case w.selectedPatient != nil:
		d.SelectedPatientID = w.selectedPatient.ID
	case w.pendingPatientID != "":
		d.SelectedPatientID = w.pendingPatientID
	}
	if w.testsRestored {
		d.SelectedTestIDs = testIDs(w.selectedTests)
	} else {
		d.SelectedTestIDs = append([]string(nil), w.pendingTestIDs...)
	}
	return d
}

func (w *Workflow) findTestLocked(id string) (models.LabTest, bool) {
	for _, t := range w.catalog {
		if t.ID == id {
			return t, true
		}
	}
	return models.LabTest{}, false
}

func containsTest(tests []models.LabTest, id string) bool {
	for _, t := range tests {
		if t.ID == id {
			return true
		}
	}
	return false
}

func testIDs(tests []models.LabTest) []string {
	ids := make([]string, len(tests))
	for i, t := range tests {
		ids[i] = t.ID
	}
	return ids
}
