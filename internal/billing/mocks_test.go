package billing

import (
	"context"
	"sync/atomic"

	"labdesk/internal/models"
)

type MockAPI struct {
	SearchPatientsFunc  func(ctx context.Context, keyword string, page, limit int) (*models.PatientPage, error)
	ListTestsFunc       func(ctx context.Context, page, limit int) (*models.TestPage, error)
	RegisterPatientFunc func(ctx context.Context, p models.NewPatient) (*models.Patient, error)
	CreateInvoiceFunc   func(ctx context.Context, req models.InvoiceRequest) (*models.Invoice, error)

	searches atomic.Int32
	invoices atomic.Int32
}

func (m *MockAPI) SearchPatients(ctx context.Context, keyword string, page, limit int) (*models.PatientPage, error) {
	m.searches.Add(1)
	if m.SearchPatientsFunc == nil {
		return &models.PatientPage{}, nil
	}
	return m.SearchPatientsFunc(ctx, keyword, page, limit)
}

func (m *MockAPI) ListTests(ctx context.Context, page, limit int) (*models.TestPage, error) {
	if m.ListTestsFunc == nil {
		return &models.TestPage{}, nil
	}
	return m.ListTestsFunc(ctx, page, limit)
}

func (m *MockAPI) RegisterPatient(ctx context.Context, p models.NewPatient) (*models.Patient, error) {
	return m.RegisterPatientFunc(ctx, p)
}

func (m *MockAPI) CreateInvoice(ctx context.Context, req models.InvoiceRequest) (*models.Invoice, error) {
	m.invoices.Add(1)
	return m.CreateInvoiceFunc(ctx, req)
}
