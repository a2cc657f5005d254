package registration

import (
	"context"

	"labdesk/internal/models"
)

type MockAPI struct {
	SearchPatientsFunc  func(ctx context.Context, keyword string, page, limit int) (*models.PatientPage, error)
	RegisterPatientFunc func(ctx context.Context, p models.NewPatient) (*models.Patient, error)
	ListInvoicesFunc    func(ctx context.Context, patientID string, limit int) (*models.InvoicePage, error)
}

func (m *MockAPI) SearchPatients(ctx context.Context, keyword string, page, limit int) (*models.PatientPage, error) {
	if m.SearchPatientsFunc == nil {
		return &models.PatientPage{Page: page, Pages: 1}, nil
	}
	return m.SearchPatientsFunc(ctx, keyword, page, limit)
}

func (m *MockAPI) RegisterPatient(ctx context.Context, p models.NewPatient) (*models.Patient, error) {
	return m.RegisterPatientFunc(ctx, p)
}

func (m *MockAPI) ListInvoices(ctx context.Context, patientID string, limit int) (*models.InvoicePage, error) {
	return m.ListInvoicesFunc(ctx, patientID, limit)
}
