package billing

import (
	"context"

	"labdesk/internal/models"
	"labdesk/internal/patientsearch"
)

// API defines the lab service calls the billing page makes
type API interface {
	patientsearch.Finder
	ListTests(ctx context.Context, page, limit int) (*models.TestPage, error)
	RegisterPatient(ctx context.Context, p models.NewPatient) (*models.Patient, error)
	CreateInvoice(ctx context.Context, req models.InvoiceRequest) (*models.Invoice, error)
}
