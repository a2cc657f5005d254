package labapi

import (
	"context"
	"net/http"

	"labdesk/internal/models"
)

// SearchPatients lists patients matching keyword; an empty keyword lists all.
func (c *Client) SearchPatients(ctx context.Context, keyword string, page, limit int) (*models.PatientPage, error) {
	q := pageQuery(page, limit)
	if keyword != "" {
		q.Set("keyword", keyword)
	}
	var out models.PatientPage
	if err := c.call(ctx, http.MethodGet, "/patients", "/patients", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterPatient creates a patient. When the server refuses a duplicate,
// the returned *APIError carries the existing record.
func (c *Client) RegisterPatient(ctx context.Context, p models.NewPatient) (*models.Patient, error) {
	var out models.Patient
	if err := c.call(ctx, http.MethodPost, "/patients", "/patients", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
