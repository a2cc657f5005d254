package labapi

import (
	"errors"
	"fmt"

	"labdesk/internal/models"
)

// APIError is a non-2xx response from the lab service.
type APIError struct {
	Status  int
	Message string
	// Patient is set when registration is refused because the patient
	// already exists.
	Patient *models.Patient
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("lab api: status %d", e.Status)
	}
	return fmt.Sprintf("lab api: status %d: %s", e.Status, e.Message)
}

// MessageOr returns the server's message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// ExistingPatient returns the patient the server reported as already
// registered, if err carries one.
func ExistingPatient(err error) (*models.Patient, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Patient != nil {
		return apiErr.Patient, true
	}
	return nil, false
}
