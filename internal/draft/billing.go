package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"labdesk/internal/models"
)

const (
	BillingName    = "billing"
	BillingVersion = 1
)

// PatientForm is the quick-add patient sub-form as typed, before formatting.
type PatientForm struct {
	Name            string `json:"name"`
	Age             string `json:"age"`
	Gender          string `json:"gender"`
	Mobile          string `json:"mobile"`
	ReferringDoctor string `json:"referringDoctor"`
}

func EmptyPatientForm() PatientForm {
	return PatientForm{Gender: string(models.GenderMale)}
}

// BillingDraft is the persisted state of an unsubmitted bill.
type BillingDraft struct {
	Version           int                `json:"version"`
	SelectedPatientID string             `json:"selectedPatientId,omitempty"`
	SelectedTestIDs   []string           `json:"selectedTestIds"`
	Discount          float64            `json:"discount"`
	PaidAmount        float64            `json:"paidAmount"`
	PaymentMode       models.PaymentMode `json:"paymentMode,omitempty"`
	Search            string             `json:"search"`
	NewPatient        PatientForm        `json:"newPatient"`
}

func (d BillingDraft) validate() error {
	if d.PaymentMode != "" && !d.PaymentMode.Valid() {
		return fmt.Errorf("%w: unknown payment mode %q", ErrMalformed, d.PaymentMode)
	}
	for _, id := range d.SelectedTestIDs {
		if id == "" {
			return fmt.Errorf("%w: empty test id", ErrMalformed)
		}
	}
	return nil
}

// legacyBillingDraft is the unversioned blob written before drafts carried
// a version. selectedPatientId was written as null when nothing was chosen.
type legacyBillingDraft struct {
	SelectedPatientID *string            `json:"selectedPatientId"`
	SelectedTestIDs   []string           `json:"selectedTestIds"`
	Discount          *float64           `json:"discount"`
	PaidAmount        *float64           `json:"paidAmount"`
	PaymentMode       models.PaymentMode `json:"paymentMode"`
	Search            string             `json:"search"`
	NewPatient        *PatientForm       `json:"newPatient"`
}

func (l legacyBillingDraft) upgrade() BillingDraft {
	d := BillingDraft{
		Version:         BillingVersion,
		SelectedTestIDs: l.SelectedTestIDs,
		PaymentMode:     l.PaymentMode,
		Search:          l.Search,
		NewPatient:      EmptyPatientForm(),
	}
	if l.SelectedPatientID != nil {
		d.SelectedPatientID = *l.SelectedPatientID
	}
	if l.Discount != nil {
		d.Discount = *l.Discount
	}
	if l.PaidAmount != nil {
		d.PaidAmount = *l.PaidAmount
	}
	if l.NewPatient != nil {
		d.NewPatient = *l.NewPatient
	}
	return d
}

// DecodeBillingDraft parses a stored blob. Unversioned blobs are upgraded;
// unknown versions, unknown fields and wrong types yield ErrMalformed.
func DecodeBillingDraft(data []byte) (BillingDraft, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return BillingDraft{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return BillingDraft{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var d BillingDraft
	switch {
	case probe.Version == nil:
		var legacy legacyBillingDraft
		if err := strictDecode(data, &legacy); err != nil {
			return BillingDraft{}, err
		}
		d = legacy.upgrade()
	case *probe.Version == BillingVersion:
		if err := strictDecode(data, &d); err != nil {
			return BillingDraft{}, err
		}
	default:
		return BillingDraft{}, fmt.Errorf("%w: unsupported version %d", ErrMalformed, *probe.Version)
	}

	if err := d.validate(); err != nil {
		return BillingDraft{}, err
	}
	return d, nil
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// EncodeBillingDraft stamps the current version and serializes d.
func EncodeBillingDraft(d BillingDraft) ([]byte, error) {
	d.Version = BillingVersion
	if d.SelectedTestIDs == nil {
		d.SelectedTestIDs = []string{}
	}
	return json.Marshal(d)
}

// LoadBilling reads the billing draft from s. A missing draft reports
// ok=false; a malformed one is logged, ignored and reported the same way.
func LoadBilling(ctx context.Context, s Store, log zerolog.Logger) (BillingDraft, bool, error) {
	data, err := s.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return BillingDraft{}, false, nil
	}
	if err != nil {
		return BillingDraft{}, false, err
	}
	d, err := DecodeBillingDraft(data)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring stored billing draft")
		return BillingDraft{}, false, nil
	}
	return d, true, nil
}

func SaveBilling(ctx context.Context, s Store, d BillingDraft) error {
	data, err := EncodeBillingDraft(d)
	if err != nil {
		return err
	}
	return s.Set(ctx, data)
}
