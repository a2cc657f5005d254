package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdesk/internal/labapi"
	"labdesk/internal/models"
	"labdesk/internal/notice"
	"labdesk/internal/validate"
)

func newPage(api API) *Page {
	return New(context.Background(), api, 20*time.Millisecond, notice.NewBoard(nil), zerolog.Nop())
}

func TestFormatAge(t *testing.T) {
	tests := []struct{ years, months, want string }{
		{"", "", "0 Years"},
		{"0", "0", "0 Years"},
		{"0", "3", "3 Months"},
		{"", "3", "3 Months"},
		{"25", "", "25 Years"},
		{"2", "6", "2 Years 6 Months"},
	}
	for _, tt := range tests {
		if got := FormatAge(tt.years, tt.months); got != tt.want {
			t.Errorf("FormatAge(%q, %q) = %q, want %q", tt.years, tt.months, got, tt.want)
		}
	}
}

func TestRegister_FocusesFirstInvalidField(t *testing.T) {
	called := false
	p := newPage(&MockAPI{RegisterPatientFunc: func(context.Context, models.NewPatient) (*models.Patient, error) {
		called = true
		return nil, nil
	}})

	p.Input(validate.Name, "Asha")
	p.Input(validate.Age, "30")
	p.Input(validate.Mobile, "98765")
	p.Input(validate.Email, "bad@")

	_, err := p.Register(context.Background())
	assert.ErrorIs(t, err, validate.ErrInvalid)
	assert.False(t, called)

	v := p.Snapshot()
	assert.Equal(t, validate.Mobile, v.Focus)
	assert.Equal(t, validate.MsgMobile, v.Errors[validate.Mobile])
	assert.Equal(t, validate.MsgEmail, v.Errors[validate.Email])

	notices := p.Board().Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, validate.MsgMobile, notices[0].Message)
}

func TestRegister_RequiredFieldsNotSent(t *testing.T) {
	called := false
	p := newPage(&MockAPI{RegisterPatientFunc: func(context.Context, models.NewPatient) (*models.Patient, error) {
		called = true
		return nil, nil
	}})

	_, err := p.Register(context.Background())
	assert.ErrorIs(t, err, validate.ErrInvalid)
	assert.False(t, called)

	v := p.Snapshot()
	assert.Equal(t, validate.Name, v.Focus)
	assert.Equal(t, validate.MsgRequired, v.Errors[validate.Age])
	assert.Equal(t, validate.MsgRequired, v.Errors[validate.Mobile])
	assert.Empty(t, v.Errors[validate.Email])
	assert.Equal(t, validate.MsgRequired, p.Board().Drain()[0].Message)

	p.Input(validate.Name, "Asha")
	p.Input(validate.Mobile, "9876543210")
	_, err = p.Register(context.Background())
	assert.ErrorIs(t, err, validate.ErrInvalid)
	assert.False(t, called)
	assert.Equal(t, validate.Age, p.Snapshot().Focus)
}

func TestRegister_SendsFormattedAgeAndResets(t *testing.T) {
	var sent models.NewPatient
	p := newPage(&MockAPI{RegisterPatientFunc: func(_ context.Context, np models.NewPatient) (*models.Patient, error) {
		sent = np
		return &models.Patient{ID: "p1", PatientID: "PAT-042"}, nil
	}})

	p.Input(validate.Name, "Asha Rao")
	p.Input(validate.Age, "2")
	p.Input(validate.AgeMonths, "6")
	p.Input(validate.AgeMonths, "67")
	p.Input(validate.Gender, "Female")
	p.Input(validate.Mobile, "9876543210")

	created, err := p.Register(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PAT-042", created.PatientID)
	assert.Equal(t, "2 Years 6 Months", sent.Age)
	assert.Equal(t, models.GenderFemale, sent.Gender)

	v := p.Snapshot()
	assert.Empty(t, v.Values[validate.Name])
	assert.Equal(t, "Male", v.Values[validate.Gender])

	notices := p.Board().Drain()
	require.NotEmpty(t, notices)
	assert.Equal(t, "Patient registered successfully! ID: PAT-042", notices[0].Message)
}

func TestRegister_ServerMessageSurfaced(t *testing.T) {
	p := newPage(&MockAPI{RegisterPatientFunc: func(context.Context, models.NewPatient) (*models.Patient, error) {
		return nil, &labapi.APIError{Status: 400, Message: "Mobile already registered"}
	}})
	p.Input(validate.Name, "Asha")
	p.Input(validate.Age, "30")
	p.Input(validate.Mobile, "9876543210")

	_, err := p.Register(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Asha", p.Snapshot().Values[validate.Name])
	assert.Equal(t, "Mobile already registered", p.Board().Drain()[0].Message)
}

func TestGoTo_ClampsToPages(t *testing.T) {
	var pages []int
	p := newPage(&MockAPI{SearchPatientsFunc: func(_ context.Context, _ string, page, _ int) (*models.PatientPage, error) {
		pages = append(pages, page)
		return &models.PatientPage{Page: page, Pages: 3, Total: 20}, nil
	}})

	p.Load(context.Background())
	p.GoTo(context.Background(), 9)
	p.GoTo(context.Background(), 0)
	assert.Equal(t, []int{1, 3, 1}, pages)
}

func TestEmptySearchListsAll(t *testing.T) {
	queries := make(chan string, 4)
	p := newPage(&MockAPI{SearchPatientsFunc: func(_ context.Context, kw string, page, _ int) (*models.PatientPage, error) {
		queries <- kw
		return &models.PatientPage{Page: page, Pages: 1}, nil
	}})

	p.Type("a")
	p.Type("")
	select {
	case kw := <-queries:
		assert.Equal(t, "", kw)
	case <-time.After(time.Second):
		t.Fatal("empty query should list all patients after the idle window")
	}
}

func TestLatestInvoice(t *testing.T) {
	p := newPage(&MockAPI{ListInvoicesFunc: func(_ context.Context, id string, limit int) (*models.InvoicePage, error) {
		assert.Equal(t, 1, limit)
		if id == "none" {
			return &models.InvoicePage{}, nil
		}
		if id == "err" {
			return nil, errors.New("down")
		}
		return &models.InvoicePage{Invoices: []models.Invoice{{ID: "i1", InvoiceIDs: "INV-9"}}}, nil
	}})

	inv, err := p.LatestInvoice(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "INV-9", inv.InvoiceIDs)

	_, err = p.LatestInvoice(context.Background(), "none")
	assert.ErrorIs(t, err, ErrNoInvoice)
	_, err = p.LatestInvoice(context.Background(), "err")
	assert.Error(t, err)
}
