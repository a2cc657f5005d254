package draft

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdesk/internal/models"
)

func TestDecodeBillingDraft_UpgradesLegacy(t *testing.T) {
	legacy := `{"selectedPatientId":"P1","selectedTestIds":["T1","T2"],"discount":50,"paidAmount":0,
		"paymentMode":"UPI","search":"as","newPatient":{"name":"Ravi","age":"","gender":"Male","mobile":"","referringDoctor":""}}`

	d, err := DecodeBillingDraft([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, BillingVersion, d.Version)
	assert.Equal(t, "P1", d.SelectedPatientID)
	assert.Equal(t, []string{"T1", "T2"}, d.SelectedTestIDs)
	assert.Equal(t, 50.0, d.Discount)
	assert.Equal(t, models.PaymentUPI, d.PaymentMode)
	assert.Equal(t, "Ravi", d.NewPatient.Name)
}

func TestDecodeBillingDraft_LegacyNullPatient(t *testing.T) {
	d, err := DecodeBillingDraft([]byte(`{"selectedPatientId":null,"selectedTestIds":[],"discount":0,"paidAmount":0,"paymentMode":"Cash","search":""}`))
	require.NoError(t, err)
	assert.Empty(t, d.SelectedPatientID)
	assert.Equal(t, EmptyPatientForm(), d.NewPatient)
}

func TestDecodeBillingDraft_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"selectedPatientId":`,
		"array":          `["P1"]`,
		"null":           `null`,
		"future version": `{"version":2,"selectedTestIds":[]}`,
		"unknown field":  `{"version":1,"selectedTestIds":[],"coupon":"X"}`,
		"wrong type":     `{"version":1,"selectedTestIds":"T1"}`,
		"bad mode":       `{"version":1,"selectedTestIds":[],"paymentMode":"Cheque"}`,
		"legacy extra":   `{"selectedPatientId":"P1","cart":[]}`,
		"empty test id":  `{"version":1,"selectedTestIds":[""]}`,
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBillingDraft([]byte(blob))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestBillingDraft_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s, err := Scope(backend, "client-1", BillingName)
	require.NoError(t, err)

	_, ok, err := LoadBilling(ctx, s, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, ok)

	want := BillingDraft{SelectedPatientID: "P1", SelectedTestIDs: []string{"T1"}, Discount: 10, PaymentMode: models.PaymentCard}
	require.NoError(t, SaveBilling(ctx, s, want))

	got, ok, err := LoadBilling(ctx, s, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, ok)
	want.Version = BillingVersion
	assert.Equal(t, want, got)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Get(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadBilling_MalformedIgnored(t *testing.T) {
	ctx := context.Background()
	s, err := Scope(NewMemoryBackend(), "client-1", BillingName)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, []byte(`{{{`)))

	_, ok, err := LoadBilling(ctx, s, zerolog.Nop())
	assert.NoError(t, err)
	assert.False(t, ok)
}
