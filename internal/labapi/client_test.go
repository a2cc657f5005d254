package labapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdesk/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	assert.Error(t, err)
}

func TestSearchPatients(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/patients", r.URL.Path)
		assert.Equal(t, "asha", r.URL.Query().Get("keyword"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "8", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"patients":[{"_id":"p1","patientId":"PAT-001","name":"Asha","age":"30 Years","gender":"Female","mobile":"9876543210"}],"page":2,"pages":3,"total":17}`))
	}, WithTokenSource(StaticToken("secret")))

	page, err := c.SearchPatients(context.Background(), "asha", 2, 8)
	require.NoError(t, err)
	require.Len(t, page.Patients, 1)
	assert.Equal(t, "PAT-001", page.Patients[0].PatientID)
	assert.Equal(t, models.GenderFemale, page.Patients[0].Gender)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 17, page.Total)
}

func TestSearchPatients_EmptyKeywordOmitted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["keyword"]
		assert.False(t, ok)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"patients":[]}`))
	})
	_, err := c.SearchPatients(context.Background(), "", 0, 0)
	require.NoError(t, err)
}

func TestRegisterPatient_ExistingPatient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body models.NewPatient
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Asha", body.Name)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Patient already exists","patient":{"_id":"p1","patientId":"PAT-001","name":"Asha"}}`))
	})

	_, err := c.RegisterPatient(context.Background(), models.NewPatient{Name: "Asha", Age: "30 Years", Gender: models.GenderFemale, Mobile: "9876543210"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Patient already exists", MessageOr(err, "fallback"))

	existing, ok := ExistingPatient(err)
	require.True(t, ok)
	assert.Equal(t, "p1", existing.ID)
}

func TestMessageOr_Fallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>oops</html>"))
	})
	err := c.DeleteTest(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, "Failed to delete test", MessageOr(err, "Failed to delete test"))
	assert.Equal(t, "fallback", MessageOr(errors.New("network down"), "fallback"))
}

func TestTestAndDepartmentRoutes(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			if strings.HasSuffix(r.URL.Path, "/departments") {
				w.Write([]byte(`[{"_id":"d1","name":"Biochemistry"}]`))
				return
			}
			w.Write([]byte(`{"tests":[{"_id":"t1","testName":"CBC","department":{"_id":"d1","name":"Haematology"},"price":250}],"page":1,"pages":1}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			body, _ := io.ReadAll(r.Body)
			assert.NotContains(t, string(body), `"_id"`)
			w.Write(body)
		}
	})
	ctx := context.Background()

	tests, err := c.ListTests(ctx, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, "Haematology", tests.Tests[0].Department.Name)

	_, err = c.CreateTest(ctx, models.LabTest{ID: "ignored", TestName: "LFT", Price: 400})
	require.NoError(t, err)
	_, err = c.UpdateTest(ctx, "t1", models.LabTest{TestName: "CBC", Price: 300})
	require.NoError(t, err)
	require.NoError(t, c.DeleteTest(ctx, "t1"))

	deps, err := c.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Biochemistry", deps[0].Name)
	_, err = c.CreateDepartment(ctx, models.Department{Name: "Serology"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteDepartment(ctx, "d1"))

	assert.Equal(t, []string{
		"GET /api/tests", "POST /api/tests", "PUT /api/tests/t1", "DELETE /api/tests/t1",
		"GET /api/departments", "POST /api/departments", "DELETE /api/departments/d1",
	}, seen)
}

func TestCreateInvoiceAndDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/billing":
			var req models.InvoiceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"T1", "T2"}, req.Tests)
			assert.Equal(t, 30.0, req.Discount)
			w.Write([]byte(`{"_id":"inv-1","invoiceIds":"INV-2024-001","totalAmount":320}`))
		case "/api/billing/print/INV-2024-001":
			assert.Contains(t, r.Header.Get("Accept"), "text/html")
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<!DOCTYPE html><html><body>ok</body></html>"))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	inv, err := c.CreateInvoice(ctx, models.InvoiceRequest{PatientID: "p1", Tests: []string{"T1", "T2"}, Discount: 30, PaidAmount: 200, PaymentMode: models.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-001", inv.InvoiceIDs)

	doc, err := c.InvoiceDocument(ctx, inv.InvoiceIDs)
	require.NoError(t, err)
	assert.Contains(t, doc, "<!DOCTYPE html>")
}

func TestUploadLogo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/settings/logo", r.URL.Path)
		f, hdr, err := r.FormFile("logo")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "logo.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(b))
		w.Write([]byte(`{"filePath":"/uploads/logo.png"}`))
	})

	p, err := c.UploadLogo(context.Background(), "logo.png", "image/png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/logo.png", p)
	assert.True(t, strings.HasSuffix(c.ResolveAssetURL(p), "/uploads/logo.png"))
	assert.NotContains(t, c.ResolveAssetURL(p), "/api/")
}

func TestResolveAssetURL(t *testing.T) {
	c, err := New("http://lab.local:5000/api")
	require.NoError(t, err)
	assert.Equal(t, "http://lab.local:5000", c.Origin())
	assert.Equal(t, "http://lab.local:5000/uploads/a.png", c.ResolveAssetURL("/uploads/a.png"))
	assert.Equal(t, "https://cdn/x.png", c.ResolveAssetURL("https://cdn/x.png"))
	assert.Equal(t, "data:image/png;base64,AA", c.ResolveAssetURL("data:image/png;base64,AA"))
	assert.Equal(t, "", c.ResolveAssetURL(""))
}

func TestSignedToken(t *testing.T) {
	key := []byte("signing-key")
	ts := NewSignedToken(key)
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }

	first, err := ts.Token(context.Background())
	require.NoError(t, err)
	second, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(first, claims, func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	assert.Equal(t, "labdesk", claims.Subject)
	assert.Equal(t, now.Add(5*time.Minute).Unix(), claims.ExpiresAt.Unix())

	now = now.Add(5 * time.Minute)
	third, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestListInvoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/billing", r.URL.Path)
		assert.Equal(t, "p 1", r.URL.Query().Get("patientId"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"invoices":[{"_id":"inv-9","invoiceIds":"INV-9"}],"page":1,"pages":1}`))
	})

	res, err := c.ListInvoices(context.Background(), "p 1", 1)
	require.NoError(t, err)
	require.Len(t, res.Invoices, 1)
	assert.Equal(t, "INV-9", res.Invoices[0].InvoiceIDs)
}

func TestReports(t *testing.T) {
	var got models.ResultSubmission
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/reports/pending":
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			w.Write([]byte(`{"samples":[{"_id":"s1","sampleId":"SMP-1","tests":[{"_id":"t1","testName":"Hb","department":"d1"}]}],"page":2,"pages":3}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/reports/results":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"message":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	page, err := c.PendingSamples(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Samples, 1)
	assert.Equal(t, "SMP-1", page.Samples[0].SampleID)
	assert.Equal(t, "d1", page.Samples[0].Tests[0].Department.ID)
	assert.Equal(t, 3, page.Pages)

	sub := models.ResultSubmission{SampleID: "s1", Results: []models.TestResult{{TestID: "t1", Value: "13.2", Subtests: []models.SubResult{}}}}
	require.NoError(t, c.SubmitResults(ctx, sub))
	assert.Equal(t, sub, got)
}

func TestSettingsRoundTrip(t *testing.T) {
	stored := models.Settings{LabName: "City Lab", Mobile: "9876543210"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/settings", r.URL.Path)
		if r.Method == http.MethodPut {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&stored))
		}
		json.NewEncoder(w).Encode(stored)
	})
	ctx := context.Background()

	s, err := c.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "City Lab", s.LabName)

	s.LabName = "Sunrise Lab"
	updated, err := c.UpdateSettings(ctx, *s)
	require.NoError(t, err)
	assert.Equal(t, "Sunrise Lab", updated.LabName)
}

func TestAPIErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`not json`))
	})

	err := c.DeleteTest(context.Background(), "t1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "Failed to delete test", MessageOr(err, "Failed to delete test"))
}
