package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdesk/internal/models"
)

func TestDepartmentSearchFiltersRows(t *testing.T) {
	h := newHarness(t)

	rec := h.postSignals("/search/departments", ActiveSearchSignals{Search: "HEMA"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Hematology")
	assert.NotContains(t, body, "Biochemistry")
}

func TestFilterDepartments(t *testing.T) {
	depts := []models.Department{
		{Name: "Hematology", Description: "Blood work"},
		{Name: "Biochemistry", Description: "Serum chemistry"},
		{Name: "Microbiology", Description: "Cultures"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Hematology", "Biochemistry", "Microbiology"}},
		{"  ", []string{"Hematology", "Biochemistry", "Microbiology"}},
		{"bio", []string{"Biochemistry", "Microbiology"}},
		{"BLOOD", []string{"Hematology"}},
		{"chem", []string{"Biochemistry"}},
		{"urine", nil},
	}

	for _, tt := range tests {
		var got []string
		for _, d := range filterDepartments(depts, tt.query) {
			got = append(got, d.Name)
		}
		assert.Equal(t, tt.want, got, "query %q", tt.query)
	}
}

func TestDepartmentSearchIsPostOnly(t *testing.T) {
	h := newHarness(t)

	rec := h.get("/search/departments")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
