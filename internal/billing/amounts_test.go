package billing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"labdesk/internal/models"
)

func TestCompute_Scenario(t *testing.T) {
	tests := []models.LabTest{{ID: "T1", Price: 100}, {ID: "T2", Price: 250}}
	a := Compute(tests, "30", "200")
	assert.Equal(t, 350.0, a.Subtotal)
	assert.Equal(t, 320.0, a.Total)
	assert.Equal(t, 120.0, a.Balance)
}

func TestCompute_BalanceNeverNegative(t *testing.T) {
	tests := []models.LabTest{{ID: "T1", Price: 100}, {ID: "T2", Price: 250}}
	inputs := []string{"", "0", "30", "350", "500", "abc", "12.5", "-20"}
	for _, d := range inputs {
		for _, p := range inputs {
			a := Compute(tests, d, p)
			want := math.Max(0, 350-ParseAmount(d)-ParseAmount(p))
			assert.Equal(t, want, a.Balance, "discount=%q paid=%q", d, p)
			assert.GreaterOrEqual(t, a.Balance, 0.0)
		}
	}
}

func TestCompute_NegativeTotalKept(t *testing.T) {
	a := Compute([]models.LabTest{{ID: "T1", Price: 100}}, "150", "")
	assert.Equal(t, -50.0, a.Total)
	assert.Equal(t, 0.0, a.Balance)
}

func TestParseAndFormatAmount(t *testing.T) {
	assert.Equal(t, 0.0, ParseAmount(""))
	assert.Equal(t, 0.0, ParseAmount("abc"))
	assert.Equal(t, 0.0, ParseAmount("NaN"))
	assert.Equal(t, 42.5, ParseAmount(" 42.5 "))

	assert.Equal(t, "", FormatAmount(0))
	assert.Equal(t, "50", FormatAmount(50))
	assert.Equal(t, "12.5", FormatAmount(12.5))
}
