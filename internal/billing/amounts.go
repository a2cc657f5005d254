package billing

import (
	"math"
	"strconv"
	"strings"

	"labdesk/internal/models"
)

// Amounts are derived on every read and never stored.
type Amounts struct {
	Subtotal float64
	Discount float64
	Paid     float64
	Total    float64 // may be negative when the discount exceeds the subtotal
	Balance  float64 // never negative
}

// ParseAmount reads a money input. Empty or unparseable input counts as 0.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FormatAmount is the inverse used when restoring a draft: zero shows as an
// empty input rather than "0".
func FormatAmount(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func Compute(tests []models.LabTest, discountInput, paidInput string) Amounts {
	var a Amounts
	for _, t := range tests {
		a.Subtotal += t.Price
	}
	a.Discount = ParseAmount(discountInput)
	a.Paid = ParseAmount(paidInput)
	a.Total = a.Subtotal - a.Discount
	a.Balance = math.Max(0, a.Total-a.Paid)
	return a
}
