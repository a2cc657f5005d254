// Package registration drives the patient registration page: the searched,
// paginated patient list and the new patient form.
package registration

import (
	"fmt"
	"strconv"

	"labdesk/internal/models"
	"labdesk/internal/validate"
)

// Fields lists the form in display order; the first invalid one gets focus.
var Fields = []string{
	validate.Name,
	validate.Age,
	validate.AgeMonths,
	validate.Gender,
	validate.Mobile,
	validate.Email,
	validate.Address,
	validate.ReferringDoctor,
}

func defaults() map[string]string {
	return map[string]string{validate.Gender: string(models.GenderMale)}
}

func NewForm() *validate.Form {
	f := validate.NewForm(Fields...).Require(validate.Name, validate.Age, validate.Mobile)
	f.Reset(defaults())
	return f
}

// FormatAge combines the years and months inputs into the free-text age the
// server stores.
func FormatAge(years, months string) string {
	y, _ := strconv.Atoi(years)
	m, _ := strconv.Atoi(months)
	switch {
	case y <= 0 && m > 0:
		return fmt.Sprintf("%d Months", m)
	case y > 0 && m > 0:
		return fmt.Sprintf("%d Years %d Months", y, m)
	case y > 0:
		return fmt.Sprintf("%d Years", y)
	default:
		return "0 Years"
	}
}

// BuildPatient turns the form into the registration payload. Months are
// folded into the age and not sent on their own.
func BuildPatient(f *validate.Form) models.NewPatient {
	return models.NewPatient{
		Name:            f.Get(validate.Name),
		Age:             FormatAge(f.Get(validate.Age), f.Get(validate.AgeMonths)),
		Gender:          models.Gender(f.Get(validate.Gender)),
		Mobile:          f.Get(validate.Mobile),
		Email:           f.Get(validate.Email),
		Address:         f.Get(validate.Address),
		ReferringDoctor: f.Get(validate.ReferringDoctor),
	}
}
