// Package validate holds the field rules shared by the registration,
// billing and settings forms.
package validate

import (
	"regexp"
	"strconv"
)

const (
	Name            = "name"
	Age             = "age"
	AgeMonths       = "ageMonths"
	Gender          = "gender"
	Mobile          = "mobile"
	Email           = "email"
	Address         = "address"
	ReferringDoctor = "referringDoctor"
)

const (
	MsgName      = "Only letters are allowed"
	MsgDoctor    = "Doctor name must contain only letters"
	MsgMobile    = "Phone number must be exactly 10 digits"
	MsgAge       = "Age must be a whole number"
	MsgAgeMonths = "Months must be between 0 and 11"
	MsgEmail     = "Please enter a valid email address"
	MsgRequired  = "Please fill out this field"
)

const (
	MobileLength = 10
	MaxAgeMonths = 11
)

var (
	lettersRe    = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	doctorRe     = regexp.MustCompile(`^[a-zA-Z\s.]+$`)
	mobileRe     = regexp.MustCompile(`^\d{10}$`)
	digitsRe     = regexp.MustCompile(`^\d+$`)
	emailRe      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	notLettersRe = regexp.MustCompile(`[^a-zA-Z\s]`)
	notDoctorRe  = regexp.MustCompile(`[^a-zA-Z\s.]`)
	notDigitsRe  = regexp.MustCompile(`\D`)
)

// Validate returns the error message for value, or "" when it is
// acceptable. Empty values always pass; required fields are the caller's
// concern.
func Validate(field, value string) string {
	if value == "" {
		return ""
	}
	switch field {
	case Name:
		if !lettersRe.MatchString(value) {
			return MsgName
		}
	case ReferringDoctor:
		if !doctorRe.MatchString(value) {
			return MsgDoctor
		}
	case Mobile:
		if !mobileRe.MatchString(value) {
			return MsgMobile
		}
	case Age:
		if !digitsRe.MatchString(value) {
			return MsgAge
		}
	case AgeMonths:
		if !digitsRe.MatchString(value) || atoi(value) > MaxAgeMonths {
			return MsgAgeMonths
		}
	case Email:
		if !emailRe.MatchString(value) {
			return MsgEmail
		}
	}
	return ""
}

// Result is the outcome of one keystroke on a field.
type Result struct {
	Value   string // value to store; equals the previous value when Blocked
	Error   string
	Blocked bool
}

// Apply filters raw input for field the way the forms do while typing.
// Disallowed characters are stripped, and the error reflects what was just
// typed even when the stored value is already clean. A blocked keystroke
// leaves current in place; its Error is empty except for the months
// range.
func Apply(field, current, raw string) Result {
	value, violation := filter(field, raw)

	switch field {
	case AgeMonths:
		if value != "" && atoi(value) > MaxAgeMonths {
			return Result{Value: current, Error: MsgAgeMonths, Blocked: true}
		}
	case Mobile:
		if len(value) > MobileLength {
			return Result{Value: current, Blocked: true}
		}
	}

	msg := Validate(field, value)
	if violation != "" && msg == "" {
		msg = violation
	}
	return Result{Value: value, Error: msg}
}

func filter(field, raw string) (string, string) {
	var re *regexp.Regexp
	var msg string
	switch field {
	case Name:
		re, msg = notLettersRe, MsgName
	case ReferringDoctor:
		re, msg = notDoctorRe, MsgDoctor
	case Age:
		re, msg = notDigitsRe, MsgAge
	case AgeMonths:
		re, msg = notDigitsRe, MsgAgeMonths
	case Mobile:
		re, msg = notDigitsRe, MsgMobile
	default:
		return raw, ""
	}
	filtered := re.ReplaceAllString(raw, "")
	if filtered != raw {
		return filtered, msg
	}
	return filtered, ""
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		// digit strings too long for int are certainly out of range
		return int(^uint(0) >> 1)
	}
	return n
}
