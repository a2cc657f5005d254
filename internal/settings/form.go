package settings

import (
	"regexp"
	"strings"

	"labdesk/internal/models"
)

const (
	MsgLabNameRequired = "Lab name is required"
	MsgAddressRequired = "Address is required"
	MsgMobileRequired  = "Mobile number is required"
	MsgMobileInvalid   = "Enter a valid 10-digit mobile number"
	MsgEmailInvalid    = "Enter a valid email address"
	MsgFixErrors       = "Please fix the errors in the form"
	MsgLogoNotImage    = "Please upload an image file (JPG/PNG)"
)

var (
	digitRe    = regexp.MustCompile(`[0-9]`)
	nonDigitRe = regexp.MustCompile(`\D`)
	nonGSTRe   = regexp.MustCompile(`[^A-Z0-9]`)
	mobileRe   = regexp.MustCompile(`^\d{10}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Filter normalizes one field as it is typed.
func Filter(field, value string) string {
	switch field {
	case "labName":
		return digitRe.ReplaceAllString(value, "")
	case "mobile":
		return truncate(nonDigitRe.ReplaceAllString(value, ""), 10)
	case "gstNumber":
		return truncate(nonGSTRe.ReplaceAllString(strings.ToUpper(value), ""), 15)
	}
	return value
}

// Normalize applies Filter to every field of s.
func Normalize(s models.Settings) models.Settings {
	s.LabName = Filter("labName", s.LabName)
	s.Mobile = Filter("mobile", s.Mobile)
	s.GSTNumber = Filter("gstNumber", s.GSTNumber)
	return s
}

// Validate returns field errors keyed by json field name.
func Validate(s models.Settings) map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(s.LabName) == "" {
		errs["labName"] = MsgLabNameRequired
	}
	if strings.TrimSpace(s.Address) == "" {
		errs["address"] = MsgAddressRequired
	}
	switch {
	case s.Mobile == "":
		errs["mobile"] = MsgMobileRequired
	case !mobileRe.MatchString(s.Mobile):
		errs["mobile"] = MsgMobileInvalid
	}
	if s.Email != "" && !emailRe.MatchString(s.Email) {
		errs["email"] = MsgEmailInvalid
	}
	return errs
}

// IsImage reports whether an upload's content type is acceptable as a logo.
func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
