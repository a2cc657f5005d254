package models

// Settings is the lab's singleton profile printed on every invoice.
type Settings struct {
	LabName            string `json:"labName" schema:"labName"`
	BusinessName       string `json:"businessName" schema:"businessName"`
	Address            string `json:"address" schema:"address"`
	Mobile             string `json:"mobile" schema:"mobile"`
	Email              string `json:"email" schema:"email"`
	GSTNumber          string `json:"gstNumber" schema:"gstNumber"`
	TermsAndConditions string `json:"termsAndConditions" schema:"termsAndConditions"`
	Logo               string `json:"logo" schema:"-"`
}
