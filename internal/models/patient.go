package models

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Patient is the server record; ID is the internal identifier and PatientID
// the human-readable one assigned at registration.
type Patient struct {
	ID              string `json:"_id"`
	PatientID       string `json:"patientId"`
	Name            string `json:"name"`
	Age             string `json:"age"` // free text, e.g. "25 Years" or "3 Months"
	Gender          Gender `json:"gender"`
	Mobile          string `json:"mobile"`
	Email           string `json:"email,omitempty"`
	Address         string `json:"address,omitempty"`
	ReferringDoctor string `json:"referringDoctor,omitempty"`
}

type NewPatient struct {
	Name            string `json:"name"`
	Age             string `json:"age"`
	Gender          Gender `json:"gender"`
	Mobile          string `json:"mobile"`
	Email           string `json:"email,omitempty"`
	Address         string `json:"address,omitempty"`
	ReferringDoctor string `json:"referringDoctor,omitempty"`
}

type PatientPage struct {
	Patients []Patient `json:"patients"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
	Total    int       `json:"total"`
}
