package models

type SamplePatient struct {
	PatientID string `json:"patientId"`
	Name      string `json:"name"`
	Age       string `json:"age"`
	Gender    Gender `json:"gender"`
}

// Sample is a collected specimen awaiting results for its tests.
type Sample struct {
	ID         string        `json:"_id"`
	SampleID   string        `json:"sampleId"`
	SampleType string        `json:"sampleType"`
	Patient    SamplePatient `json:"patient"`
	Tests      []LabTest     `json:"tests"`
}

type SamplePage struct {
	Samples []Sample `json:"samples"`
	Page    int      `json:"page"`
	Pages   int      `json:"pages"`
}

type SubResult struct {
	TestName    string `json:"testName"`
	ResultValue string `json:"resultValue"`
	Unit        string `json:"unit"`
	NormalRange string `json:"normalRange"`
	Abnormal    bool   `json:"abnormal"`
}

type TestResult struct {
	TestID   string      `json:"testId"`
	Value    string      `json:"value"`
	Remarks  string      `json:"remarks"`
	Abnormal bool        `json:"abnormal"`
	Subtests []SubResult `json:"subtests"`
}

type ResultSubmission struct {
	SampleID string       `json:"sampleId"`
	Results  []TestResult `json:"results"`
}
