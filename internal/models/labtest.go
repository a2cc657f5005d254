package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// LabTest is a catalog item that can be billed and reported.
type LabTest struct {
	ID           string        `json:"_id,omitempty"`
	TestName     string        `json:"testName"`
	Department   DepartmentRef `json:"department"`
	SampleType   string        `json:"sampleType"`
	Unit         string        `json:"unit"`
	Method       string        `json:"method"`
	Price        float64       `json:"price"`
	TAT          string        `json:"tat"`
	NormalRanges NormalRanges  `json:"normalRanges"`
}

type NormalRanges struct {
	Male    Range  `json:"male"`
	Female  Range  `json:"female"`
	Child   Range  `json:"child"`
	General string `json:"general"`
}

type Range struct {
	Min Bound `json:"min"`
	Max Bound `json:"max"`
}

// Bound is a range limit. The API stores whatever was typed, so it may
// arrive as a number or a string.
type Bound string

func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = Bound(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*b = Bound(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Display renders the range the way the result entry screen shows it:
// the general range when set, otherwise the male min-max.
func (n NormalRanges) Display() string {
	if n.General != "" {
		return n.General
	}
	min, max := string(n.Male.Min), string(n.Male.Max)
	if min == "" {
		min = "0"
	}
	if max == "" {
		max = "0"
	}
	return min + " - " + max
}

// DepartmentRef is either a bare department id or a populated department.
type DepartmentRef struct {
	ID   string
	Name string
}

func (d *DepartmentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*d = DepartmentRef{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*d = DepartmentRef{ID: id}
		return nil
	}
	var dept Department
	if err := json.Unmarshal(data, &dept); err != nil {
		return err
	}
	*d = DepartmentRef{ID: dept.ID, Name: dept.Name}
	return nil
}

// MarshalJSON always sends the id; the API populates the rest.
func (d DepartmentRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ID)
}

type TestPage struct {
	Tests []LabTest `json:"tests"`
	Page  int       `json:"page"`
	Pages int       `json:"pages"`
}
