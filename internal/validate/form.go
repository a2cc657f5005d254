package validate

import (
	"errors"
	"strings"
)

// ErrInvalid reports a submit refused because a field failed validation.
var ErrInvalid = errors.New("validate: form has errors")

// Form is an ordered set of field values with their current errors. Field
// order decides which error is reported first on submit.
type Form struct {
	fields   []string
	required map[string]bool
	values   map[string]string
	errors   map[string]string
}

func NewForm(fields ...string) *Form {
	return &Form{
		fields: fields,
		values: make(map[string]string, len(fields)),
		errors: make(map[string]string),
	}
}

// Require marks fields that must be filled in before submit.
func (f *Form) Require(fields ...string) *Form {
	if f.required == nil {
		f.required = make(map[string]bool, len(fields))
	}
	for _, field := range fields {
		f.required[field] = true
	}
	return f
}

func (f *Form) Fields() []string { return f.fields }

func (f *Form) Get(field string) string { return f.values[field] }

// Set stores value without filtering, e.g. for selects or restored drafts.
func (f *Form) Set(field, value string) {
	f.values[field] = value
}

// Input applies one keystroke to field and returns the resulting error.
func (f *Form) Input(field, raw string) string {
	res := Apply(field, f.values[field], raw)
	if !res.Blocked {
		f.values[field] = res.Value
		f.setError(field, res.Error)
	} else if res.Error != "" {
		f.setError(field, res.Error)
	}
	return f.errors[field]
}

// Validate re-checks every field and replaces the error set. It returns the
// first offending field and its message, or empty strings.
func (f *Form) Validate() (string, string) {
	f.errors = make(map[string]string)
	var firstField, firstMsg string
	for _, field := range f.fields {
		msg := Validate(field, f.values[field])
		if f.required[field] && strings.TrimSpace(f.values[field]) == "" {
			msg = MsgRequired
		}
		if msg != "" {
			f.errors[field] = msg
			if firstField == "" {
				firstField, firstMsg = field, msg
			}
		}
	}
	return firstField, firstMsg
}

func (f *Form) Error(field string) string { return f.errors[field] }

func (f *Form) Errors() map[string]string {
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Reset clears every value and error, then applies defaults.
func (f *Form) Reset(defaults map[string]string) {
	f.values = make(map[string]string, len(f.fields))
	f.errors = make(map[string]string)
	for k, v := range defaults {
		f.values[k] = v
	}
}

func (f *Form) setError(field, msg string) {
	if msg == "" {
		delete(f.errors, field)
		return
	}
	f.errors[field] = msg
}
