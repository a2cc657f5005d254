// Package results tracks result entry for one pending sample.
package results

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"labdesk/internal/models"
)

const (
	MsgSubmitted    = "Results submitted successfully!"
	MsgSubmitFailed = "Failed to submit results"
)

var (
	ErrNoSample     = errors.New("results: no sample selected")
	ErrUnknownTest  = errors.New("results: test not in sample")
	ErrNoSubResult  = errors.New("results: no such sub-result")
	ErrUnknownField = errors.New("results: unknown field")
)

type Submitter interface {
	SubmitResults(ctx context.Context, sub models.ResultSubmission) error
}

// Entry holds the result being typed for each test of the selected sample.
// It is safe for concurrent use.
type Entry struct {
	mu      sync.Mutex
	sample  *models.Sample
	order   []string
	results map[string]*models.TestResult
}

func NewEntry() *Entry {
	return &Entry{}
}

// Select seeds one empty result per test, replacing anything entered
// for a previous sample.
func (e *Entry) Select(s models.Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sample = &s
	e.order = make([]string, 0, len(s.Tests))
	e.results = make(map[string]*models.TestResult, len(s.Tests))
	for _, t := range s.Tests {
		if _, dup := e.results[t.ID]; dup {
			continue
		}
		e.order = append(e.order, t.ID)
		e.results[t.ID] = &models.TestResult{TestID: t.ID, Subtests: []models.SubResult{}}
	}
}

func (e *Entry) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sample, e.order, e.results = nil, nil, nil
}

func (e *Entry) Sample() (models.Sample, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sample == nil {
		return models.Sample{}, false
	}
	return *e.sample, true
}

func (e *Entry) lookup(testID string) (*models.TestResult, error) {
	if e.sample == nil {
		return nil, ErrNoSample
	}
	r, ok := e.results[testID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTest, testID)
	}
	return r, nil
}

// Set updates value, remarks or abnormal on a test's result.
func (e *Entry) Set(testID, field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup(testID)
	if err != nil {
		return err
	}
	switch field {
	case "value":
		r.Value = value
	case "remarks":
		r.Remarks = value
	case "abnormal":
		r.Abnormal, _ = strconv.ParseBool(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func (e *Entry) AddSubResult(testID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup(testID)
	if err != nil {
		return err
	}
	r.Subtests = append(r.Subtests, models.SubResult{})
	return nil
}

func (e *Entry) SetSubResult(testID string, idx int, field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup(testID)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(r.Subtests) {
		return ErrNoSubResult
	}
	sub := &r.Subtests[idx]
	switch field {
	case "testName":
		sub.TestName = value
	case "resultValue":
		sub.ResultValue = value
	case "unit":
		sub.Unit = value
	case "normalRange":
		sub.NormalRange = value
	case "abnormal":
		sub.Abnormal, _ = strconv.ParseBool(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func (e *Entry) RemoveSubResult(testID string, idx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup(testID)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(r.Subtests) {
		return ErrNoSubResult
	}
	r.Subtests = append(r.Subtests[:idx:idx], r.Subtests[idx+1:]...)
	return nil
}

// Submission builds the payload: one result per test, in test order.
func (e *Entry) Submission() (models.ResultSubmission, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sample == nil {
		return models.ResultSubmission{}, ErrNoSample
	}
	sub := models.ResultSubmission{SampleID: e.sample.ID, Results: make([]models.TestResult, 0, len(e.order))}
	for _, id := range e.order {
		r := *e.results[id]
		r.Subtests = append([]models.SubResult{}, r.Subtests...)
		sub.Results = append(sub.Results, r)
	}
	return sub, nil
}

// Submit sends the results and closes the entry on success. On failure
// everything entered is kept.
func (e *Entry) Submit(ctx context.Context, s Submitter) error {
	sub, err := e.Submission()
	if err != nil {
		return err
	}
	if err := s.SubmitResults(ctx, sub); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// a different sample may have been selected while the request ran
	if e.sample != nil && e.sample.ID == sub.SampleID {
		e.sample, e.order, e.results = nil, nil, nil
	}
	return nil
}
