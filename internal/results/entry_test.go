package results

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdesk/internal/models"
)

type submitFunc func(ctx context.Context, sub models.ResultSubmission) error

func (f submitFunc) SubmitResults(ctx context.Context, sub models.ResultSubmission) error {
	return f(ctx, sub)
}

func sample() models.Sample {
	return models.Sample{
		ID:       "s1",
		SampleID: "SMP-001",
		Tests:    []models.LabTest{{ID: "t1", TestName: "CBC"}, {ID: "t2", TestName: "LFT"}},
	}
}

func TestEntry_SelectSeedsOneResultPerTest(t *testing.T) {
	e := NewEntry()
	e.Select(sample())

	sub, err := e.Submission()
	require.NoError(t, err)
	assert.Equal(t, "s1", sub.SampleID)
	require.Len(t, sub.Results, 2)
	for i, id := range []string{"t1", "t2"} {
		assert.Equal(t, models.TestResult{TestID: id, Subtests: []models.SubResult{}}, sub.Results[i])
	}
}

func TestEntry_SubResults(t *testing.T) {
	e := NewEntry()
	e.Select(sample())

	require.NoError(t, e.Set("t1", "value", "13.5"))
	require.NoError(t, e.Set("t1", "abnormal", "true"))
	require.NoError(t, e.AddSubResult("t1"))
	require.NoError(t, e.AddSubResult("t1"))
	require.NoError(t, e.AddSubResult("t1"))
	require.NoError(t, e.SetSubResult("t1", 0, "testName", "Haemoglobin"))
	require.NoError(t, e.SetSubResult("t1", 1, "testName", "WBC"))
	require.NoError(t, e.SetSubResult("t1", 2, "testName", "Platelets"))
	require.NoError(t, e.RemoveSubResult("t1", 1))

	assert.ErrorIs(t, e.RemoveSubResult("t1", 5), ErrNoSubResult)
	assert.ErrorIs(t, e.Set("t9", "value", "1"), ErrUnknownTest)
	assert.ErrorIs(t, e.Set("t1", "colour", "red"), ErrUnknownField)

	sub, err := e.Submission()
	require.NoError(t, err)
	r := sub.Results[0]
	assert.Equal(t, "13.5", r.Value)
	assert.True(t, r.Abnormal)
	require.Len(t, r.Subtests, 2)
	assert.Equal(t, "Haemoglobin", r.Subtests[0].TestName)
	assert.Equal(t, "Platelets", r.Subtests[1].TestName)
	assert.Empty(t, sub.Results[1].Subtests)
}

func TestEntry_SubmitFailureKeepsState(t *testing.T) {
	e := NewEntry()
	e.Select(sample())
	require.NoError(t, e.Set("t2", "remarks", "haemolysed"))

	err := e.Submit(context.Background(), submitFunc(func(context.Context, models.ResultSubmission) error {
		return errors.New("boom")
	}))
	require.Error(t, err)

	_, open := e.Sample()
	assert.True(t, open)
	sub, _ := e.Submission()
	assert.Equal(t, "haemolysed", sub.Results[1].Remarks)
}

func TestEntry_SubmitSuccessCloses(t *testing.T) {
	e := NewEntry()
	e.Select(sample())

	var sent models.ResultSubmission
	require.NoError(t, e.Submit(context.Background(), submitFunc(func(_ context.Context, sub models.ResultSubmission) error {
		sent = sub
		return nil
	})))

	assert.Len(t, sent.Results, 2)
	_, open := e.Sample()
	assert.False(t, open)
	_, err := e.Submission()
	assert.ErrorIs(t, err, ErrNoSample)
}
