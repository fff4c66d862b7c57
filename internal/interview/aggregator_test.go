package interview

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/prepwise-backend/internal/model"
)

func response(answer string) model.InterviewResponse {
	return model.InterviewResponse{QuestionID: uuid.New(), Answer: answer}
}

func TestAggregatorRecordInOrder(t *testing.T) {
	var a ResponseAggregator

	require.NoError(t, a.Record(0, response("first")))
	require.NoError(t, a.Record(1, response("second")))

	assert.Equal(t, 2, a.Len())
	assert.True(t, a.Has(1))
	assert.False(t, a.Has(2))
	assert.False(t, a.Has(-1))
}

func TestAggregatorOverwritesLast(t *testing.T) {
	var a ResponseAggregator
	require.NoError(t, a.Record(0, response("draft")))
	require.NoError(t, a.Record(0, response("final")))

	got := a.Responses()
	require.Len(t, got, 1)
	assert.Equal(t, "final", got[0].Answer)
}

func TestAggregatorRejectsGaps(t *testing.T) {
	var a ResponseAggregator
	require.NoError(t, a.Record(0, response("a")))
	require.NoError(t, a.Record(1, response("b")))

	assert.ErrorIs(t, a.Record(3, response("gap")), ErrOutOfOrder)
	assert.ErrorIs(t, a.Record(0, response("rewrite history")), ErrOutOfOrder)
	assert.ErrorIs(t, a.Record(-1, response("negative")), ErrOutOfOrder)
}

func TestAggregatorSealOnce(t *testing.T) {
	var a ResponseAggregator
	require.NoError(t, a.Record(0, response("a")))

	first, ok := a.Seal()
	require.True(t, ok)
	assert.Len(t, first, 1)

	second, ok := a.Seal()
	assert.False(t, ok)
	assert.Nil(t, second)

	assert.ErrorIs(t, a.Record(1, response("late")), ErrSessionFinished)
	assert.True(t, a.Sealed())

	a.Reset()
	assert.False(t, a.Sealed())
	assert.Zero(t, a.Len())
}

func TestAggregatorResponsesIsCopy(t *testing.T) {
	var a ResponseAggregator
	require.NoError(t, a.Record(0, response("kept")))

	got := a.Responses()
	got[0].Answer = "mutated"

	assert.Equal(t, "kept", a.Responses()[0].Answer)
}
