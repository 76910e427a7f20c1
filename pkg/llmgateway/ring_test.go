package llmgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingOrdinalsIncreaseWithNoGaps(t *testing.T) {
	r := NewRing()
	for i := 0; i < 5; i++ {
		r.Append("task-1", ProviderOllama, false, RequestSummary{}, ResponseSummary{})
	}

	turns := r.Since("task-1", 0)
	assert.Len(t, turns, 5)
	for i, turn := range turns {
		assert.Equal(t, i+1, turn.Ordinal)
	}
}

func TestRingSinceOnlyReturnsNewerTurns(t *testing.T) {
	r := NewRing()
	r.Append("task-1", ProviderOllama, false, RequestSummary{}, ResponseSummary{})
	r.Append("task-1", ProviderOllama, false, RequestSummary{}, ResponseSummary{})
	r.Append("task-1", ProviderOllama, false, RequestSummary{}, ResponseSummary{})

	turns := r.Since("task-1", 2)
	assert.Len(t, turns, 1)
	assert.Equal(t, 3, turns[0].Ordinal)
}

func TestRingEvictsOldestBeyondCapacityButKeepsOrdinalsMonotonic(t *testing.T) {
	r := NewRing()
	for i := 0; i < ringCap+10; i++ {
		r.Append("task-1", ProviderOllama, false, RequestSummary{}, ResponseSummary{})
	}

	turns := r.Since("task-1", 0)
	assert.Len(t, turns, ringCap)
	assert.Equal(t, 11, turns[0].Ordinal)
	assert.Equal(t, ringCap+10, turns[len(turns)-1].Ordinal)
}

func TestRingTracksTasksIndependently(t *testing.T) {
	r := NewRing()
	r.Append("task-1", ProviderOllama, false, RequestSummary{}, ResponseSummary{})
	r.Append("task-2", ProviderOllama, false, RequestSummary{}, ResponseSummary{})
	r.Append("task-2", ProviderOllama, false, RequestSummary{}, ResponseSummary{})

	assert.Len(t, r.Since("task-1", 0), 1)
	assert.Len(t, r.Since("task-2", 0), 2)
}

func TestRingClearDrainsTask(t *testing.T) {
	r := NewRing()
	r.Append("task-1", ProviderOllama, false, RequestSummary{}, ResponseSummary{})
	r.Clear("task-1")
	assert.Empty(t, r.Since("task-1", 0))
}
