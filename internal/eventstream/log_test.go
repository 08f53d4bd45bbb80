package eventstream

import (
	"encoding/json"
	"testing"

	"decisionctl/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogClearsOnTurnChange(t *testing.T) {
	log := NewLog(0, nil)
	for _, turn := range []string{"T1", "T1", "T1"} {
		log.Apply(ev(types.EventSearchStart, turn))
	}
	require.Equal(t, 3, log.Len())

	changed, cleared := log.Apply(ev(types.EventGenerating, "T2"))
	assert.True(t, changed)
	assert.True(t, cleared)
	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "T2", entries[0].TurnID)
	assert.Equal(t, "T2", log.CurrentTurn())
}

func TestLogDiscardsConnected(t *testing.T) {
	log := NewLog(0, nil)
	changed, _ := log.Apply(types.PipelineEvent{EventType: types.EventConnected})
	assert.False(t, changed)
	assert.Zero(t, log.Len())
}

func TestLogIsBounded(t *testing.T) {
	log := NewLog(3, nil)
	for i := 0; i < 5; i++ {
		log.Apply(ev(types.EventSearchStart, "t"))
	}
	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, 3, entries[0].Seq)
	assert.Equal(t, 5, entries[2].Seq)
}

func conflictEvent(turn string) types.PipelineEvent {
	data, _ := json.Marshal(types.ConflictDetectedData{
		NewMemory:      &types.ConflictMemoryView{Type: "decision", Statement: "new"},
		ExistingMemory: &types.ConflictMemoryView{ID: "m1", Type: "decision", Statement: "old"},
	})
	return types.PipelineEvent{EventType: types.EventConflictDetected, TurnID: turn, Data: data}
}

func TestPendingConflictSurvivesTurnChange(t *testing.T) {
	log := NewLog(0, nil)
	log.Apply(conflictEvent("t1"))
	pending, ok := log.PendingConflict()
	require.True(t, ok)
	assert.Equal(t, KindConflict, pending.Kind)

	log.Apply(ev(types.EventSearchStart, "t2"))
	assert.Equal(t, 1, log.Len())
	_, ok = log.PendingConflict()
	assert.True(t, ok)

	assert.True(t, log.DismissConflict())
	_, ok = log.PendingConflict()
	assert.False(t, ok)
	assert.False(t, log.DismissConflict())
}

func TestResolveConflictDeactivatesEntry(t *testing.T) {
	log := NewLog(0, nil)
	log.Apply(conflictEvent("t1"))
	require.True(t, log.Entries()[0].Active)

	assert.True(t, log.ResolveConflict())
	assert.False(t, log.Entries()[0].Active)
}

func TestConflictResolvedEventSettlesPending(t *testing.T) {
	log := NewLog(0, nil)
	log.Apply(conflictEvent("t1"))
	log.Apply(ev(types.EventConflictResolved, "t1"))
	_, ok := log.PendingConflict()
	assert.False(t, ok)
	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Active)
	assert.Equal(t, KindResolved, entries[1].Kind)
}

func TestMalformedEventIsDropped(t *testing.T) {
	log := NewLog(0, nil)
	log.Apply(ev(types.EventGenerating, "T1"))

	changed, cleared := log.Apply(types.PipelineEvent{
		EventType: types.EventMemoriesRetrieved,
		TurnID:    "T2",
		Message:   "bad",
		Data:      json.RawMessage(`{"memories":"oops"}`),
	})
	assert.False(t, changed)
	assert.False(t, cleared)
	assert.Equal(t, "T1", log.CurrentTurn())
	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, types.EventGenerating, entries[0].EventType)
}

func TestIncompleteConflictIsDropped(t *testing.T) {
	log := NewLog(0, nil)
	log.Apply(ev(types.EventSearchStart, "t1"))
	for _, raw := range []string{`[1]`, `{"explanation":"x"}`} {
		changed, _ := log.Apply(types.PipelineEvent{EventType: types.EventConflictDetected, TurnID: "t2", Data: json.RawMessage(raw)})
		assert.False(t, changed, raw)
	}
	_, ok := log.PendingConflict()
	assert.False(t, ok)
	assert.Equal(t, 1, log.Len())
	assert.Equal(t, "t1", log.CurrentTurn())
}

func TestNewerConflictReplacesPending(t *testing.T) {
	log := NewLog(0, nil)
	log.Apply(conflictEvent("t1"))
	log.Apply(conflictEvent("t1"))

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Active)
	assert.True(t, entries[1].Active)
	pending, ok := log.PendingConflict()
	require.True(t, ok)
	assert.Equal(t, entries[1].Seq, pending.Seq)

	assert.True(t, log.ResolveConflict())
	for _, entry := range log.Entries() {
		assert.False(t, entry.Active, "seq %d", entry.Seq)
	}
	_, ok = log.PendingConflict()
	assert.False(t, ok)
}

func TestLogReset(t *testing.T) {
	log := NewLog(0, nil)
	log.Apply(conflictEvent("t1"))
	log.Reset()
	assert.Zero(t, log.Len())
	assert.Empty(t, log.CurrentTurn())
	_, ok := log.PendingConflict()
	assert.False(t, ok)
}
