package conflict

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"decisionctl/internal/client"
	"decisionctl/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conflictEvent(t *testing.T, data types.ConflictDetectedData) types.PipelineEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return types.PipelineEvent{EventType: types.EventConflictDetected, TurnID: "t1", Data: raw}
}

func float(v float64) *float64 { return &v }

func sampleData() types.ConflictDetectedData {
	return types.ConflictDetectedData{
		NewMemory:      &types.ConflictMemoryView{Type: "decision", Statement: "Use SQLite"},
		ExistingMemory: &types.ConflictMemoryView{ID: "m1", Type: "DECISION", Statement: "Use Postgres", Importance: float(0.9), Confidence: float(0.7), CreatedAt: "2026-02-01T10:00:00"},
		Explanation:    "Storage engine changed",
	}
}

func TestFromEventDefaults(t *testing.T) {
	candidate, err := FromEvent(conflictEvent(t, sampleData()))
	require.NoError(t, err)
	assert.Equal(t, "m1", candidate.Existing.ID)
	assert.Equal(t, types.MemoryTypeDecision, candidate.Existing.Type)
	assert.Equal(t, 0.9, candidate.Existing.Importance)
	assert.Equal(t, 0.7, candidate.Existing.Confidence)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), candidate.Existing.CreatedAt)

	assert.Equal(t, DefaultImportance, candidate.Proposed.Importance)
	assert.Equal(t, DefaultConfidence, candidate.Proposed.Confidence)
	assert.True(t, candidate.Proposed.CreatedAt.IsZero())
	assert.Equal(t, "Storage engine changed", candidate.Explanation)
}

func TestFromEventRejectsIncompletePayloads(t *testing.T) {
	missingNew := sampleData()
	missingNew.NewMemory = nil
	_, err := FromEvent(conflictEvent(t, missingNew))
	assert.ErrorIs(t, err, ErrIncomplete)

	noStatement := sampleData()
	noStatement.ExistingMemory.Statement = " "
	_, err = FromEvent(conflictEvent(t, noStatement))
	assert.ErrorIs(t, err, ErrIncomplete)

	noID := sampleData()
	noID.ExistingMemory.ID = ""
	_, err = FromEvent(conflictEvent(t, noID))
	assert.ErrorIs(t, err, ErrIncomplete)

	_, err = FromEvent(types.PipelineEvent{EventType: types.EventComplete})
	assert.ErrorIs(t, err, ErrNotConflict)
}

type fakeResolver struct {
	reqs []client.ResolveConflictRequest
	err  error
}

func (f *fakeResolver) ResolveConflict(ctx context.Context, projectID string, req client.ResolveConflictRequest) (*client.ResolveConflictResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &client.ResolveConflictResponse{Status: "resolved", Resolution: req.Resolution}, nil
}

func TestSubmitOverride(t *testing.T) {
	candidate, err := FromEvent(conflictEvent(t, sampleData()))
	require.NoError(t, err)
	var flow Flow
	flow.Open(candidate)

	resolver := &fakeResolver{}
	outcome, err := flow.Submit(context.Background(), resolver, "p1", Override)
	require.NoError(t, err)
	assert.True(t, outcome.RefreshLedger)
	assert.True(t, outcome.ClearEntry)
	assert.False(t, flow.IsOpen())

	require.Len(t, resolver.reqs, 1)
	req := resolver.reqs[0]
	assert.Equal(t, "m1", req.ExistingMemoryID)
	assert.Equal(t, client.ResolutionOverride, req.Resolution)
	assert.Equal(t, "Use SQLite", req.NewMemory.Statement)
	assert.Equal(t, DefaultConfidence, req.NewMemory.Confidence)
}

func TestSubmitFailureKeepsFlowOpen(t *testing.T) {
	candidate, err := FromEvent(conflictEvent(t, sampleData()))
	require.NoError(t, err)
	var flow Flow
	flow.Open(candidate)

	resolver := &fakeResolver{err: errors.New("503")}
	_, err = flow.Submit(context.Background(), resolver, "p1", Keep)
	require.Error(t, err)
	assert.True(t, flow.IsOpen())
	assert.EqualError(t, flow.Err(), "503")
	assert.False(t, flow.Submitting())

	resolver.err = nil
	outcome, err := flow.Submit(context.Background(), resolver, "p1", Keep)
	require.NoError(t, err)
	assert.Equal(t, Keep, outcome.Disposition)
	assert.Len(t, resolver.reqs, 2)
}

func TestBeginSubmitGuards(t *testing.T) {
	var flow Flow
	_, err := flow.BeginSubmit(Keep)
	assert.ErrorIs(t, err, ErrNotOpen)

	flow.Open(Candidate{Existing: View{ID: "m1"}})
	_, err = flow.BeginSubmit("maybe")
	assert.ErrorIs(t, err, ErrBadDisposition)
	_, err = flow.BeginSubmit(Keep)
	require.NoError(t, err)
	_, err = flow.BeginSubmit(Keep)
	assert.ErrorIs(t, err, ErrSubmitting)
}

func TestDismiss(t *testing.T) {
	var flow Flow
	assert.False(t, flow.Dismiss())
	flow.Open(Candidate{})
	assert.True(t, flow.Dismiss())
	assert.False(t, flow.IsOpen())
}

func TestParseDisposition(t *testing.T) {
	d, ok := ParseDisposition(" Override ")
	assert.True(t, ok)
	assert.Equal(t, Override, d)
	_, ok = ParseDisposition("merge")
	assert.False(t, ok)
}
