package conflict

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"decisionctl/internal/client"
	"decisionctl/internal/types"
)

const (
	DefaultConfidence = 0.8
	DefaultImportance = 0.5
)

type Disposition string

const (
	Keep     Disposition = "keep"
	Override Disposition = "override"
)

func ParseDisposition(raw string) (Disposition, bool) {
	switch Disposition(strings.ToLower(strings.TrimSpace(raw))) {
	case Keep:
		return Keep, true
	case Override:
		return Override, true
	}
	return "", false
}

var (
	ErrNotConflict    = errors.New("event is not a conflict")
	ErrIncomplete     = errors.New("conflict payload is incomplete")
	ErrNotOpen        = errors.New("no conflict is open")
	ErrSubmitting     = errors.New("conflict resolution already in flight")
	ErrNoResolver     = errors.New("conflict resolver is required")
	ErrBadDisposition = errors.New("disposition must be keep or override")
)

// View is one side of a conflict.
type View struct {
	ID         string
	Type       types.MemoryType
	Statement  string
	Importance float64
	Confidence float64
	CreatedAt  time.Time
}

type Candidate struct {
	Existing          View
	Proposed          View
	Explanation       string
	RecommendedAction string
}

func FromEvent(event types.PipelineEvent) (Candidate, error) {
	if event.EventType != types.EventConflictDetected {
		return Candidate{}, ErrNotConflict
	}
	var data types.ConflictDetectedData
	if err := event.DecodeData(&data); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	existing, err := viewFrom(data.ExistingMemory, "existing")
	if err != nil {
		return Candidate{}, err
	}
	if existing.ID == "" {
		return Candidate{}, fmt.Errorf("%w: existing record has no id", ErrIncomplete)
	}
	proposed, err := viewFrom(data.NewMemory, "proposed")
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		Existing:          existing,
		Proposed:          proposed,
		Explanation:       strings.TrimSpace(data.Explanation),
		RecommendedAction: strings.TrimSpace(data.RecommendedAction),
	}, nil
}

func viewFrom(raw *types.ConflictMemoryView, side string) (View, error) {
	if raw == nil {
		return View{}, fmt.Errorf("%w: missing %s record", ErrIncomplete, side)
	}
	statement := strings.TrimSpace(raw.Statement)
	typeName := strings.TrimSpace(raw.Type)
	if statement == "" || typeName == "" {
		return View{}, fmt.Errorf("%w: %s record needs type and statement", ErrIncomplete, side)
	}
	memoryType, ok := types.ParseMemoryType(typeName)
	if !ok {
		memoryType = types.MemoryType(strings.ToLower(typeName))
	}
	view := View{
		ID:         strings.TrimSpace(raw.ID),
		Type:       memoryType,
		Statement:  statement,
		Importance: DefaultImportance,
		Confidence: DefaultConfidence,
	}
	if raw.Importance != nil {
		view.Importance = *raw.Importance
	}
	if raw.Confidence != nil {
		view.Confidence = *raw.Confidence
	}
	if raw.CreatedAt != "" {
		if ts, err := parseTimestamp(raw.CreatedAt); err == nil {
			view.CreatedAt = ts
		}
	}
	return view, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Request builds the resolve-conflict body for a disposition.
func (c Candidate) Request(disposition Disposition) client.ResolveConflictRequest {
	return client.ResolveConflictRequest{
		ExistingMemoryID: c.Existing.ID,
		NewMemory: client.NewMemoryData{
			Type:       c.Proposed.Type,
			Statement:  c.Proposed.Statement,
			Importance: c.Proposed.Importance,
			Confidence: c.Proposed.Confidence,
		},
		Resolution: client.Resolution(disposition),
	}
}

type Resolver interface {
	ResolveConflict(ctx context.Context, projectID string, req client.ResolveConflictRequest) (*client.ResolveConflictResponse, error)
}

// Outcome describes what a successful resolution requires of the caller: the
// ledger must be refreshed and the originating log entry un-highlighted.
type Outcome struct {
	Disposition   Disposition
	RefreshLedger bool
	ClearEntry    bool
	Response      *client.ResolveConflictResponse
}

// Flow holds at most one open conflict. A failed submission leaves it open
// so the user can retry.
type Flow struct {
	open       *Candidate
	submitting bool
	err        error
}

func (f *Flow) Open(candidate Candidate) {
	f.open = &candidate
	f.submitting = false
	f.err = nil
}

func (f *Flow) IsOpen() bool {
	return f.open != nil
}

func (f *Flow) Candidate() (Candidate, bool) {
	if f.open == nil {
		return Candidate{}, false
	}
	return *f.open, true
}

func (f *Flow) Submitting() bool {
	return f.submitting
}

// Err is the last submission failure for the open conflict.
func (f *Flow) Err() error {
	return f.err
}

func (f *Flow) BeginSubmit(disposition Disposition) (client.ResolveConflictRequest, error) {
	if f.open == nil {
		return client.ResolveConflictRequest{}, ErrNotOpen
	}
	if disposition != Keep && disposition != Override {
		return client.ResolveConflictRequest{}, ErrBadDisposition
	}
	if f.submitting {
		return client.ResolveConflictRequest{}, ErrSubmitting
	}
	f.submitting = true
	f.err = nil
	return f.open.Request(disposition), nil
}

func (f *Flow) CompleteSubmit(disposition Disposition, resp *client.ResolveConflictResponse) Outcome {
	f.open = nil
	f.submitting = false
	f.err = nil
	return Outcome{Disposition: disposition, RefreshLedger: true, ClearEntry: true, Response: resp}
}

func (f *Flow) FailSubmit(err error) {
	f.submitting = false
	f.err = err
}

// Submit runs the whole round trip synchronously.
func (f *Flow) Submit(ctx context.Context, resolver Resolver, projectID string, disposition Disposition) (Outcome, error) {
	if resolver == nil {
		return Outcome{}, ErrNoResolver
	}
	req, err := f.BeginSubmit(disposition)
	if err != nil {
		return Outcome{}, err
	}
	resp, err := resolver.ResolveConflict(ctx, projectID, req)
	if err != nil {
		f.FailSubmit(err)
		return Outcome{}, err
	}
	return f.CompleteSubmit(disposition, resp), nil
}

func (f *Flow) Dismiss() bool {
	if f.open == nil {
		return false
	}
	f.open = nil
	f.submitting = false
	f.err = nil
	return true
}
