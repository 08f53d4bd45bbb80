package types

import (
	"encoding/json"
	"errors"
	"strings"
)

type EventType string

const (
	EventConnected         EventType = "connected"
	EventIntentClassified  EventType = "intent_classified"
	EventSearchStart       EventType = "search_start"
	EventMemoriesRetrieved EventType = "memories_retrieved"
	EventGenerating        EventType = "generating"
	EventExtracting        EventType = "extracting"
	EventCandidatesCreated EventType = "candidates_created"
	EventClassified        EventType = "classified"
	EventDedupRunning      EventType = "dedup_running"
	EventDedupFound        EventType = "dedup_found"
	EventMemoriesSaved     EventType = "memories_saved"
	EventComplete          EventType = "complete"
	EventError             EventType = "error"
	EventSessionEnding     EventType = "session_ending"
	EventSummarizing       EventType = "summarizing"
	EventSummaryGenerated  EventType = "summary_generated"
	EventSessionComplete   EventType = "session_complete"
	EventConflictDetected  EventType = "conflict_detected"
	EventConflictResolved  EventType = "conflict_resolved"
)

func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventSessionComplete
}

// PipelineEvent is one frame of the project push channel. Data is decoded
// lazily by the typed accessors below.
type PipelineEvent struct {
	EventType EventType       `json:"event_type"`
	TurnID    string          `json:"turn_id,omitempty"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

var ErrMissingEventType = errors.New("event_type is required")

func ParsePipelineEvent(payload []byte) (PipelineEvent, error) {
	var event PipelineEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return PipelineEvent{}, err
	}
	event.EventType = EventType(strings.TrimSpace(string(event.EventType)))
	event.TurnID = strings.TrimSpace(event.TurnID)
	if event.EventType == "" {
		return PipelineEvent{}, ErrMissingEventType
	}
	return event, nil
}

func (e PipelineEvent) HasData() bool {
	data := strings.TrimSpace(string(e.Data))
	return data != "" && data != "null"
}

// DecodeData unmarshals the payload into out. An absent payload leaves out
// untouched and is not an error.
func (e PipelineEvent) DecodeData(out any) error {
	if !e.HasData() {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}

type MemoryPreview struct {
	ID         string  `json:"id"`
	Type       string  `json:"type,omitempty"`
	Preview    string  `json:"preview,omitempty"`
	Importance float64 `json:"importance,omitempty"`
}

type IntentClassifiedData struct {
	Intent string `json:"intent"`
}

type MemoriesRetrievedData struct {
	Count    int             `json:"count"`
	Memories []MemoryPreview `json:"memories"`
}

type GeneratingData struct {
	Tier  string `json:"tier"`
	Model string `json:"model,omitempty"`
}

type CandidatesCreatedData struct {
	Count    int             `json:"count"`
	Previews []MemoryPreview `json:"previews"`
}

type ClassifiedData struct {
	Types      []string       `json:"types"`
	TypeCounts map[string]int `json:"type_counts"`
}

type DedupFoundData struct {
	MemoryID string `json:"memory_id"`
	Type     string `json:"type,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

type CompleteData struct {
	MemoryIDs []string `json:"memory_ids"`
}

// ConflictMemoryView is the record-shaped half of a conflict payload. Numeric
// fields are pointers so absent values can be defaulted.
type ConflictMemoryView struct {
	ID         string   `json:"id,omitempty"`
	Type       string   `json:"type"`
	Statement  string   `json:"statement"`
	Importance *float64 `json:"importance,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
}

type ConflictDetectedData struct {
	NewMemory         *ConflictMemoryView `json:"new_memory"`
	ExistingMemory    *ConflictMemoryView `json:"existing_memory"`
	Explanation       string              `json:"explanation,omitempty"`
	RecommendedAction string              `json:"recommended_action,omitempty"`
}

type ConflictResolvedData struct {
	Resolution       string `json:"resolution"`
	KeptMemoryID     string `json:"kept_memory_id,omitempty"`
	DisputedMemoryID string `json:"disputed_memory_id,omitempty"`
	NewMemoryID      string `json:"new_memory_id,omitempty"`
}

type ErrorData struct {
	Error string `json:"error"`
}
