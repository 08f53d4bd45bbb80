package eventstream

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"decisionctl/internal/conflict"
	"decisionctl/internal/types"
)

const MaxPills = 5

type EntryKind int

const (
	KindInfo EntryKind = iota
	KindProgress
	KindRecords
	KindConflict
	KindResolved
	KindError
)

func (k EntryKind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindRecords:
		return "records"
	case KindConflict:
		return "conflict"
	case KindResolved:
		return "resolved"
	case KindError:
		return "error"
	default:
		return "info"
	}
}

// Pill is an inline record reference. ID may be empty for previews of records
// that do not exist yet.
type Pill struct {
	ID    string
	Type  string
	Label string
}

type Entry struct {
	Seq       int
	EventType types.EventType
	TurnID    string
	Kind      EntryKind
	Message   string
	Pills     []Pill
	Overflow  int
	Tier      string
	Detail    string
	NoRecords bool
	// Active conflict entries stay highlighted and selectable until dismissed
	// or resolved.
	Persistent bool
	Active     bool
	Event      types.PipelineEvent
	At         time.Time
}

var defaultMessages = map[types.EventType]string{
	types.EventIntentClassified:  "Intent classified",
	types.EventSearchStart:       "Searching records",
	types.EventMemoriesRetrieved: "Records retrieved",
	types.EventGenerating:        "Generating response",
	types.EventExtracting:        "Extracting records",
	types.EventCandidatesCreated: "Candidates created",
	types.EventClassified:        "Classified",
	types.EventDedupRunning:      "Checking for duplicates",
	types.EventDedupFound:        "Merged with existing record",
	types.EventMemoriesSaved:     "Records saved",
	types.EventComplete:          "Complete",
	types.EventError:             "Pipeline error",
	types.EventSessionEnding:     "Ending session",
	types.EventSummarizing:       "Summarizing session",
	types.EventSummaryGenerated:  "Summary generated",
	types.EventSessionComplete:   "Session complete",
	types.EventConflictDetected:  "Conflict detected",
	types.EventConflictResolved:  "Conflict resolved",
}

// Present maps an event to its log entry. A payload that fails to decode, or
// a conflict missing either side, is reported as an error.
func Present(event types.PipelineEvent) (Entry, error) {
	entry := Entry{
		EventType: event.EventType,
		TurnID:    event.TurnID,
		Kind:      KindProgress,
		Message:   strings.TrimSpace(event.Message),
		Event:     event,
	}
	if entry.Message == "" {
		if msg, ok := defaultMessages[event.EventType]; ok {
			entry.Message = msg
		} else {
			entry.Message = string(event.EventType)
		}
	}

	var err error
	switch event.EventType {
	case types.EventMemoriesRetrieved:
		var data types.MemoriesRetrievedData
		if err = event.DecodeData(&data); err == nil {
			total := data.Count
			if total < len(data.Memories) {
				total = len(data.Memories)
			}
			entry.Pills, entry.Overflow = previewPills(data.Memories, total)
		}
	case types.EventGenerating:
		var data types.GeneratingData
		if err = event.DecodeData(&data); err == nil {
			entry.Tier = strings.TrimSpace(data.Tier)
		}
	case types.EventCandidatesCreated:
		var data types.CandidatesCreatedData
		if err = event.DecodeData(&data); err == nil {
			total := data.Count
			if total < len(data.Previews) {
				total = len(data.Previews)
			}
			entry.Pills, entry.Overflow = previewPills(data.Previews, total)
		}
	case types.EventClassified:
		var data types.ClassifiedData
		if err = event.DecodeData(&data); err == nil {
			entry.Detail = formatTypeCounts(data)
		}
	case types.EventDedupFound:
		var data types.DedupFoundData
		if err = event.DecodeData(&data); err == nil && data.MemoryID != "" {
			entry.Pills = []Pill{{ID: data.MemoryID, Type: data.Type, Label: data.Preview}}
		}
	case types.EventComplete, types.EventSessionComplete:
		entry.Kind = KindRecords
		var data types.CompleteData
		if err = event.DecodeData(&data); err == nil {
			for _, id := range data.MemoryIDs {
				if id = strings.TrimSpace(id); id != "" {
					entry.Pills = append(entry.Pills, Pill{ID: id})
				}
			}
		}
		entry.NoRecords = len(entry.Pills) == 0
	case types.EventConflictDetected:
		entry.Kind = KindConflict
		entry.Persistent = true
		entry.Active = true
		var candidate conflict.Candidate
		if candidate, err = conflict.FromEvent(event); err == nil {
			entry.Detail = candidate.Explanation
			existing := candidate.Existing
			entry.Pills = []Pill{{ID: existing.ID, Type: string(existing.Type), Label: existing.Statement}}
		}
	case types.EventConflictResolved:
		entry.Kind = KindResolved
		var data types.ConflictResolvedData
		if err = event.DecodeData(&data); err == nil {
			for _, id := range []string{data.KeptMemoryID, data.NewMemoryID, data.DisputedMemoryID} {
				if id != "" {
					entry.Pills = append(entry.Pills, Pill{ID: id})
				}
			}
		}
	case types.EventError:
		entry.Kind = KindError
		var data types.ErrorData
		if err = event.DecodeData(&data); err == nil && data.Error != "" {
			entry.Detail = data.Error
		}
	default:
		entry.Kind = KindInfo
	}
	if err != nil {
		entry.Pills = nil
		entry.Overflow = 0
		entry.Tier = ""
		entry.Detail = ""
		return entry, fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	return entry, nil
}

func previewPills(previews []types.MemoryPreview, total int) ([]Pill, int) {
	limit := len(previews)
	if limit > MaxPills {
		limit = MaxPills
	}
	pills := make([]Pill, 0, limit)
	for _, preview := range previews[:limit] {
		pills = append(pills, Pill{ID: preview.ID, Type: preview.Type, Label: preview.Preview})
	}
	return pills, total - limit
}

// formatTypeCounts renders "decision 2 · goal 1" in ledger type order, with
// unknown type names appended alphabetically.
func formatTypeCounts(data types.ClassifiedData) string {
	counts := map[string]int{}
	for name, count := range data.TypeCounts {
		counts[strings.ToLower(name)] += count
	}
	if len(counts) == 0 {
		for _, name := range data.Types {
			counts[strings.ToLower(name)]++
		}
	}
	var parts []string
	for _, memoryType := range types.MemoryTypes() {
		if count, ok := counts[string(memoryType)]; ok {
			parts = append(parts, string(memoryType)+" "+strconv.Itoa(count))
			delete(counts, string(memoryType))
		}
	}
	rest := make([]string, 0, len(counts))
	for name := range counts {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	for _, name := range rest {
		parts = append(parts, name+" "+strconv.Itoa(counts[name]))
	}
	return strings.Join(parts, " · ")
}

// OverflowLabel is the "+N more" marker, empty when nothing overflowed.
func (e Entry) OverflowLabel() string {
	if e.Overflow <= 0 {
		return ""
	}
	return "+" + strconv.Itoa(e.Overflow) + " more"
}
