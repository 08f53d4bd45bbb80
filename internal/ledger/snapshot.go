package ledger

import (
	"sort"
	"time"

	"decisionctl/internal/client"
	"decisionctl/internal/types"
)

// Snapshot is an immutable view of one project's ledger. Within each type,
// records are ordered newest first.
type Snapshot struct {
	ProjectID     string
	FetchedAt     time.Time
	TotalCount    int
	ActiveCount   int
	DisputedCount int

	groups   map[types.MemoryType][]types.Memory
	byID     map[string]int
	flat     []types.Memory
	received []types.Memory
}

func newSnapshot(projectID string, resp *client.LedgerResponse, fetchedAt time.Time) *Snapshot {
	snap := &Snapshot{
		ProjectID: projectID,
		FetchedAt: fetchedAt,
		groups:    map[types.MemoryType][]types.Memory{},
		byID:      map[string]int{},
	}
	if resp == nil {
		return snap
	}
	snap.TotalCount = resp.TotalCount
	snap.ActiveCount = resp.ActiveCount
	snap.DisputedCount = resp.DisputedCount

	groups := resp.Groups()
	for _, memoryType := range types.MemoryTypes() {
		records := append([]types.Memory(nil), groups[memoryType]...)
		for i := range records {
			if records[i].Type == "" {
				records[i].Type = memoryType
			}
		}
		snap.received = append(snap.received, records...)
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		})
		if len(records) > 0 {
			snap.groups[memoryType] = records
		}
		for _, record := range records {
			if _, seen := snap.byID[record.ID]; seen {
				continue
			}
			snap.byID[record.ID] = len(snap.flat)
			snap.flat = append(snap.flat, record)
		}
	}
	if snap.TotalCount == 0 {
		snap.TotalCount = len(snap.flat)
	}
	return snap
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.flat)
}

// Records returns every record in canonical type order, newest first within
// each type.
func (s *Snapshot) Records() []types.Memory {
	if s == nil {
		return nil
	}
	return append([]types.Memory(nil), s.flat...)
}

// Received returns every record in canonical type order, keeping the order
// the backend listed them in within each type.
func (s *Snapshot) Received() []types.Memory {
	if s == nil {
		return nil
	}
	return append([]types.Memory(nil), s.received...)
}

func (s *Snapshot) ByType(memoryType types.MemoryType) []types.Memory {
	if s == nil {
		return nil
	}
	return append([]types.Memory(nil), s.groups[memoryType]...)
}

func (s *Snapshot) Lookup(id string) (types.Memory, bool) {
	if s == nil {
		return types.Memory{}, false
	}
	idx, ok := s.byID[id]
	if !ok {
		return types.Memory{}, false
	}
	return s.flat[idx], true
}

// Counts reports how many records of each type are present.
func (s *Snapshot) Counts() map[types.MemoryType]int {
	out := map[types.MemoryType]int{}
	if s == nil {
		return out
	}
	for memoryType, records := range s.groups {
		out[memoryType] = len(records)
	}
	return out
}
