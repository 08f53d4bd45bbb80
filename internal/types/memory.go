package types

import (
	"strings"
	"time"
)

type MemoryType string

const (
	MemoryTypeDecision   MemoryType = "decision"
	MemoryTypeCommitment MemoryType = "commitment"
	MemoryTypeConstraint MemoryType = "constraint"
	MemoryTypeGoal       MemoryType = "goal"
	MemoryTypeFailure    MemoryType = "failure"
	MemoryTypeAssumption MemoryType = "assumption"
	MemoryTypeException  MemoryType = "exception"
	MemoryTypePreference MemoryType = "preference"
	MemoryTypeBelief     MemoryType = "belief"
)

var memoryTypes = []MemoryType{
	MemoryTypeDecision,
	MemoryTypeCommitment,
	MemoryTypeConstraint,
	MemoryTypeGoal,
	MemoryTypeFailure,
	MemoryTypeAssumption,
	MemoryTypeException,
	MemoryTypePreference,
	MemoryTypeBelief,
}

// MemoryTypes returns the closed set of record types in ledger display order.
func MemoryTypes() []MemoryType {
	return append([]MemoryType(nil), memoryTypes...)
}

// ParseMemoryType maps a type name to its tag. Matching is case-insensitive
// and accepts the plural ledger keys ("decisions").
func ParseMemoryType(raw string) (MemoryType, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", false
	}
	for _, t := range memoryTypes {
		if name == string(t) || name == t.Plural() {
			return t, true
		}
	}
	return "", false
}

func (t MemoryType) Plural() string {
	return string(t) + "s"
}

func (t MemoryType) Label() string {
	return strings.ToUpper(string(t))
}

type MemoryStatus string

const (
	MemoryStatusActive     MemoryStatus = "active"
	MemoryStatusDisputed   MemoryStatus = "disputed"
	MemoryStatusSuperseded MemoryStatus = "superseded"
	MemoryStatusExpired    MemoryStatus = "expired"
)

type Memory struct {
	ID                 string          `json:"id"`
	ProjectID          string          `json:"project_id,omitempty"`
	Type               MemoryType      `json:"type"`
	CanonicalStatement string          `json:"canonical_statement"`
	ConflictKey        string          `json:"conflict_key,omitempty"`
	Importance         float64         `json:"importance"`
	Confidence         float64         `json:"confidence"`
	Durability         string          `json:"durability,omitempty"`
	Status             MemoryStatus    `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	VersionCount       int             `json:"version_count"`
	Versions           []MemoryVersion `json:"versions,omitempty"`
	EvidenceLinks      []EvidenceLink  `json:"evidence_links,omitempty"`
}

func (m *Memory) Disputed() bool {
	return m != nil && m.Status == MemoryStatusDisputed
}

// ShortID is the eight character prefix used for citations in generated text.
func (m *Memory) ShortID() string {
	if m == nil {
		return ""
	}
	return ShortID(m.ID)
}

func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

type MemoryVersion struct {
	ID            string    `json:"id"`
	VersionNumber int       `json:"version_number"`
	Statement     string    `json:"statement"`
	Rationale     string    `json:"rationale,omitempty"`
	ChangedBy     string    `json:"changed_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type EvidenceLink struct {
	ID         string  `json:"id"`
	EvidenceID string  `json:"evidence_id"`
	Quote      string  `json:"quote,omitempty"`
	Confidence float64 `json:"confidence"`
	SourceType string  `json:"source_type"`
	SourceRef  string  `json:"source_ref"`
}
