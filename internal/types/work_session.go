package types

import "time"

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type WorkSession struct {
	ID              string     `json:"session_id"`
	ProjectID       string     `json:"project_id,omitempty"`
	TaskDescription string     `json:"task_description"`
	Status          string     `json:"status,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	MessageCount    int        `json:"message_count,omitempty"`
}

type Message struct {
	ID        string      `json:"id,omitempty"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CitedIDs  []string    `json:"cited_ids,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type QualityMode string

const (
	QualityFast     QualityMode = "fast"
	QualityBalanced QualityMode = "balanced"
	QualityThorough QualityMode = "thorough"
)

func ParseQualityMode(raw string) (QualityMode, bool) {
	switch QualityMode(raw) {
	case QualityFast, QualityBalanced, QualityThorough:
		return QualityMode(raw), true
	case "":
		return QualityBalanced, true
	}
	return "", false
}

// Next cycles fast -> balanced -> thorough -> fast.
func (q QualityMode) Next() QualityMode {
	switch q {
	case QualityFast:
		return QualityBalanced
	case QualityBalanced:
		return QualityThorough
	default:
		return QualityFast
	}
}

type DebugMetadata struct {
	MemoryUsed         []string `json:"memory_used"`
	CommitmentsChecked []string `json:"commitments_checked"`
	Violated           bool     `json:"violated"`
	ViolationDetails   string   `json:"violation_details,omitempty"`
	ModelTier          string   `json:"model_tier"`
	LatencyMS          int      `json:"latency_ms"`
	TokenCount         int      `json:"token_count,omitempty"`
	TokensBefore       int      `json:"tokens_before,omitempty"`
	TokensAfter        int      `json:"tokens_after,omitempty"`
	TokensSaved        int      `json:"tokens_saved,omitempty"`
}

// StatelessTurn is one quick-update exchange.
type StatelessTurn struct {
	Input        string        `json:"input"`
	Output       string        `json:"output"`
	Debug        DebugMetadata `json:"debug"`
	NewRecordIDs []string      `json:"new_record_ids,omitempty"`
}
