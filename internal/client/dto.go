package client

import "decisionctl/internal/types"

type HealthResponse struct {
	Status string `json:"status"`
}

func (h *HealthResponse) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

type ProjectsResponse struct {
	Projects []*types.Project `json:"projects"`
	Total    int              `json:"total"`
}

type ChatRequest struct {
	Message string            `json:"message"`
	Mode    types.QualityMode `json:"mode,omitempty"`
}

type ChatResponse struct {
	AssistantText      string              `json:"assistant_text"`
	Debug              types.DebugMetadata `json:"debug"`
	ViolationChallenge string              `json:"violation_challenge,omitempty"`
	SuggestedActions   []string            `json:"suggested_actions,omitempty"`
	MemoriesCreated    []string            `json:"memories_created"`
}

// LedgerResponse groups records under the plural type keys the backend emits.
type LedgerResponse struct {
	Decisions     []types.Memory `json:"decisions"`
	Commitments   []types.Memory `json:"commitments"`
	Constraints   []types.Memory `json:"constraints"`
	Goals         []types.Memory `json:"goals"`
	Failures      []types.Memory `json:"failures"`
	Assumptions   []types.Memory `json:"assumptions"`
	Exceptions    []types.Memory `json:"exceptions"`
	Preferences   []types.Memory `json:"preferences"`
	Beliefs       []types.Memory `json:"beliefs"`
	TotalCount    int            `json:"total_count"`
	ActiveCount   int            `json:"active_count"`
	DisputedCount int            `json:"disputed_count"`
}

func (l *LedgerResponse) Groups() map[types.MemoryType][]types.Memory {
	if l == nil {
		return map[types.MemoryType][]types.Memory{}
	}
	return map[types.MemoryType][]types.Memory{
		types.MemoryTypeDecision:   l.Decisions,
		types.MemoryTypeCommitment: l.Commitments,
		types.MemoryTypeConstraint: l.Constraints,
		types.MemoryTypeGoal:       l.Goals,
		types.MemoryTypeFailure:    l.Failures,
		types.MemoryTypeAssumption: l.Assumptions,
		types.MemoryTypeException:  l.Exceptions,
		types.MemoryTypePreference: l.Preferences,
		types.MemoryTypeBelief:     l.Beliefs,
	}
}

type DeleteMemoryResponse struct {
	Status   string `json:"status"`
	MemoryID string `json:"memory_id"`
}

type Resolution string

const (
	ResolutionKeep     Resolution = "keep"
	ResolutionOverride Resolution = "override"
)

type NewMemoryData struct {
	Type       types.MemoryType `json:"type"`
	Statement  string           `json:"statement"`
	Importance float64          `json:"importance"`
	Confidence float64          `json:"confidence"`
	Durability string           `json:"durability,omitempty"`
}

type ResolveConflictRequest struct {
	ExistingMemoryID string        `json:"existing_memory_id"`
	NewMemory        NewMemoryData `json:"new_memory"`
	Resolution       Resolution    `json:"resolution"`
}

type MemoryRef struct {
	ID        string `json:"id"`
	Statement string `json:"statement"`
}

type ResolveConflictResponse struct {
	Status         string     `json:"status"`
	Resolution     Resolution `json:"resolution"`
	KeptMemory     *MemoryRef `json:"kept_memory,omitempty"`
	DisputedMemory *MemoryRef `json:"disputed_memory,omitempty"`
	NewMemory      *MemoryRef `json:"new_memory,omitempty"`
}

type StartWorkSessionRequest struct {
	TaskDescription string `json:"task_description"`
}

type StartWorkSessionResponse struct {
	SessionID       string `json:"session_id"`
	TaskDescription string `json:"task_description"`
	Message         string `json:"message"`
}

type WorkMessageRequest struct {
	Message     string            `json:"message"`
	Mode        types.QualityMode `json:"mode,omitempty"`
	TokenSaving bool              `json:"token_saving,omitempty"`
}

type WorkMessageResponse struct {
	AssistantText string              `json:"assistant_text"`
	SessionID     string              `json:"session_id"`
	Debug         types.DebugMetadata `json:"debug"`
}

type EndWorkSessionResponse struct {
	SessionID       string   `json:"session_id"`
	Message         string   `json:"message"`
	MemoriesCreated int      `json:"memories_created"`
	MemoryIDs       []string `json:"memory_ids"`
	Summary         string   `json:"summary"`
}
