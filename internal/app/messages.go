package app

import (
	"time"

	"decisionctl/internal/client"
	"decisionctl/internal/conflict"
	"decisionctl/internal/ledger"
	"decisionctl/internal/types"
)

// Messages produced by work scoped to a project carry the scope generation
// they were issued under. Update drops any whose generation is stale.

type tickMsg time.Time

type healthMsg struct {
	err error
}

type projectsMsg struct {
	projects []*types.Project
	err      error
}

type projectLoadedMsg struct {
	gen        int
	projectID  string
	snapshot   *ledger.Snapshot
	ledgerErr  error
	session    *types.WorkSession
	history    []types.Message
	sessionErr error
}

type ledgerRefreshedMsg struct {
	gen      int
	snapshot *ledger.Snapshot
	err      error
}

type quickReplyMsg struct {
	gen   int
	input string
	resp  *client.ChatResponse
	err   error
}

type workStartedMsg struct {
	gen  int
	task string
	resp *client.StartWorkSessionResponse
	err  error
}

type workReplyMsg struct {
	gen       int
	sessionID string
	resp      *client.WorkMessageResponse
	err       error
}

type workEndedMsg struct {
	gen       int
	sessionID string
	resp      *client.EndWorkSessionResponse
	err       error
}

type conflictResolvedMsg struct {
	gen         int
	disposition conflict.Disposition
	resp        *client.ResolveConflictResponse
	err         error
}

type navigateMsg struct {
	gen    int
	token  string
	record types.Memory
	err    error
}

type memoryDetailMsg struct {
	gen    int
	record *types.Memory
	err    error
}

type memoryDeletedMsg struct {
	gen      int
	memoryID string
	err      error
}
