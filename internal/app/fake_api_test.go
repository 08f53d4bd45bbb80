package app

import (
	"context"
	"sync"

	"decisionctl/internal/client"
	"decisionctl/internal/types"
)

type fakeAPI struct {
	mu sync.Mutex

	projects    []*types.Project
	projectsErr error
	ledger      *client.LedgerResponse
	ledgerErr   error
	active      *types.WorkSession
	history     []types.Message
	chatResp    *client.ChatResponse
	chatErr     error
	startErr    error
	sendResp    *client.WorkMessageResponse
	sendErr     error
	endResp     *client.EndWorkSessionResponse
	endErr      error
	resolveErr  error
	memory      *types.Memory

	chatReqs    []client.ChatRequest
	resolveReqs []client.ResolveConflictRequest
	ended       []string
	deleted     []string
	streams     []string
}

func (f *fakeAPI) Health(ctx context.Context) (*client.HealthResponse, error) {
	return &client.HealthResponse{Status: "healthy"}, nil
}

func (f *fakeAPI) ListProjects(ctx context.Context) ([]*types.Project, error) {
	return f.projects, f.projectsErr
}

func (f *fakeAPI) Chat(ctx context.Context, projectID string, req client.ChatRequest) (*client.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatReqs = append(f.chatReqs, req)
	return f.chatResp, f.chatErr
}

func (f *fakeAPI) Ledger(ctx context.Context, projectID string) (*client.LedgerResponse, error) {
	if f.ledgerErr != nil {
		return nil, f.ledgerErr
	}
	if f.ledger == nil {
		return &client.LedgerResponse{}, nil
	}
	return f.ledger, nil
}

func (f *fakeAPI) Memory(ctx context.Context, projectID, memoryID string) (*types.Memory, error) {
	if f.memory == nil {
		return &types.Memory{ID: memoryID}, nil
	}
	copied := *f.memory
	return &copied, nil
}

func (f *fakeAPI) MemoryVersions(ctx context.Context, projectID, memoryID string) ([]types.MemoryVersion, error) {
	return []types.MemoryVersion{{ID: "v1", VersionNumber: 1, Statement: "first"}}, nil
}

func (f *fakeAPI) DeleteMemory(ctx context.Context, projectID, memoryID string) (*client.DeleteMemoryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, memoryID)
	return &client.DeleteMemoryResponse{Status: "superseded", MemoryID: memoryID}, nil
}

func (f *fakeAPI) StartWorkSession(ctx context.Context, projectID, taskDescription string) (*client.StartWorkSessionResponse, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &client.StartWorkSessionResponse{SessionID: "s-new", TaskDescription: taskDescription}, nil
}

func (f *fakeAPI) ActiveWorkSession(ctx context.Context, projectID string) (*types.WorkSession, error) {
	return f.active, nil
}

func (f *fakeAPI) WorkSessionMessages(ctx context.Context, projectID, sessionID string) ([]types.Message, error) {
	return f.history, nil
}

func (f *fakeAPI) SendWorkMessage(ctx context.Context, projectID, sessionID string, req client.WorkMessageRequest) (*client.WorkMessageResponse, error) {
	return f.sendResp, f.sendErr
}

func (f *fakeAPI) EndWorkSession(ctx context.Context, projectID, sessionID string) (*client.EndWorkSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, sessionID)
	if f.endErr != nil {
		return nil, f.endErr
	}
	if f.endResp == nil {
		return &client.EndWorkSessionResponse{SessionID: sessionID}, nil
	}
	return f.endResp, nil
}

func (f *fakeAPI) ResolveConflict(ctx context.Context, projectID string, req client.ResolveConflictRequest) (*client.ResolveConflictResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveReqs = append(f.resolveReqs, req)
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &client.ResolveConflictResponse{Status: "resolved", Resolution: req.Resolution}, nil
}

// EventStream stays open and silent until the channel is torn down.
func (f *fakeAPI) EventStream(ctx context.Context, projectID string) (<-chan types.PipelineEvent, func(), error) {
	f.mu.Lock()
	f.streams = append(f.streams, projectID)
	f.mu.Unlock()
	ch := make(chan types.PipelineEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, func() {}, nil
}
