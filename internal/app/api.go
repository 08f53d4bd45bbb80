package app

import (
	"context"

	"decisionctl/internal/client"
	"decisionctl/internal/conflict"
	"decisionctl/internal/eventstream"
	"decisionctl/internal/ledger"
	"decisionctl/internal/types"
)

type ProjectAPI interface {
	Health(ctx context.Context) (*client.HealthResponse, error)
	ListProjects(ctx context.Context) ([]*types.Project, error)
}

type ChatAPI interface {
	Chat(ctx context.Context, projectID string, req client.ChatRequest) (*client.ChatResponse, error)
}

type LedgerAPI interface {
	ledger.Fetcher
	Memory(ctx context.Context, projectID, memoryID string) (*types.Memory, error)
	MemoryVersions(ctx context.Context, projectID, memoryID string) ([]types.MemoryVersion, error)
	DeleteMemory(ctx context.Context, projectID, memoryID string) (*client.DeleteMemoryResponse, error)
}

type WorkAPI interface {
	StartWorkSession(ctx context.Context, projectID, taskDescription string) (*client.StartWorkSessionResponse, error)
	ActiveWorkSession(ctx context.Context, projectID string) (*types.WorkSession, error)
	WorkSessionMessages(ctx context.Context, projectID, sessionID string) ([]types.Message, error)
	SendWorkMessage(ctx context.Context, projectID, sessionID string, req client.WorkMessageRequest) (*client.WorkMessageResponse, error)
	EndWorkSession(ctx context.Context, projectID, sessionID string) (*client.EndWorkSessionResponse, error)
}

// API is everything the UI needs from the backend. *client.Client satisfies it.
type API interface {
	ProjectAPI
	ChatAPI
	LedgerAPI
	WorkAPI
	conflict.Resolver
	eventstream.Dialer
}

var _ API = (*client.Client)(nil)
