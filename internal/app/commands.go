package app

import (
	"context"
	"time"

	"decisionctl/internal/citation"
	"decisionctl/internal/client"
	"decisionctl/internal/conflict"
	"decisionctl/internal/ledger"
	"decisionctl/internal/types"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

const (
	requestTimeout = 4 * time.Second
	// Chat turns run the whole pipeline on the backend.
	chatTimeout = 90 * time.Second
)

func checkHealthCmd(api ProjectAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := api.Health(ctx)
		if err == nil && !resp.Healthy() {
			err = errUnhealthy
		}
		return healthMsg{err: err}
	}
}

func fetchProjectsCmd(api ProjectAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		projects, err := api.ListProjects(ctx)
		return projectsMsg{projects: projects, err: err}
	}
}

// loadProjectCmd fetches the ledger and any active work session in parallel.
// Each half reports its own error; one failing does not cancel the other.
func loadProjectCmd(api WorkAPI, cache *ledger.Cache, gen int, projectID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		msg := projectLoadedMsg{gen: gen, projectID: projectID}
		var g errgroup.Group
		g.Go(func() error {
			msg.snapshot, msg.ledgerErr = cache.Refresh(ctx, projectID)
			return nil
		})
		g.Go(func() error {
			session, err := api.ActiveWorkSession(ctx, projectID)
			if err != nil || session == nil {
				msg.sessionErr = err
				return nil
			}
			history, err := api.WorkSessionMessages(ctx, projectID, session.ID)
			if err != nil {
				msg.sessionErr = err
				return nil
			}
			msg.session = session
			msg.history = history
			return nil
		})
		_ = g.Wait()
		return msg
	}
}

func refreshLedgerCmd(cache *ledger.Cache, gen int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		snapshot, err := cache.RefreshCurrent(ctx)
		return ledgerRefreshedMsg{gen: gen, snapshot: snapshot, err: err}
	}
}

func quickChatCmd(api ChatAPI, gen int, projectID, input string, mode types.QualityMode) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()
		resp, err := api.Chat(ctx, projectID, client.ChatRequest{Message: input, Mode: mode})
		return quickReplyMsg{gen: gen, input: input, resp: resp, err: err}
	}
}

func startWorkCmd(api WorkAPI, gen int, projectID, task string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := api.StartWorkSession(ctx, projectID, task)
		return workStartedMsg{gen: gen, task: task, resp: resp, err: err}
	}
}

func sendWorkCmd(api WorkAPI, gen int, projectID, sessionID string, req client.WorkMessageRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()
		resp, err := api.SendWorkMessage(ctx, projectID, sessionID, req)
		return workReplyMsg{gen: gen, sessionID: sessionID, resp: resp, err: err}
	}
}

func endWorkCmd(api WorkAPI, gen int, projectID, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()
		resp, err := api.EndWorkSession(ctx, projectID, sessionID)
		return workEndedMsg{gen: gen, sessionID: sessionID, resp: resp, err: err}
	}
}

func resolveConflictCmd(api conflict.Resolver, gen int, projectID string, disposition conflict.Disposition, req client.ResolveConflictRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := api.ResolveConflict(ctx, projectID, req)
		return conflictResolvedMsg{gen: gen, disposition: disposition, resp: resp, err: err}
	}
}

func resolveCitationCmd(resolver *citation.Resolver, gen int, token string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		record, err := resolver.Resolve(ctx, token)
		return navigateMsg{gen: gen, token: token, record: record, err: err}
	}
}

func fetchMemoryDetailCmd(api LedgerAPI, gen int, projectID, memoryID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		record, err := api.Memory(ctx, projectID, memoryID)
		if err != nil {
			return memoryDetailMsg{gen: gen, err: err}
		}
		if len(record.Versions) == 0 {
			if versions, verr := api.MemoryVersions(ctx, projectID, memoryID); verr == nil {
				record.Versions = versions
			}
		}
		return memoryDetailMsg{gen: gen, record: record}
	}
}

func deleteMemoryCmd(api LedgerAPI, gen int, projectID, memoryID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := api.DeleteMemory(ctx, projectID, memoryID)
		return memoryDeletedMsg{gen: gen, memoryID: memoryID, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
