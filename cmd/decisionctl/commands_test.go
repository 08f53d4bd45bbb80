package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"decisionctl/internal/app"
	"decisionctl/internal/client"
	"decisionctl/internal/config"
	"decisionctl/internal/logging"
	"decisionctl/internal/types"
	"decisionctl/internal/worksession"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommandClient struct {
	mu sync.Mutex

	projects []*types.Project
	ledger   *client.LedgerResponse
	active   *types.WorkSession
	history  []types.Message
	sessions []types.WorkSession
	chatResp *client.ChatResponse
	endErr   error
	events   []types.PipelineEvent

	chatReqs    []client.ChatRequest
	workReqs    []client.WorkMessageRequest
	resolveReqs []client.ResolveConflictRequest
	ended       []string
	deleted     []string
	started     []string
}

func (f *fakeCommandClient) BaseURL() string { return "http://backend.test" }

func (f *fakeCommandClient) Health(ctx context.Context) (*client.HealthResponse, error) {
	return &client.HealthResponse{Status: "healthy"}, nil
}

func (f *fakeCommandClient) ListProjects(ctx context.Context) ([]*types.Project, error) {
	return f.projects, nil
}

func (f *fakeCommandClient) Chat(ctx context.Context, projectID string, req client.ChatRequest) (*client.ChatResponse, error) {
	f.chatReqs = append(f.chatReqs, req)
	if f.chatResp == nil {
		return &client.ChatResponse{AssistantText: "ok"}, nil
	}
	return f.chatResp, nil
}

func (f *fakeCommandClient) Ledger(ctx context.Context, projectID string) (*client.LedgerResponse, error) {
	if f.ledger == nil {
		return &client.LedgerResponse{}, nil
	}
	return f.ledger, nil
}

func (f *fakeCommandClient) Memory(ctx context.Context, projectID, memoryID string) (*types.Memory, error) {
	for _, record := range f.ledger.Decisions {
		if record.ID == memoryID {
			return &record, nil
		}
	}
	return nil, &client.APIError{StatusCode: 404, Message: "Memory not found"}
}

func (f *fakeCommandClient) MemoryVersions(ctx context.Context, projectID, memoryID string) ([]types.MemoryVersion, error) {
	return []types.MemoryVersion{{VersionNumber: 1, Statement: "Use MySQL", ChangedBy: "user"}}, nil
}

func (f *fakeCommandClient) DeleteMemory(ctx context.Context, projectID, memoryID string) (*client.DeleteMemoryResponse, error) {
	f.deleted = append(f.deleted, memoryID)
	return &client.DeleteMemoryResponse{Status: "superseded", MemoryID: memoryID}, nil
}

func (f *fakeCommandClient) ResolveConflict(ctx context.Context, projectID string, req client.ResolveConflictRequest) (*client.ResolveConflictResponse, error) {
	f.resolveReqs = append(f.resolveReqs, req)
	return &client.ResolveConflictResponse{
		Status:         "resolved",
		Resolution:     req.Resolution,
		DisputedMemory: &client.MemoryRef{ID: req.ExistingMemoryID, Statement: "old"},
	}, nil
}

func (f *fakeCommandClient) StartWorkSession(ctx context.Context, projectID, task string) (*client.StartWorkSessionResponse, error) {
	f.started = append(f.started, task)
	return &client.StartWorkSessionResponse{SessionID: "s-new", TaskDescription: task}, nil
}

func (f *fakeCommandClient) ActiveWorkSession(ctx context.Context, projectID string) (*types.WorkSession, error) {
	return f.active, nil
}

func (f *fakeCommandClient) WorkSessionMessages(ctx context.Context, projectID, sessionID string) ([]types.Message, error) {
	return f.history, nil
}

func (f *fakeCommandClient) SendWorkMessage(ctx context.Context, projectID, sessionID string, req client.WorkMessageRequest) (*client.WorkMessageResponse, error) {
	f.workReqs = append(f.workReqs, req)
	return &client.WorkMessageResponse{SessionID: sessionID, AssistantText: "on it"}, nil
}

func (f *fakeCommandClient) EndWorkSession(ctx context.Context, projectID, sessionID string) (*client.EndWorkSessionResponse, error) {
	f.ended = append(f.ended, sessionID)
	if f.endErr != nil {
		return nil, f.endErr
	}
	return &client.EndWorkSessionResponse{SessionID: sessionID, MemoriesCreated: 3, Summary: "wrapped up"}, nil
}

func (f *fakeCommandClient) WorkSessionHistory(ctx context.Context, projectID string, limit int) ([]types.WorkSession, error) {
	return f.sessions, nil
}

func (f *fakeCommandClient) EventStream(ctx context.Context, projectID string) (<-chan types.PipelineEvent, func(), error) {
	f.mu.Lock()
	events := append([]types.PipelineEvent(nil), f.events...)
	f.mu.Unlock()
	ch := make(chan types.PipelineEvent, len(events))
	for _, event := range events {
		ch <- event
	}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, func() {}, nil
}

var (
	alpha = &types.Project{ID: "p-alpha", Name: "alpha", MemoryCount: 3, ActiveMemoryCount: 2}
	beta  = &types.Project{ID: "p-beta", Name: "beta"}
)

func fixtureLedger() *client.LedgerResponse {
	created := time.Now().Add(-48 * time.Hour)
	return &client.LedgerResponse{
		Decisions: []types.Memory{
			{ID: "d1aaaaaa-0000-0000-0000-000000000001", Type: types.MemoryTypeDecision, CanonicalStatement: "Use Postgres", Status: types.MemoryStatusActive, CreatedAt: created},
			{ID: "d2bbbbbb-0000-0000-0000-000000000002", Type: types.MemoryTypeDecision, CanonicalStatement: "Use SQLite", Status: types.MemoryStatusDisputed, CreatedAt: created},
		},
		Goals: []types.Memory{
			{ID: "g1cccccc-0000-0000-0000-000000000003", Type: types.MemoryTypeGoal, CanonicalStatement: "Ship v1", Status: types.MemoryStatusActive, CreatedAt: created},
		},
		TotalCount:    3,
		ActiveCount:   2,
		DisputedCount: 1,
	}
}

type cliRun struct {
	opts *app.Options
}

func executeCLI(t *testing.T, fake *fakeCommandClient, args ...string) (string, string, error) {
	t.Helper()
	_, stdout, stderr, err := executeCLIWithUI(t, fake, args...)
	return stdout, stderr, err
}

func executeCLIWithUI(t *testing.T, fake *fakeCommandClient, args ...string) (*cliRun, string, string, error) {
	t.Helper()
	t.Setenv(config.HomeEnv, t.TempDir())
	for _, binding := range settingBindings {
		t.Setenv(binding.env, "")
		require.NoError(t, os.Unsetenv(binding.env))
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	run := &cliRun{}
	wiring := commandWiring{
		stdout: stdout,
		stderr: stderr,
		newClient: func(config.Config, logging.Logger) (commandClient, error) {
			return fake, nil
		},
		loadConfig: config.Load,
		runUI: func(api app.API, opts app.Options) error {
			run.opts = &opts
			return nil
		},
		openUILog: func(logging.Level) (logging.Logger, io.Closer, error) {
			return logging.Nop(), nil, nil
		},
		version: "test",
	}
	root := newRootCmd(wiring)
	root.SetArgs(args)
	err := root.Execute()
	return run, stdout.String(), stderr.String(), err
}

func TestProjectsPrintsTable(t *testing.T) {
	stdout, _, err := executeCLI(t, &fakeCommandClient{projects: []*types.Project{alpha, beta}}, "projects")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ID")
	assert.Contains(t, stdout, "RECORDS")
	assert.Contains(t, stdout, "p-alpha")
	assert.Contains(t, stdout, "beta")
}

func TestLedgerGroupsRecordsByType(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}, ledger: fixtureLedger()}
	stdout, _, err := executeCLI(t, fake, "ledger")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alpha · 3 total · 2 active · 1 disputed")
	assert.Contains(t, stdout, "DECISION (2)")
	assert.Contains(t, stdout, "GOAL (1)")
	assert.Contains(t, stdout, "! d2bbbbbb")
	assert.Less(t, strings.Index(stdout, "DECISION"), strings.Index(stdout, "GOAL"))
}

func TestLedgerTypeFilter(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}, ledger: fixtureLedger()}
	stdout, _, err := executeCLI(t, fake, "ledger", "--type", "goals")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Ship v1")
	assert.NotContains(t, stdout, "Use Postgres")

	_, _, err = executeCLI(t, fake, "ledger", "--type", "opinion")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown record type")
}

func TestProjectSelection(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha, beta}, ledger: fixtureLedger()}

	_, _, err := executeCLI(t, fake, "ledger")
	require.ErrorIs(t, err, errProjectRequired)

	_, _, err = executeCLI(t, fake, "ledger", "--project", "gamma")
	require.ErrorIs(t, err, errUnknownProject)

	stdout, _, err := executeCLI(t, fake, "ledger", "-p", "BETA")
	require.NoError(t, err)
	assert.Contains(t, stdout, "beta ·")
}

func TestResolveCitation(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}, ledger: fixtureLedger()}

	stdout, _, err := executeCLI(t, fake, "resolve", "[d2bbbbbb]")
	require.NoError(t, err)
	assert.Contains(t, stdout, "d2bbbbbb-0000-0000-0000-000000000002")
	assert.Contains(t, stdout, "Use SQLite")

	stdout, _, err = executeCLI(t, fake, "resolve", "goal-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Ship v1")

	_, _, err = executeCLI(t, fake, "resolve", "ffffffff")
	require.Error(t, err)
}

func TestAskSendsModeAndPrintsReply(t *testing.T) {
	fake := &fakeCommandClient{
		projects: []*types.Project{alpha},
		chatResp: &client.ChatResponse{
			AssistantText:   "Recorded.",
			Debug:           types.DebugMetadata{ModelTier: "fast", LatencyMS: 300, MemoryUsed: []string{"a"}},
			MemoriesCreated: []string{"n1aaaaaa-0000"},
		},
	}
	stdout, _, err := executeCLI(t, fake, "ask", "--mode", "fast", "we", "chose", "SQLite")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Recorded.")
	assert.Contains(t, stdout, "tier fast")
	assert.Contains(t, stdout, "new records: n1aaaaaa")

	want := []client.ChatRequest{{Message: "we chose SQLite", Mode: types.QualityFast}}
	if diff := cmp.Diff(want, fake.chatReqs); diff != "" {
		t.Fatalf("chat requests mismatch (-want +got):\n%s", diff)
	}
}

func TestAskStripsTerminalEscapes(t *testing.T) {
	fake := &fakeCommandClient{
		projects: []*types.Project{alpha},
		chatResp: &client.ChatResponse{AssistantText: "\x1b]0;owned\x07\x1b[31mnoted\x1b[0m"},
	}
	stdout, _, err := executeCLI(t, fake, "ask", "hello")
	require.NoError(t, err)
	assert.Contains(t, stdout, "noted")
	assert.NotContains(t, stdout, "\x1b")
	assert.NotContains(t, stdout, "owned")
}

func TestEnvironmentOverlaysConfigAndFlagsWin(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}}
	t.Setenv("DECISIONCTL_MODE", "thorough")

	stdout := &bytes.Buffer{}
	wiring := commandWiring{
		stdout:     stdout,
		stderr:     &bytes.Buffer{},
		newClient:  func(config.Config, logging.Logger) (commandClient, error) { return fake, nil },
		loadConfig: func(string) (config.Config, error) { return config.Default(), nil },
		version:    "test",
	}
	root := newRootCmd(wiring)
	root.SetArgs([]string{"ask", "hello"})
	require.NoError(t, root.Execute())

	root = newRootCmd(wiring)
	root.SetArgs([]string{"ask", "--mode", "fast", "hello"})
	require.NoError(t, root.Execute())

	require.Len(t, fake.chatReqs, 2)
	assert.Equal(t, types.QualityThorough, fake.chatReqs[0].Mode)
	assert.Equal(t, types.QualityFast, fake.chatReqs[1].Mode)
}

func TestInvalidModeIsRejected(t *testing.T) {
	_, _, err := executeCLI(t, &fakeCommandClient{}, "projects", "--mode", "turbo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat.mode")
}

func TestConfigFileIsRead(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[backend]\nbase_url = \"http://10.0.0.5:9000\"\n"), 0o600))

	stdout, _, err := executeCLI(t, &fakeCommandClient{}, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "http://10.0.0.5:9000")

	stdout, _, err = executeCLI(t, &fakeCommandClient{}, "config", "--config", path, "--defaults", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "http://127.0.0.1:8000")
	assert.NotContains(t, stdout, "10.0.0.5")
}

func TestWorkSendRequiresActiveSession(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}}
	_, _, err := executeCLI(t, fake, "work", "send", "status?")
	require.ErrorIs(t, err, worksession.ErrNoActiveSession)
	assert.Empty(t, fake.workReqs)
}

func TestWorkStartRejectsSecondSession(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}, active: &types.WorkSession{ID: "s1", TaskDescription: "import"}}
	_, _, err := executeCLI(t, fake, "work", "start", "another", "task")
	require.ErrorIs(t, err, worksession.ErrSessionActive)

	fake.active = nil
	stdout, _, err := executeCLI(t, fake, "work", "start", "another", "task")
	require.NoError(t, err)
	assert.Equal(t, "s-new\n", stdout)
	assert.Equal(t, []string{"another task"}, fake.started)
}

func TestWorkStatusSkipsWelcome(t *testing.T) {
	fake := &fakeCommandClient{
		projects: []*types.Project{alpha},
		active:   &types.WorkSession{ID: "s1", TaskDescription: "import"},
		history: []types.Message{
			{Role: types.MessageRoleAssistant, Content: "Started work session for: import"},
			{Role: types.MessageRoleUser, Content: "first step?"},
		},
	}
	stdout, _, err := executeCLI(t, fake, "work", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "s1  import")
	assert.Contains(t, stdout, "[user] first step?")
	assert.NotContains(t, stdout, "Started work session")
}

func TestWorkSendAndEnd(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}, active: &types.WorkSession{ID: "s1", TaskDescription: "import"}}

	stdout, _, err := executeCLI(t, fake, "work", "send", "--token-saving", "next?")
	require.NoError(t, err)
	assert.Contains(t, stdout, "on it")
	require.Len(t, fake.workReqs, 1)
	assert.True(t, fake.workReqs[0].TokenSaving)

	stdout, _, err = executeCLI(t, fake, "work", "end")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ended s1 · 3 records created")
	assert.Contains(t, stdout, "wrapped up")

	fake.endErr = errors.New("gateway timeout")
	_, _, err = executeCLI(t, fake, "work", "end")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway timeout")
	assert.Equal(t, []string{"s1", "s1"}, fake.ended)
}

func TestWorkHistory(t *testing.T) {
	fake := &fakeCommandClient{
		projects: []*types.Project{alpha},
		sessions: []types.WorkSession{{ID: "s0", Status: "completed", TaskDescription: "spike", MessageCount: 4}},
	}
	stdout, _, err := executeCLI(t, fake, "work", "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "TASK")
	assert.Contains(t, stdout, "spike")
}

func TestConflictResolveOverride(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}, ledger: fixtureLedger()}
	stdout, _, err := executeCLI(t, fake, "conflict", "resolve",
		"--existing", "d1aaaaaa",
		"--type", "decision",
		"--statement", "Use SQLite",
		"--resolution", "override",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "resolved: override")
	assert.Contains(t, stdout, "disputed d1aaaaaa")

	want := []client.ResolveConflictRequest{{
		ExistingMemoryID: "d1aaaaaa-0000-0000-0000-000000000001",
		NewMemory: client.NewMemoryData{
			Type:       types.MemoryTypeDecision,
			Statement:  "Use SQLite",
			Importance: 0.5,
			Confidence: 0.8,
		},
		Resolution: client.ResolutionOverride,
	}}
	if diff := cmp.Diff(want, fake.resolveReqs); diff != "" {
		t.Fatalf("resolve requests mismatch (-want +got):\n%s", diff)
	}
}

func TestConflictResolveRejectsUnknownDisposition(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}, ledger: fixtureLedger()}
	_, _, err := executeCLI(t, fake, "conflict", "resolve",
		"--existing", "d1aaaaaa", "--type", "decision", "--statement", "x", "--resolution", "merge")
	require.Error(t, err)
	assert.Empty(t, fake.resolveReqs)
}

func TestMemoryShowAndDelete(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}, ledger: fixtureLedger()}

	stdout, _, err := executeCLI(t, fake, "memory", "show", "[d1aaaaaa]")
	require.NoError(t, err)
	assert.Contains(t, stdout, "DECISION  d1aaaaaa-0000-0000-0000-000000000001")
	assert.Contains(t, stdout, "Versions (1)")
	assert.Contains(t, stdout, "v1  Use MySQL")

	stdout, _, err = executeCLI(t, fake, "memory", "delete", "d2bbbbbb")
	require.NoError(t, err)
	assert.Contains(t, stdout, "superseded d2bbbbbb-0000-0000-0000-000000000002")
	assert.Equal(t, []string{"d2bbbbbb-0000-0000-0000-000000000002"}, fake.deleted)
}

func TestEventsPrintsPresentedEntries(t *testing.T) {
	fake := &fakeCommandClient{
		projects: []*types.Project{alpha},
		events: []types.PipelineEvent{
			{EventType: types.EventConnected},
			{EventType: types.EventMemoriesRetrieved, TurnID: "t1", Message: "garbled", Data: []byte(`{"memories":"oops"}`)},
			{EventType: types.EventGenerating, TurnID: "t1", Data: []byte(`{"tier":"deep"}`)},
		},
	}
	stdout, stderr, err := executeCLI(t, fake, "events", "--count", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "generating")
	assert.Contains(t, stdout, "[deep]")
	assert.NotContains(t, stdout, "garbled")
	assert.Contains(t, stderr, "event payload dropped")
}

func TestUIPassesOptions(t *testing.T) {
	fake := &fakeCommandClient{projects: []*types.Project{alpha}}
	run, _, stderr, err := executeCLIWithUI(t, fake, "ui", "--project", "alpha", "--mode", "thorough")
	require.NoError(t, err)
	require.NotNil(t, run.opts)
	assert.Equal(t, "alpha", run.opts.InitialProject)
	assert.Equal(t, types.QualityThorough, run.opts.Mode)
	assert.Equal(t, "http://backend.test", run.opts.BaseURL)
	assert.Equal(t, 2500*time.Millisecond, run.opts.Highlight)
	assert.Empty(t, stderr)
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := executeCLI(t, &fakeCommandClient{}, "tail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command \"tail\"")
}
