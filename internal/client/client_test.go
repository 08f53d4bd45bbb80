package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"decisionctl/internal/types"

	"github.com/google/go-cmp/cmp"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, WithTimeout(2*time.Second))
}

func TestListProjectsSendsRequestID(t *testing.T) {
	var gotID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/projects" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"projects":[{"id":"p1","name":"Alpha","memory_count":3}],"total":1}`))
	})

	projects, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != "p1" || projects[0].MemoryCount != 3 {
		t.Fatalf("unexpected projects: %+v", projects)
	}
	if len(gotID) != 36 {
		t.Fatalf("expected uuid request id, got %q", gotID)
	}
}

func TestChatPostsMessageAndMode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/projects/p1/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Message != "we chose postgres" || req.Mode != types.QualityThorough {
			t.Errorf("unexpected body: %+v", req)
		}
		_, _ = w.Write([]byte(`{"assistant_text":"Noted.","debug":{"model_tier":"heavy","latency_ms":120,"memory_used":["m1"]},"memories_created":["a1b2c3d4-0000"]}`))
	})

	resp, err := c.Chat(context.Background(), "p1", ChatRequest{Message: "we chose postgres", Mode: types.QualityThorough})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.AssistantText != "Noted." || resp.Debug.ModelTier != "heavy" || resp.Debug.LatencyMS != 120 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if diff := cmp.Diff([]string{"a1b2c3d4-0000"}, resp.MemoriesCreated); diff != "" {
		t.Fatalf("memories created mismatch (-want +got):\n%s", diff)
	}
}

func TestChatRejectsEmptyMessageWithoutRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	if _, err := c.Chat(context.Background(), "p1", ChatRequest{Message: "  "}); err == nil {
		t.Fatalf("expected error")
	}
	if called {
		t.Fatalf("expected no backend call")
	}
}

func TestLedgerGroups(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"decisions":[{"id":"d1","type":"decision","canonical_statement":"Use Go","status":"active"}],
			"beliefs":[{"id":"b1","type":"belief","canonical_statement":"Users want speed","status":"disputed"}],
			"total_count":2,"active_count":1,"disputed_count":1}`))
	})
	ledger, err := c.Ledger(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	groups := ledger.Groups()
	if len(groups[types.MemoryTypeDecision]) != 1 || groups[types.MemoryTypeDecision][0].ID != "d1" {
		t.Fatalf("unexpected decisions: %+v", groups[types.MemoryTypeDecision])
	}
	if len(groups[types.MemoryTypeGoal]) != 0 {
		t.Fatalf("expected no goals")
	}
	if ledger.TotalCount != 2 || ledger.DisputedCount != 1 {
		t.Fatalf("unexpected counters: %+v", ledger)
	}
}

func TestActiveWorkSessionNull(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/p1/work/active" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`null`))
	})
	session, err := c.ActiveWorkSession(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ActiveWorkSession: %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil session, got %+v", session)
	}
}

func TestActiveWorkSessionPresent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_id":"s1","project_id":"p1","task_description":"ship it","status":"active","created_at":"2026-03-01T10:00:00Z","message_count":4}`))
	})
	session, err := c.ActiveWorkSession(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ActiveWorkSession: %v", err)
	}
	if session == nil || session.ID != "s1" || session.MessageCount != 4 {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestWorkSessionHistoryLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/p1/work/history" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`[{"session_id":"s1","task_description":"a","created_at":"2026-03-01T10:00:00Z"}]`))
	})
	sessions, err := c.WorkSessionHistory(context.Background(), "p1", 5)
	if err != nil {
		t.Fatalf("WorkSessionHistory: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

func TestEndWorkSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/projects/p1/work/s1/end" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"session_id":"s1","memories_created":2,"memory_ids":["m1","m2"],"summary":"done"}`))
	})
	resp, err := c.EndWorkSession(context.Background(), "p1", "s1")
	if err != nil {
		t.Fatalf("EndWorkSession: %v", err)
	}
	if resp.MemoriesCreated != 2 || len(resp.MemoryIDs) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestResolveConflictValidatesResolution(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request")
	})
	_, err := c.ResolveConflict(context.Background(), "p1", ResolveConflictRequest{ExistingMemoryID: "m1", Resolution: "maybe"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestResolveConflictPostsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ResolveConflictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.ExistingMemoryID != "m1" || req.Resolution != ResolutionOverride || req.NewMemory.Statement != "Use SQLite" {
			t.Errorf("unexpected body: %+v", req)
		}
		_, _ = w.Write([]byte(`{"status":"resolved","resolution":"override","disputed_memory":{"id":"m1"},"new_memory":{"id":"m2"}}`))
	})
	resp, err := c.ResolveConflict(context.Background(), "p1", ResolveConflictRequest{
		ExistingMemoryID: "m1",
		NewMemory:        NewMemoryData{Type: types.MemoryTypeDecision, Statement: "Use SQLite", Importance: 0.5, Confidence: 0.8},
		Resolution:       ResolutionOverride,
	})
	if err != nil {
		t.Fatalf("ResolveConflict: %v", err)
	}
	if resp.NewMemory == nil || resp.NewMemory.ID != "m2" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAPIErrorFromDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Active session already exists"}`))
	})
	_, err := c.StartWorkSession(context.Background(), "p1", "task")
	apiErr := AsAPIError(err)
	if apiErr == nil {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Active session already exists" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if IsUnreachable(err) {
		t.Fatalf("api error must not count as unreachable")
	}
}

func TestAPIErrorFromValidationList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"msg":"field required"},{"msg":"too short"}]}`))
	})
	_, err := c.Memory(context.Background(), "p1", "m1")
	apiErr := AsAPIError(err)
	if apiErr == nil || apiErr.Message != "field required; too short" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Memory not found"}`))
	})
	_, err := c.DeleteMemory(context.Background(), "p1", "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(url, WithTimeout(time.Second))
	_, err := c.ListProjects(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable, got %v", err)
	}
	if IsUnreachable(errors.New("plain")) {
		t.Fatalf("plain errors are not transport failures")
	}
}

func TestProjectPathEscapesSegments(t *testing.T) {
	path, err := projectPath("p 1", "memory", "a/b")
	if err != nil {
		t.Fatalf("projectPath: %v", err)
	}
	if !strings.HasPrefix(path, "/projects/p%201/memory/") || !strings.HasSuffix(path, "a%2Fb") {
		t.Fatalf("unexpected path: %s", path)
	}
	if _, err := projectPath(" "); err == nil {
		t.Fatalf("expected error for empty project")
	}
}
