package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"decisionctl/internal/logging"
	"decisionctl/internal/types"
)

func writeFrames(w http.ResponseWriter, frames ...string) {
	flusher, _ := w.(http.Flusher)
	for _, frame := range frames {
		_, _ = w.Write([]byte(frame))
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func collect(t *testing.T, ch <-chan types.PipelineEvent) []types.PipelineEvent {
	t.Helper()
	var out []types.PipelineEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, event)
		case <-timeout:
			t.Fatalf("timeout waiting for stream to close; got %d events", len(out))
			return out
		}
	}
}

func TestEventStreamParsesFramesAndSkipsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/p1/events" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		writeFrames(w,
			"data: {\"event_type\":\"connected\"}\n\n",
			": keepalive\n\n",
			"data: {not json\n\n",
			"data: {\"message\":\"no type\"}\n\n",
			"data: {\"event_type\":\"generating\",\"turn_id\":\"t1\",\"message\":\"Thinking\",\"data\":{\"tier\":\"mid\"}}\r\n\r\n",
			"data: {\"event_type\":\"complete\",\n",
			"data: \"turn_id\":\"t1\",\"message\":\"done\"}\n\n",
		)
	}))
	defer server.Close()

	var logs bytes.Buffer
	c := New(server.URL, WithLogger(logging.New(&logs, logging.Debug)))
	ch, stop, err := c.EventStream(context.Background(), "p1")
	if err != nil {
		t.Fatalf("EventStream: %v", err)
	}
	defer stop()

	events := collect(t, ch)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].EventType != types.EventConnected {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	var gen types.GeneratingData
	if err := events[1].DecodeData(&gen); err != nil || gen.Tier != "mid" || events[1].TurnID != "t1" {
		t.Fatalf("unexpected generating event: %+v (%v)", events[1], err)
	}
	if events[2].EventType != types.EventComplete || events[2].Message != "done" {
		t.Fatalf("unexpected multi-line frame: %+v", events[2])
	}
	if strings.Count(logs.String(), "malformed frame") != 2 {
		t.Fatalf("expected two malformed frame log lines, got:\n%s", logs.String())
	}
}

func TestEventStreamReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Project not found"}`))
	}))
	defer server.Close()

	c := New(server.URL)
	_, _, err := c.EventStream(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEventStreamCancelClosesChannel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeFrames(w, "data: {\"event_type\":\"connected\"}\n\n")
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	c := New(server.URL)
	ch, stop, err := c.EventStream(context.Background(), "p1")
	if err != nil {
		t.Fatalf("EventStream: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for connected frame")
	}
	stop()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

func TestStreamDebugEnv(t *testing.T) {
	t.Setenv(StreamDebugEnv, "1")
	c := New("http://example.invalid")
	if !c.streamDebug {
		t.Fatalf("expected stream debug from env")
	}
}
