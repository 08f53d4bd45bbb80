package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func stubClipboard(t *testing.T, system, osc func(string) error) {
	t.Helper()
	prevSystem, prevOSC := clipboardWriteAll, clipboardWriteOSC52
	clipboardWriteAll, clipboardWriteOSC52 = system, osc
	t.Cleanup(func() {
		clipboardWriteAll, clipboardWriteOSC52 = prevSystem, prevOSC
	})
}

func TestCopyTextFallsBackToOSC52(t *testing.T) {
	var copied string
	stubClipboard(t,
		func(string) error { return errors.New("xclip missing") },
		func(text string) error { copied = text; return nil },
	)
	if err := copyText("d1aaaaaa"); err != nil {
		t.Fatalf("expected fallback to succeed: %v", err)
	}
	if copied != "d1aaaaaa" {
		t.Fatalf("expected OSC52 write, got %q", copied)
	}
}

func TestCopyTextReportsBothFailures(t *testing.T) {
	t.Setenv("DISPLAY", ":0")
	stubClipboard(t,
		func(string) error { return errors.New("xclip missing") },
		func(string) error { return errors.New("no tty") },
	)
	err := copyText("x")
	if err == nil || !strings.Contains(err.Error(), "xclip missing") || !strings.Contains(err.Error(), "no tty") {
		t.Fatalf("expected combined error, got %v", err)
	}
}

func TestCopyRecordIDShowsToast(t *testing.T) {
	stubClipboard(t, func(string) error { return nil }, func(string) error { return nil })
	m := newTestModel(t, &fakeAPI{})
	m.copyRecordID("  ")
	if m.notices.severity != severityWarning {
		t.Fatalf("expected warning for empty id")
	}
	m.copyRecordID("d1aaaaaa-0000")
	if m.notices.severity != severityInfo || !strings.Contains(m.notices.text, "d1aaaaaa-0000") {
		t.Fatalf("expected copied notice, got %q", m.notices.text)
	}
}

func TestWriteOSC52EncodesPayload(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM", "xterm-256color")
	var buf bytes.Buffer
	if err := writeOSC52(&buf, "hello"); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\x1b]52;") || !strings.Contains(out, "aGVsbG8=") {
		t.Fatalf("unexpected sequence %q", out)
	}
}

func TestOSC52EnabledHonorsOverride(t *testing.T) {
	t.Setenv("TERM", "xterm")
	t.Setenv(disableOSC52Env, "true")
	if osc52Enabled() {
		t.Fatalf("expected override to disable OSC52")
	}
	t.Setenv(disableOSC52Env, "")
	if !osc52Enabled() {
		t.Fatalf("expected OSC52 on a capable terminal")
	}
	t.Setenv("TERM", "dumb")
	if osc52Enabled() {
		t.Fatalf("expected dumb terminal to disable OSC52")
	}
}
