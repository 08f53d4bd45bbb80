package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const noticeTTL = 4 * time.Second

type severity int

const (
	severityInfo severity = iota
	severityWarning
	severityError
)

// notices holds what the footer and banner show besides the status text: a
// sticky banner for conditions that outlive any single action, and the latest
// action outcome, which expires.
type notices struct {
	banner string

	text     string
	severity severity
	expires  time.Time
}

func (n *notices) post(level severity, text string, at time.Time) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	n.text, n.severity, n.expires = text, level, at.Add(noticeTTL)
	return true
}

// expire drops the outcome notice once its time is up and reports whether it
// did.
func (n *notices) expire(at time.Time) bool {
	if n.text == "" || at.Before(n.expires) {
		return false
	}
	n.text, n.severity, n.expires = "", severityInfo, time.Time{}
	return true
}

func (n *notices) line(width int) string {
	if n.text == "" || width <= 0 {
		return ""
	}
	style := noticeInfoStyle
	switch n.severity {
	case severityWarning:
		style = noticeWarningStyle
	case severityError:
		style = noticeErrorStyle
	}
	pill := style.Render(" " + truncateToWidth(n.text, max(1, width-4)) + " ")
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, pill)
}

func (m *Model) notifyInfo(text string)    { m.notices.post(severityInfo, text, m.now()) }
func (m *Model) notifyWarning(text string) { m.notices.post(severityWarning, text, m.now()) }
func (m *Model) notifyError(text string)   { m.notices.post(severityError, text, m.now()) }

// setBanner raises or clears the sticky banner. The content pane shrinks to
// make room for it.
func (m *Model) setBanner(text string) {
	m.notices.banner = text
	m.viewport.Height = m.contentHeight()
}
