package app

import (
	"fmt"
	"strings"
	"time"

	"decisionctl/internal/citation"
	"decisionctl/internal/eventstream"
	"decisionctl/internal/sanitize"
	"decisionctl/internal/types"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

// refreshContent re-renders the main pane and the notification log and
// rebuilds the navigable link list from what was rendered.
func (m *Model) refreshContent() {
	focusID := ""
	if m.mode == uiModeLinks {
		if target, ok := m.focusedLink(); ok {
			focusID = target.recordID
		}
	}
	m.eventsView, m.eventLinks = m.renderEvents(m.eventsWidth, m.contentHeight(), focusID)

	var content string
	switch m.view {
	case viewQuick:
		content, m.mainLinks = m.renderQuick(m.mainWidth, focusID)
	case viewWork:
		content, m.mainLinks = m.renderWork(m.mainWidth, focusID)
	default:
		content = m.renderLedger(m.mainWidth)
		m.mainLinks = nil
	}
	m.viewport.SetContent(content)
	switch m.view {
	case viewWork:
		m.viewport.GotoBottom()
	case viewLedger:
		m.ensureLedgerVisible()
	}
	if total := len(m.mainLinks) + len(m.eventLinks); m.linkIndex >= total {
		m.linkIndex = total - 1
	}
}

func (m *Model) renderQuick(width int, focusID string) (string, []focusTarget) {
	if !m.scope.selected() {
		return mutedStyle.Render("Select a project with ctrl+p."), nil
	}
	var links []focusTarget
	var b strings.Builder
	turn, ok := m.scope.turns.Current()
	if !ok {
		b.WriteString(mutedStyle.Render("No quick updates yet. Type below and press enter."))
	} else {
		nav := "turn " + m.scope.turns.Position()
		if m.scope.turns.CanPrev() {
			nav = "‹ " + nav
		}
		if m.scope.turns.CanNext() {
			nav += " ›"
		}
		b.WriteString(statusStyle.Render(nav) + "\n")
		b.WriteString(userBubbleStyle.Width(max(10, width-2)).Render(sanitize.Text(turn.Input)) + "\n")
		rendered, targets := renderCited(sanitize.Text(turn.Output), max(10, width-4), m.scope.lookup, focusID)
		links = append(links, linkTargets(targets)...)
		b.WriteString(agentBubbleStyle.Width(max(10, width-2)).Render(rendered) + "\n")
		b.WriteString(debugFooter(turn.Debug) + "\n")
		if len(turn.NewRecordIDs) > 0 {
			pills, pillLinks := renderIDPills(turn.NewRecordIDs, focusID)
			b.WriteString(statusStyle.Render("new records ") + pills + "\n")
			links = append(links, pillLinks...)
		}
	}
	switch n := m.scope.quickInflight; {
	case n == 1:
		b.WriteString("\n" + m.loader.View() + pendingStyle.Render(" waiting for reply"))
	case n > 1:
		b.WriteString("\n" + m.loader.View() + pendingStyle.Render(fmt.Sprintf(" waiting for %d replies", n)))
	}
	return b.String(), links
}

func debugFooter(debug types.DebugMetadata) string {
	var parts []string
	if debug.ModelTier != "" {
		parts = append(parts, "tier "+debug.ModelTier)
	}
	if debug.LatencyMS > 0 {
		parts = append(parts, (time.Duration(debug.LatencyMS) * time.Millisecond).String())
	}
	parts = append(parts, fmt.Sprintf("%d records used", len(debug.MemoryUsed)))
	if n := len(debug.CommitmentsChecked); n > 0 {
		parts = append(parts, fmt.Sprintf("%d commitments checked", n))
	}
	if debug.TokensSaved > 0 {
		parts = append(parts, humanize.Comma(int64(debug.TokensSaved))+" tokens saved")
	}
	footer := debugFooterStyle.Render(strings.Join(parts, " · "))
	if debug.Violated {
		detail := "commitment violated"
		if debug.ViolationDetails != "" {
			detail += ": " + sanitize.Line(debug.ViolationDetails)
		}
		footer += "\n" + violationStyle.Render(detail)
	}
	return footer
}

func (m *Model) renderWork(width int, focusID string) (string, []focusTarget) {
	if !m.scope.selected() {
		return mutedStyle.Render("Select a project with ctrl+p."), nil
	}
	work := m.scope.work
	session, active := work.Session()
	if !active {
		switch {
		case work.Starting():
			return m.loader.View() + pendingStyle.Render(" starting work session"), nil
		case work.Ending() != "":
			return mutedStyle.Render("Ending work session " + types.ShortID(work.Ending()) + "…"), nil
		}
		return mutedStyle.Render("No active work session. Describe a task below and press enter to start one."), nil
	}
	var links []focusTarget
	var b strings.Builder
	b.WriteString(headerStyle.Render("Task: "+sanitize.Line(session.TaskDescription)) + statusStyle.Render("  "+types.ShortID(session.ID)) + "\n")
	bubbleWidth := max(10, width-2)
	for _, msg := range work.Messages() {
		switch msg.Role {
		case types.MessageRoleSystem:
			b.WriteString(systemStyle.Render(msg.Content) + "\n")
		case types.MessageRoleUser:
			b.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Content) + "\n")
		default:
			rendered, targets := renderCited(sanitize.Text(msg.Content), max(10, width-4), m.scope.lookup, focusID)
			links = append(links, linkTargets(targets)...)
			b.WriteString(agentBubbleStyle.Width(bubbleWidth).Render(rendered) + "\n")
			if len(msg.CitedIDs) > 0 {
				pills, pillLinks := renderIDPills(msg.CitedIDs, focusID)
				b.WriteString(statusStyle.Render("cites ") + pills + "\n")
				links = append(links, pillLinks...)
			}
		}
	}
	if work.Pending() {
		b.WriteString(m.loader.View() + pendingStyle.Render(" thinking"))
	}
	return b.String(), dedupeTargets(links)
}

func linkTargets(links []citation.Link) []focusTarget {
	out := make([]focusTarget, 0, len(links))
	for _, link := range links {
		out = append(out, focusTarget{recordID: link.RecordID, token: link.Token.Raw})
	}
	return out
}

func dedupeTargets(targets []focusTarget) []focusTarget {
	seen := map[string]struct{}{}
	out := targets[:0]
	for _, target := range targets {
		if _, ok := seen[target.recordID]; ok {
			continue
		}
		seen[target.recordID] = struct{}{}
		out = append(out, target)
	}
	return out
}

func renderIDPills(ids []string, focusID string) (string, []focusTarget) {
	parts := make([]string, 0, len(ids))
	targets := make([]focusTarget, 0, len(ids))
	for _, id := range ids {
		style := pillStyle
		if id == focusID {
			style = pillFocusStyle
		}
		parts = append(parts, style.Render(" "+types.ShortID(id)+" "))
		targets = append(targets, focusTarget{recordID: id, token: id})
	}
	return strings.Join(parts, " "), targets
}

// renderEvents draws the notification log, newest last, keeping the tail
// when it is taller than the pane.
func (m *Model) renderEvents(width, height int, focusID string) (string, []focusTarget) {
	title := headerStyle.Render("Pipeline")
	if turn := m.scope.log.CurrentTurn(); turn != "" {
		title += statusStyle.Render(" turn " + types.ShortID(turn))
	}
	if _, pending := m.scope.log.PendingConflict(); pending {
		title += " " + conflictStyle.Render(" ! ")
	}
	if !m.scope.selected() {
		return title + "\n" + mutedStyle.Render("no project"), nil
	}
	entries := m.scope.log.Entries()
	if len(entries) == 0 {
		return title + "\n" + mutedStyle.Render("waiting for activity"), nil
	}
	var lines []string
	var targets []focusTarget
	for _, entry := range entries {
		entryLines, entryTargets := renderEntry(entry, width, focusID)
		lines = append(lines, entryLines...)
		targets = append(targets, entryTargets...)
	}
	if height > 1 && len(lines) > height-1 {
		lines = lines[len(lines)-(height-1):]
	}
	return title + "\n" + strings.Join(lines, "\n"), targets
}

func renderEntry(entry eventstream.Entry, width int, focusID string) ([]string, []focusTarget) {
	var lines []string
	head := entryIcon(entry) + " " + sanitize.Line(entry.Message)
	switch entry.Kind {
	case eventstream.KindError:
		head = eventErrorStyle.Render(head)
	case eventstream.KindRecords, eventstream.KindResolved:
		head = eventDoneStyle.Render(head)
	case eventstream.KindConflict:
		if entry.Active {
			head = conflictStyle.Render(head + " · ctrl+o review · esc dismiss")
		} else {
			head = conflictIdleStyle.Render(head)
		}
	default:
		head = eventInfoStyle.Render(head)
	}
	if entry.Tier != "" {
		head += eventTierStyle.Render(" " + entry.Tier)
	}
	lines = append(lines, truncateToWidth(head, width))
	if entry.Detail != "" {
		lines = append(lines, mutedStyle.Render(truncateToWidth("  "+sanitize.Line(entry.Detail), width)))
	}

	var targets []focusTarget
	var pills []string
	for _, pill := range entry.Pills {
		pills = append(pills, renderPill(pill, focusID))
		if pill.ID != "" {
			targets = append(targets, focusTarget{recordID: pill.ID, token: pill.ID})
		}
	}
	if label := entry.OverflowLabel(); label != "" {
		pills = append(pills, mutedStyle.Render(label))
	}
	if entry.NoRecords {
		pills = append(pills, mutedStyle.Render("no new records"))
	}
	lines = append(lines, wrapPills(pills, width)...)
	return lines, targets
}

func entryIcon(entry eventstream.Entry) string {
	switch entry.Kind {
	case eventstream.KindError:
		return "✗"
	case eventstream.KindRecords, eventstream.KindResolved:
		return "✓"
	case eventstream.KindConflict:
		return "!"
	}
	return "·"
}

func renderPill(pill eventstream.Pill, focusID string) string {
	if pill.ID == "" {
		return pillPreviewStyle.Render(" " + truncateToWidth(sanitize.Line(pill.Label), 18) + " ")
	}
	label := types.ShortID(pill.ID)
	if pill.Type != "" {
		label = pill.Type + " " + label
	}
	if pill.ID == focusID {
		return pillFocusStyle.Render(" " + label + " ")
	}
	return pillStyle.Render(" " + label + " ")
}

func wrapPills(pills []string, width int) []string {
	var lines []string
	line := "  "
	lineWidth := 2
	for _, pill := range pills {
		w := xansi.StringWidth(pill)
		if lineWidth > 2 && lineWidth+1+w > width {
			lines = append(lines, line)
			line, lineWidth = "  ", 2
		}
		if lineWidth > 2 {
			line += " "
			lineWidth++
		}
		line += pill
		lineWidth += w
	}
	if lineWidth > 2 {
		lines = append(lines, line)
	}
	return lines
}
