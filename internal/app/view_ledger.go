package app

import (
	"fmt"
	"strings"

	"decisionctl/internal/sanitize"
	"decisionctl/internal/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const ledgerAgeWidth = 16

func (m *Model) ledgerFilterLabel() string {
	if m.ledgerFilter == "" {
		return "filter: all"
	}
	return "filter: " + string(m.ledgerFilter)
}

func (m *Model) ledgerRecords() []types.Memory {
	snap := m.scope.cache.Snapshot()
	if m.ledgerFilter == "" {
		return snap.Records()
	}
	return snap.ByType(m.ledgerFilter)
}

// renderLedger lists records grouped by type. It also records which content
// line each row landed on so selection can be scrolled into view.
func (m *Model) renderLedger(width int) string {
	m.ledgerRows = m.ledgerRows[:0]
	m.ledgerLines = m.ledgerLines[:0]
	if !m.scope.selected() {
		return mutedStyle.Render("Select a project with ctrl+p.")
	}
	if m.scope.detail != nil {
		return renderRecordDetail(*m.scope.detail, width)
	}
	snap := m.scope.cache.Snapshot()
	if snap == nil {
		if m.scope.loading {
			return m.loader.View() + pendingStyle.Render(" loading ledger")
		}
		return mutedStyle.Render("Ledger not loaded. Press ctrl+r to refresh.")
	}

	lines := []string{statusStyle.Render(fmt.Sprintf("%d records · %d active · %d disputed · fetched %s · %s",
		snap.TotalCount, snap.ActiveCount, snap.DisputedCount, humanize.Time(snap.FetchedAt), m.ledgerFilterLabel()))}
	records := m.ledgerRecords()
	if len(records) == 0 {
		lines = append(lines, mutedStyle.Render("no records"))
		return strings.Join(lines, "\n")
	}
	counts := snap.Counts()
	var group types.MemoryType
	for i, record := range records {
		if record.Type != group || i == 0 {
			group = record.Type
			lines = append(lines, typeLabelStyle.Render(fmt.Sprintf("%s (%d)", group.Label(), counts[group])))
		}
		m.ledgerRows = append(m.ledgerRows, record.ID)
		m.ledgerLines = append(m.ledgerLines, len(lines))
		lines = append(lines, m.renderLedgerRow(record, i, width))
	}
	if m.ledgerSelected >= len(m.ledgerRows) {
		m.ledgerSelected = len(m.ledgerRows) - 1
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderLedgerRow(record types.Memory, index, width int) string {
	marker := "  "
	if index == m.ledgerSelected {
		marker = "> "
	}
	status := ""
	if record.Disputed() {
		status = " disputed"
	}
	statementWidth := max(8, width-len(marker)-10-ledgerAgeWidth-len(status)-2)
	age := ""
	if !record.CreatedAt.IsZero() {
		age = humanize.Time(record.CreatedAt)
	}
	plain := marker + "[" + types.ShortID(record.ID) + "] " + fitPlain(sanitize.Line(record.CanonicalStatement), statementWidth) + " " + fitPlain(age, ledgerAgeWidth)
	switch {
	case record.ID == m.highlightID:
		return highlightStyle.Render(plain + status)
	case index == m.ledgerSelected:
		return selectedStyle.Render(plain) + disputedStyle.Render(status)
	}
	return plain + disputedStyle.Render(status)
}

func (m *Model) moveLedgerSelection(delta int) {
	if len(m.ledgerRows) == 0 {
		return
	}
	m.ledgerSelected = clamp(m.ledgerSelected+delta, 0, len(m.ledgerRows)-1)
	m.refreshContent()
}

func (m *Model) cycleLedgerFilter(delta int) {
	options := append([]types.MemoryType{""}, types.MemoryTypes()...)
	idx := 0
	for i, option := range options {
		if option == m.ledgerFilter {
			idx = i
		}
	}
	idx = (idx + delta + len(options)) % len(options)
	m.ledgerFilter = options[idx]
	m.ledgerSelected = 0
	m.refreshContent()
}

// selectedRecordID is the record ctrl+y copies: the focused link, else the
// selected ledger row, else the open detail.
func (m *Model) selectedRecordID() string {
	if m.mode == uiModeLinks {
		if target, ok := m.focusedLink(); ok {
			return target.recordID
		}
	}
	if m.view != viewLedger {
		return ""
	}
	if m.scope.detail != nil {
		return m.scope.detail.ID
	}
	if m.ledgerSelected >= 0 && m.ledgerSelected < len(m.ledgerRows) {
		return m.ledgerRows[m.ledgerSelected]
	}
	return ""
}

func (m *Model) ensureLedgerVisible() {
	if m.ledgerSelected < 0 || m.ledgerSelected >= len(m.ledgerLines) {
		return
	}
	line := m.ledgerLines[m.ledgerSelected]
	switch {
	case line < m.viewport.YOffset:
		m.viewport.SetYOffset(line)
	case line >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

// navigateTo shows recordID in the unfiltered ledger, scrolls it into view
// and highlights it for a short while. A record that is not in the ledger is
// a no-op.
func (m *Model) navigateTo(recordID string) bool {
	if _, ok := m.scope.cache.Lookup(recordID); !ok {
		m.logger.Debug("navigate target missing")
		return false
	}
	m.mode = uiModeNormal
	m.scope.detail = nil
	m.ledgerFilter = ""
	m.setView(viewLedger)
	m.refreshContent()
	idx := -1
	for i, id := range m.ledgerRows {
		if id == recordID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	m.ledgerSelected = idx
	m.highlightID = recordID
	m.highlightUntil = m.now().Add(m.highlight)
	m.refreshContent()
	m.viewport.SetYOffset(max(0, m.ledgerLines[idx]-m.viewport.Height/2))
	return true
}

func renderRecordDetail(record types.Memory, width int) string {
	wrap := func(text string) string {
		return lipgloss.NewStyle().Width(max(10, width-2)).Render(text)
	}
	lines := []string{
		typeLabelStyle.Render(record.Type.Label()) + statusStyle.Render(fmt.Sprintf(" · %s · %s", record.Status, record.ID)),
		wrap(sanitize.Text(record.CanonicalStatement)),
		statusStyle.Render(fmt.Sprintf("importance %.2f · confidence %.2f · created %s · updated %s",
			record.Importance, record.Confidence, humanize.Time(record.CreatedAt), humanize.Time(record.UpdatedAt))),
	}
	if record.Disputed() {
		lines = append(lines, disputedStyle.Render("disputed by a newer record"))
	}
	lines = append(lines, "", headerStyle.Render(fmt.Sprintf("Versions (%d)", len(record.Versions))))
	for _, version := range record.Versions {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("v%d · %s · %s", version.VersionNumber, version.ChangedBy, humanize.Time(version.CreatedAt))))
		lines = append(lines, wrap(sanitize.Text(version.Statement)))
		if version.Rationale != "" {
			lines = append(lines, mutedStyle.Render(wrap("why: "+sanitize.Text(version.Rationale))))
		}
	}
	lines = append(lines, "", headerStyle.Render(fmt.Sprintf("Evidence (%d)", len(record.EvidenceLinks))))
	for _, link := range record.EvidenceLinks {
		source := strings.TrimSpace(link.SourceType + " " + link.SourceRef)
		lines = append(lines, wrap("\""+sanitize.Line(link.Quote)+"\""))
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("  %s · confidence %.2f", source, link.Confidence)))
	}
	lines = append(lines, "", helpStyle.Render("esc back"))
	return strings.Join(lines, "\n")
}
