package app

import (
	"fmt"
	"strings"

	"decisionctl/internal/conflict"
	"decisionctl/internal/sanitize"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

func (m *Model) conflictModalView(width int) string {
	candidate, ok := m.scope.conflict.Candidate()
	if !ok {
		return ""
	}
	paneWidth := max(20, (width-8)/2)
	existing := conflictPane("Existing", candidate.Existing, paneWidth)
	proposed := conflictPane("Proposed", candidate.Proposed, paneWidth)
	lines := []string{
		headerStyle.Render("Conflict detected"),
		lipgloss.JoinHorizontal(lipgloss.Top, existing, " ", proposed),
	}
	if candidate.Explanation != "" {
		lines = append(lines, lipgloss.NewStyle().Width(paneWidth*2).Render(sanitize.Text(candidate.Explanation)))
	}
	if candidate.RecommendedAction != "" {
		lines = append(lines, statusStyle.Render("recommended: "+sanitize.Line(candidate.RecommendedAction)))
	}
	switch {
	case m.scope.conflict.Submitting():
		lines = append(lines, m.loader.View()+pendingStyle.Render(" submitting"))
	case m.scope.conflict.Err() != nil:
		lines = append(lines, eventErrorStyle.Render("failed: "+m.scope.conflict.Err().Error()+" · try again"))
	}
	lines = append(lines, helpStyle.Render("k keep existing · o override with proposed · esc dismiss"))
	return modalBorderStyle.Render(strings.Join(lines, "\n"))
}

func conflictPane(title string, view conflict.View, width int) string {
	created := "unknown"
	if !view.CreatedAt.IsZero() {
		created = humanize.Time(view.CreatedAt)
	}
	body := []string{
		typeLabelStyle.Render(title + " · " + view.Type.Label()),
		lipgloss.NewStyle().Width(width - 4).Render(sanitize.Text(view.Statement)),
		mutedStyle.Render(fmt.Sprintf("importance %.2f · confidence %.2f", view.Importance, view.Confidence)),
		mutedStyle.Render("created " + created),
	}
	return modalPaneStyle.Width(width).Render(strings.Join(body, "\n"))
}
