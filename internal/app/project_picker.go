package app

import (
	"fmt"
	"strings"

	"decisionctl/internal/types"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

const pickerMaxRows = 12

// ProjectPicker filters the project list as the user types.
type ProjectPicker struct {
	input    textinput.Model
	projects []*types.Project
	matches  []int
	selected int
}

type projectSource []*types.Project

func (s projectSource) String(i int) string {
	p := s[i]
	return p.DisplayName() + " " + p.ID
}

func (s projectSource) Len() int {
	return len(s)
}

func NewProjectPicker() *ProjectPicker {
	input := textinput.New()
	input.Prompt = "project> "
	input.Placeholder = "type to filter"
	return &ProjectPicker{input: input}
}

func (p *ProjectPicker) Open(projects []*types.Project, currentID string) tea.Cmd {
	p.projects = projects
	p.input.Reset()
	p.filter()
	p.selected = 0
	for i, idx := range p.matches {
		if p.projects[idx].ID == currentID {
			p.selected = i
			break
		}
	}
	return p.input.Focus()
}

func (p *ProjectPicker) Close() {
	p.input.Blur()
}

func (p *ProjectPicker) filter() {
	query := strings.TrimSpace(p.input.Value())
	p.matches = p.matches[:0]
	if query == "" {
		for i := range p.projects {
			p.matches = append(p.matches, i)
		}
	} else {
		for _, match := range fuzzy.FindFrom(query, projectSource(p.projects)) {
			p.matches = append(p.matches, match.Index)
		}
	}
	if p.selected >= len(p.matches) {
		p.selected = max(0, len(p.matches)-1)
	}
}

func (p *ProjectPicker) Move(delta int) {
	if len(p.matches) == 0 {
		return
	}
	p.selected = clamp(p.selected+delta, 0, len(p.matches)-1)
}

func (p *ProjectPicker) Selected() *types.Project {
	if p.selected < 0 || p.selected >= len(p.matches) {
		return nil
	}
	return p.projects[p.matches[p.selected]]
}

func (p *ProjectPicker) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	before := p.input.Value()
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.selected = 0
		p.filter()
	}
	return cmd
}

func (p *ProjectPicker) View(width int) string {
	lines := []string{headerStyle.Render("Select project"), p.input.View()}
	if len(p.matches) == 0 {
		lines = append(lines, mutedStyle.Render("no matching projects"))
	}
	start := 0
	if p.selected >= pickerMaxRows {
		start = p.selected - pickerMaxRows + 1
	}
	for i := start; i < len(p.matches) && i < start+pickerMaxRows; i++ {
		project := p.projects[p.matches[i]]
		row := fmt.Sprintf("%s  %s", project.DisplayName(), mutedStyle.Render(fmt.Sprintf("%d records · %s", project.MemoryCount, types.ShortID(project.ID))))
		row = truncateToWidth(row, max(10, width-6))
		if i == p.selected {
			row = selectedStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		lines = append(lines, row)
	}
	return pickerBorder.Render(strings.Join(lines, "\n"))
}
