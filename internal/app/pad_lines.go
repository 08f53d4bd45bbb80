package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// padBlock fits text into exactly width x height cells so panes can be
// joined side by side without ragged edges.
func padBlock(text string, width, height int) string {
	lines := strings.Split(text, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	if width <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		lineWidth := xansi.StringWidth(line)
		switch {
		case lineWidth > width:
			lines[i] = xansi.Truncate(line, width, "")
		case lineWidth < width:
			lines[i] = line + strings.Repeat(" ", width-lineWidth)
		}
	}
	return strings.Join(lines, "\n")
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if xansi.StringWidth(text) <= width {
		return text
	}
	return xansi.Truncate(text, width, "…")
}

// fitPlain truncates or pads unstyled text to exactly width cells.
func fitPlain(text string, width int) string {
	if width <= 0 {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, "…")
	}
	return runewidth.FillRight(text, width)
}

func renderStatusLine(width int, help, status string) string {
	if width <= 0 {
		return help + " " + status
	}
	padding := max(1, width-lipgloss.Width(help)-lipgloss.Width(status))
	return truncateToWidth(help+strings.Repeat(" ", padding)+status, width)
}

func clamp(value, minValue, maxValue int) int {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}
	return value
}
