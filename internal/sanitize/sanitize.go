// Package sanitize strips terminal control sequences from backend text before
// it is rendered or printed.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// Options controls how Clean treats line structure.
type Options struct {
	KeepNewlines bool
	// NewlineReplacement is written in place of each newline when
	// KeepNewlines is false.
	NewlineReplacement string
	TabWidth           int
	MaxRunes           int
}

// SGR mouse reports whose ESC byte was consumed elsewhere.
var orphanedMouse = regexp.MustCompile(`\[<[0-9]+;[0-9]+;[0-9]+[Mm]`)

func Clean(input string, opts Options) string {
	if input == "" {
		return ""
	}
	if strings.ContainsRune(input, '\x1b') {
		input = ansi.Strip(input)
	}
	input = orphanedMouse.ReplaceAllString(input, "")

	var b strings.Builder
	b.Grow(len(input))
	runes := 0
	for _, r := range input {
		if opts.MaxRunes > 0 && runes >= opts.MaxRunes {
			break
		}
		switch {
		case r == '\n':
			if opts.KeepNewlines {
				b.WriteRune(r)
			} else {
				b.WriteString(opts.NewlineReplacement)
			}
		case r == '\t':
			if opts.TabWidth > 0 {
				b.WriteString(strings.Repeat(" ", opts.TabWidth))
			}
		case r == utf8.RuneError, unicode.IsControl(r):
			continue
		default:
			b.WriteRune(r)
		}
		runes++
	}
	return b.String()
}

// Text keeps paragraphs; tabs become two spaces.
func Text(input string) string {
	return Clean(strings.ReplaceAll(input, "\r\n", "\n"), Options{KeepNewlines: true, TabWidth: 2})
}

// Line flattens input onto one line for rows, pills and titles.
func Line(input string) string {
	return strings.TrimSpace(Clean(strings.ReplaceAll(input, "\r\n", "\n"), Options{NewlineReplacement: " ", TabWidth: 1}))
}
