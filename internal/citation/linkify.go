package citation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"decisionctl/internal/types"

	"github.com/charmbracelet/x/ansi"
)

var bracketPattern = regexp.MustCompile(`\[([0-9A-Za-z][0-9A-Za-z_-]{1,63})\]`)

// Span is a bracketed citation found in plain text. Start and End are byte
// offsets covering the brackets.
type Span struct {
	Start int
	End   int
	Token Token
}

func Scan(text string) []Span {
	matches := bracketPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		tok, ok := Parse(text[m[2]:m[3]])
		if !ok {
			continue
		}
		tok.Raw = text[m[0]:m[1]]
		spans = append(spans, Span{Start: m[0], End: m[1], Token: tok})
	}
	return spans
}

// Link is a resolved citation inside linkified output. Columns are rune
// positions in the visible text of Line.
type Link struct {
	Line     int
	StartCol int
	EndCol   int
	Token    Token
	RecordID string
	Type     types.MemoryType
}

type Style struct {
	On      string
	Off     string
	FocusOn string
}

// DefaultStyle underlines links in the given 256-color palette index.
func DefaultStyle(color string) Style {
	return Style{
		On:      "\x1b[38;5;" + color + "m\x1b[4m",
		Off:     "\x1b[24m\x1b[27m\x1b[39m",
		FocusOn: "\x1b[38;5;" + color + "m\x1b[4m\x1b[7m",
	}
}

type LookupFunc func(Token) (types.Memory, bool)

// Linkify styles every resolvable citation in already-rendered text and
// returns the distinct link targets in reading order. Unresolvable tokens are
// left as plain text. focusID, when set, renders that record's links with
// FocusOn.
func Linkify(rendered string, lookup LookupFunc, style Style, focusID string) (string, []Link) {
	if rendered == "" || lookup == nil {
		return rendered, nil
	}
	lines := strings.Split(rendered, "\n")
	var targets []Link
	seen := map[string]struct{}{}

	for lineNumber, line := range lines {
		visible := ansi.Strip(line)
		spans := Scan(visible)
		if len(spans) == 0 {
			continue
		}
		var lineLinks []linkMatch
		for _, span := range spans {
			record, ok := lookup(span.Token)
			if !ok {
				continue
			}
			startCol := utf8.RuneCountInString(visible[:span.Start])
			endCol := utf8.RuneCountInString(visible[:span.End])
			on := style.On
			if focusID != "" && record.ID == focusID && style.FocusOn != "" {
				on = style.FocusOn
			}
			lineLinks = append(lineLinks, linkMatch{startCol: startCol, endCol: endCol, on: on})
			if _, dup := seen[record.ID]; dup {
				continue
			}
			seen[record.ID] = struct{}{}
			targets = append(targets, Link{
				Line:     lineNumber,
				StartCol: startCol,
				EndCol:   endCol,
				Token:    span.Token,
				RecordID: record.ID,
				Type:     record.Type,
			})
		}
		if len(lineLinks) > 0 {
			lines[lineNumber] = spliceLinks(line, lineLinks, style.Off)
		}
	}
	return strings.Join(lines, "\n"), targets
}

type linkMatch struct {
	startCol int
	endCol   int
	on       string
}

// spliceLinks walks the decorated line with ansi.DecodeSequence so escapes
// land on visible rune boundaries.
func spliceLinks(line string, links []linkMatch, off string) string {
	var out strings.Builder
	out.Grow(len(line) + len(links)*32)

	pos := 0
	next := 0
	inLink := false
	var state byte
	remaining := line
	for len(remaining) > 0 {
		seq, width, n, newState := ansi.DecodeSequence(remaining, state, nil)
		state = newState
		if width == 0 && !isPrintable(seq) {
			out.WriteString(seq)
			remaining = remaining[n:]
			continue
		}
		if inLink && pos >= links[next].endCol {
			out.WriteString(off)
			inLink = false
			next++
		}
		if !inLink && next < len(links) && pos >= links[next].startCol {
			out.WriteString(links[next].on)
			inLink = true
		}
		out.WriteString(seq)
		pos += utf8.RuneCountInString(seq)
		remaining = remaining[n:]
	}
	if inLink {
		out.WriteString(off)
	}
	return out.String()
}

func isPrintable(seq string) bool {
	r, _ := utf8.DecodeRuneInString(seq)
	return r != utf8.RuneError && r >= 0x20 && r != 0x7f && !strings.HasPrefix(seq, "\x1b")
}
