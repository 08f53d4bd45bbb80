package app

import (
	"strings"
	"sync"

	"decisionctl/internal/citation"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"
)

// Generated text goes through two stages: markdown rendering, then citation
// linking over the rendered output. Renderers are cached per wrap width.
var (
	rendererMu sync.Mutex
	renderers  = map[int]*glamour.TermRenderer{}
)

func renderMarkdown(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := rendererFor(width)
	if r == nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	out = strings.Trim(out, "\n")
	return xansi.Hardwrap(out, width, true)
}

func rendererFor(width int) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	if r, ok := renderers[width]; ok {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(outputStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderers[width] = r
	return r
}

func outputStyle() glamouransi.StyleConfig {
	base := styles.DarkStyleConfig
	base.Document.StylePrimitive.BlockPrefix = ""
	base.Document.StylePrimitive.BlockSuffix = ""
	zero := uint(0)
	base.Document.Margin = &zero
	return base
}

// renderCited renders markdown and links every citation lookup can resolve.
func renderCited(text string, width int, lookup citation.LookupFunc, focusID string) (string, []citation.Link) {
	rendered := renderMarkdown(text, width)
	return citation.Linkify(rendered, lookup, citation.DefaultStyle(linkColor), focusID)
}
