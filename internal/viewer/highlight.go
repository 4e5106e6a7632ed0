package viewer

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/dshills/redmargin/internal/layout"
)

// Compile-time interface verification.
var _ layout.Highlighter = (*Highlighter)(nil)

// Highlighter colors fenced code with chroma.
type Highlighter struct {
	style *chroma.Style
}

// NewHighlighter creates a highlighter using the named chroma style.
// Unknown names fall back to chroma's default style.
func NewHighlighter(theme string) *Highlighter {
	return &Highlighter{style: styles.Get(theme)}
}

// Highlight returns one span slice per line of code. It returns nil if the
// language is not supported or lexing fails.
func (h *Highlighter) Highlight(lang, code string) [][]layout.Span {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return nil
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil
	}

	want := strings.Count(code, "\n") + 1
	lines := make([][]layout.Span, 1, want)
	for token := iterator(); token != chroma.EOF; token = iterator() {
		span := h.spanFor(token.Type)
		for i, part := range strings.Split(token.Value, "\n") {
			if i > 0 {
				lines = append(lines, nil)
			}
			if part == "" {
				continue
			}
			sp := span
			sp.Text = part
			lines[len(lines)-1] = append(lines[len(lines)-1], sp)
		}
	}

	// lexers that append a final newline leave an empty trailing line
	if len(lines) > want {
		lines = lines[:want]
	}
	for len(lines) < want {
		lines = append(lines, nil)
	}
	return lines
}

func (h *Highlighter) spanFor(tt chroma.TokenType) layout.Span {
	entry := h.style.Get(tt)
	span := layout.Span{Role: layout.RoleCode, Bold: entry.Bold == chroma.Yes}
	if entry.Colour.IsSet() {
		span.Color = entry.Colour.String()
	}
	return span
}
