package layout

import (
	"strings"

	"github.com/rivo/uniseg"
)

const tabWidth = 4

// Row is one rendered terminal row.
type Row []Span

// Width returns the row's display width.
func (r Row) Width() int {
	w := 0
	for _, s := range r {
		w += uniseg.StringWidth(s.Text)
	}
	return w
}

// Text returns the row's plain text.
func (r Row) Text() string {
	var b strings.Builder
	for _, s := range r {
		b.WriteString(s.Text)
	}
	return b.String()
}

// expandTabs replaces tabs with spaces up to the next tab stop.
func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += uniseg.StringWidth(string(r))
	}
	return b.String()
}

// word is a run of non-space text or a run of spaces, in one style.
type word struct {
	span  Span
	space bool
	width int
}

func splitWords(spans []Span) []word {
	var words []word
	for _, sp := range spans {
		text := expandTabs(sp.Text)
		start := 0
		for start < len(text) {
			space := text[start] == ' '
			end := start
			for end < len(text) && (text[end] == ' ') == space {
				end++
			}
			chunk := sp
			chunk.Text = text[start:end]
			words = append(words, word{span: chunk, space: space, width: uniseg.StringWidth(chunk.Text)})
			start = end
		}
	}
	return words
}

// Wrap breaks spans into rows no wider than width. Lines break at spaces;
// a word wider than a whole row is split by grapheme. Spaces at a break are
// dropped. Width below 1 disables wrapping.
func Wrap(spans []Span, width int) []Row {
	if width < 1 {
		var row Row
		for _, sp := range spans {
			sp.Text = expandTabs(sp.Text)
			row = appendSpans(row, sp)
		}
		return []Row{row}
	}

	var rows []Row
	var cur Row
	col := 0
	newRow := func() {
		rows = append(rows, cur)
		cur = nil
		col = 0
	}

	for _, w := range splitWords(spans) {
		if w.space {
			if col == 0 && len(rows) > 0 {
				continue
			}
			if col+w.width > width {
				newRow()
				continue
			}
			cur = appendSpans(cur, w.span)
			col += w.width
			continue
		}

		if col+w.width > width && col > 0 {
			cur = trimTrailingSpace(cur)
			newRow()
		}
		for col+w.width > width {
			head, tail, headWidth := splitAt(w.span, width-col)
			if headWidth == 0 && col == 0 {
				// a single grapheme wider than the row
				head, tail, headWidth = splitAt(w.span, uniseg.StringWidth(firstGrapheme(w.span.Text)))
			}
			cur = appendSpans(cur, head)
			newRow()
			w.span = tail
			w.width -= headWidth
		}
		if w.span.Text != "" {
			cur = appendSpans(cur, w.span)
			col += w.width
		}
	}
	if len(cur) > 0 || len(rows) == 0 {
		rows = append(rows, trimTrailingSpace(cur))
	}
	return rows
}

// Truncate cuts spans to at most width columns.
func Truncate(spans []Span, width int) Row {
	var out Row
	col := 0
	for _, sp := range spans {
		sp.Text = expandTabs(sp.Text)
		w := uniseg.StringWidth(sp.Text)
		if col+w <= width {
			out = appendSpans(out, sp)
			col += w
			continue
		}
		head, _, _ := splitAt(sp, width-col)
		return appendSpans(out, head)
	}
	return out
}

// splitAt splits a span so the head fits in width columns.
func splitAt(sp Span, width int) (head, tail Span, headWidth int) {
	head, tail = sp, sp
	g := uniseg.NewGraphemes(sp.Text)
	cut := 0
	for g.Next() {
		w := g.Width()
		if headWidth+w > width {
			break
		}
		headWidth += w
		_, cut = g.Positions()
	}
	head.Text = sp.Text[:cut]
	tail.Text = sp.Text[cut:]
	return head, tail, headWidth
}

func firstGrapheme(s string) string {
	g := uniseg.NewGraphemes(s)
	if g.Next() {
		return g.Str()
	}
	return ""
}

// appendSpans appends, merging with the previous span when styles match.
func appendSpans(row Row, spans ...Span) Row {
	for _, sp := range spans {
		if sp.Text == "" {
			continue
		}
		if n := len(row); n > 0 {
			last := &row[n-1]
			if last.Role == sp.Role && last.Color == sp.Color && last.Bold == sp.Bold {
				last.Text += sp.Text
				continue
			}
		}
		row = append(row, sp)
	}
	return row
}

func trimTrailingSpace(row Row) Row {
	for len(row) > 0 {
		last := &row[len(row)-1]
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text != "" {
			break
		}
		row = row[:len(row)-1]
	}
	return row
}
