// Package layout turns Markdown source into terminal rows.
//
// Parse reads the source with goldmark and splits it into blocks. Layout
// wraps those blocks to a width and records, for each block, the rows it
// occupies. The resulting tree implements sourcepos.Node so change markers and line numbers can be
// projected onto the rows without the layout knowing about either.
package layout

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/dshills/redmargin/internal/sourcepos"
)

// Highlighter colors code block bodies. It returns one span slice per
// source line, or nil when the language is unknown.
type Highlighter interface {
	Highlight(lang, code string) [][]Span
}

// Options control layout.
type Options struct {
	// Width is the available text width in columns. Zero disables wrapping.
	Width int

	// Highlighter colors fenced code. Nil leaves code uncolored.
	Highlighter Highlighter
}

// Node is a laid-out block. Its box is measured in rows.
type Node struct {
	kind       sourcepos.Kind
	start, end int
	top        int
	height     int
	children   []*Node
}

// Kind implements sourcepos.Node.
func (n *Node) Kind() sourcepos.Kind { return n.kind }

// Sourcepos implements sourcepos.Node.
func (n *Node) Sourcepos() string {
	if n.start == 0 {
		return ""
	}
	return fmt.Sprintf("%d:1-%d:1", n.start, n.end)
}

// Box implements sourcepos.Node.
func (n *Node) Box() sourcepos.Box {
	return sourcepos.Box{Top: float64(n.top), Height: float64(n.height)}
}

// Children implements sourcepos.Node.
func (n *Node) Children() []sourcepos.Node {
	out := make([]sourcepos.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// Lines returns the node's source line range.
func (n *Node) Lines() (start, end int) { return n.start, n.end }

// Rows returns the node's first row and row count.
func (n *Node) Rows() (top, height int) { return n.top, n.height }

// Document is a laid-out Markdown document.
type Document struct {
	Root   *Node
	Rows   []Row
	Blocks []Block
	Width  int
}

// Render parses and lays out src.
func Render(src string, opts Options) *Document {
	return Layout(Parse(src), opts)
}

// Layout places blocks one after another with a blank row between them.
func Layout(blocks []Block, opts Options) *Document {
	l := &layouter{opts: opts, width: opts.Width}
	root := &Node{kind: sourcepos.KindBlock}
	for i := range blocks {
		if i > 0 {
			l.rows = append(l.rows, nil)
		}
		root.children = append(root.children, l.block(&blocks[i]))
	}
	root.height = len(l.rows)
	return &Document{Root: root, Rows: l.rows, Blocks: blocks, Width: opts.Width}
}

type layouter struct {
	opts  Options
	width int
	rows  []Row
}

func (l *layouter) block(b *Block) *Node {
	n := &Node{kind: sourcepos.KindBlock, start: b.Start, end: b.End, top: len(l.rows)}
	switch b.Kind {
	case BlockHeading:
		l.heading(b)
	case BlockCode:
		n.kind = sourcepos.KindCode
		l.code(b)
	case BlockTable:
		n.kind = sourcepos.KindTable
		n.children = l.table(b)
	case BlockList:
		n.kind = sourcepos.KindList
		n.children = l.list(b)
	case BlockQuote:
		l.quote(b)
	case BlockRule:
		l.rows = append(l.rows, Row{{Text: strings.Repeat("─", l.ruleWidth()), Role: RoleMarkup}})
	case BlockHTML:
		for _, line := range b.Lines {
			l.rows = append(l.rows, l.fit([]Span{{Text: line, Role: RoleMarkup}}))
		}
	default:
		l.rows = append(l.rows, Wrap(b.Text, l.width)...)
	}
	n.height = len(l.rows) - n.top
	return n
}

func (l *layouter) heading(b *Block) {
	spans := []Span{{Text: strings.Repeat("#", b.Level) + " ", Role: RoleMarkup}}
	spans = appendSpans(spans, b.Text...)
	for i := range spans {
		spans[i].Bold = true
	}
	l.rows = append(l.rows, Wrap(spans, l.width)...)
}

// code emits the opening fence, one row per body line and the closing
// fence when present, so rows and source lines correspond one to one.
// Indented code has no fence rows.
func (l *layouter) code(b *Block) {
	if b.Fenced {
		fence := Span{Text: "```" + b.Lang, Role: RoleMarkup}
		l.rows = append(l.rows, l.fit([]Span{fence}))
	}

	var colored [][]Span
	if l.opts.Highlighter != nil && b.Lang != "" {
		colored = l.opts.Highlighter.Highlight(b.Lang, strings.Join(b.Lines, "\n"))
		if len(colored) != len(b.Lines) {
			colored = nil
		}
	}
	for i, line := range b.Lines {
		spans := []Span{{Text: line, Role: RoleCode}}
		if colored != nil {
			spans = colored[i]
		}
		l.rows = append(l.rows, l.fit(spans))
	}

	if b.Closed {
		l.rows = append(l.rows, l.fit([]Span{{Text: "```", Role: RoleMarkup}}))
	}
}

// table emits a header row, a rule below it and one row per body row.
// Rows are truncated rather than wrapped.
func (l *layouter) table(b *Block) []*Node {
	widths := columnWidths(b.Rows)
	var rows []*Node
	for i, row := range b.Rows {
		rows = append(rows, &Node{kind: sourcepos.KindTableRow, start: row.Line, end: row.Line, top: len(l.rows), height: 1})

		role := RoleText
		if i == 0 {
			role = RoleTableHeader
		}
		var spans []Span
		for c, w := range widths {
			if c > 0 {
				spans = append(spans, Span{Text: " │ ", Role: RoleMarkup})
			}
			var cell Row
			if c < len(row.Cells) {
				cell = row.Cells[c]
			}
			for _, sp := range cell {
				if sp.Role == RoleText {
					sp.Role = role
				}
				spans = appendSpans(spans, sp)
			}
			if pad := w - cell.Width(); pad > 0 {
				spans = append(spans, Span{Text: strings.Repeat(" ", pad), Role: role})
			}
		}
		l.rows = append(l.rows, l.fit(spans))

		if i == 0 {
			var sep []string
			for _, w := range widths {
				sep = append(sep, strings.Repeat("─", w))
			}
			l.rows = append(l.rows, l.fit([]Span{{Text: strings.Join(sep, "─┼─"), Role: RoleMarkup}}))
		}
	}
	return rows
}

func (l *layouter) list(b *Block) []*Node {
	var items []*Node
	for _, item := range b.Items {
		n := &Node{kind: sourcepos.KindListItem, start: item.Start, end: item.End, top: len(l.rows)}

		prefix := strings.Repeat("  ", item.Indent) + bullet(item) + " "
		switch item.Task {
		case TaskOpen:
			prefix += "[ ] "
		case TaskDone:
			prefix += "[x] "
		}
		indent := uniseg.StringWidth(prefix)

		body := Wrap(item.Text, l.width-indent)
		for i, row := range body {
			lead := strings.Repeat(" ", indent)
			if i == 0 {
				lead = prefix
			}
			l.rows = append(l.rows, appendSpans(Row{{Text: lead, Role: RoleMarkup}}, row...))
		}
		n.height = len(l.rows) - n.top
		items = append(items, n)
	}
	return items
}

func (l *layouter) quote(b *Block) {
	for _, row := range Wrap(b.Text, l.width-2) {
		l.rows = append(l.rows, appendSpans(Row{{Text: "│ ", Role: RoleMarkup}}, row...))
	}
}

func (l *layouter) fit(spans []Span) Row {
	if l.width < 1 {
		return Wrap(spans, 0)[0]
	}
	return Truncate(spans, l.width)
}

func (l *layouter) ruleWidth() int {
	if l.width < 1 {
		return 40
	}
	return l.width
}

func bullet(item Item) string {
	if item.Ordered {
		return item.Marker
	}
	return "•"
}

// columnWidths measures cells as rendered, without inline markup.
func columnWidths(rows []TableRow) []int {
	var widths []int
	for _, row := range rows {
		for c, cell := range row.Cells {
			if c >= len(widths) {
				widths = append(widths, 0)
			}
			widths[c] = max(widths[c], Row(cell).Width())
		}
	}
	return widths
}
