package layout

import (
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// BlockKind identifies a block-level construct.
type BlockKind uint8

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockCode
	BlockTable
	BlockList
	BlockQuote
	BlockRule
	BlockHTML
)

// String returns the block kind name.
func (k BlockKind) String() string {
	switch k {
	case BlockParagraph:
		return "paragraph"
	case BlockHeading:
		return "heading"
	case BlockCode:
		return "code"
	case BlockTable:
		return "table"
	case BlockList:
		return "list"
	case BlockQuote:
		return "blockquote"
	case BlockRule:
		return "rule"
	case BlockHTML:
		return "html"
	default:
		return "unknown"
	}
}

// TaskState is the checkbox state of a list item.
type TaskState uint8

const (
	TaskNone TaskState = iota
	TaskOpen
	TaskDone
)

// Item is one list item.
type Item struct {
	Start, End int
	// Marker is the bullet or the number with its delimiter.
	Marker  string
	Ordered bool
	// Indent is the nesting depth, 0 for top-level items.
	Indent int
	Task   TaskState
	Text   []Span
}

// TableRow is one table row and the source line it came from.
type TableRow struct {
	Line  int
	Cells [][]Span
}

// Block is one block-level element with its 1-indexed source lines.
type Block struct {
	Kind       BlockKind
	Start, End int

	// Level is the heading level.
	Level int
	// Lang is the fenced code language.
	Lang string
	// Text holds the styled text of paragraphs, headings and quotes.
	Text []Span
	// Lines holds code and HTML body lines.
	Lines []string
	// Fenced reports a fenced rather than an indented code block.
	Fenced bool
	// Closed reports whether a code fence has its closing line.
	Closed bool
	// Rows holds table rows. Rows[0] is the header.
	Rows []TableRow
	// Items holds list items, nested ones flattened with their Indent.
	Items []Item
}

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.TaskList,
		extension.Strikethrough,
	),
)

// Parse splits Markdown source into blocks with the GFM table and task
// list extensions.
func Parse(src string) []Block {
	source := []byte(strings.ReplaceAll(src, "\r\n", "\n"))
	doc := markdown.Parser().Parse(text.NewReader(source))

	c := newConverter(source)
	var nodes []ast.Node
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		nodes = append(nodes, n)
	}

	blocks := make([]Block, 0, len(nodes))
	starts := c.starts(nodes, 0)
	for i, n := range nodes {
		limit := c.lineCount()
		if i+1 < len(nodes) {
			limit = starts[i+1] - 1
		}
		blocks = append(blocks, c.block(n, starts[i], c.lastNonBlank(starts[i], limit)))
	}
	return blocks
}

// converter maps goldmark nodes to blocks. goldmark records byte segments
// for leaf content only, so container extents are derived from their
// content lines and the blank lines around them.
type converter struct {
	source     []byte
	lines      []string
	lineStarts []int
}

func newConverter(source []byte) *converter {
	c := &converter{source: source, lineStarts: []int{0}}
	for i, b := range source {
		if b == '\n' && i+1 < len(source) {
			c.lineStarts = append(c.lineStarts, i+1)
		}
	}
	if len(source) > 0 {
		c.lines = strings.Split(strings.TrimSuffix(string(source), "\n"), "\n")
	}
	return c
}

func (c *converter) lineCount() int {
	return len(c.lines)
}

// lineOf returns the 1-indexed line holding byte offset off.
func (c *converter) lineOf(off int) int {
	return sort.SearchInts(c.lineStarts, off+1)
}

func (c *converter) blank(line int) bool {
	return line < 1 || line > len(c.lines) || strings.TrimSpace(c.lines[line-1]) == ""
}

func (c *converter) lastNonBlank(start, limit int) int {
	for l := limit; l > start; l-- {
		if !c.blank(l) {
			return l
		}
	}
	return start
}

func (c *converter) nextNonBlank(after int) int {
	l := after + 1
	for l <= len(c.lines) && c.blank(l) {
		l++
	}
	return l
}

// firstLine returns the first source line with content in n's subtree.
func (c *converter) firstLine(n ast.Node) (int, bool) {
	if n.Type() == ast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			line := c.lineOf(lines.At(0).Start)
			if _, fenced := n.(*ast.FencedCodeBlock); fenced {
				line--
			}
			return line, true
		}
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if child.Type() != ast.TypeBlock {
			continue
		}
		if line, ok := c.firstLine(child); ok {
			return line, true
		}
	}
	return 0, false
}

// lastLine returns the last source line with content in n's subtree.
func (c *converter) lastLine(n ast.Node) (int, bool) {
	last, found := 0, false
	if n.Type() == ast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			last, found = c.lineOf(lines.At(lines.Len()-1).Start), true
		}
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if child.Type() != ast.TypeBlock {
			continue
		}
		if line, ok := c.lastLine(child); ok && line > last {
			last, found = line, true
		}
	}
	return last, found
}

// starts returns the first line of each sibling. Nodes without recorded
// content, such as thematic breaks, start at the first non-blank line after
// their predecessor's content.
func (c *converter) starts(nodes []ast.Node, after int) []int {
	out := make([]int, len(nodes))
	prev := after
	for i, n := range nodes {
		line, ok := c.firstLine(n)
		if !ok || line <= prev {
			line = c.nextNonBlank(prev)
		}
		out[i] = line
		prev = line
		if last, ok := c.lastLine(n); ok && last > prev {
			prev = last
		}
		switch n := n.(type) {
		case *ast.FencedCodeBlock:
			if c.fenceClosed(n, line) {
				prev = c.closingLine(n, line)
			}
		case *ast.Heading:
			if line <= len(c.lines) && !strings.HasPrefix(strings.TrimSpace(c.lines[line-1]), "#") {
				prev++ // setext underline
			}
		}
	}
	return out
}

func (c *converter) block(n ast.Node, start, end int) Block {
	b := Block{Kind: BlockParagraph, Start: start, End: end}
	switch n := n.(type) {
	case *ast.Heading:
		b.Kind = BlockHeading
		b.Level = n.Level
		b.Text = c.spans(n, RoleHeading)
	case *ast.FencedCodeBlock:
		b.Kind = BlockCode
		b.Fenced = true
		b.Lang = string(n.Language(c.source))
		b.Lines = c.bodyLines(n)
		b.Closed = c.fenceClosed(n, start)
		if b.Closed {
			b.End = c.closingLine(n, start)
		} else {
			b.Lines = trimBlankTail(b.Lines)
		}
	case *ast.CodeBlock:
		b.Kind = BlockCode
		b.Lines = trimBlankTail(c.bodyLines(n))
	case *ast.HTMLBlock:
		b.Kind = BlockHTML
		b.Lines = c.bodyLines(n)
		if n.HasClosure() {
			b.Lines = append(b.Lines, strings.TrimRight(string(n.ClosureLine.Value(c.source)), "\n"))
		}
	case *ast.ThematicBreak:
		b.Kind = BlockRule
	case *ast.Blockquote:
		b.Kind = BlockQuote
		b.Text = c.flowText(n, RoleQuote)
	case *ast.List:
		b.Kind = BlockList
		b.Items = c.items(n, 0, nil)
		c.closeItems(b.Items, end)
	case *extast.Table:
		b.Kind = BlockTable
		b.Rows = c.tableRows(n, start)
	default:
		b.Text = c.flowText(n, RoleText)
	}
	return b
}

// bodyLines returns a leaf block's lines without their newlines.
func (c *converter) bodyLines(n ast.Node) []string {
	lines := n.Lines()
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(c.source)), "\n")
		if seg.Padding > 0 {
			line = strings.Repeat(" ", seg.Padding) + line
		}
		out = append(out, line)
	}
	return out
}

func (c *converter) fenceLine(n *ast.FencedCodeBlock, start int) int {
	line := start + 1
	if lines := n.Lines(); lines.Len() > 0 {
		line = c.lineOf(lines.At(lines.Len()-1).Start) + 1
	}
	return line
}

// fenceClosed reports whether the line after the body closes the fence
// opened on line start.
func (c *converter) fenceClosed(n *ast.FencedCodeBlock, start int) bool {
	if start < 1 || start > len(c.lines) {
		return false
	}
	open := strings.TrimLeft(c.lines[start-1], " ")
	if open == "" || (open[0] != '`' && open[0] != '~') {
		return false
	}
	marker := open[:len(open)-len(strings.TrimLeft(open, open[:1]))]

	line := c.fenceLine(n, start)
	if line > len(c.lines) {
		return false
	}
	closing := strings.TrimSpace(c.lines[line-1])
	return strings.HasPrefix(closing, marker) && strings.Trim(closing, open[:1]) == ""
}

func (c *converter) closingLine(n *ast.FencedCodeBlock, start int) int {
	return c.fenceLine(n, start)
}

// items flattens a list and its nested lists in document order.
func (c *converter) items(list *ast.List, indent int, out []Item) []Item {
	number := list.Start
	for n := list.FirstChild(); n != nil; n = n.NextSibling() {
		li, ok := n.(*ast.ListItem)
		if !ok {
			continue
		}
		item := Item{Indent: indent, Ordered: list.IsOrdered(), Marker: string(list.Marker)}
		if item.Ordered {
			item.Marker = strconv.Itoa(number) + string(list.Marker)
			number++
		}
		prev := 0
		if len(out) > 0 {
			prev = out[len(out)-1].Start
		}
		if line, ok := c.firstLine(li); ok && line > prev {
			item.Start = line
		} else {
			item.Start = c.nextNonBlank(prev)
		}

		var nested []*ast.List
		for child := li.FirstChild(); child != nil; child = child.NextSibling() {
			if sub, ok := child.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			if item.Task == TaskNone && len(item.Text) == 0 {
				item.Task = taskState(child)
			}
			if spans := c.flowText(child, RoleText); len(spans) > 0 {
				if len(item.Text) > 0 {
					item.Text = append(item.Text, Span{Text: " "})
				}
				item.Text = appendSpans(item.Text, spans...)
			}
		}
		if item.Task != TaskNone {
			item.Text = trimLeadingSpace(item.Text)
		}

		out = append(out, item)
		for _, sub := range nested {
			out = c.items(sub, indent+1, out)
		}
	}
	return out
}

// closeItems ends each item before the next one starts, or at the end of
// the list.
func (c *converter) closeItems(items []Item, end int) {
	for i := range items {
		limit := end
		if i+1 < len(items) {
			limit = items[i+1].Start - 1
		}
		items[i].End = c.lastNonBlank(items[i].Start, limit)
	}
}

func taskState(n ast.Node) TaskState {
	first := n.FirstChild()
	if first == nil {
		return TaskNone
	}
	box, ok := first.(*extast.TaskCheckBox)
	if !ok {
		return TaskNone
	}
	if box.IsChecked {
		return TaskDone
	}
	return TaskOpen
}

func (c *converter) tableRows(table *extast.Table, start int) []TableRow {
	var rows []TableRow
	for n := table.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.(type) {
		case *extast.TableHeader, *extast.TableRow:
		default:
			continue
		}
		row := TableRow{Line: start + len(rows)}
		if len(rows) > 0 {
			row.Line++
		}
		if line, ok := c.firstLine(n); ok {
			row.Line = line
		}
		for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
			row.Cells = append(row.Cells, c.spans(cell, RoleText))
		}
		rows = append(rows, row)
	}
	return rows
}

// flowText joins the inline content of every leaf block under n.
func (c *converter) flowText(n ast.Node, base Role) []Span {
	switch n.(type) {
	case *ast.Heading:
		return c.spans(n, RoleHeading)
	case *ast.Paragraph, *ast.TextBlock:
		return c.spans(n, base)
	}
	var out []Span
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		spans := c.flowText(child, base)
		if len(spans) == 0 {
			continue
		}
		if len(out) > 0 {
			out = append(out, Span{Text: " ", Role: base})
		}
		out = appendSpans(out, spans...)
	}
	return out
}

func trimBlankTail(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func trimLeadingSpace(spans []Span) []Span {
	for len(spans) > 0 {
		spans[0].Text = strings.TrimLeft(spans[0].Text, " \t")
		if spans[0].Text != "" {
			break
		}
		spans = spans[1:]
	}
	return spans
}
