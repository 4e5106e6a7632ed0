// Package sourcepos maps source line ranges onto the visual boxes of a
// rendered document.
//
// A renderer hands over a tree of block nodes, each tagged with the source
// lines that produced it ("start:col-end:col", 1-indexed). The Index built
// from that tree answers which boxes cover a line range, and Project turns a
// ChangeSet into gutter markers. LineLabels places a line number next to
// every source line, including lines that produced no box of their own.
package sourcepos

import (
	"regexp"
	"slices"
	"strconv"
)

// Kind classifies a rendered node for line decomposition.
type Kind uint8

const (
	// KindBlock is any block without special line handling.
	KindBlock Kind = iota
	// KindTable is a table. Its rows are KindTableRow descendants.
	KindTable
	// KindTableRow is one table row, header or body.
	KindTableRow
	// KindCode is a code block showing one visual row band per source line.
	KindCode
	// KindList is a list. Its direct KindListItem children claim one source
	// line each.
	KindList
	// KindListItem is one list item.
	KindListItem
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindTable:
		return "table"
	case KindTableRow:
		return "table-row"
	case KindCode:
		return "code"
	case KindList:
		return "list"
	case KindListItem:
		return "list-item"
	default:
		return "unknown"
	}
}

// Box is the vertical extent of a rendered node in the renderer's units.
type Box struct {
	Top    float64
	Height float64
}

// Bottom returns Top + Height.
func (b Box) Bottom() float64 {
	return b.Top + b.Height
}

// Node is one element of a rendered tree.
type Node interface {
	Kind() Kind
	// Sourcepos returns the source position tag, or "" when untagged.
	Sourcepos() string
	Box() Box
	Children() []Node
}

var sourceposPattern = regexp.MustCompile(`^(\d+):\d+-(\d+):\d+$`)

// ParseSourcepos parses a "startLine:col-endLine:col" tag. Columns are
// ignored. Tags with a zero start line, an end before the start, or numbers
// that do not fit an int are rejected.
func ParseSourcepos(tag string) (start, end int, ok bool) {
	m := sourceposPattern.FindStringSubmatch(tag)
	if m == nil {
		return 0, 0, false
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	if start < 1 || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// Entry is a tagged node with its source line span.
type Entry struct {
	Node  Node
	Start int
	End   int
}

// Overlaps reports whether the entry shares at least one line with the
// closed range [start, end].
func (e Entry) Overlaps(start, end int) bool {
	return e.Start <= end && start <= e.End
}

// Index holds the tagged nodes of one rendered tree ordered by start line.
// It is rebuilt on every render and is not safe for concurrent mutation,
// but queries may run concurrently.
type Index struct {
	entries []Entry
}

// Build walks root depth-first and indexes every node with a valid tag.
// Entries with equal start lines keep document order.
func Build(root Node) *Index {
	idx := &Index{}
	if root == nil {
		return idx
	}
	walk(root, func(n Node) {
		if start, end, ok := ParseSourcepos(n.Sourcepos()); ok {
			idx.entries = append(idx.entries, Entry{Node: n, Start: start, End: end})
		}
	})
	slices.SortStableFunc(idx.entries, func(a, b Entry) int {
		return a.Start - b.Start
	})
	return idx
}

// walk visits n and its descendants in document order.
func walk(n Node, visit func(Node)) {
	visit(n)
	for _, c := range n.Children() {
		if c != nil {
			walk(c, visit)
		}
	}
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns a copy of all entries.
func (idx *Index) Entries() []Entry {
	return slices.Clone(idx.entries)
}

// Query returns the entries overlapping the closed range [start, end].
// An entry touching the range at a single boundary line counts.
func (idx *Index) Query(start, end int) []Entry {
	var out []Entry
	for _, e := range idx.entries {
		if e.Start > end {
			break
		}
		if e.Overlaps(start, end) {
			out = append(out, e)
		}
	}
	return out
}

// FindAtOrAfter returns the first entry starting at or after line. When no
// entry does, the last entry is returned. It reports false only for an
// empty index.
func (idx *Index) FindAtOrAfter(line int) (Entry, bool) {
	if len(idx.entries) == 0 {
		return Entry{}, false
	}
	i, _ := slices.BinarySearchFunc(idx.entries, line, func(e Entry, line int) int {
		return e.Start - line
	})
	if i < len(idx.entries) {
		return idx.entries[i], true
	}
	return idx.entries[len(idx.entries)-1], true
}
