package viewer

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// match is one search hit in display columns of a laid-out row.
type match struct {
	row, col, width int
}

func (m match) covers(row, col int) bool {
	return row == m.row && col >= m.col && col < m.col+m.width
}

// search is the find-in-document state. Matching is case-insensitive and
// runs over the rendered rows, so markup the layout hides is not found.
type search struct {
	editing bool
	input   string

	query   string
	matches []match
	current int
}

// StartSearch opens the search prompt.
func (v *View) StartSearch() {
	v.search.editing = true
	v.search.input = ""
}

// Searching reports whether the search prompt is open.
func (v *View) Searching() bool {
	return v.search.editing
}

// Find searches the document for query and moves to the first match at or
// below the top visible row, wrapping to the start of the document. An
// empty query clears the search. It reports whether anything matched.
func (v *View) Find(query string) bool {
	v.search.editing = false
	v.search.query = query
	v.search.matches = v.findMatches(query)
	v.search.current = 0
	if query == "" {
		v.SetStatus("", false)
		return false
	}
	if len(v.search.matches) == 0 {
		v.SetStatus("not found: "+query, true)
		return false
	}

	wrapped := true
	for i, m := range v.search.matches {
		if m.row >= v.offset {
			v.search.current = i
			wrapped = false
			break
		}
	}
	v.showMatch(wrapped)
	return true
}

// NextMatch moves to the next match, wrapping to the first.
func (v *View) NextMatch() bool {
	return v.stepMatch(1)
}

// PrevMatch moves to the previous match, wrapping to the last.
func (v *View) PrevMatch() bool {
	return v.stepMatch(-1)
}

// Matches returns the rows holding search matches, one entry per match.
func (v *View) Matches() []int {
	rows := make([]int, len(v.search.matches))
	for i, m := range v.search.matches {
		rows[i] = m.row
	}
	return rows
}

// CurrentMatch returns the index of the selected match, or -1 when there
// are no matches.
func (v *View) CurrentMatch() int {
	if len(v.search.matches) == 0 {
		return -1
	}
	return v.search.current
}

func (v *View) stepMatch(dir int) bool {
	n := len(v.search.matches)
	if n == 0 {
		return false
	}
	next := v.search.current + dir
	wrapped := next < 0 || next >= n
	v.search.current = (next + n) % n
	v.showMatch(wrapped)
	return true
}

// showMatch scrolls the selected match into view and reports its position.
func (v *View) showMatch(wrapped bool) {
	m := v.search.matches[v.search.current]
	if m.row < v.offset || m.row >= v.offset+v.bodyHeight() {
		v.offset = m.row
		v.clamp()
	}
	msg := fmt.Sprintf("/%s  %d/%d", v.search.query, v.search.current+1, len(v.search.matches))
	if wrapped {
		msg += "  wrapped"
	}
	v.SetStatus(msg, false)
}

// refreshMatches reruns the active search after the layout changed.
func (v *View) refreshMatches() {
	if v.search.query == "" {
		return
	}
	v.search.matches = v.findMatches(v.search.query)
	v.search.current = min(v.search.current, max(0, len(v.search.matches)-1))
}

func (v *View) findMatches(query string) []match {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	var out []match
	for row, r := range v.doc.Rows {
		text := strings.ToLower(r.Text())
		for from := 0; ; {
			i := strings.Index(text[from:], q)
			if i < 0 {
				break
			}
			start := from + i
			out = append(out, match{
				row:   row,
				col:   uniseg.StringWidth(text[:start]),
				width: uniseg.StringWidth(q),
			})
			from = start + len(q)
		}
	}
	return out
}

// matchAt reports whether the cell at col of row is inside a match and
// whether that match is the selected one.
func (v *View) matchAt(row, col int) (hit, current bool) {
	for i, m := range v.search.matches {
		if m.row > row {
			break
		}
		if m.covers(row, col) {
			return true, i == v.search.current
		}
	}
	return false, false
}
