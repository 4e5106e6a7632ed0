// Package changeset holds the line-level description of how a working file
// differs from its reference revision.
//
// A ChangeSet is immutable once built. Every reconciliation pass creates a
// fresh value and callers compare values with Equal to suppress redundant
// re-rendering.
package changeset

import (
	"fmt"
	"slices"
)

// Range is a closed, 1-indexed span of lines.
type Range struct {
	Start int
	End   int
}

// Len returns the number of lines covered by the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether line lies within the range.
func (r Range) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// Overlaps reports whether two closed ranges share at least one line.
func (r Range) Overlaps(o Range) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// String formats the range as "start-end".
func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ChangeSet is the result of comparing one file against its reference
// revision at one point in time.
type ChangeSet struct {
	added     []Range
	modified  []Range
	deleted   []int
	untracked bool
}

// Empty returns a ChangeSet describing "no differences".
func Empty() ChangeSet {
	return ChangeSet{}
}

// Untracked returns the ChangeSet for a file the repository does not track:
// every line counts as added.
func Untracked(lineCount int) ChangeSet {
	cs := ChangeSet{untracked: true}
	if lineCount > 0 {
		cs.added = []Range{{Start: 1, End: lineCount}}
	}
	return cs
}

// New builds a tracked ChangeSet. Range lists are sorted and merged so that
// entries are disjoint and ascending regardless of input order; anchors are
// sorted and deduplicated. Ranges with End < Start are dropped.
func New(added, modified []Range, deleted []int) ChangeSet {
	return ChangeSet{
		added:    normalizeRanges(added),
		modified: normalizeRanges(modified),
		deleted:  normalizeAnchors(deleted),
	}
}

// Added returns the ranges of lines that are new.
func (c ChangeSet) Added() []Range {
	return slices.Clone(c.added)
}

// Modified returns the ranges of lines that replace prior content.
func (c ChangeSet) Modified() []Range {
	return slices.Clone(c.modified)
}

// Deleted returns the anchor lines that immediately follow a deletion.
func (c ChangeSet) Deleted() []int {
	return slices.Clone(c.deleted)
}

// IsUntracked reports whether the file is not tracked by the repository.
func (c ChangeSet) IsUntracked() bool {
	return c.untracked
}

// IsEmpty reports whether the ChangeSet carries no markers at all.
func (c ChangeSet) IsEmpty() bool {
	return len(c.added) == 0 && len(c.modified) == 0 && len(c.deleted) == 0
}

// ChangedLines returns the number of lines covered by added and modified ranges.
func (c ChangeSet) ChangedLines() int {
	n := 0
	for _, r := range c.added {
		n += r.Len()
	}
	for _, r := range c.modified {
		n += r.Len()
	}
	return n
}

// Equal compares two ChangeSets by value. Nil and empty lists are equal.
func (c ChangeSet) Equal(o ChangeSet) bool {
	return c.untracked == o.untracked &&
		slices.Equal(c.added, o.added) &&
		slices.Equal(c.modified, o.modified) &&
		slices.Equal(c.deleted, o.deleted)
}

// String returns a compact description for logs.
func (c ChangeSet) String() string {
	return fmt.Sprintf("added=%v modified=%v deleted=%v untracked=%t",
		c.added, c.modified, c.deleted, c.untracked)
}

func normalizeRanges(in []Range) []Range {
	rs := make([]Range, 0, len(in))
	for _, r := range in {
		if r.End >= r.Start {
			rs = append(rs, r)
		}
	}
	if len(rs) == 0 {
		return nil
	}

	slices.SortFunc(rs, func(a, b Range) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.End - b.End
	})

	out := rs[:1]
	for _, r := range rs[1:] {
		last := &out[len(out)-1]
		// Adjacent ranges merge as well; [1,2] and [3,4] describe one span.
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

func normalizeAnchors(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
