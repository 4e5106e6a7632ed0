package sourcepos

import (
	"math"

	"github.com/dshills/redmargin/internal/changeset"
)

// Category is the kind of change a marker shows.
type Category uint8

const (
	CategoryAdded Category = iota
	CategoryModified
	CategoryDeleted
)

// String returns the category name used on the rendering boundary.
func (c Category) String() string {
	switch c {
	case CategoryAdded:
		return "added"
	case CategoryModified:
		return "modified"
	case CategoryDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Marker is one gutter marker. Top is relative to the origin passed to
// Project. Deleted markers have no height; how tall to draw them is the
// consumer's choice.
type Marker struct {
	Top      float64
	Height   float64
	Category Category
	// Line is the first source line of the marked node, or the anchor
	// line for a deletion.
	Line int
}

// Project turns a ChangeSet into markers over the indexed boxes.
//
// Every box overlapping an added or modified range gets a marker covering
// the whole box. A deletion anchor is placed on the box at or after it.
// Deletion markers that round to the same top are drawn once. Added markers
// come first, then modified, then deleted.
func Project(idx *Index, cs changeset.ChangeSet, originTop float64) []Marker {
	if idx == nil || idx.Len() == 0 || cs.IsEmpty() {
		return nil
	}

	var markers []Marker
	ranges := func(rs []changeset.Range, cat Category) {
		for _, r := range rs {
			for _, e := range idx.Query(r.Start, r.End) {
				box := e.Node.Box()
				markers = append(markers, Marker{
					Top:      box.Top - originTop,
					Height:   box.Height,
					Category: cat,
					Line:     e.Start,
				})
			}
		}
	}
	ranges(cs.Added(), CategoryAdded)
	ranges(cs.Modified(), CategoryModified)

	seen := make(map[float64]bool)
	for _, anchor := range cs.Deleted() {
		e, ok := idx.FindAtOrAfter(anchor)
		if !ok {
			continue
		}
		top := e.Node.Box().Top - originTop
		key := math.Round(top)
		if seen[key] {
			continue
		}
		seen[key] = true
		markers = append(markers, Marker{Top: top, Category: CategoryDeleted, Line: anchor})
	}
	return markers
}
