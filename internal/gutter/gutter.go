// Package gutter renders the column to the left of a laid-out document.
// The gutter shows change markers and source line numbers, both already
// projected onto rows by the sourcepos package.
package gutter

import (
	"math"
	"strconv"
	"sync"

	"github.com/dshills/redmargin/internal/sourcepos"
)

// Config holds gutter configuration.
type Config struct {
	// ShowLineNumbers enables line number display.
	ShowLineNumbers bool

	// ShowMarkers enables the change marker column.
	ShowMarkers bool

	// MinLineNumberWidth is the minimum width for line numbers.
	MinLineNumberWidth int
}

// DefaultConfig returns the default gutter configuration.
func DefaultConfig() Config {
	return Config{
		ShowLineNumbers:    true,
		ShowMarkers:        true,
		MinLineNumberWidth: 3,
	}
}

// CellStyle describes how to style a gutter cell.
type CellStyle uint8

const (
	StyleNormal CellStyle = iota
	StyleDim
	StyleAdded
	StyleModified
	StyleDeleted
)

// Cell represents a single gutter cell.
type Cell struct {
	Rune  rune
	Style CellStyle
}

// Gutter holds the markers and labels for one layout and renders them
// row by row.
type Gutter struct {
	mu sync.RWMutex

	config Config
	width  int

	markers map[int]sourcepos.Category
	labels  map[int]int
	maxLine int
}

// New creates a new gutter with the given configuration.
func New(config Config) *Gutter {
	g := &Gutter{config: config}
	g.width = g.calculateWidth()
	return g
}

// Width returns the current gutter width, separator included.
func (g *Gutter) Width() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.width
}

// Config returns the current configuration.
func (g *Gutter) Config() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.config
}

// SetConfig updates the gutter configuration.
func (g *Gutter) SetConfig(config Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.config = config
	g.width = g.calculateWidth()
}

// SetMarkers replaces the change markers. Marker tops and heights are in
// rows. Added and modified markers cover every row their box touches, at
// least one. A deleted marker occupies the row its top rounds to. When
// markers share a row the most important category wins.
func (g *Gutter) SetMarkers(markers []sourcepos.Marker) {
	rows := make(map[int]sourcepos.Category)
	for _, m := range markers {
		first := int(math.Round(m.Top))
		last := first
		if m.Category != sourcepos.CategoryDeleted {
			last = max(first, int(math.Round(m.Top+m.Height))-1)
		}
		for row := first; row <= last; row++ {
			if cur, ok := rows[row]; !ok || priority(m.Category) > priority(cur) {
				rows[row] = m.Category
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.markers = rows
}

// SetLabels replaces the line labels. Each label is drawn on the row its
// top rounds to; when several round to the same row the lowest line is
// shown.
func (g *Gutter) SetLabels(labels []sourcepos.Label) {
	rows := make(map[int]int)
	maxLine := 0
	for _, l := range labels {
		row := int(math.Round(l.Top))
		if cur, ok := rows[row]; !ok || l.Line < cur {
			rows[row] = l.Line
		}
		maxLine = max(maxLine, l.Line)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.labels = rows
	g.maxLine = maxLine
	g.width = g.calculateWidth()
}

// MarkerAt returns the marker category shown on a row.
func (g *Gutter) MarkerAt(row int) (sourcepos.Category, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.markers[row]
	return c, ok
}

// LineAt returns the source line labelled on a row.
func (g *Gutter) LineAt(row int) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	line, ok := g.labels[row]
	return line, ok
}

// RenderRow renders the gutter for one document row.
func (g *Gutter) RenderRow(row int) []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.width == 0 {
		return nil
	}

	cells := make([]Cell, g.width)
	for i := range cells {
		cells[i] = Cell{Rune: ' ', Style: StyleNormal}
	}

	col := 0
	if g.config.ShowMarkers {
		if cat, ok := g.markers[row]; ok {
			cells[col] = markerCell(cat)
		}
		col++
	}

	if g.config.ShowLineNumbers {
		numWidth := g.lineNumberWidth()
		if line, ok := g.labels[row]; ok {
			num := PadLeft(strconv.Itoa(line), numWidth)
			for _, r := range num {
				cells[col] = Cell{Rune: r, Style: StyleDim}
				col++
			}
		}
	}

	return cells
}

func (g *Gutter) lineNumberWidth() int {
	return max(countDigits(g.maxLine), g.config.MinLineNumberWidth)
}

func (g *Gutter) calculateWidth() int {
	width := 0
	if g.config.ShowMarkers {
		width++
	}
	if g.config.ShowLineNumbers {
		width += g.lineNumberWidth()
	}

	// Add separator
	if width > 0 {
		width++
	}
	return width
}

// countDigits returns the number of digits needed to display a number.
func countDigits(n int) int {
	digits := 1
	for n >= 10 {
		digits++
		n /= 10
	}
	return digits
}

// PadLeft pads a string with spaces on the left to the specified width.
func PadLeft(s string, width int) string {
	for len(s) < width {
		s = " " + s
	}
	return s
}

// priority returns the importance of a category (higher = more important).
func priority(c sourcepos.Category) int {
	switch c {
	case sourcepos.CategoryDeleted:
		return 50
	case sourcepos.CategoryModified:
		return 40
	case sourcepos.CategoryAdded:
		return 30
	default:
		return 0
	}
}

func markerCell(c sourcepos.Category) Cell {
	switch c {
	case sourcepos.CategoryAdded:
		return Cell{Rune: '+', Style: StyleAdded}
	case sourcepos.CategoryModified:
		return Cell{Rune: '~', Style: StyleModified}
	case sourcepos.CategoryDeleted:
		return Cell{Rune: '-', Style: StyleDeleted}
	default:
		return Cell{Rune: ' ', Style: StyleNormal}
	}
}
