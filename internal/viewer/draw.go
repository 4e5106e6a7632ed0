package viewer

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/redmargin/internal/gutter"
	"github.com/dshills/redmargin/internal/layout"
)

// Surface is the part of tcell.Screen the view draws on.
type Surface interface {
	Size() (width, height int)
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
}

var (
	styleStatus      = tcell.StyleDefault.Reverse(true)
	styleStatusError = tcell.StyleDefault.Background(tcell.ColorMaroon).Foreground(tcell.ColorWhite)
	styleMatch       = tcell.StyleDefault.Background(tcell.ColorOlive).Foreground(tcell.ColorBlack)
	styleMatchActive = tcell.StyleDefault.Background(tcell.ColorOrange).Foreground(tcell.ColorBlack)
)

// Draw renders the visible rows, their gutter and the status line.
func (v *View) Draw(s Surface) {
	width, height := s.Size()
	for y := range height {
		for x := range width {
			s.SetContent(x, y, ' ', nil, tcell.StyleDefault)
		}
	}

	body := min(v.bodyHeight(), height)
	for y := range body {
		row := v.offset + y
		x := 0
		for _, c := range v.gutter.RenderRow(row) {
			if x >= width {
				break
			}
			s.SetContent(x, y, c.Rune, nil, gutterStyle(c.Style))
			x++
		}
		if row < len(v.doc.Rows) {
			v.drawRow(s, x, y, width, row)
		}
	}

	if height > 0 {
		v.drawStatus(s, height-1, width)
	}
}

func (v *View) drawStatus(s Surface, y, width int) {
	style := styleStatus
	if v.statusErr {
		style = styleStatusError
	}
	for x := range width {
		s.SetContent(x, y, ' ', nil, style)
	}

	left, right := v.statusText()
	drawText(s, 1, y, width, left, style)
	if rw := uniseg.StringWidth(right); rw > 0 && rw+2 < width {
		drawText(s, width-rw-1, y, width, right, style)
	}
}

// drawRow draws a document row from x. Cells inside a search match take
// the match style.
func (v *View) drawRow(s Surface, x, y, maxX, row int) {
	col := 0
	for _, span := range v.doc.Rows[row] {
		style := spanStyle(span)
		g := uniseg.NewGraphemes(span.Text)
		for g.Next() {
			w := g.Width()
			if w == 0 {
				continue
			}
			if x+w > maxX {
				return
			}
			cell := style
			if hit, current := v.matchAt(row, col); current {
				cell = styleMatchActive
			} else if hit {
				cell = styleMatch
			}
			runes := g.Runes()
			s.SetContent(x, y, runes[0], runes[1:], cell)
			x += w
			col += w
		}
	}
}

// drawText draws text from x, one grapheme cluster per cell run, and
// returns the column after it. Clusters that would cross maxX are dropped.
func drawText(s Surface, x, y, maxX int, text string, style tcell.Style) int {
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		w := g.Width()
		if w == 0 {
			continue
		}
		if x+w > maxX {
			break
		}
		runes := g.Runes()
		s.SetContent(x, y, runes[0], runes[1:], style)
		x += w
	}
	return x
}

func spanStyle(span layout.Span) tcell.Style {
	style := tcell.StyleDefault
	switch span.Role {
	case layout.RoleHeading:
		style = style.Foreground(tcell.ColorTeal).Bold(true)
	case layout.RoleStrong, layout.RoleTableHeader:
		style = style.Bold(true)
	case layout.RoleEmphasis:
		style = style.Italic(true)
	case layout.RoleCode:
		style = style.Foreground(tcell.ColorOlive)
	case layout.RoleLink:
		style = style.Foreground(tcell.ColorBlue).Underline(true)
	case layout.RoleMarkup:
		style = style.Dim(true)
	case layout.RoleQuote:
		style = style.Italic(true).Dim(true)
	}
	if span.Color != "" {
		style = style.Foreground(tcell.GetColor(span.Color))
	}
	if span.Bold {
		style = style.Bold(true)
	}
	return style
}

func gutterStyle(cs gutter.CellStyle) tcell.Style {
	switch cs {
	case gutter.StyleDim:
		return tcell.StyleDefault.Dim(true)
	case gutter.StyleAdded:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	case gutter.StyleModified:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	case gutter.StyleDeleted:
		return tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	default:
		return tcell.StyleDefault
	}
}
