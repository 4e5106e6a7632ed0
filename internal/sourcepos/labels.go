package sourcepos

import (
	"maps"
	"slices"
)

// LabelOptions tune line-number placement.
type LabelOptions struct {
	// OriginTop is subtracted from every box top.
	OriginTop float64

	// VerticalOffset is added to every label, e.g. to align numbers with
	// a text baseline.
	VerticalOffset float64

	// TableRowOffset is added to table row positions to account for cell
	// padding.
	TableRowOffset float64
}

// Label is a line number and where to draw it.
type Label struct {
	Top  float64
	Line int
}

// LineLabels returns one label per source line from the first tagged line
// to the last, sorted by line.
//
// Nodes are visited in document order and a later node overrides the
// position an earlier one recorded for the same line. Tables, code blocks
// and lists are decomposed into per-line positions. Lines still missing a
// position afterwards are interpolated linearly between the nearest known
// lines above and below.
func LineLabels(root Node, opts LabelOptions) []Label {
	if root == nil {
		return nil
	}

	pos := make(map[int]float64)
	walk(root, func(n Node) {
		start, end, ok := ParseSourcepos(n.Sourcepos())
		if !ok {
			return
		}
		switch n.Kind() {
		case KindTable:
			tableLines(pos, n, start, opts)
		case KindCode:
			codeLines(pos, n, start, end, opts)
		case KindList:
			listLines(pos, n, start, opts)
		default:
			pos[start] = n.Box().Top - opts.OriginTop
		}
	})

	fillGaps(pos)

	lines := slices.Sorted(maps.Keys(pos))
	labels := make([]Label, len(lines))
	for i, line := range lines {
		labels[i] = Label{Top: pos[line] + opts.VerticalOffset, Line: line}
	}
	return labels
}

// tableLines records the header row, the separator line below it, then one
// line per body row.
func tableLines(pos map[int]float64, table Node, start int, opts LabelOptions) {
	line := start
	for i, row := range tableRows(table) {
		box := row.Box()
		top := box.Top - opts.OriginTop + opts.TableRowOffset
		pos[line] = top
		if i == 0 {
			pos[line+1] = top + box.Height/2
			line += 2
			continue
		}
		line++
	}
}

// tableRows collects row descendants in document order.
func tableRows(table Node) []Node {
	var rows []Node
	var collect func(Node)
	collect = func(n Node) {
		for _, c := range n.Children() {
			if c == nil {
				continue
			}
			if c.Kind() == KindTableRow {
				rows = append(rows, c)
				continue
			}
			collect(c)
		}
	}
	collect(table)
	return rows
}

// codeLines splits the box into equal bands, one per source line.
func codeLines(pos map[int]float64, code Node, start, end int, opts LabelOptions) {
	box := code.Box()
	count := end - start + 1
	band := box.Height / float64(count)
	top := box.Top - opts.OriginTop
	for i := range count {
		pos[start+i] = top + float64(i)*band
	}
}

// listLines gives each direct item one source line.
func listLines(pos map[int]float64, list Node, start int, opts LabelOptions) {
	line := start
	for _, item := range list.Children() {
		if item == nil || item.Kind() != KindListItem {
			continue
		}
		pos[line] = item.Box().Top - opts.OriginTop
		line++
	}
}

// fillGaps interpolates every missing line between two known ones.
func fillGaps(pos map[int]float64) {
	if len(pos) < 2 {
		return
	}
	lines := slices.Sorted(maps.Keys(pos))
	for i := 0; i < len(lines)-1; i++ {
		cur, next := lines[i], lines[i+1]
		gap := next - cur
		if gap <= 1 {
			continue
		}
		step := (pos[next] - pos[cur]) / float64(gap)
		for j := 1; j < gap; j++ {
			pos[cur+j] = pos[cur] + float64(j)*step
		}
	}
}
