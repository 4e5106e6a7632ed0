package sourcepos

import (
	"testing"

	"github.com/dshills/redmargin/internal/changeset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// node is a minimal rendered node for tests.
type node struct {
	kind     Kind
	pos      string
	box      Box
	children []Node
}

func (n *node) Kind() Kind        { return n.kind }
func (n *node) Sourcepos() string { return n.pos }
func (n *node) Box() Box          { return n.box }
func (n *node) Children() []Node  { return n.children }

func block(pos string, top, height float64, children ...Node) *node {
	return &node{kind: KindBlock, pos: pos, box: Box{Top: top, Height: height}, children: children}
}

func doc(children ...Node) *node {
	return &node{kind: KindBlock, children: children}
}

func TestParseSourcepos(t *testing.T) {
	tests := []struct {
		tag        string
		start, end int
		ok         bool
	}{
		{"1:0-5:0", 1, 5, true},
		{"12:3-12:40", 12, 12, true},
		{"", 0, 0, false},
		{"1-5", 0, 0, false},
		{"1:0-5:0 ", 0, 0, false},
		{"a:0-5:0", 0, 0, false},
		{"0:0-2:0", 0, 0, false},
		{"5:0-4:0", 0, 0, false},
		{"99999999999999999999:0-99999999999999999999:0", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			start, end, ok := ParseSourcepos(tt.tag)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestBuildSortsTaggedNodes(t *testing.T) {
	list := &node{kind: KindList, pos: "7:0-8:0", children: []Node{
		&node{kind: KindListItem, pos: "7:0-7:0"},
		&node{kind: KindListItem, pos: "8:0-8:0"},
	}}
	root := doc(
		block("3:0-4:0", 20, 10),
		block("1:0-1:0", 0, 10),
		block("bogus", 0, 0),
		list,
	)

	idx := Build(root)
	require.Equal(t, 5, idx.Len())

	var starts []int
	for _, e := range idx.Entries() {
		starts = append(starts, e.Start)
	}
	assert.Equal(t, []int{1, 3, 7, 7, 8}, starts)
	// equal starts keep document order
	assert.Same(t, list, idx.Entries()[2].Node)
}

func TestBuildNilRoot(t *testing.T) {
	idx := Build(nil)
	assert.Zero(t, idx.Len())
	_, ok := idx.FindAtOrAfter(1)
	assert.False(t, ok)
	assert.Empty(t, idx.Query(1, 10))
}

func TestEntriesIsACopy(t *testing.T) {
	idx := Build(doc(block("1:0-1:0", 0, 1)))
	entries := idx.Entries()
	entries[0].Start = 99
	assert.Equal(t, 1, idx.Entries()[0].Start)
}

func TestQueryOverlap(t *testing.T) {
	idx := Build(doc(
		block("1:0-5:0", 0, 50),
		block("8:0-12:0", 60, 50),
		block("14:0-14:0", 120, 10),
	))

	tests := []struct {
		name       string
		start, end int
		want       []int
	}{
		{"inside first", 2, 3, []int{1}},
		{"touching end", 5, 6, []int{1}},
		{"touching start", 6, 8, []int{8}},
		{"gap", 6, 7, nil},
		{"spanning", 4, 14, []int{1, 8, 14}},
		{"after all", 20, 30, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, e := range idx.Query(tt.start, tt.end) {
				got = append(got, e.Start)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindAtOrAfter(t *testing.T) {
	idx := Build(doc(
		block("1:0-5:0", 0, 50),
		block("8:0-12:0", 60, 50),
	))

	e, ok := idx.FindAtOrAfter(6)
	require.True(t, ok)
	assert.Equal(t, 8, e.Start)
	assert.Equal(t, 12, e.End)

	e, ok = idx.FindAtOrAfter(100)
	require.True(t, ok)
	assert.Equal(t, 8, e.Start, "falls back to the last entry")

	e, ok = idx.FindAtOrAfter(1)
	require.True(t, ok)
	assert.Equal(t, 1, e.Start)

	e, ok = idx.FindAtOrAfter(8)
	require.True(t, ok)
	assert.Equal(t, 8, e.Start)
}

func TestProject(t *testing.T) {
	idx := Build(doc(
		block("1:0-1:0", 100, 10),
		block("3:0-5:0", 120, 30),
		block("7:0-7:0", 160, 10),
		block("9:0-9:0", 180, 10),
	))

	cs := changeset.New(
		[]changeset.Range{{Start: 1, End: 1}},
		[]changeset.Range{{Start: 4, End: 7}},
		[]int{6, 7, 20},
	)
	markers := Project(idx, cs, 100)

	assert.Equal(t, []Marker{
		{Top: 0, Height: 10, Category: CategoryAdded, Line: 1},
		{Top: 20, Height: 30, Category: CategoryModified, Line: 3},
		{Top: 60, Height: 10, Category: CategoryModified, Line: 7},
		// anchors 6 and 7 land on the same box
		{Top: 60, Category: CategoryDeleted, Line: 6},
		// past the end: last box
		{Top: 80, Category: CategoryDeleted, Line: 20},
	}, markers)
}

func TestProjectTopOfFileDeletion(t *testing.T) {
	idx := Build(doc(
		block("1:0-2:0", 40, 20),
		block("4:0-4:0", 70, 10),
	))
	markers := Project(idx, changeset.New(nil, nil, []int{0}), 40)
	assert.Equal(t, []Marker{{Top: 0, Category: CategoryDeleted, Line: 0}}, markers)
}

func TestProjectUntrackedMarksEverything(t *testing.T) {
	idx := Build(doc(
		block("1:0-2:0", 0, 20),
		block("4:0-4:0", 30, 10),
	))
	markers := Project(idx, changeset.Untracked(4), 0)
	require.Len(t, markers, 2)
	for _, m := range markers {
		assert.Equal(t, CategoryAdded, m.Category)
	}
}

func TestProjectNothing(t *testing.T) {
	idx := Build(doc(block("1:0-1:0", 0, 10)))
	assert.Nil(t, Project(idx, changeset.Empty(), 0))
	assert.Nil(t, Project(Build(nil), changeset.Untracked(3), 0))
	assert.Nil(t, Project(nil, changeset.Untracked(3), 0))
}

func labelMap(labels []Label) map[int]float64 {
	m := make(map[int]float64, len(labels))
	for _, l := range labels {
		m[l.Line] = l.Top
	}
	return m
}

func TestLineLabelsInterpolatesGaps(t *testing.T) {
	root := doc(
		block("1:0-1:0", 0, 10),
		block("4:0-4:0", 30, 10),
	)
	labels := LineLabels(root, LabelOptions{})
	assert.Equal(t, []Label{
		{Top: 0, Line: 1},
		{Top: 10, Line: 2},
		{Top: 20, Line: 3},
		{Top: 30, Line: 4},
	}, labels)
}

func TestLineLabelsTable(t *testing.T) {
	table := &node{kind: KindTable, pos: "3:0-6:0", box: Box{Top: 10, Height: 40}, children: []Node{
		&node{kind: KindBlock, children: []Node{
			&node{kind: KindTableRow, box: Box{Top: 10, Height: 10}},
		}},
		&node{kind: KindBlock, children: []Node{
			&node{kind: KindTableRow, box: Box{Top: 20, Height: 10}},
			&node{kind: KindTableRow, box: Box{Top: 30, Height: 10}},
		}},
	}}
	labels := labelMap(LineLabels(doc(table), LabelOptions{TableRowOffset: 2}))

	assert.Equal(t, map[int]float64{
		3: 12, // header
		4: 17, // separator, header middle
		5: 22,
		6: 32,
	}, labels)
}

func TestLineLabelsCodeBands(t *testing.T) {
	code := &node{kind: KindCode, pos: "2:0-5:0", box: Box{Top: 10, Height: 40}}
	labels := labelMap(LineLabels(doc(block("1:0-1:0", 0, 10), code), LabelOptions{}))
	assert.Equal(t, map[int]float64{1: 0, 2: 10, 3: 20, 4: 30, 5: 40}, labels)
}

func TestLineLabelsList(t *testing.T) {
	list := &node{kind: KindList, pos: "1:0-3:0", box: Box{Top: 0, Height: 30}, children: []Node{
		&node{kind: KindListItem, box: Box{Top: 0, Height: 10}},
		&node{kind: KindListItem, box: Box{Top: 12, Height: 10}},
		&node{kind: KindBlock, box: Box{Top: 99, Height: 1}},
		&node{kind: KindListItem, box: Box{Top: 24, Height: 10}},
	}}
	labels := labelMap(LineLabels(doc(list), LabelOptions{}))
	assert.Equal(t, map[int]float64{1: 0, 2: 12, 3: 24}, labels)
}

func TestLineLabelsLaterNodesOverride(t *testing.T) {
	list := &node{kind: KindList, pos: "1:0-2:0", children: []Node{
		&node{kind: KindListItem, pos: "1:0-1:0", box: Box{Top: 5}},
		&node{kind: KindListItem, pos: "2:0-2:0", box: Box{Top: 15}},
	}}
	// the list walk records item tops, then each tagged item records its own
	list.children[0].(*node).children = []Node{block("1:0-1:0", 7, 3)}
	labels := labelMap(LineLabels(doc(list), LabelOptions{}))
	assert.Equal(t, 7.0, labels[1])
	assert.Equal(t, 15.0, labels[2])
}

func TestLineLabelsOffsets(t *testing.T) {
	root := doc(block("1:0-1:0", 100, 10), block("2:0-2:0", 110, 10))
	labels := LineLabels(root, LabelOptions{OriginTop: 100, VerticalOffset: 3})
	assert.Equal(t, []Label{{Top: 3, Line: 1}, {Top: 13, Line: 2}}, labels)
}

func TestLineLabelsEmpty(t *testing.T) {
	assert.Nil(t, LineLabels(nil, LabelOptions{}))
	assert.Empty(t, LineLabels(doc(), LabelOptions{}))
}

func TestKindAndCategoryStrings(t *testing.T) {
	assert.Equal(t, "table-row", KindTableRow.String())
	assert.Equal(t, "deleted", CategoryDeleted.String())
	assert.Equal(t, "unknown", Category(9).String())
}
