// Package viewer is the terminal document viewer. It lays out a Markdown
// document, draws change markers and line numbers in the gutter and keeps
// both current as the document and its repository change.
package viewer

import (
	"bytes"
	"fmt"

	"github.com/dshills/redmargin/internal/changeset"
	"github.com/dshills/redmargin/internal/gutter"
	"github.com/dshills/redmargin/internal/layout"
	"github.com/dshills/redmargin/internal/sourcepos"
)

// Options configure a View.
type Options struct {
	ShowLineNumbers bool
	ShowMarkers     bool

	// Highlighter colors fenced code. Nil disables highlighting.
	Highlighter layout.Highlighter
}

// View holds everything needed to draw one document. It is not safe for
// concurrent use; Run drives it from a single goroutine.
type View struct {
	opts  Options
	title string

	src    []byte
	loaded bool
	doc    *layout.Document
	index  *sourcepos.Index
	gutter *gutter.Gutter

	changes changeset.ChangeSet
	root    string

	width, height int
	offset        int

	status    string
	statusErr bool

	search search
}

// NewView creates a view titled title.
func NewView(title string, opts Options) *View {
	cfg := gutter.DefaultConfig()
	cfg.ShowLineNumbers = opts.ShowLineNumbers
	cfg.ShowMarkers = opts.ShowMarkers
	return &View{
		opts:   opts,
		title:  title,
		gutter: gutter.New(cfg),
		doc:    layout.Layout(nil, layout.Options{}),
		index:  sourcepos.Build(nil),
	}
}

// SetContent replaces the document source. It reports false and does
// nothing when the bytes are unchanged.
func (v *View) SetContent(src []byte) bool {
	if v.loaded && bytes.Equal(src, v.src) {
		return false
	}
	v.src = bytes.Clone(src)
	v.loaded = true
	v.relayout()
	return true
}

// SetChanges replaces the ChangeSet the gutter shows.
func (v *View) SetChanges(cs changeset.ChangeSet) {
	v.changes = cs
	v.project()
}

// Changes returns the ChangeSet the gutter shows.
func (v *View) Changes() changeset.ChangeSet {
	return v.changes
}

// SetRoot records the repository root shown in the status line.
func (v *View) SetRoot(root string) {
	v.root = root
}

// SetStatus sets the status message. An empty message restores the
// default status.
func (v *View) SetStatus(msg string, isErr bool) {
	v.status = msg
	v.statusErr = isErr && msg != ""
}

// Resize sets the screen size and lays the document out again when the
// width changed.
func (v *View) Resize(width, height int) {
	if width == v.width && height == v.height {
		return
	}
	widthChanged := width != v.width
	v.width, v.height = width, height
	if widthChanged && v.loaded {
		v.relayout()
	}
	v.clamp()
}

// Document returns the current layout.
func (v *View) Document() *layout.Document {
	return v.doc
}

// Gutter returns the view's gutter.
func (v *View) Gutter() *gutter.Gutter {
	return v.gutter
}

// Offset returns the first visible row.
func (v *View) Offset() int {
	return v.offset
}

// Scroll moves the view by n rows.
func (v *View) Scroll(n int) {
	v.offset += n
	v.clamp()
}

// PageDown scrolls one screen down, keeping one row of context.
func (v *View) PageDown() {
	v.Scroll(max(1, v.bodyHeight()-1))
}

// PageUp scrolls one screen up, keeping one row of context.
func (v *View) PageUp() {
	v.Scroll(-max(1, v.bodyHeight()-1))
}

// Home scrolls to the top.
func (v *View) Home() {
	v.offset = 0
}

// End scrolls to the bottom.
func (v *View) End() {
	v.offset = v.maxOffset()
}

// ToggleLineNumbers shows or hides line numbers.
func (v *View) ToggleLineNumbers() {
	cfg := v.gutter.Config()
	cfg.ShowLineNumbers = !cfg.ShowLineNumbers
	v.gutter.SetConfig(cfg)
	v.relayout()
}

// ToggleMarkers shows or hides change markers.
func (v *View) ToggleMarkers() {
	cfg := v.gutter.Config()
	cfg.ShowMarkers = !cfg.ShowMarkers
	v.gutter.SetConfig(cfg)
	v.relayout()
}

// relayout lays the source out at the width left beside the gutter. The
// gutter width depends on the labels, so a width change triggers one more
// pass.
func (v *View) relayout() {
	for range 2 {
		before := v.gutter.Width()
		v.doc = layout.Render(string(v.src), layout.Options{
			Width:       v.textWidth(),
			Highlighter: v.opts.Highlighter,
		})
		v.index = sourcepos.Build(v.doc.Root)
		v.gutter.SetLabels(sourcepos.LineLabels(v.doc.Root, sourcepos.LabelOptions{}))
		if v.gutter.Width() == before {
			break
		}
	}
	v.project()
	v.refreshMatches()
	v.clamp()
}

func (v *View) project() {
	v.gutter.SetMarkers(sourcepos.Project(v.index, v.changes, 0))
}

func (v *View) textWidth() int {
	if v.width <= 0 {
		return 0
	}
	return max(1, v.width-v.gutter.Width())
}

// bodyHeight is the number of document rows on screen; the last screen
// row is the status line.
func (v *View) bodyHeight() int {
	return max(0, v.height-1)
}

func (v *View) maxOffset() int {
	return max(0, len(v.doc.Rows)-v.bodyHeight())
}

func (v *View) clamp() {
	v.offset = min(max(0, v.offset), v.maxOffset())
}

// statusText returns the left and right halves of the status line.
func (v *View) statusText() (left, right string) {
	if v.search.editing {
		return "/" + v.search.input, ""
	}
	left = v.title
	switch {
	case v.status != "":
		left += "  " + v.status
	case v.changes.IsUntracked():
		left += "  untracked"
	case !v.changes.IsEmpty():
		left += fmt.Sprintf("  +%d ~%d -%d",
			countLines(v.changes.Added()), countLines(v.changes.Modified()), len(v.changes.Deleted()))
	}
	if v.root != "" && v.status == "" {
		left += "  " + v.root
	}

	total := len(v.doc.Rows)
	if total == 0 {
		return left, ""
	}
	last := min(total, v.offset+v.bodyHeight())
	return left, fmt.Sprintf("%d-%d/%d", v.offset+1, last, total)
}

func countLines(rs []changeset.Range) int {
	n := 0
	for _, r := range rs {
		n += r.Len()
	}
	return n
}
