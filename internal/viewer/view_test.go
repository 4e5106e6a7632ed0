package viewer

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redmargin/internal/changeset"
	"github.com/dshills/redmargin/internal/sourcepos"
)

const doc = "# Title\n\nhello world\n"

func newView(t *testing.T, width, height int) *View {
	t.Helper()
	v := NewView("doc.md", Options{ShowLineNumbers: true, ShowMarkers: true})
	v.Resize(width, height)
	require.True(t, v.SetContent([]byte(doc)))
	return v
}

func paragraphs(n int) string {
	var b strings.Builder
	for i := range n {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("para\n")
	}
	return b.String()
}

func TestSetContentSkipsUnchanged(t *testing.T) {
	v := newView(t, 40, 10)
	assert.False(t, v.SetContent([]byte(doc)))
	assert.True(t, v.SetContent([]byte(doc+"more\n")))
}

func TestSetContentEmptyFirstLoad(t *testing.T) {
	v := NewView("doc.md", Options{})
	assert.True(t, v.SetContent(nil))
	assert.False(t, v.SetContent([]byte{}))
}

func TestDraw(t *testing.T) {
	v := newView(t, 40, 5)
	v.SetChanges(changeset.New([]changeset.Range{{Start: 3, End: 3}}, nil, nil))

	s := newFakeScreen(40, 5)
	v.Draw(s)

	assert.Equal(t, "   1 # Title", s.row(0))
	assert.Equal(t, "   2", s.row(1))
	assert.Equal(t, "+  3 hello world", s.row(2))
	assert.Equal(t, "", s.row(3))
	assert.Equal(t, " doc.md  +1 ~0 -0                 1-3/3", s.row(4))

	fg, _, _ := s.styleAt(0, 2).Decompose()
	assert.Equal(t, tcell.ColorGreen, fg)
}

func TestDrawDeletion(t *testing.T) {
	v := newView(t, 40, 5)
	v.SetChanges(changeset.New(nil, nil, []int{3}))

	s := newFakeScreen(40, 5)
	v.Draw(s)
	assert.Equal(t, "-  3 hello world", s.row(2))

	cat, ok := v.Gutter().MarkerAt(2)
	require.True(t, ok)
	assert.Equal(t, sourcepos.CategoryDeleted, cat)
}

func TestDrawStatusError(t *testing.T) {
	v := newView(t, 40, 5)
	v.SetStatus("git failed", true)

	s := newFakeScreen(40, 5)
	v.Draw(s)
	assert.True(t, strings.HasPrefix(s.row(4), " doc.md  git failed"))

	_, bg, _ := s.styleAt(0, 4).Decompose()
	assert.Equal(t, tcell.ColorMaroon, bg)

	v.SetStatus("", true)
	v.Draw(s)
	_, bg, _ = s.styleAt(0, 4).Decompose()
	assert.NotEqual(t, tcell.ColorMaroon, bg)
}

func TestUntrackedStatus(t *testing.T) {
	v := newView(t, 40, 5)
	v.SetChanges(changeset.Untracked(3))
	v.SetRoot("/repo")

	left, _ := v.statusText()
	assert.Equal(t, "doc.md  untracked  /repo", left)
}

func TestScroll(t *testing.T) {
	v := NewView("doc.md", Options{})
	v.Resize(20, 6)
	v.SetContent([]byte(paragraphs(10)))
	// 10 paragraphs and 9 separators, 5 body rows
	require.Len(t, v.Document().Rows, 19)

	v.Scroll(3)
	assert.Equal(t, 3, v.Offset())
	v.Scroll(-10)
	assert.Equal(t, 0, v.Offset())

	v.PageDown()
	assert.Equal(t, 4, v.Offset())
	v.End()
	assert.Equal(t, 14, v.Offset())
	v.Scroll(5)
	assert.Equal(t, 14, v.Offset())
	v.PageUp()
	assert.Equal(t, 10, v.Offset())
	v.Home()
	assert.Equal(t, 0, v.Offset())
}

func TestResizeRewraps(t *testing.T) {
	v := NewView("doc.md", Options{})
	v.Resize(40, 10)
	v.SetContent([]byte("alpha beta gamma"))
	require.Len(t, v.Document().Rows, 1)

	v.Resize(11, 10)
	assert.Len(t, v.Document().Rows, 2)
	assert.Equal(t, 11, v.Document().Width)
}

func TestResizeClampsOffset(t *testing.T) {
	v := NewView("doc.md", Options{})
	v.Resize(20, 6)
	v.SetContent([]byte(paragraphs(10)))
	v.End()

	v.Resize(20, 30)
	assert.Equal(t, 0, v.Offset())
}

func TestToggles(t *testing.T) {
	v := newView(t, 40, 5)
	assert.Equal(t, 5, v.Gutter().Width())

	v.ToggleLineNumbers()
	assert.Equal(t, 2, v.Gutter().Width())
	assert.Equal(t, 38, v.Document().Width)

	v.ToggleMarkers()
	assert.Equal(t, 0, v.Gutter().Width())
	assert.Equal(t, 40, v.Document().Width)

	v.ToggleLineNumbers()
	v.ToggleMarkers()
	assert.Equal(t, 5, v.Gutter().Width())
}

func TestMarkersFollowLayout(t *testing.T) {
	v := newView(t, 40, 10)
	v.SetChanges(changeset.New([]changeset.Range{{Start: 3, End: 3}}, nil, nil))
	_, ok := v.Gutter().MarkerAt(2)
	require.True(t, ok)

	require.True(t, v.SetContent([]byte("# Title\n\nintro\n\nhello world\n")))
	_, ok = v.Gutter().MarkerAt(2)
	assert.True(t, ok, "line 3 is now the intro paragraph")
	_, ok = v.Gutter().MarkerAt(4)
	assert.False(t, ok)
}

func TestHandleKey(t *testing.T) {
	v := NewView("doc.md", Options{ShowLineNumbers: true})
	v.Resize(20, 6)
	v.SetContent([]byte(paragraphs(10)))

	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'j'))
	assert.Equal(t, 1, v.Offset())
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyDown, 0))
	assert.Equal(t, 2, v.Offset())
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'k'))
	assert.Equal(t, 1, v.Offset())
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'G'))
	assert.Equal(t, 14, v.Offset())
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'g'))
	assert.Equal(t, 0, v.Offset())
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyPgDn, 0))
	assert.Equal(t, 4, v.Offset())

	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'l'))
	assert.False(t, v.Gutter().Config().ShowLineNumbers)
	assert.Equal(t, ActionNone, v.HandleKey(tcell.KeyRune, 'n'), "no search yet")
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'm'))
	assert.True(t, v.Gutter().Config().ShowMarkers)

	assert.Equal(t, ActionRefresh, v.HandleKey(tcell.KeyRune, 'r'))
	assert.Equal(t, ActionQuit, v.HandleKey(tcell.KeyRune, 'q'))
	assert.Equal(t, ActionQuit, v.HandleKey(tcell.KeyCtrlC, 0))
	assert.Equal(t, ActionNone, v.HandleKey(tcell.KeyRune, 'z'))
	assert.Equal(t, ActionNone, v.HandleKey(tcell.KeyTab, 0))
}

// searchDoc lays out as: alpha, -, beta, -, gamma, -, ALPHA two, -, delta.
const searchDoc = "alpha\n\nbeta\n\ngamma\n\nALPHA two\n\ndelta\n"

func newSearchView(t *testing.T) *View {
	t.Helper()
	v := NewView("doc.md", Options{})
	v.Resize(20, 4)
	require.True(t, v.SetContent([]byte(searchDoc)))
	require.Len(t, v.Document().Rows, 9)
	return v
}

func typeKeys(v *View, s string) {
	for _, r := range s {
		v.HandleKey(tcell.KeyRune, r)
	}
}

func TestSearchPrompt(t *testing.T) {
	v := newSearchView(t)

	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, '/'))
	assert.True(t, v.Searching())
	typeKeys(v, "alx")
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyBackspace2, 0))
	left, right := v.statusText()
	assert.Equal(t, "/al", left)
	assert.Empty(t, right)

	// q is text while the prompt is open
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'q'))
	v.HandleKey(tcell.KeyBackspace2, 0)

	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyEnter, 0))
	assert.False(t, v.Searching())
	assert.Equal(t, []int{0, 6}, v.Matches())
	assert.Equal(t, 0, v.CurrentMatch())
}

func TestSearchNextPrevWrap(t *testing.T) {
	v := newSearchView(t)
	v.HandleKey(tcell.KeyRune, '/')
	typeKeys(v, "alpha")
	v.HandleKey(tcell.KeyEnter, 0)
	require.Equal(t, []int{0, 6}, v.Matches())
	assert.Equal(t, 0, v.Offset())

	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'n'))
	assert.Equal(t, 1, v.CurrentMatch())
	assert.Equal(t, 6, v.Offset())
	left, _ := v.statusText()
	assert.Equal(t, "doc.md  /alpha  2/2", left)

	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'n'))
	assert.Equal(t, 0, v.CurrentMatch())
	assert.Equal(t, 0, v.Offset())
	left, _ = v.statusText()
	assert.Equal(t, "doc.md  /alpha  1/2  wrapped", left)

	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyRune, 'N'))
	assert.Equal(t, 1, v.CurrentMatch())
	assert.Equal(t, 6, v.Offset())
}

func TestSearchStartsAtTopVisibleRow(t *testing.T) {
	v := newSearchView(t)
	v.Scroll(2)

	require.True(t, v.Find("a"))
	// beta on row 2 is the first hit at or below the top row
	assert.Equal(t, 2, v.Matches()[v.CurrentMatch()])
	assert.Equal(t, 2, v.Offset())

	v.End()
	require.True(t, v.Find("beta"))
	assert.Equal(t, 2, v.Offset())
	left, _ := v.statusText()
	assert.Contains(t, left, "wrapped")
}

func TestSearchNotFound(t *testing.T) {
	v := newSearchView(t)
	v.HandleKey(tcell.KeyRune, '/')
	typeKeys(v, "zz")
	v.HandleKey(tcell.KeyEnter, 0)

	assert.Empty(t, v.Matches())
	assert.Equal(t, -1, v.CurrentMatch())
	assert.True(t, v.statusErr)
	assert.Equal(t, ActionNone, v.HandleKey(tcell.KeyRune, 'n'))
	assert.Equal(t, ActionNone, v.HandleKey(tcell.KeyRune, 'N'))
}

func TestSearchEscapeKeepsPrevious(t *testing.T) {
	v := newSearchView(t)
	require.True(t, v.Find("gamma"))

	v.HandleKey(tcell.KeyRune, '/')
	typeKeys(v, "delta")
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyEscape, 0), "escape closes the prompt, not the viewer")
	assert.False(t, v.Searching())
	assert.Equal(t, []int{4}, v.Matches())

	v.HandleKey(tcell.KeyRune, '/')
	assert.Equal(t, ActionRedraw, v.HandleKey(tcell.KeyBackspace, 0))
	assert.False(t, v.Searching(), "backspace on an empty prompt closes it")
	assert.Equal(t, ActionQuit, v.HandleKey(tcell.KeyEscape, 0))
}

func TestSearchHighlight(t *testing.T) {
	v := newSearchView(t)
	require.True(t, v.Find("alpha"))
	require.True(t, v.NextMatch())

	s := newFakeScreen(20, 4)
	v.Draw(s)
	require.Equal(t, "ALPHA two", s.row(0))

	_, bg, _ := s.styleAt(0, 0).Decompose()
	assert.Equal(t, tcell.ColorOrange, bg)
	_, bg, _ = s.styleAt(4, 0).Decompose()
	assert.Equal(t, tcell.ColorOrange, bg)
	_, bg, _ = s.styleAt(6, 0).Decompose()
	assert.NotEqual(t, tcell.ColorOrange, bg)

	v.Home()
	v.Draw(s)
	_, bg, _ = s.styleAt(0, 0).Decompose()
	assert.Equal(t, tcell.ColorOlive, bg, "other matches use the plain match style")
}

func TestSearchFollowsContent(t *testing.T) {
	v := newSearchView(t)
	require.True(t, v.Find("beta"))
	require.Equal(t, []int{2}, v.Matches())

	require.True(t, v.SetContent([]byte("intro\n\n"+searchDoc)))
	assert.Equal(t, []int{4}, v.Matches())

	require.True(t, v.SetContent([]byte("nothing here\n")))
	assert.Empty(t, v.Matches())
	assert.Equal(t, ActionNone, v.HandleKey(tcell.KeyRune, 'n'))
}
