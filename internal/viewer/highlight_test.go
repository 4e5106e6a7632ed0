package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redmargin/internal/layout"
)

func lineText(spans []layout.Span) string {
	var s string
	for _, sp := range spans {
		s += sp.Text
	}
	return s
}

func TestHighlighter(t *testing.T) {
	h := NewHighlighter("monokai")

	t.Run("one span slice per line", func(t *testing.T) {
		lines := h.Highlight("go", "package main\n\nfunc main() {}")
		require.Len(t, lines, 3)
		assert.Equal(t, "package main", lineText(lines[0]))
		assert.Empty(t, lineText(lines[1]))
		assert.Equal(t, "func main() {}", lineText(lines[2]))

		var found bool
		for _, sp := range lines[0] {
			if sp.Text == "package" {
				found = true
				assert.NotEmpty(t, sp.Color, "keyword should have a color")
			}
			assert.Equal(t, layout.RoleCode, sp.Role)
		}
		assert.True(t, found, "should find the package keyword")
	})

	t.Run("multi-line comment", func(t *testing.T) {
		lines := h.Highlight("javascript", "/**\n * doc\n */")
		require.Len(t, lines, 3)
		assert.Equal(t, " * doc", lineText(lines[1]))
	})

	t.Run("unsupported language", func(t *testing.T) {
		assert.Nil(t, h.Highlight("nonexistent-language-xyz", "x"))
	})

	t.Run("unknown theme falls back", func(t *testing.T) {
		lines := NewHighlighter("no-such-theme").Highlight("go", "package main")
		require.Len(t, lines, 1)
		assert.Equal(t, "package main", lineText(lines[0]))
	})
}
