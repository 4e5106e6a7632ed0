package layout

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Role tells the viewer how to style a span.
type Role uint8

const (
	RoleText Role = iota
	RoleHeading
	RoleStrong
	RoleEmphasis
	RoleCode
	RoleLink
	RoleMarkup
	RoleQuote
	RoleTableHeader
)

// Span is a run of text with one style.
type Span struct {
	Text string
	Role Role
	// Color is a "#rrggbb" foreground set by a syntax highlighter.
	Color string
	Bold  bool
}

// Inline parses a fragment of Markdown and returns its text as styled
// spans. Line breaks become spaces.
func Inline(s string) []Span {
	source := []byte(s)
	doc := markdown.Parser().Parse(text.NewReader(source))
	return newConverter(source).flowText(doc, RoleText)
}

// spans returns the inline content of n with base as the default role.
func (c *converter) spans(n ast.Node, base Role) []Span {
	var out Row
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		out = c.appendInline(out, child, base)
	}
	return out
}

func (c *converter) appendInline(out Row, n ast.Node, role Role) Row {
	switch n := n.(type) {
	case *ast.Text:
		v := util.UnescapePunctuations(n.Segment.Value(c.source))
		v = util.ResolveEntityNames(util.ResolveNumericReferences(v))
		out = appendSpans(out, Span{Text: string(v), Role: role})
		if n.SoftLineBreak() || n.HardLineBreak() {
			out = appendSpans(out, Span{Text: " ", Role: role})
		}
	case *ast.String:
		out = appendSpans(out, Span{Text: string(n.Value), Role: role})
	case *ast.CodeSpan:
		var b strings.Builder
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				b.Write(t.Segment.Value(c.source))
				if t.SoftLineBreak() {
					b.WriteByte(' ')
				}
			}
		}
		out = appendSpans(out, Span{Text: b.String(), Role: RoleCode})
	case *ast.Emphasis:
		inner := nested(role, RoleEmphasis)
		if n.Level >= 2 {
			inner = nested(role, RoleStrong)
		}
		out = c.appendChildren(out, n, inner)
	case *ast.Link:
		out = c.appendChildren(out, n, RoleLink)
		out = appendSpans(out, Span{Text: " (" + string(n.Destination) + ")", Role: RoleMarkup})
	case *ast.Image:
		out = appendSpans(out, Span{Text: "!", Role: RoleMarkup})
		out = c.appendChildren(out, n, RoleLink)
		out = appendSpans(out, Span{Text: " (" + string(n.Destination) + ")", Role: RoleMarkup})
	case *ast.AutoLink:
		out = appendSpans(out, Span{Text: string(n.Label(c.source)), Role: RoleLink})
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			out = appendSpans(out, Span{Text: strings.ReplaceAll(string(seg.Value(c.source)), "\n", " "), Role: RoleMarkup})
		}
	case *extast.TaskCheckBox:
		// Reported through Item.Task.
	default:
		out = c.appendChildren(out, n, role)
	}
	return out
}

func (c *converter) appendChildren(out Row, n ast.Node, role Role) Row {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		out = c.appendInline(out, child, role)
	}
	return out
}

// nested keeps a heading or link role when emphasis appears inside it.
func nested(base, inner Role) Role {
	if base == RoleText || base == RoleQuote {
		return inner
	}
	return base
}
