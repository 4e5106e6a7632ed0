package git

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/dshills/redmargin/internal/changeset"
)

// hunkHeaderRe matches "@@ -oldStart[,oldCount] +newStart[,newCount] @@"
// followed by optional trailing context.
var hunkHeaderRe = regexp.MustCompile(`^@@\s+-(\d+)(?:,(\d+))?\s+\+(\d+)(?:,(\d+))?\s+@@`)

// DiffHunk is a parsed unified diff hunk header.
type DiffHunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
}

// ParseHunkHeader parses a hunk header line. Omitted counts default to 1.
// Anything that is not a well-formed header returns false.
func ParseHunkHeader(line string) (DiffHunk, bool) {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return DiffHunk{}, false
	}

	var h DiffHunk
	var ok bool
	if h.OldStart, ok = atoi(m[1], 0); !ok {
		return DiffHunk{}, false
	}
	if h.OldCount, ok = atoi(m[2], 1); !ok {
		return DiffHunk{}, false
	}
	if h.NewStart, ok = atoi(m[3], 0); !ok {
		return DiffHunk{}, false
	}
	if h.NewCount, ok = atoi(m[4], 1); !ok {
		return DiffHunk{}, false
	}
	return h, true
}

// atoi parses a decimal field, returning def for an empty field.
func atoi(s string, def int) (int, bool) {
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsInsertion reports a hunk that adds lines without replacing any.
// OldStart is then the insertion point, not a real old line.
func (h DiffHunk) IsInsertion() bool {
	return h.OldCount == 0 && h.NewCount > 0
}

// IsDeletion reports a hunk that removes lines without adding any.
func (h DiffHunk) IsDeletion() bool {
	return h.NewCount == 0 && h.OldCount > 0
}

// NewRange returns the lines the hunk occupies in the new file.
// It is only meaningful when NewCount > 0.
func (h DiffHunk) NewRange() changeset.Range {
	return changeset.Range{Start: h.NewStart, End: h.NewStart + h.NewCount - 1}
}

// DeletionAnchor returns the line in the new file that marks the removed
// block. It is NewStart as git reports it, which is 0 when the removal was
// at the top of the file.
func (h DiffHunk) DeletionAnchor() int {
	return h.NewStart
}

// String formats the hunk as a header without trailing context.
func (h DiffHunk) String() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}
