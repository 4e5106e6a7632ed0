package changeset

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a decoded range is not an ascending pair.
var ErrInvalidRange = errors.New("invalid range")

// wireChangeSet is the serialized form exchanged with remote renderers.
type wireChangeSet struct {
	AddedRanges    [][]int `json:"addedRanges"`
	ModifiedRanges [][]int `json:"modifiedRanges"`
	DeletedAnchors []int   `json:"deletedAnchors"`
	IsUntracked    bool    `json:"isUntracked,omitempty"`
}

// MarshalJSON encodes the ChangeSet. Arrays are always present, empty
// rather than null when there are no entries.
func (c ChangeSet) MarshalJSON() ([]byte, error) {
	w := wireChangeSet{
		AddedRanges:    rangesToWire(c.added),
		ModifiedRanges: rangesToWire(c.modified),
		DeletedAnchors: make([]int, 0, len(c.deleted)),
		IsUntracked:    c.untracked,
	}
	w.DeletedAnchors = append(w.DeletedAnchors, c.deleted...)
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form and normalizes the result.
func (c *ChangeSet) UnmarshalJSON(data []byte) error {
	var w wireChangeSet
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	added, err := rangesFromWire("addedRanges", w.AddedRanges)
	if err != nil {
		return err
	}
	modified, err := rangesFromWire("modifiedRanges", w.ModifiedRanges)
	if err != nil {
		return err
	}

	*c = New(added, modified, w.DeletedAnchors)
	c.untracked = w.IsUntracked
	return nil
}

func rangesToWire(rs []Range) [][]int {
	out := make([][]int, 0, len(rs))
	for _, r := range rs {
		out = append(out, []int{r.Start, r.End})
	}
	return out
}

func rangesFromWire(field string, in [][]int) ([]Range, error) {
	out := make([]Range, 0, len(in))
	for i, pair := range in {
		if len(pair) != 2 || pair[0] > pair[1] {
			return nil, fmt.Errorf("%s[%d] %v: %w", field, i, pair, ErrInvalidRange)
		}
		out = append(out, Range{Start: pair[0], End: pair[1]})
	}
	return out, nil
}
