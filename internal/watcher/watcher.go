// Package watcher watches a single filesystem path and survives the
// delete-and-rename sequence editors use for atomic saves.
//
// A Handle owns one fsnotify descriptor for its path. When the path is
// renamed or removed the descriptor is discarded, the handle waits a short
// settle delay and then opens the path afresh. The change callback fires
// after a successful reopen because the content may have changed during
// the gap.
package watcher

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors returned by watcher operations.
var (
	// ErrCannotWatch is returned by Open when the path cannot be monitored.
	ErrCannotWatch = errors.New("could not watch")

	// ErrWatcherClosed is returned when operating on a closed handle.
	ErrWatcherClosed = errors.New("watcher is closed")
)

// DefaultSettleDelay is the pause between a rename/remove event and the
// attempt to reopen the path.
const DefaultSettleDelay = 100 * time.Millisecond

// Mode selects which event classes are delivered.
type Mode int

const (
	// ModeDefault delivers write, create, rename, remove and attribute changes.
	ModeDefault Mode = iota

	// ModeWriteOnly drops attribute changes. Use it for files that are read
	// while computing the result the watcher would trigger, so that an
	// access-time update cannot feed back into another trigger.
	ModeWriteOnly
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeWriteOnly:
		return "write-only"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// State is the lifecycle state of a Handle.
type State int32

const (
	// StateUnopened is the state before the first descriptor is open.
	StateUnopened State = iota
	// StateActive means events are being delivered.
	StateActive
	// StateRestarting means the path was renamed or removed and the handle
	// is waiting to reopen it.
	StateRestarting
	// StateFailed means reopening failed. No further events are delivered.
	StateFailed
	// StateClosed means Close was called.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateActive:
		return "active"
	case StateRestarting:
		return "restarting"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates the path was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written to.
	OpWrite
	// OpRemove indicates the path was removed.
	OpRemove
	// OpRename indicates the path was renamed.
	OpRename
	// OpChmod indicates attributes changed.
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String returns the set operations joined with "|".
func (op Op) String() string {
	var parts []string
	for _, n := range opNames {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event is delivered to the change callback.
type Event struct {
	// Path is the watched path.
	Path string

	// Op is the operation that triggered the event.
	Op Op

	// Reopened is set when the event follows a successful reopen after a
	// rename or remove.
	Reopened bool

	// Timestamp is when the event was delivered.
	Timestamp time.Time
}
