package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/redmargin/internal/changeset"
	"github.com/dshills/redmargin/internal/integration/git"
	"github.com/dshills/redmargin/internal/watcher"
)

// State is the reconciler's position in its lifecycle.
type State int

const (
	// StateIdle is the state before the first trigger is handled.
	StateIdle State = iota
	// StateResolvingRoot means the repository root is being located.
	StateResolvingRoot
	// StateNotARepository means the document is outside any repository.
	// It is left only when the document is replaced or Refresh is called.
	StateNotARepository
	// StateRetrieving means a retrieval is in flight.
	StateRetrieving
	// StatePublished means the latest retrieval has been published.
	StatePublished
	// StateFailed means the latest retrieval or resolution failed. The
	// previously published ChangeSet remains current.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingRoot:
		return "resolving-root"
	case StateNotARepository:
		return "not-a-repository"
	case StateRetrieving:
		return "retrieving"
	case StatePublished:
		return "published"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Locator finds the repository enclosing a file. A nil repository with a
// nil error means there is none.
type Locator interface {
	LocateRoot(ctx context.Context, filePath string) (*git.Repository, error)
}

// Retriever computes a file's ChangeSet within a repository.
type Retriever interface {
	Retrieve(ctx context.Context, filePath string, repo *git.Repository) (changeset.ChangeSet, error)
}

// Watch is an open watch that can be stopped.
type Watch interface {
	Close() error
}

// WatchOpener opens a watch on path. The callback must not block.
type WatchOpener func(path string, mode watcher.Mode, onChange func(watcher.Event)) (Watch, error)

// Update is one publication.
type Update struct {
	Path       string
	Root       string
	Changes    changeset.ChangeSet
	Generation uint64
}

// Observer receives publications and errors for one document.
type Observer interface {
	OnChangeSet(Update)
	OnError(error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	ChangeSet func(Update)
	Error     func(error)
}

// OnChangeSet calls f.ChangeSet.
func (f ObserverFuncs) OnChangeSet(u Update) {
	if f.ChangeSet != nil {
		f.ChangeSet(u)
	}
}

// OnError calls f.Error.
func (f ObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Recorder receives pipeline measurements. *metrics.Pipeline satisfies it.
type Recorder interface {
	RetrievalStarted()
	RetrievalPublished()
	RetrievalCoalesced()
	RetrievalStale()
	RetrievalFailed()
	ObserveRetrieval(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RetrievalStarted()              {}
func (nopRecorder) RetrievalPublished()            {}
func (nopRecorder) RetrievalCoalesced()            {}
func (nopRecorder) RetrievalStale()                {}
func (nopRecorder) RetrievalFailed()               {}
func (nopRecorder) ObserveRetrieval(time.Duration) {}

// Snapshot is a point-in-time view of a reconciler.
type Snapshot struct {
	State      State
	Root       string
	Last       changeset.ChangeSet
	Published  bool
	Generation uint64
	Watching   []string
}
