package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/redmargin/internal/changeset"
	"github.com/dshills/redmargin/internal/integration/git"
	"github.com/dshills/redmargin/internal/watcher"
	"go.uber.org/zap"
)

// ErrClosed is returned when starting a reconciler that was closed.
var ErrClosed = errors.New("reconciler closed")

// trigger is a bitmask of pending reasons to recompute.
type trigger uint8

const (
	triggerDocument trigger = 1 << iota
	triggerDocumentReplaced
	triggerIndex
	triggerHead
	triggerBranchRef
	triggerRefresh
)

// Config holds per-document tuning.
type Config struct {
	// Debounce delays handling of triggers so bursts collapse into one
	// retrieval. Zero handles every trigger immediately.
	Debounce time.Duration
}

// Deps are the collaborators a Reconciler drives.
type Deps struct {
	Locator   Locator
	Retriever Retriever
	Opener    WatchOpener
	Observer  Observer
	Logger    *zap.Logger
	Metrics   Recorder
}

type rootResult struct {
	gen  uint64
	repo *git.Repository
	err  error
}

type retrieveResult struct {
	gen      uint64
	cs       changeset.ChangeSet
	err      error
	duration time.Duration
}

// Reconciler keeps one document's ChangeSet current.
type Reconciler struct {
	path string
	cfg  Config
	deps Deps
	log  *zap.Logger

	// pending triggers, posted from watcher goroutines
	pendingMu sync.Mutex
	pending   trigger
	kick      chan struct{}

	rootResults     chan rootResult
	retrieveResults chan retrieveResult
	updates         chan Update

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once

	// owned by the loop goroutine
	repo          *git.Repository
	resolving     bool
	resolveGen    uint64
	docWatch      Watch
	indexWatch    Watch
	headWatch     Watch
	branchWatch   Watch
	branchPath    string
	debounceTimer *time.Timer
	deferred      trigger

	// mu guards the fields read by Snapshot.
	mu        sync.RWMutex
	state     State
	root      string
	last      changeset.ChangeSet
	published bool
	watching  []string
	gen       uint64
}

// New creates a reconciler for path. Call Start to begin.
func New(path string, deps Deps, cfg Config) *Reconciler {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if deps.Observer == nil {
		deps.Observer = ObserverFuncs{}
	}
	if deps.Opener == nil {
		deps.Opener = DefaultOpener()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		path:            path,
		cfg:             cfg,
		deps:            deps,
		log:             deps.Logger.Named("reconcile").With(zap.String("document", path)),
		kick:            make(chan struct{}, 1),
		rootResults:     make(chan rootResult),
		retrieveResults: make(chan retrieveResult),
		updates:         make(chan Update, 1),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}
}

// DefaultOpener opens watches with the watcher package.
func DefaultOpener(opts ...watcher.Option) WatchOpener {
	return func(path string, mode watcher.Mode, onChange func(watcher.Event)) (Watch, error) {
		return watcher.Open(path, mode, onChange, opts...)
	}
}

// Path returns the document path.
func (r *Reconciler) Path() string {
	return r.path
}

// Start arms the document watch and schedules the first retrieval. The
// parent context bounds the reconciler's lifetime in addition to Close.
//
// A watch failure is returned, but the reconciler still runs: the initial
// retrieval happens and Refresh keeps working without live updates.
func (r *Reconciler) Start(parent context.Context) error {
	if r.ctx.Err() != nil {
		return ErrClosed
	}

	var watchErr error
	r.startOnce.Do(func() {
		if parent != nil {
			stop := context.AfterFunc(parent, r.cancel)
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				<-r.ctx.Done()
				stop()
			}()
		}

		w, err := r.deps.Opener(r.path, watcher.ModeDefault, r.onDocumentEvent)
		if err != nil {
			watchErr = fmt.Errorf("watch document: %w", err)
			r.log.Warn("document watch unavailable, live updates disabled", zap.Error(err))
			r.deps.Observer.OnError(watchErr)
		} else {
			r.docWatch = w
			r.setWatching()
		}

		go r.loop()
		r.post(triggerDocument)
	})
	return watchErr
}

// Refresh forces a new retrieval. A document outside any repository is
// located again.
func (r *Reconciler) Refresh() {
	r.post(triggerRefresh)
}

// Updates returns a channel holding the most recent publication. Older
// undelivered values are replaced.
func (r *Reconciler) Updates() <-chan Update {
	return r.updates
}

// Done is closed when the reconciler has stopped.
func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}

// Snapshot returns the current state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		State:      r.state,
		Root:       r.root,
		Last:       r.last,
		Published:  r.published,
		Generation: r.gen,
		Watching:   append([]string(nil), r.watching...),
	}
}

// Close stops the reconciler, its watches and any outstanding git calls.
func (r *Reconciler) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		// A reconciler that never started has no loop to close done.
		r.startOnce.Do(func() { close(r.done) })
		<-r.done
		r.wg.Wait()
	})
	return nil
}

// post records a trigger and wakes the loop without blocking.
func (r *Reconciler) post(t trigger) {
	r.pendingMu.Lock()
	r.pending |= t
	r.pendingMu.Unlock()

	select {
	case r.kick <- struct{}{}:
	default:
	}
}

func (r *Reconciler) takePending() trigger {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	t := r.pending
	r.pending = 0
	return t
}

func (r *Reconciler) onDocumentEvent(ev watcher.Event) {
	if ev.Reopened {
		r.post(triggerDocument | triggerDocumentReplaced)
		return
	}
	r.post(triggerDocument)
}
