package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handle watches one path until closed.
//
// The change callback runs on the handle's own goroutine and must not block
// or call Close on the same handle.
type Handle struct {
	path     string
	mode     Mode
	onChange func(Event)

	settle    time.Duration
	logger    *zap.Logger
	onRestart func(ok bool)
	onError   func(err error)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup

	state    atomic.Int32
	restarts atomic.Int64
	events   atomic.Int64
}

// Open starts watching path. The error wraps ErrCannotWatch when the path
// cannot be monitored; callers should degrade to no live updates.
func Open(path string, mode Mode, onChange func(Event), opts ...Option) (*Handle, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCannotWatch, path, err)
	}

	h := &Handle{
		path:     absPath,
		mode:     mode,
		onChange: onChange,
		settle:   DefaultSettleDelay,
		logger:   zap.NewNop(),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("path", absPath), zap.Stringer("mode", mode))

	fsw, err := h.openDescriptor()
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCannotWatch, absPath, err)
	}

	h.fsw = fsw
	h.state.Store(int32(StateActive))

	h.wg.Add(1)
	go h.run(fsw)

	return h, nil
}

// Path returns the absolute watched path.
func (h *Handle) Path() string {
	return h.path
}

// Mode returns the watch mode.
func (h *Handle) Mode() Mode {
	return h.mode
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Restarts returns how many times the descriptor has been reopened.
func (h *Handle) Restarts() int64 {
	return h.restarts.Load()
}

// Events returns how many events have been delivered.
func (h *Handle) Events() int64 {
	return h.events.Load()
}

// Close stops watching. It is safe to call more than once and waits for
// the handle's goroutine to exit.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.closeCh)
	fsw := h.fsw
	h.fsw = nil
	h.mu.Unlock()

	var err error
	if fsw != nil {
		err = fsw.Close()
	}
	h.wg.Wait()
	h.state.Store(int32(StateClosed))
	return err
}

func (h *Handle) openDescriptor() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(h.path); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return fsw, nil
}

// run drains the current descriptor and reopens it after rename or remove
// until the handle is closed or a reopen fails.
func (h *Handle) run(fsw *fsnotify.Watcher) {
	defer h.wg.Done()

	for fsw != nil {
		op, ok := h.drain(fsw)
		if !ok {
			return
		}
		fsw = h.reopen(fsw, op)
	}
}

// drain delivers events until one invalidates the descriptor. It returns
// that event's operation, or false if the handle closed.
func (h *Handle) drain(fsw *fsnotify.Watcher) (Op, bool) {
	for {
		select {
		case <-h.closeCh:
			return 0, false

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return 0, false
			}
			op := h.filter(convertOp(fsEvent.Op))
			if op == 0 {
				continue
			}
			if op.Has(OpRemove) || op.Has(OpRename) {
				return op, true
			}
			h.deliver(Event{Path: h.path, Op: op})

		case err, ok := <-fsw.Errors:
			if !ok {
				return 0, false
			}
			h.logger.Warn("watch error", zap.Error(err))
			if h.onError != nil {
				h.onError(err)
			}
		}
	}
}

// reopen replaces a descriptor invalidated by op. It returns nil when the
// handle closed or the path could not be reopened.
func (h *Handle) reopen(old *fsnotify.Watcher, op Op) *fsnotify.Watcher {
	h.state.Store(int32(StateRestarting))
	_ = old.Close()
	h.logger.Debug("path replaced, reopening", zap.Stringer("op", op), zap.Duration("settle", h.settle))

	timer := time.NewTimer(h.settle)
	select {
	case <-h.closeCh:
		timer.Stop()
		return nil
	case <-timer.C:
	}

	fsw, err := h.openDescriptor()
	h.restarts.Add(1)
	if err != nil {
		h.state.Store(int32(StateFailed))
		h.logger.Warn("reopen failed, watch is inert", zap.Error(err))
		if h.onRestart != nil {
			h.onRestart(false)
		}
		return nil
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = fsw.Close()
		return nil
	}
	h.fsw = fsw
	h.mu.Unlock()

	h.state.Store(int32(StateActive))
	if h.onRestart != nil {
		h.onRestart(true)
	}
	h.deliver(Event{Path: h.path, Op: op, Reopened: true})
	return fsw
}

func (h *Handle) deliver(ev Event) {
	ev.Timestamp = time.Now()
	h.events.Add(1)
	if h.onChange != nil {
		h.onChange(ev)
	}
}

// filter drops operations the mode does not deliver.
func (h *Handle) filter(op Op) Op {
	if h.mode == ModeWriteOnly {
		op &^= OpChmod
	}
	return op
}

// convertOp converts fsnotify.Op to watcher.Op.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}
