package watcher

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Handle.
type Option func(*Handle)

// WithSettleDelay sets the pause before reopening after rename or remove.
func WithSettleDelay(d time.Duration) Option {
	return func(h *Handle) {
		if d >= 0 {
			h.settle = d
		}
	}
}

// WithLogger sets the logger for restart and error messages.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handle) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithRestartHook registers fn to run after every reopen attempt with its
// outcome.
func WithRestartHook(fn func(ok bool)) Option {
	return func(h *Handle) {
		h.onRestart = fn
	}
}

// WithErrorHook registers fn to run for errors reported by the descriptor.
func WithErrorHook(fn func(err error)) Option {
	return func(h *Handle) {
		h.onError = fn
	}
}
