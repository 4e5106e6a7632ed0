package viewer

import (
	"context"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/redmargin/internal/reconcile"
)

// Screen is the part of tcell.Screen the run loop uses.
type Screen interface {
	Surface
	Init() error
	Fini()
	Show()
	Sync()
	HideCursor()
	PollEvent() tcell.Event
}

// Session is the live state of one open document.
type Session interface {
	Path() string
	Updates() <-chan reconcile.Update
	Errors() <-chan error
	// Reloads signals that the document content may have changed.
	Reloads() <-chan struct{}
	Refresh()
}

// Run shows the session's document on screen until the user quits or ctx
// is cancelled. Errors from the session are shown in the status line and
// never end the loop.
func Run(ctx context.Context, screen Screen, view *View, sess Session, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("viewer").With(zap.String("document", sess.Path()))

	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	quit := make(chan struct{})
	defer close(quit)
	events := make(chan tcell.Event)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	load := func() {
		data, err := os.ReadFile(sess.Path())
		if err != nil {
			logger.Warn("read document", zap.Error(err))
			view.SetStatus(err.Error(), true)
			return
		}
		if view.SetContent(data) {
			logger.Debug("document reloaded", zap.Int("bytes", len(data)))
		}
	}

	view.Resize(screen.Size())
	load()

	for {
		view.Draw(screen)
		screen.Show()

		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			switch e := ev.(type) {
			case *tcell.EventKey:
				switch view.HandleKey(e.Key(), e.Rune()) {
				case ActionQuit:
					return nil
				case ActionRefresh:
					sess.Refresh()
				}
			case *tcell.EventResize:
				view.Resize(e.Size())
				screen.Sync()
			}

		case u := <-sess.Updates():
			view.SetRoot(u.Root)
			view.SetChanges(u.Changes)
			view.SetStatus("", false)

		case err := <-sess.Errors():
			logger.Warn("change tracking", zap.Error(err))
			view.SetStatus(err.Error(), true)

		case <-sess.Reloads():
			load()
		}
	}
}
