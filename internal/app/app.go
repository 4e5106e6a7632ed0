// Package app wires the change tracking pipeline together. It owns the
// process supervisor, the git client, metrics and the registry of open
// documents, and hands each document its own reconciler.
package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/redmargin/internal/config"
	"github.com/dshills/redmargin/internal/integration/git"
	"github.com/dshills/redmargin/internal/integration/process"
	"github.com/dshills/redmargin/internal/metrics"
	"github.com/dshills/redmargin/internal/reconcile"
	"github.com/dshills/redmargin/internal/watcher"
)

// shutdownTimeout bounds how long stray git processes get on Close.
const shutdownTimeout = 2 * time.Second

// Options carry collaborators that are not part of the configuration.
type Options struct {
	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics defaults to a fresh pipeline.
	Metrics *metrics.Pipeline

	// Opener replaces the file watch opener.
	Opener reconcile.WatchOpener
}

// Application is the central coordinator for open documents.
type Application struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Pipeline

	supervisor *process.Supervisor
	git        *git.Client
	opener     reconcile.WatchOpener
	registry   *Registry
	server     *metrics.Server

	mu     sync.Mutex
	closed bool
}

// New validates cfg and builds the pipeline. When cfg.Metrics.Addr is set
// the metrics endpoint starts listening.
func New(cfg config.Config, opts Options) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewPipeline()
	}

	sup := process.NewSupervisor(process.WithSupervisorLogger(logger))
	// git's stderr is matched against English messages.
	runnerOpts := []process.RunnerOption{process.WithEnv("LC_ALL=C")}
	if cfg.Git.Path != "" {
		runnerOpts = append(runnerOpts, process.WithExecutable("git", cfg.Git.Path))
	}
	runner := process.NewRunner(sup, runnerOpts...)

	opener := opts.Opener
	if opener == nil {
		opener = reconcile.DefaultOpener(
			watcher.WithSettleDelay(cfg.Watch.SettleDelay),
			watcher.WithLogger(logger),
			watcher.WithRestartHook(m.WatcherRestarted),
			watcher.WithErrorHook(m.WatcherError),
		)
	}

	app := &Application{
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		supervisor: sup,
		git:        git.NewClient(runner, git.Config{Reference: cfg.Git.Reference}, logger),
		opener:     opener,
		registry:   NewRegistry(),
	}

	if cfg.Metrics.Addr != "" {
		srv, err := metrics.NewServer(cfg.Metrics.Addr, m, logger)
		if err != nil {
			sup.Shutdown(shutdownTimeout)
			return nil, &ComponentError{Component: "metrics", Action: "listen", Err: err}
		}
		app.server = srv
	}

	return app, nil
}

// Config returns the configuration the application was built with.
func (app *Application) Config() config.Config {
	return app.cfg
}

// Git returns the git client.
func (app *Application) Git() *git.Client {
	return app.git
}

// Metrics returns the metrics pipeline.
func (app *Application) Metrics() *metrics.Pipeline {
	return app.metrics
}

// MetricsAddr returns the metrics endpoint address, or "" when disabled.
func (app *Application) MetricsAddr() string {
	if app.server == nil {
		return ""
	}
	return app.server.Addr()
}

// Registry returns the registry of open documents.
func (app *Application) Registry() *Registry {
	return app.registry
}

// Open starts tracking a file. Opening a path that is already open returns
// the existing document. ctx bounds the document's tracking lifetime.
func (app *Application) Open(ctx context.Context, path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &FileError{Op: "open", Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &FileError{Op: "open", Path: abs, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &FileError{Op: "open", Path: abs, Err: ErrNotAFile}
	}

	app.mu.Lock()
	defer app.mu.Unlock()
	if app.closed {
		return nil, ErrClosed
	}

	if doc, ok := app.registry.Lookup(abs); ok {
		_ = app.registry.SetActive(doc.ID)
		return doc, nil
	}

	doc := newDocument(abs, filepath.Base(abs))
	doc.rec = reconcile.New(abs, reconcile.Deps{
		Locator:   app.git,
		Retriever: app.git,
		Opener:    app.documentOpener(doc),
		Observer:  reconcile.ObserverFuncs{Error: doc.pushError},
		Logger:    app.logger,
		Metrics:   app.metrics,
	}, reconcile.Config{Debounce: app.cfg.Watch.Debounce})
	app.registry.Add(doc)

	// A watch failure is already reported through the document's errors.
	if err := doc.rec.Start(ctx); err != nil {
		app.logger.Debug("document opened without live updates",
			zap.String("document", abs), zap.Error(err))
	}
	app.logger.Info("document opened",
		zap.String("id", doc.ID.String()), zap.String("document", abs))
	return doc, nil
}

// Close stops tracking a document.
func (app *Application) Close(id DocumentID) error {
	doc, err := app.registry.Remove(id)
	if err != nil {
		return err
	}
	app.logger.Info("document closed", zap.String("id", id.String()))
	return doc.close()
}

// Shutdown closes every document, stops any git process still running and
// stops the metrics endpoint.
func (app *Application) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return nil
	}
	app.closed = true
	app.mu.Unlock()

	var errs []error
	for _, doc := range app.registry.All() {
		if err := app.Close(doc.ID); err != nil {
			errs = append(errs, err)
		}
	}
	app.supervisor.Shutdown(shutdownTimeout)

	if app.server != nil {
		if err := app.server.Close(ctx); err != nil {
			errs = append(errs, &ComponentError{Component: "metrics", Action: "close", Err: err})
		}
	}
	return errors.Join(errs...)
}

// documentOpener wraps the watch opener so events on the document itself
// also signal a content reload.
func (app *Application) documentOpener(doc *Document) reconcile.WatchOpener {
	return func(path string, mode watcher.Mode, onChange func(watcher.Event)) (reconcile.Watch, error) {
		if path == doc.Path() {
			inner := onChange
			onChange = func(ev watcher.Event) {
				inner(ev)
				doc.signalReload()
			}
		}
		return app.opener(path, mode, onChange)
	}
}
