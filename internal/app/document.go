package app

import (
	"github.com/dshills/redmargin/internal/reconcile"
)

// Document is an open file with its change tracking.
type Document struct {
	ID DocumentID

	// Name is the display name.
	Name string

	path    string
	rec     *reconcile.Reconciler
	errs    chan error
	reloads chan struct{}
}

func newDocument(path, name string) *Document {
	return &Document{
		ID:      NewDocumentID(),
		path:    path,
		Name:    name,
		errs:    make(chan error, 1),
		reloads: make(chan struct{}, 1),
	}
}

// Path returns the absolute file path.
func (d *Document) Path() string {
	return d.path
}

// Updates returns a channel holding the most recent ChangeSet publication.
func (d *Document) Updates() <-chan reconcile.Update {
	return d.rec.Updates()
}

// Errors returns a channel holding the most recent change tracking error.
func (d *Document) Errors() <-chan error {
	return d.errs
}

// Reloads returns a channel signalled when the file content may have
// changed.
func (d *Document) Reloads() <-chan struct{} {
	return d.reloads
}

// Refresh forces a new retrieval.
func (d *Document) Refresh() {
	d.rec.Refresh()
}

// Snapshot returns the document's change tracking state.
func (d *Document) Snapshot() reconcile.Snapshot {
	return d.rec.Snapshot()
}

// Done is closed when change tracking has stopped.
func (d *Document) Done() <-chan struct{} {
	return d.rec.Done()
}

func (d *Document) close() error {
	return d.rec.Close()
}

// pushError keeps only the newest error in the channel.
func (d *Document) pushError(err error) {
	select {
	case <-d.errs:
	default:
	}
	select {
	case d.errs <- err:
	default:
	}
}

func (d *Document) signalReload() {
	select {
	case d.reloads <- struct{}{}:
	default:
	}
}
