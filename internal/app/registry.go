package app

import (
	"sync"

	"github.com/google/uuid"
)

// DocumentID identifies an open document for the lifetime of the process.
type DocumentID string

// NewDocumentID returns a fresh random ID.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.NewString())
}

// String returns the ID.
func (id DocumentID) String() string {
	return string(id)
}

// Registry tracks open documents by ID and by path.
type Registry struct {
	mu     sync.RWMutex
	byID   map[DocumentID]*Document
	byPath map[string]DocumentID
	order  []DocumentID // tracks open order for navigation
	active DocumentID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[DocumentID]*Document),
		byPath: make(map[string]DocumentID),
	}
}

// Add registers doc and makes it active. If a document with the same path
// is already registered, that document is returned instead along with
// false.
func (r *Registry) Add(doc *Document) (*Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.byPath[doc.Path()]; exists {
		r.active = id
		return r.byID[id], false
	}

	r.byID[doc.ID] = doc
	r.byPath[doc.Path()] = doc.ID
	r.order = append(r.order, doc.ID)
	r.active = doc.ID
	return doc, true
}

// Remove unregisters a document and returns it.
func (r *Registry) Remove(id DocumentID) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, exists := r.byID[id]
	if !exists {
		return nil, ErrDocumentNotFound
	}

	delete(r.byID, id)
	delete(r.byPath, doc.Path())
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.active == id {
		r.active = ""
		if len(r.order) > 0 {
			r.active = r.order[len(r.order)-1]
		}
	}
	return doc, nil
}

// Get returns a document by ID.
func (r *Registry) Get(id DocumentID) (*Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, exists := r.byID[id]
	return doc, exists
}

// Lookup returns a document by absolute path.
func (r *Registry) Lookup(path string) (*Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, exists := r.byPath[path]
	if !exists {
		return nil, false
	}
	return r.byID[id], true
}

// Active returns the currently active document, or nil.
func (r *Registry) Active() *Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[r.active]
}

// SetActive sets the active document by ID.
func (r *Registry) SetActive(id DocumentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return ErrDocumentNotFound
	}
	r.active = id
	return nil
}

// All returns all documents in open order.
func (r *Registry) All() []*Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]*Document, 0, len(r.order))
	for _, id := range r.order {
		docs = append(docs, r.byID[id])
	}
	return docs
}

// Count returns the number of open documents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Next makes the next document in open order active and returns it.
func (r *Registry) Next() *Document {
	return r.step(1)
}

// Previous makes the previous document in open order active and returns it.
func (r *Registry) Previous() *Document {
	return r.step(-1)
}

func (r *Registry) step(delta int) *Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) == 0 {
		return nil
	}

	current := -1
	for i, id := range r.order {
		if id == r.active {
			current = i
			break
		}
	}
	if current == -1 {
		return nil
	}

	// Wrap around
	next := (current + delta + len(r.order)) % len(r.order)
	r.active = r.order[next]
	return r.byID[r.active]
}
