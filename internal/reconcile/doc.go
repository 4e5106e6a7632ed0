// Package reconcile keeps one document's ChangeSet current.
//
// A Reconciler watches the document and, once its repository is known, the
// repository's index, HEAD and current branch ref. Every trigger starts a
// new retrieval; only the most recently started one may publish. All state
// changes happen on a single goroutine, so watcher callbacks, retrieval
// completions and observer notifications never race with each other.
//
// # States
//
//	Idle -> ResolvingRoot -> Retrieving -> Published
//	                     \-> NotARepository
//	Retrieving -> Failed (previous ChangeSet stays published)
//
// # Observers
//
// Publications are delivered to an Observer on the reconciler goroutine, in
// the order their retrievals were started. Updates offers the same values
// as a channel that always holds the latest one.
package reconcile
