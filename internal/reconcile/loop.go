package reconcile

import (
	"errors"
	"time"

	"github.com/dshills/redmargin/internal/changeset"
	"github.com/dshills/redmargin/internal/integration/git"
	"github.com/dshills/redmargin/internal/watcher"
	"go.uber.org/zap"
)

// loop is the reconciler's serial context. Every field marked as owned by
// the loop goroutine is only touched here.
func (r *Reconciler) loop() {
	defer close(r.done)
	defer r.closeWatches()

	for {
		var debounce <-chan time.Time
		if r.debounceTimer != nil {
			debounce = r.debounceTimer.C
		}

		select {
		case <-r.ctx.Done():
			if r.debounceTimer != nil {
				r.debounceTimer.Stop()
			}
			return

		case <-r.kick:
			t := r.takePending()
			if r.cfg.Debounce <= 0 {
				r.handle(t)
				continue
			}
			r.deferred |= t
			if r.debounceTimer == nil {
				r.debounceTimer = time.NewTimer(r.cfg.Debounce)
			} else {
				if !r.debounceTimer.Stop() {
					select {
					case <-r.debounceTimer.C:
					default:
					}
				}
				r.debounceTimer.Reset(r.cfg.Debounce)
			}

		case <-debounce:
			r.debounceTimer = nil
			t := r.deferred
			r.deferred = 0
			r.handle(t)

		case res := <-r.rootResults:
			r.handleRoot(res)

		case res := <-r.retrieveResults:
			r.handleRetrieve(res)
		}
	}
}

// handle applies a set of triggers.
func (r *Reconciler) handle(t trigger) {
	if t == 0 {
		return
	}
	r.log.Debug("trigger", zap.Uint8("mask", uint8(t)), zap.Stringer("state", r.currentState()))

	if t&triggerDocumentReplaced != 0 {
		r.checkRoot()
	}

	if r.repo == nil {
		switch {
		case r.resolving:
			// The resolution in flight will start a retrieval.
		case r.currentState() == StateNotARepository && t&(triggerRefresh|triggerDocumentReplaced) == 0:
			// Stay put until the document is replaced or refreshed.
		default:
			r.startResolve()
		}
		return
	}

	// An unborn branch has no ref file until its first commit, so a missing
	// branch watch is retried on every trigger.
	if t&triggerHead != 0 || r.branchWatch == nil {
		r.rearmBranchWatch()
	}
	r.startRetrieve()
}

// checkRoot drops the cached root when the document was replaced and the
// cache may no longer be valid.
func (r *Reconciler) checkRoot() {
	if r.repo == nil {
		return
	}
	if r.repo.Exists() {
		return
	}
	r.log.Info("repository root vanished, resolving again", zap.String("root", r.repo.Root))
	r.dropRepo()
}

func (r *Reconciler) dropRepo() {
	r.closeRepoWatches()
	r.repo = nil
	r.mu.Lock()
	r.root = ""
	r.mu.Unlock()
}

func (r *Reconciler) startResolve() {
	r.resolving = true
	r.resolveGen++
	// Retrievals against a previous root must not publish.
	r.bumpGeneration()
	r.setState(StateResolvingRoot)

	gen := r.resolveGen
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		repo, err := r.deps.Locator.LocateRoot(r.ctx, r.path)
		select {
		case r.rootResults <- rootResult{gen: gen, repo: repo, err: err}:
		case <-r.ctx.Done():
		}
	}()
}

func (r *Reconciler) handleRoot(res rootResult) {
	if res.gen != r.resolveGen {
		return
	}
	r.resolving = false

	switch {
	case res.err != nil:
		r.deps.Metrics.RetrievalFailed()
		r.fail(res.err)

	case res.repo == nil:
		r.log.Debug("document is not in a repository")
		r.setState(StateNotARepository)
		r.publish(changeset.Empty())

	default:
		r.repo = res.repo
		r.mu.Lock()
		r.root = res.repo.Root
		r.mu.Unlock()
		r.log.Debug("repository located", zap.String("root", res.repo.Root))
		r.armRepoWatches()
		r.startRetrieve()
	}
}

func (r *Reconciler) bumpGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	return r.gen
}

// startRetrieve supersedes any retrieval in flight. The older one is left to
// finish; its result is discarded on arrival.
func (r *Reconciler) startRetrieve() {
	gen := r.bumpGeneration()
	repo := r.repo
	r.setState(StateRetrieving)
	r.deps.Metrics.RetrievalStarted()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start := time.Now()
		cs, err := r.deps.Retriever.Retrieve(r.ctx, r.path, repo)
		res := retrieveResult{gen: gen, cs: cs, err: err, duration: time.Since(start)}
		select {
		case r.retrieveResults <- res:
		case <-r.ctx.Done():
		}
	}()
}

func (r *Reconciler) handleRetrieve(res retrieveResult) {
	r.deps.Metrics.ObserveRetrieval(res.duration)

	if res.gen != r.generation() {
		r.deps.Metrics.RetrievalStale()
		r.log.Debug("discarding superseded retrieval", zap.Uint64("generation", res.gen))
		return
	}

	if res.err != nil {
		r.deps.Metrics.RetrievalFailed()
		r.fail(res.err)
		return
	}

	r.setState(StatePublished)
	r.publish(res.cs)
}

// fail records an error. The last published ChangeSet stays in place.
func (r *Reconciler) fail(err error) {
	r.log.Warn("change retrieval failed", zap.Error(err))
	r.setState(StateFailed)
	r.deps.Observer.OnError(err)
}

// publish notifies observers unless cs equals the last published value.
func (r *Reconciler) publish(cs changeset.ChangeSet) {
	r.mu.Lock()
	if r.published && r.last.Equal(cs) {
		r.mu.Unlock()
		r.deps.Metrics.RetrievalCoalesced()
		return
	}
	r.last = cs
	r.published = true
	u := Update{Path: r.path, Root: r.root, Changes: cs, Generation: r.gen}
	r.mu.Unlock()

	r.deps.Metrics.RetrievalPublished()
	r.log.Debug("published", zap.Stringer("changes", cs), zap.Uint64("generation", u.Generation))
	r.deps.Observer.OnChangeSet(u)

	// Keep only the newest value in the channel.
	select {
	case <-r.updates:
	default:
	}
	r.updates <- u
}

func (r *Reconciler) armRepoWatches() {
	r.indexWatch = r.openWatch(r.repo.IndexPath(), triggerIndex)
	r.headWatch = r.openWatch(r.repo.HeadPath(), triggerHead)
	r.armBranchWatch()
	r.setWatching()
}

func (r *Reconciler) armBranchWatch() {
	path, err := r.repo.BranchRefPath()
	if err != nil {
		if !errors.Is(err, git.ErrDetachedHead) {
			r.log.Warn("cannot read HEAD", zap.Error(err))
		}
		r.branchPath = ""
		return
	}
	r.branchPath = path
	r.branchWatch = r.openWatch(path, triggerBranchRef)
}

// rearmBranchWatch follows a branch switch.
func (r *Reconciler) rearmBranchWatch() {
	path, err := r.repo.BranchRefPath()
	if err == nil && path == r.branchPath && r.branchWatch != nil {
		return
	}
	closeWatch(&r.branchWatch)
	r.armBranchWatch()
	r.setWatching()
}

// openWatch opens a write-only watch that posts t. Failures are logged;
// the reconciler keeps working with fewer live triggers.
func (r *Reconciler) openWatch(path string, t trigger) Watch {
	w, err := r.deps.Opener(path, watcher.ModeWriteOnly, func(watcher.Event) { r.post(t) })
	if err != nil {
		r.log.Debug("repository watch unavailable", zap.String("watch", path), zap.Error(err))
		return nil
	}
	return w
}

func (r *Reconciler) closeRepoWatches() {
	closeWatch(&r.indexWatch)
	closeWatch(&r.headWatch)
	closeWatch(&r.branchWatch)
	r.branchPath = ""
	r.setWatching()
}

func (r *Reconciler) closeWatches() {
	r.closeRepoWatches()
	closeWatch(&r.docWatch)
	r.setWatching()
}

func closeWatch(w *Watch) {
	if *w != nil {
		_ = (*w).Close()
		*w = nil
	}
}

func (r *Reconciler) setWatching() {
	var paths []string
	if r.docWatch != nil {
		paths = append(paths, r.path)
	}
	if r.repo != nil {
		if r.indexWatch != nil {
			paths = append(paths, r.repo.IndexPath())
		}
		if r.headWatch != nil {
			paths = append(paths, r.repo.HeadPath())
		}
	}
	if r.branchWatch != nil {
		paths = append(paths, r.branchPath)
	}
	r.mu.Lock()
	r.watching = paths
	r.mu.Unlock()
}

func (r *Reconciler) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Reconciler) currentState() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Reconciler) generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen
}
