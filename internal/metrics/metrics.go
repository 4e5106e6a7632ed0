// Package metrics exposes pipeline counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "redmargin"

// Pipeline counts retrievals and watcher restarts across all documents.
// Each Pipeline owns its registry so that several can coexist in tests.
type Pipeline struct {
	registry *prometheus.Registry

	started   prometheus.Counter
	published prometheus.Counter
	coalesced prometheus.Counter
	stale     prometheus.Counter
	failed    prometheus.Counter
	duration  prometheus.Histogram

	watcherRestarts prometheus.Counter
	watcherFailures prometheus.Counter
	watcherErrors   prometheus.Counter
}

// NewPipeline creates and registers the pipeline collectors.
func NewPipeline() *Pipeline {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	p := &Pipeline{
		registry:  prometheus.NewRegistry(),
		started:   counter("retrievals_started_total", "Change retrievals started."),
		published: counter("retrievals_published_total", "Change sets published to observers."),
		coalesced: counter("retrievals_coalesced_total", "Retrievals whose result equalled the last published change set."),
		stale:     counter("retrievals_stale_total", "Retrieval results discarded because a newer retrieval had started."),
		failed:    counter("retrievals_failed_total", "Root resolutions and retrievals that failed."),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Time spent in git for one retrieval.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		watcherRestarts: counter("watcher_restarts_total", "Watches reopened after an atomic replace."),
		watcherFailures: counter("watcher_failures_total", "Watches that could not be reopened."),
		watcherErrors:   counter("watcher_errors_total", "Errors reported by file system watches."),
	}

	p.registry.MustRegister(
		p.started, p.published, p.coalesced, p.stale, p.failed, p.duration,
		p.watcherRestarts, p.watcherFailures, p.watcherErrors,
	)
	return p
}

// Registry returns the pipeline's registry.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Pipeline) RetrievalStarted()   { p.started.Inc() }
func (p *Pipeline) RetrievalPublished() { p.published.Inc() }
func (p *Pipeline) RetrievalCoalesced() { p.coalesced.Inc() }
func (p *Pipeline) RetrievalStale()     { p.stale.Inc() }
func (p *Pipeline) RetrievalFailed()    { p.failed.Inc() }

// ObserveRetrieval records how long one retrieval took.
func (p *Pipeline) ObserveRetrieval(d time.Duration) {
	p.duration.Observe(d.Seconds())
}

// WatcherRestarted counts a reopen attempt. It matches the watcher
// package's restart hook.
func (p *Pipeline) WatcherRestarted(ok bool) {
	if ok {
		p.watcherRestarts.Inc()
		return
	}
	p.watcherFailures.Inc()
}

// WatcherError counts an error reported by a watch.
func (p *Pipeline) WatcherError(error) {
	p.watcherErrors.Inc()
}
