// Package metrics holds the Prometheus counters recorded during a run and
// exports them in the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomePrimary   = "primary"
	OutcomeFallback  = "fallback"
	OutcomeDropped   = "dropped"
	OutcomeApplied   = "applied"
	OutcomeSkipped   = "skipped"
	OutcomeGenerated = "generated"
	OutcomeOmitted   = "omitted"
)

// Metrics holds the counters for a splicer run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	groupsTotal   *prometheus.CounterVec
	clipsTotal    *prometheus.CounterVec
	fadesTotal    *prometheus.CounterVec
	cardsTotal    *prometheus.CounterVec
	concatTotal   *prometheus.CounterVec
	groupDuration prometheus.Histogram
	unclassified  prometheus.Counter
}

// New creates and registers the splicer metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	groupsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "splicer_groups_total",
		Help: "Groups processed, by outcome",
	}, []string{"outcome"})
	clipsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "splicer_clips_normalized_total",
		Help: "Clips through normalization, by the tier that produced them or dropped",
	}, []string{"outcome"})
	fadesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "splicer_transitions_total",
		Help: "Clips through the transition step, applied or passed through",
	}, []string{"outcome"})
	cardsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "splicer_title_cards_total",
		Help: "Title cards requested, generated or omitted",
	}, []string{"outcome"})
	concatTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "splicer_concat_total",
		Help: "Successful concatenations by strategy tier",
	}, []string{"tier"})
	groupDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "splicer_group_duration_seconds",
		Help:    "Wall time spent on one group",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	unclassified := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "splicer_unclassified_files_total",
		Help: "Video files skipped because their name did not match the pattern",
	})

	registry.MustRegister(
		groupsTotal,
		clipsTotal,
		fadesTotal,
		cardsTotal,
		concatTotal,
		groupDuration,
		unclassified,
	)

	return &Metrics{
		registry:      registry,
		groupsTotal:   groupsTotal,
		clipsTotal:    clipsTotal,
		fadesTotal:    fadesTotal,
		cardsTotal:    cardsTotal,
		concatTotal:   concatTotal,
		groupDuration: groupDuration,
		unclassified:  unclassified,
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// GroupFinished records a finished group and its wall time.
func (m *Metrics) GroupFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.groupsTotal.WithLabelValues(outcome).Inc()
	m.groupDuration.Observe(elapsed.Seconds())
}

// ClipNormalized records a normalization outcome for one clip.
func (m *Metrics) ClipNormalized(outcome string) {
	if m == nil {
		return
	}
	m.clipsTotal.WithLabelValues(outcome).Inc()
}

// Transition records whether a fade was applied to a clip.
func (m *Metrics) Transition(outcome string) {
	if m == nil {
		return
	}
	m.fadesTotal.WithLabelValues(outcome).Inc()
}

// TitleCard records a title card outcome.
func (m *Metrics) TitleCard(outcome string) {
	if m == nil {
		return
	}
	m.cardsTotal.WithLabelValues(outcome).Inc()
}

// ConcatTier records which concatenation tier succeeded.
func (m *Metrics) ConcatTier(tier string) {
	if m == nil {
		return
	}
	m.concatTotal.WithLabelValues(tier).Inc()
}

// AddUnclassified adds n skipped files.
func (m *Metrics) AddUnclassified(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unclassified.Add(float64(n))
}

// WriteTextfile writes the current values to path in the text exposition
// format, atomically, for a node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
