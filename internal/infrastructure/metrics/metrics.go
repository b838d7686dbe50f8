package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/ioutracker/internal/usecase"
)

// Metrics holds all domain Prometheus metrics. It implements
// usecase.Recorder and the cache Stats hook.
type Metrics struct {
	// Entry metrics
	EntriesCreated       prometheus.Counter
	EntriesDeleted       prometheus.Counter
	ValidationRejections *prometheus.CounterVec

	// Split metrics
	SplitsAllocated prometheus.Counter
	SplitShares     prometheus.Histogram

	// Settlement metrics
	Settlements       *prometheus.CounterVec
	EntriesSettled    *prometheus.CounterVec
	SettlementFailed  *prometheus.CounterVec
	SettlementEntries prometheus.Histogram

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New creates all metrics and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Entry metrics
		EntriesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "iou_entries_created_total",
			Help: "Total number of entries created",
		}),
		EntriesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "iou_entries_deleted_total",
			Help: "Total number of entries deleted by id",
		}),
		ValidationRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iou_validation_rejected_total",
				Help: "Total number of entries rejected by validation",
			},
			[]string{"reason"},
		),

		// Split metrics
		SplitsAllocated: factory.NewCounter(prometheus.CounterOpts{
			Name: "iou_splits_total",
			Help: "Total number of bill splits",
		}),
		SplitShares: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "iou_split_shares",
			Help:    "Number of entries created per split",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),

		// Settlement metrics
		Settlements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iou_settlements_total",
				Help: "Total number of settlements by mode",
			},
			[]string{"mode"},
		),
		EntriesSettled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iou_entries_settled_total",
				Help: "Total number of entries soft-deleted by settlements",
			},
			[]string{"mode"},
		),
		SettlementFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iou_settlement_failed_deletions_total",
				Help: "Total number of entries a settlement failed to delete",
			},
			[]string{"mode"},
		),
		SettlementEntries: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "iou_settlement_entries",
			Help:    "Number of entries settled per settlement",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
		}),

		// Cache metrics
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iou_cache_hits_total",
				Help: "Total cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iou_cache_misses_total",
				Help: "Total cache misses",
			},
			[]string{"cache"},
		),
	}
}

var _ usecase.Recorder = (*Metrics)(nil)

func (m *Metrics) EntryCreated() { m.EntriesCreated.Inc() }

func (m *Metrics) EntryDeleted() { m.EntriesDeleted.Inc() }

func (m *Metrics) ValidationRejected(reason string) {
	m.ValidationRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) SplitAllocated(shares int) {
	m.SplitsAllocated.Inc()
	m.SplitShares.Observe(float64(shares))
}

func (m *Metrics) SettlementCompleted(mode usecase.SettlementMode, settled, failed int) {
	label := string(mode)
	m.Settlements.WithLabelValues(label).Inc()
	m.EntriesSettled.WithLabelValues(label).Add(float64(settled))
	m.SettlementFailed.WithLabelValues(label).Add(float64(failed))
	m.SettlementEntries.Observe(float64(settled))
}

func (m *Metrics) CacheHit(name string) { m.CacheHits.WithLabelValues(name).Inc() }

func (m *Metrics) CacheMiss(name string) { m.CacheMisses.WithLabelValues(name).Inc() }
