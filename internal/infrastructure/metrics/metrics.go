// Package metrics exports review queue trace events as Prometheus metrics.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/trace"
)

const namespace = "reviewqueue"

// Observer implements trace.Observer on top of Prometheus collectors.
type Observer struct {
	QueueQueries      *prometheus.CounterVec
	QueueDuration     *prometheus.HistogramVec
	QueueSize         *prometheus.HistogramVec
	DecisionsApplied  *prometheus.CounterVec
	DecisionsSkipped  *prometheus.CounterVec
	SpecificationSave prometheus.Counter
}

var _ trace.Observer = (*Observer)(nil)

// NewObserver registers the collectors with reg.
func NewObserver(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)
	return &Observer{
		QueueQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_queries_total",
				Help:      "Total number of queue page queries",
			},
			[]string{"queue_type", "sort"},
		),
		QueueDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "queue_query_duration_seconds",
				Help:      "Duration of queue count and page queries in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"queue_type"},
		),
		QueueSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "queue_size",
				Help:      "Distribution of matching associations per queue query",
				Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
			},
			[]string{"queue_type"},
		),
		DecisionsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_applied_total",
				Help:      "Total number of state records written from reviewer decisions",
			},
			[]string{"queue_type", "state"},
		),
		DecisionsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_skipped_total",
				Help:      "Total number of decisions skipped with a warning",
			},
			[]string{"queue_type", "reason"},
		),
		SpecificationSave: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "specifications_saved_total",
				Help:      "Total number of queue specification versions stored",
			},
		),
	}
}

func (o *Observer) OnQueuePlanned(_ context.Context, ev trace.QueuePlanned) {
	qt := string(ev.QueueType)
	o.QueueQueries.WithLabelValues(qt, ev.SortKey).Inc()
	o.QueueDuration.WithLabelValues(qt).Observe(ev.Elapsed.Seconds())
	o.QueueSize.WithLabelValues(qt).Observe(float64(ev.Total))
}

func (o *Observer) OnDecisionApplied(_ context.Context, ev trace.DecisionApplied) {
	o.DecisionsApplied.WithLabelValues(string(ev.QueueType), ev.State).Inc()
}

func (o *Observer) OnDecisionSkipped(_ context.Context, ev trace.DecisionSkipped) {
	o.DecisionsSkipped.WithLabelValues(string(ev.QueueType), SkipReason(ev.Reason)).Inc()
}

func (o *Observer) OnSpecificationSaved(context.Context, trace.SpecificationSaved) {
	o.SpecificationSave.Inc()
}

// SkipReason maps a skip error to a low-cardinality label value.
func SkipReason(err error) string {
	var invalid *domain.InvalidDecisionCodeError
	switch {
	case errors.As(err, &invalid):
		return "invalid_code"
	case errors.Is(err, domain.ErrTopicNotAssigned):
		return "not_assigned"
	case errors.Is(err, domain.ErrAssociationNotFound):
		return "no_association"
	default:
		return "other"
	}
}
