// Package trace carries structured events out of the review core.
package trace

import (
	"context"
	"log/slog"
	"time"

	"ReviewQueue/internal/domain"
)

// QueuePlanned is emitted after the planner ran a queue query.
type QueuePlanned struct {
	QueueType domain.QueueType
	SortKey   string
	Clauses   []string
	Total     int
	PageSize  int
	Page      int
	Elapsed   time.Duration
}

// DecisionApplied is emitted for each state record written.
type DecisionApplied struct {
	QueueType domain.QueueType
	Key       domain.DecisionKey
	Decision  domain.Decision
	State     string
	ActorID   int64
}

// DecisionSkipped is emitted for each batch entry that did not produce a write.
type DecisionSkipped struct {
	QueueType domain.QueueType
	Key       domain.DecisionKey
	Decision  domain.Decision
	Reason    error
}

// SpecificationSaved is emitted whenever a queue specification version is stored.
type SpecificationSaved struct {
	ID      string
	Parent  string
	Version int
	Owner   int64
}

// Observer receives trace events from the review core.
type Observer interface {
	OnQueuePlanned(ctx context.Context, ev QueuePlanned)
	OnDecisionApplied(ctx context.Context, ev DecisionApplied)
	OnDecisionSkipped(ctx context.Context, ev DecisionSkipped)
	OnSpecificationSaved(ctx context.Context, ev SpecificationSaved)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnQueuePlanned(context.Context, QueuePlanned) {}
func (NopObserver) OnDecisionApplied(context.Context, DecisionApplied) {}
func (NopObserver) OnDecisionSkipped(context.Context, DecisionSkipped) {}
func (NopObserver) OnSpecificationSaved(context.Context, SpecificationSaved) {}

// Observers fans every event out to each member in order.
type Observers []Observer

func (o Observers) OnQueuePlanned(ctx context.Context, ev QueuePlanned) {
	for _, obs := range o {
		obs.OnQueuePlanned(ctx, ev)
	}
}

func (o Observers) OnDecisionApplied(ctx context.Context, ev DecisionApplied) {
	for _, obs := range o {
		obs.OnDecisionApplied(ctx, ev)
	}
}

func (o Observers) OnDecisionSkipped(ctx context.Context, ev DecisionSkipped) {
	for _, obs := range o {
		obs.OnDecisionSkipped(ctx, ev)
	}
}

func (o Observers) OnSpecificationSaved(ctx context.Context, ev SpecificationSaved) {
	for _, obs := range o {
		obs.OnSpecificationSaved(ctx, ev)
	}
}

// OrNop returns obs, or a NopObserver when obs is nil.
func OrNop(obs Observer) Observer {
	if obs == nil {
		return NopObserver{}
	}
	return obs
}

// LogObserver writes events as slog records.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver wires an observer to the given logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (l *LogObserver) OnQueuePlanned(ctx context.Context, ev QueuePlanned) {
	l.logger.DebugContext(ctx, "queue planned",
		"queue_type", ev.QueueType,
		"sort", ev.SortKey,
		"clauses", ev.Clauses,
		"total", ev.Total,
		"page", ev.Page,
		"per_page", ev.PageSize,
		"elapsed", ev.Elapsed,
	)
}

func (l *LogObserver) OnDecisionApplied(ctx context.Context, ev DecisionApplied) {
	l.logger.InfoContext(ctx, "decision applied",
		"queue_type", ev.QueueType,
		"key", ev.Key.String(),
		"decision", ev.Decision.Label(),
		"state", ev.State,
		"actor", ev.ActorID,
	)
}

func (l *LogObserver) OnDecisionSkipped(ctx context.Context, ev DecisionSkipped) {
	l.logger.WarnContext(ctx, "decision skipped",
		"queue_type", ev.QueueType,
		"key", ev.Key.String(),
		"decision", int(ev.Decision),
		"reason", ev.Reason,
	)
}

func (l *LogObserver) OnSpecificationSaved(ctx context.Context, ev SpecificationSaved) {
	l.logger.DebugContext(ctx, "queue specification saved",
		"id", ev.ID,
		"parent", ev.Parent,
		"version", ev.Version,
		"owner", ev.Owner,
	)
}
