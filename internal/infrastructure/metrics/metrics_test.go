package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/trace"
)

func TestObserverCountsEvents(t *testing.T) {
	t.Parallel()

	obs := NewObserver(prometheus.NewRegistry())
	ctx := context.Background()

	obs.OnQueuePlanned(ctx, trace.QueuePlanned{QueueType: domain.AbstractReview, SortKey: "core", Total: 12, Elapsed: 3 * time.Millisecond})
	obs.OnQueuePlanned(ctx, trace.QueuePlanned{QueueType: domain.AbstractReview, SortKey: "core"})
	obs.OnDecisionApplied(ctx, trace.DecisionApplied{QueueType: domain.AbstractReview, State: domain.StatePassedBMReview})
	obs.OnDecisionSkipped(ctx, trace.DecisionSkipped{
		QueueType: domain.LibrarianReview,
		Reason:    &domain.InvalidDecisionCodeError{QueueType: domain.LibrarianReview, Code: 2},
	})
	obs.OnSpecificationSaved(ctx, trace.SpecificationSaved{ID: "x"})

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.QueueQueries.WithLabelValues("Abstract Review", "core")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.DecisionsApplied.WithLabelValues("Abstract Review", domain.StatePassedBMReview)))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.DecisionsSkipped.WithLabelValues("Librarian Review", "invalid_code")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.SpecificationSave))
	assert.Equal(t, 1, testutil.CollectAndCount(obs.QueueSize))
}

func TestSkipReason(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not_assigned", SkipReason(domain.ErrTopicNotAssigned))
	assert.Equal(t, "no_association", SkipReason(domain.ErrAssociationNotFound))
	assert.Equal(t, "other", SkipReason(errors.New("boom")))
}
