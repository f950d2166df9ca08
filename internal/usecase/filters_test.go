package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewQueue/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestUpdateFiltersAppliesChanges(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	user := reviewerWith(44, domain.PermAbstractReview)
	key := domain.DecisionKey{ArticleID: 12, TopicID: 7}

	id, err := f.queue.ResetQueue(ctx, user)
	require.NoError(t, err)
	id, err = f.queue.ToggleDecision(ctx, id, user, key, domain.DecisionApprove)
	require.NoError(t, err)

	next, err := f.queue.UpdateFilters(ctx, id, user, FilterUpdate{
		QueueType:    ptr(string(domain.AbstractReview)),
		Board:        ptr(int64(2)),
		Topics:       []int64{9},
		Cycle:        ptr(int64(30)),
		Tag:          ptr(int64(3)),
		Sort:         ptr("core"),
		ReviewBoards: ptr(domain.ReviewBoardsMine),
	})
	require.NoError(t, err)

	spec, err := f.sessions.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, int64(2), spec.Board)
	assert.Equal(t, []int64{9}, spec.Topics)
	assert.Equal(t, int64(30), spec.Cycle)
	assert.Equal(t, int64(3), spec.Tag)
	assert.Equal(t, "core", spec.SortKey)
	assert.Equal(t, domain.ReviewBoardsMine, spec.ReviewBoards)
	assert.Equal(t, domain.FormatBrief, spec.Format)
	assert.True(t, spec.Filtered)
	assert.Equal(t, domain.DecisionApprove, spec.QueuedDecisions[key])

	cleared, err := f.queue.UpdateFilters(ctx, next, user, FilterUpdate{Topics: []int64{}})
	require.NoError(t, err)
	spec, err = f.sessions.Load(ctx, cleared)
	require.NoError(t, err)
	assert.Empty(t, spec.Topics)
	assert.Equal(t, int64(2), spec.Board)
}

func TestUpdateFiltersQueueTypeChangeClearsDecisions(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	user := reviewerWith(45, domain.PermFullTextReview)

	id, err := f.queue.ResetQueue(ctx, user)
	require.NoError(t, err)
	id, err = f.queue.ToggleDecision(ctx, id, user, domain.DecisionKey{ArticleID: 12, TopicID: 7}, domain.DecisionOnHold)
	require.NoError(t, err)

	next, err := f.queue.UpdateFilters(ctx, id, user, FilterUpdate{QueueType: ptr(string(domain.OnHoldReview))})
	require.NoError(t, err)

	spec, err := f.sessions.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, domain.OnHoldReview, spec.QueueType)
	assert.Empty(t, spec.QueuedDecisions)

	_, err = f.queue.UpdateFilters(ctx, next, user, FilterUpdate{QueueType: ptr(string(domain.LibrarianReview))})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestUpdateFiltersValidation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	user := reviewerWith(44, domain.PermAbstractReview)

	id, err := f.queue.ResetQueue(ctx, user)
	require.NoError(t, err)

	cases := []struct {
		name  string
		upd   FilterUpdate
		field string
	}{
		{name: "queue type", upd: FilterUpdate{QueueType: ptr("Weekly Review")}, field: "type"},
		{name: "format", upd: FilterUpdate{Format: ptr("wide")}, field: "format"},
		{name: "page size", upd: FilterUpdate{PerPage: ptr(7)}, field: "per-page"},
		{name: "review boards", upd: FilterUpdate{ReviewBoards: ptr("some")}, field: "review-boards"},
		{name: "board", upd: FilterUpdate{Board: ptr(int64(-1))}, field: "board"},
		{name: "sort", upd: FilterUpdate{Sort: ptr("random")}, field: "sort"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.queue.UpdateFilters(ctx, id, user, tc.upd)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Errors, tc.field)
		})
	}
	assert.Len(t, f.params.rows, 1)
}
