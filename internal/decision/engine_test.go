package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewQueue/internal/catalog"
	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/trace"
)

type association struct {
	article, topic int64
}

// memoryStates keeps an append-only state history, like ebms_state.
type memoryStates struct {
	records   []domain.StateRecord
	linked    map[association]bool
	failAfter int
}

func (m *memoryStates) ApplyState(_ context.Context, t domain.StateTransition) (domain.StateRecord, error) {
	if m.failAfter > 0 && len(m.records) >= m.failAfter {
		return domain.StateRecord{}, errors.New("connection reset")
	}
	if !m.linked[association{t.ArticleID, t.TopicID}] {
		return domain.StateRecord{}, domain.ErrAssociationNotFound
	}
	if t.FromStateID != 0 {
		for _, r := range m.current(t.ArticleID, t.TopicID) {
			if r.StateID != t.FromStateID {
				return domain.StateRecord{}, domain.ErrStateChanged
			}
		}
	}
	for i := range m.records {
		r := &m.records[i]
		if r.ArticleID == t.ArticleID && r.TopicID == t.TopicID {
			r.Current = false
		}
	}
	rec := domain.StateRecord{
		ID:        int64(len(m.records) + 1),
		StateID:   t.StateID,
		ArticleID: t.ArticleID,
		TopicID:   t.TopicID,
		ActorID:   t.ActorID,
		Entered:   t.Entered,
		Current:   true,
	}
	m.records = append(m.records, rec)
	return rec, nil
}

// moveTo makes every association's current record hold the given state.
func (m *memoryStates) moveTo(stateID int64) {
	for i := range m.records {
		m.records[i].StateID = stateID
	}
}

func (m *memoryStates) current(article, topic int64) []domain.StateRecord {
	var out []domain.StateRecord
	for _, r := range m.records {
		if r.ArticleID == article && r.TopicID == topic && r.Current {
			out = append(out, r)
		}
	}
	return out
}

type fakeTopics struct {
	topics map[int64]domain.Topic
}

func (f fakeTopics) ActiveTopics(context.Context, []int64) ([]domain.Topic, error) { return nil, nil }

func (f fakeTopics) PendingCounts(context.Context, []int64, int64, bool) (map[int64]int, error) {
	return nil, nil
}

func (f fakeTopics) TopicsByID(_ context.Context, ids []int64) (map[int64]domain.Topic, error) {
	out := map[int64]domain.Topic{}
	for _, id := range ids {
		if t, ok := f.topics[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

type recorder struct {
	trace.NopObserver
	applied []trace.DecisionApplied
	skipped []trace.DecisionSkipped
}

func (r *recorder) OnDecisionApplied(_ context.Context, ev trace.DecisionApplied) {
	r.applied = append(r.applied, ev)
}

func (r *recorder) OnDecisionSkipped(_ context.Context, ev trace.DecisionSkipped) {
	r.skipped = append(r.skipped, ev)
}

var testCatalog = catalog.New([]domain.StateType{
	{ID: 1, TextID: domain.StateReadyInitReview},
	{ID: 2, TextID: domain.StateRejectInitReview},
	{ID: 3, TextID: domain.StatePassedInitReview},
	{ID: 5, TextID: domain.StatePublished},
	{ID: 6, TextID: domain.StateRejectBMReview},
	{ID: 7, TextID: domain.StatePassedBMReview},
	{ID: 8, TextID: domain.StateFYI},
	{ID: 11, TextID: domain.StateOnHold},
	{ID: 12, TextID: domain.StateRejectFullReview},
	{ID: 13, TextID: domain.StatePassedFullReview},
})

func boardReviewer(perms ...string) domain.User {
	u := domain.User{ID: 44, Boards: []int64{1}, Permissions: map[string]bool{}}
	for _, p := range perms {
		u.Permissions[p] = true
	}
	return u
}

func setup(linked ...association) (*Engine, *memoryStates, *recorder) {
	store := &memoryStates{linked: map[association]bool{}}
	for _, a := range linked {
		store.linked[a] = true
		store.records = append(store.records, domain.StateRecord{
			ID: int64(len(store.records) + 1), StateID: 5, ArticleID: a.article, TopicID: a.topic, Current: true,
		})
	}
	obs := &recorder{}
	engine := NewEngine(Deps{
		States: testCatalog,
		Topics: fakeTopics{topics: map[int64]domain.Topic{
			7: {ID: 7, Name: "Breast", BoardID: 1, Active: true},
			8: {ID: 8, Name: "Lung", BoardID: 1, Active: true},
			9: {ID: 9, Name: "Skin", BoardID: 2, Active: true},
		}},
		Writer:   store,
		Observer: obs,
	})
	return engine, store, obs
}

func TestApplyAbstractApproval(t *testing.T) {
	t.Parallel()

	engine, store, obs := setup(association{12, 7})
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	res, err := engine.Apply(context.Background(), domain.AbstractReview,
		map[domain.DecisionKey]domain.Decision{{ArticleID: 12, TopicID: 7}: domain.DecisionApprove},
		boardReviewer(domain.PermAbstractReview), now)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Applied)
	assert.Empty(t, res.Warnings)

	current := store.current(12, 7)
	require.Len(t, current, 1, "exactly one current record per association")
	assert.Equal(t, int64(7), current[0].StateID)
	assert.Equal(t, int64(44), current[0].ActorID)
	assert.Equal(t, now, current[0].Entered)
	assert.False(t, store.records[0].Current, "previous current record cleared")

	require.Len(t, obs.applied, 1)
	assert.Equal(t, domain.StatePassedBMReview, obs.applied[0].State)
}

func TestApplyUnmappedCodeIsWarning(t *testing.T) {
	t.Parallel()

	engine, store, obs := setup(association{12, 7})

	res, err := engine.Apply(context.Background(), domain.LibrarianReview,
		map[domain.DecisionKey]domain.Decision{{ArticleID: 12, TopicID: 7}: domain.DecisionOnHold},
		boardReviewer(domain.PermInitialReview), time.Now())
	require.NoError(t, err)

	assert.Zero(t, res.Applied)
	require.Len(t, res.Warnings, 1)
	var invalid *domain.InvalidDecisionCodeError
	require.ErrorAs(t, res.Warnings[0].Err, &invalid)
	assert.Equal(t, domain.DecisionOnHold, invalid.Code)
	assert.Equal(t, "Article 12 topic 7: decision code 2 is not valid for Librarian Review", res.Warnings[0].Message())
	assert.Len(t, store.records, 1, "no state record written")
	assert.Len(t, obs.skipped, 1)
}

func TestApplyNoneNeverWrites(t *testing.T) {
	t.Parallel()

	for _, qt := range domain.QueueTypes {
		engine, store, _ := setup(association{12, 7})
		user := boardReviewer(domain.PermInitialReview, domain.PermAbstractReview, domain.PermFullTextReview)

		res, err := engine.Apply(context.Background(), qt,
			map[domain.DecisionKey]domain.Decision{{ArticleID: 12, TopicID: 7}: domain.DecisionNone}, user, time.Now())
		require.NoError(t, err, qt)
		assert.Zero(t, res.Applied, qt)
		assert.Empty(t, res.Warnings, qt)
		assert.Len(t, store.records, 1, qt)
	}
}

func TestApplyMixedBatch(t *testing.T) {
	t.Parallel()

	engine, store, _ := setup(association{10, 7}, association{12, 8}, association{14, 9})
	store.moveTo(7)
	user := boardReviewer(domain.PermFullTextReview)

	res, err := engine.Apply(context.Background(), domain.FullTextReview, map[domain.DecisionKey]domain.Decision{
		{ArticleID: 12, TopicID: 8}:  domain.DecisionFYI,
		{ArticleID: 10, TopicID: 7}:  domain.DecisionOnHold,
		{ArticleID: 14, TopicID: 9}:  domain.DecisionApprove,
		{ArticleID: 13, TopicID: 7}:  domain.DecisionReject,
		{ArticleID: 15, TopicID: 99}: domain.DecisionReject,
		{ArticleID: 16, TopicID: 7}:  domain.Decision(9),
	}, user, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, int64(10), res.Records[0].ArticleID)
	assert.Equal(t, int64(11), res.Records[0].StateID)
	assert.Equal(t, int64(12), res.Records[1].ArticleID)
	assert.Equal(t, int64(8), res.Records[1].StateID)

	reasons := map[int64]error{}
	for _, w := range res.Warnings {
		reasons[w.Key.ArticleID] = w.Err
	}
	require.Len(t, reasons, 4)
	assert.ErrorIs(t, reasons[13], domain.ErrAssociationNotFound)
	assert.ErrorIs(t, reasons[14], domain.ErrTopicNotAssigned)
	assert.ErrorIs(t, reasons[15], domain.ErrAssociationNotFound)
	var invalid *domain.InvalidDecisionCodeError
	assert.ErrorAs(t, reasons[16], &invalid)

	for _, a := range []association{{10, 7}, {12, 8}, {14, 9}} {
		assert.Len(t, store.current(a.article, a.topic), 1)
	}
}

func TestApplyRequiresQueueAuthorization(t *testing.T) {
	t.Parallel()

	engine, store, _ := setup(association{12, 7})
	_, err := engine.Apply(context.Background(), domain.AbstractReview,
		map[domain.DecisionKey]domain.Decision{{ArticleID: 12, TopicID: 7}: domain.DecisionApprove},
		boardReviewer(domain.PermInitialReview), time.Now())
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Len(t, store.records, 1)
}

func TestApplyStopsOnStoreFailure(t *testing.T) {
	t.Parallel()

	engine, store, _ := setup(association{12, 7}, association{13, 7})
	store.failAfter = 3

	res, err := engine.Apply(context.Background(), domain.AbstractReview, map[domain.DecisionKey]domain.Decision{
		{ArticleID: 12, TopicID: 7}: domain.DecisionApprove,
		{ArticleID: 13, TopicID: 7}: domain.DecisionReject,
	}, boardReviewer(domain.PermAbstractReview), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply decision 13|7")
	assert.Equal(t, 1, res.Applied, "entries applied before the failure stay applied")
	assert.Len(t, store.current(12, 7), 1)
	assert.Len(t, store.current(13, 7), 1)
}

func TestApplySkipsAssociationsThatLeftTheQueue(t *testing.T) {
	t.Parallel()

	engine, store, obs := setup(association{12, 7}, association{13, 7})
	user := boardReviewer(domain.PermAbstractReview)
	batch := map[domain.DecisionKey]domain.Decision{
		{ArticleID: 12, TopicID: 7}: domain.DecisionApprove,
		{ArticleID: 13, TopicID: 7}: domain.DecisionApprove,
	}

	first, err := engine.Apply(context.Background(), domain.AbstractReview, batch, user, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Applied)

	again, err := engine.Apply(context.Background(), domain.AbstractReview, batch, user, time.Now())
	require.NoError(t, err)
	assert.Zero(t, again.Applied)
	require.Len(t, again.Warnings, 2)
	for _, w := range again.Warnings {
		assert.ErrorIs(t, w.Err, domain.ErrStateChanged)
	}
	assert.Len(t, store.records, 4, "no association written twice")
	assert.Len(t, obs.skipped, 2)
}
