package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/ports"
	"ReviewQueue/internal/session"
	"ReviewQueue/internal/usecase"
)

var secret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	users map[int64]domain.User
}

func (f fakeUsers) LoadUser(_ context.Context, id int64) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, ports.ErrNotFound
	}
	return u, nil
}

func (fakeUsers) SaveReviewDefaults(context.Context, int64, domain.ReviewDefaults) error {
	return nil
}

type fakeQueue struct {
	err       error
	user      domain.User
	page      int
	filters   usecase.FilterUpdate
	key       domain.DecisionKey
	decision  domain.Decision
	submitted map[domain.DecisionKey]domain.Decision
	now       time.Time
	defaults  string
	partial   bool
}

func (f *fakeQueue) ResetQueue(_ context.Context, user domain.User) (string, error) {
	f.user = user
	return "q1", f.err
}

func (f *fakeQueue) BuildQueueView(_ context.Context, id string, user domain.User, page int) (usecase.QueueView, error) {
	f.user, f.page = user, page
	if f.err != nil {
		return usecase.QueueView{}, f.err
	}
	return usecase.QueueView{ID: id, Title: "Abstract Review Queue"}, nil
}

func (f *fakeQueue) UpdateFilters(_ context.Context, _ string, _ domain.User, upd usecase.FilterUpdate) (string, error) {
	f.filters = upd
	return "q2", f.err
}

func (f *fakeQueue) ToggleDecision(_ context.Context, _ string, _ domain.User, key domain.DecisionKey, d domain.Decision) (string, error) {
	f.key, f.decision = key, d
	return "q3", f.err
}

func (f *fakeQueue) SubmitDecisions(_ context.Context, _ string, _ domain.User, submitted map[domain.DecisionKey]domain.Decision, now time.Time) (usecase.SubmitResult, error) {
	f.submitted, f.now = submitted, now
	if f.partial {
		return usecase.SubmitResult{QueueID: "q5", Applied: 1}, f.err
	}
	if f.err != nil {
		return usecase.SubmitResult{}, f.err
	}
	return usecase.SubmitResult{QueueID: "q4", Applied: len(submitted), Notice: usecase.AppliedNotice}, nil
}

func (f *fakeQueue) SaveDefaults(_ context.Context, id string, _ domain.User) error {
	f.defaults = id
	return f.err
}

var fixedNow = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

func newTestRouter(q *fakeQueue) *gin.Engine {
	h := NewHandler(HandlerDeps{
		Queue: q,
		Users: fakeUsers{users: map[int64]domain.User{
			44: {ID: 44, Name: "Reviewer"},
		}},
		JWTSecret: secret,
		Gatherer:  prometheus.NewRegistry(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       func() time.Time { return fixedNow },
	})
	return h.Router()
}

func token(t *testing.T, userID int64, key []byte) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(key)
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token(t, 44, secret))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeQueue{})
	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "not bearer", header: "Basic abc"},
		{name: "bad signature", header: "Bearer " + token(t, 44, []byte("other"))},
		{name: "unknown user", header: "Bearer " + token(t, 99, secret)},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/queues", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.name)
	}
}

func TestResetAndView(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	router := newTestRouter(q)

	rec := do(t, router, http.MethodPost, "/api/v1/queues", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"q1"}`, rec.Body.String())
	assert.Equal(t, int64(44), q.user.ID)

	rec = do(t, router, http.MethodGet, "/api/v1/queues/q1?page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view usecase.QueueView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "q1", view.ID)
	assert.Equal(t, 2, q.page)

	rec = do(t, router, http.MethodGet, "/api/v1/queues/q1?page=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionRoutes(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	router := newTestRouter(q)

	rec := do(t, router, http.MethodPut, "/api/v1/queues/q1/decisions/12%7C7", `{"decision":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DecisionKey{ArticleID: 12, TopicID: 7}, q.key)
	assert.Equal(t, domain.DecisionApprove, q.decision)

	rec = do(t, router, http.MethodPut, "/api/v1/queues/q1/decisions/bogus", `{"decision":4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/queues/q1/decisions", `{"decisions":{"12|7":4,"15|8":3}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[domain.DecisionKey]domain.Decision{
		{ArticleID: 12, TopicID: 7}: domain.DecisionApprove,
		{ArticleID: 15, TopicID: 8}: domain.DecisionReject,
	}, q.submitted)
	assert.Equal(t, fixedNow, q.now)
	assert.JSONEq(t, `{"id":"q4","applied":2,"warnings":null,"notice":"Queued decisions have been applied."}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/v1/queues/q1/decisions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, q.submitted)
}

func TestFiltersAndDefaults(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	router := newTestRouter(q)

	rec := do(t, router, http.MethodPut, "/api/v1/queues/q1/filters", `{"board":2,"topic":[9],"per-page":25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, q.filters.Board)
	assert.Equal(t, int64(2), *q.filters.Board)
	assert.Equal(t, []int64{9}, q.filters.Topics)
	require.NotNil(t, q.filters.PerPage)
	assert.Equal(t, 25, *q.filters.PerPage)
	assert.Nil(t, q.filters.Sort)

	rec = do(t, router, http.MethodPut, "/api/v1/queues/q1/filters", `{"board":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/queues/q1/defaults", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "q1", q.defaults)
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code int
	}{
		{err: domain.ErrAccessDenied, code: http.StatusForbidden},
		{err: session.ErrQueueNotFound, code: http.StatusNotFound},
		{err: &usecase.ValidationError{Errors: map[string]string{"format": "bad"}}, code: http.StatusBadRequest},
		{err: &domain.UnknownQueueTypeError{Name: "x"}, code: http.StatusInternalServerError},
		{err: errors.New("db down"), code: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		router := newTestRouter(&fakeQueue{err: tc.err})
		rec := do(t, router, http.MethodGet, "/api/v1/queues/q1", "")
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		if tc.code == http.StatusInternalServerError {
			assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
		}
	}
}

func TestSubmitPartialFailureReturnsRemainingQueue(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeQueue{err: errors.New("connection reset"), partial: true})
	rec := do(t, router, http.MethodPost, "/api/v1/queues/q3/decisions", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error","id":"q5","applied":1}`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeQueue{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
