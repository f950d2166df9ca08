package ports

import (
	"context"
	"errors"

	"ReviewQueue/internal/domain"
)

// ErrNotFound is returned by adapters when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// StateSource lists the registered workflow states.
type StateSource interface {
	StateTypes(ctx context.Context) ([]domain.StateType, error)
}

// PermissionChecker is the capability predicate supplied by the auth layer.
type PermissionChecker interface {
	HasPermission(user domain.User, permission string) bool
}

// TopicStore answers the topic picklist queries.
type TopicStore interface {
	ActiveTopics(ctx context.Context, boardIDs []int64) ([]domain.Topic, error)
	PendingCounts(ctx context.Context, topicIDs []int64, stateID int64, requireFullText bool) (map[int64]int, error)
	TopicsByID(ctx context.Context, ids []int64) (map[int64]domain.Topic, error)
}

// ArticleLoader loads full article records, preserving the requested order.
type ArticleLoader interface {
	LoadArticles(ctx context.Context, ids []int64) ([]domain.Article, error)
}

// StateWriter records a new current state for one association, atomically.
type StateWriter interface {
	ApplyState(ctx context.Context, t domain.StateTransition) (domain.StateRecord, error)
}

// UserStore loads reviewers and persists their saved queue preferences.
type UserStore interface {
	LoadUser(ctx context.Context, id int64) (domain.User, error)
	SaveReviewDefaults(ctx context.Context, userID int64, defaults domain.ReviewDefaults) error
}

// ReferenceStore supplies the filter vocabularies.
type ReferenceStore interface {
	Boards(ctx context.Context) ([]domain.Board, error)
	Cycles(ctx context.Context) ([]domain.Cycle, error)
	Tags(ctx context.Context) ([]domain.Tag, error)
}

// TypeAncestry is the precomputed publication-type hierarchy.
type TypeAncestry interface {
	AncestorsOf(typeName string) []string
}

// ParameterStore is keyed persistence for saved request parameters.
type ParameterStore interface {
	SaveParameters(ctx context.Context, kind string, params []byte) (string, error)
	LoadParameters(ctx context.Context, id string) (kind string, params []byte, err error)
}
