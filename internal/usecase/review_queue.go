package usecase

import (
	"context"
	"fmt"

	"ReviewQueue/internal/decision"
	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/permission"
	"ReviewQueue/internal/picklist"
	"ReviewQueue/internal/planner"
	"ReviewQueue/internal/ports"
	"ReviewQueue/internal/render"
	"ReviewQueue/internal/session"
)

// QueueFinder runs queue queries. *planner.Runner is the production implementation.
type QueueFinder interface {
	Find(ctx context.Context, spec domain.QueueSpecification, page int) (planner.Result, error)
	Sorts() *planner.Registry
}

// ReviewQueueDeps wires the review core into the queue workflow.
type ReviewQueueDeps struct {
	Sessions        *session.Store
	Users           ports.UserStore
	Reference       ports.ReferenceStore
	Topics          ports.TopicStore
	Articles        ports.ArticleLoader
	Gate            *permission.Gate
	Picklists       *picklist.Builder
	Finder          QueueFinder
	Renderer        *render.Renderer
	Decisions       *decision.Engine
	Validator       *Validator
	DefaultPageSize int
}

// ReviewQueue implements the queue view and decision workflow.
type ReviewQueue struct {
	sessions        *session.Store
	users           ports.UserStore
	reference       ports.ReferenceStore
	topics          ports.TopicStore
	articles        ports.ArticleLoader
	gate            *permission.Gate
	picklists       *picklist.Builder
	finder          QueueFinder
	renderer        *render.Renderer
	decisions       *decision.Engine
	validator       *Validator
	defaultPageSize int
}

// NewReviewQueue constructs the workflow component.
func NewReviewQueue(deps ReviewQueueDeps) *ReviewQueue {
	gate := deps.Gate
	if gate == nil {
		gate = permission.NewGate(nil)
	}
	v := deps.Validator
	if v == nil {
		v = NewValidator()
	}
	pageSize := deps.DefaultPageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	return &ReviewQueue{
		sessions:        deps.Sessions,
		users:           deps.Users,
		reference:       deps.Reference,
		topics:          deps.Topics,
		articles:        deps.Articles,
		gate:            gate,
		picklists:       deps.Picklists,
		finder:          deps.Finder,
		renderer:        deps.Renderer,
		decisions:       deps.Decisions,
		validator:       v,
		defaultPageSize: pageSize,
	}
}

// ResetQueue stores a brand-new specification built from the user's defaults
// and returns its id. Earlier specifications are left as they are.
func (q *ReviewQueue) ResetQueue(ctx context.Context, user domain.User) (string, error) {
	qt, err := q.gate.DefaultQueueType(user)
	if err != nil {
		return "", err
	}
	return q.sessions.Save(ctx, q.newSpecification(user, qt))
}

func (q *ReviewQueue) newSpecification(user domain.User, qt domain.QueueType) domain.QueueSpecification {
	d := user.Defaults
	spec := domain.QueueSpecification{
		QueueType:       qt,
		Board:           user.DefaultBoard(),
		SortKey:         d.Sort,
		Format:          d.Format,
		PageSize:        d.PerPage,
		ReviewBoards:    d.ReviewBoards,
		QueuedDecisions: map[domain.DecisionKey]domain.Decision{},
		Owner:           user.ID,
	}
	if spec.SortKey == "" || !q.finder.Sorts().Known(spec.SortKey) {
		spec.SortKey = domain.DefaultSort
	}
	if spec.Format != domain.FormatAbstract {
		spec.Format = domain.FormatBrief
	}
	if !validPageSize(spec.PageSize) {
		spec.PageSize = q.defaultPageSize
	}
	if spec.ReviewBoards != domain.ReviewBoardsMine {
		spec.ReviewBoards = domain.ReviewBoardsAll
	}
	return spec
}

// load fetches the specification and checks the user may work it.
func (q *ReviewQueue) load(ctx context.Context, queueID string, user domain.User) (domain.QueueSpecification, error) {
	spec, err := q.sessions.Load(ctx, queueID)
	if err != nil {
		return domain.QueueSpecification{}, err
	}
	if spec.Owner != 0 && spec.Owner != user.ID {
		return domain.QueueSpecification{}, domain.ErrAccessDenied
	}
	if err := q.gate.Authorize(user, spec.QueueType); err != nil {
		return domain.QueueSpecification{}, err
	}
	return spec, nil
}

// SaveDefaults stores the queue's display options as the user's defaults.
func (q *ReviewQueue) SaveDefaults(ctx context.Context, queueID string, user domain.User) error {
	spec, err := q.load(ctx, queueID, user)
	if err != nil {
		return err
	}
	err = q.users.SaveReviewDefaults(ctx, user.ID, domain.ReviewDefaults{
		Sort:         spec.SortKey,
		Format:       spec.Format,
		PerPage:      spec.PageSize,
		ReviewBoards: spec.ReviewBoards,
	})
	if err != nil {
		return fmt.Errorf("save defaults: %w", err)
	}
	return nil
}

func validPageSize(n int) bool {
	for _, size := range domain.PageSizes {
		if n == size {
			return true
		}
	}
	return false
}
