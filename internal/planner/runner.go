package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/trace"
)

// DB is the part of a pgx pool the runner needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// StateResolver resolves queue types to stored state ids.
type StateResolver interface {
	QueueStateID(qt domain.QueueType) (int64, error)
}

// Result is one page of a review queue.
type Result struct {
	Total      int
	ArticleIDs []int64
}

// Runner executes queue plans against the store.
type Runner struct {
	db       DB
	states   StateResolver
	sorts    *Registry
	observer trace.Observer
}

// NewRunner wires the database, the state catalog and an optional observer.
func NewRunner(db DB, states StateResolver, sorts *Registry, observer trace.Observer) *Runner {
	if sorts == nil {
		sorts = NewRegistry()
	}
	return &Runner{db: db, states: states, sorts: sorts, observer: trace.OrNop(observer)}
}

// Sorts exposes the registry used for ordering.
func (r *Runner) Sorts() *Registry {
	return r.sorts
}

// Find returns the total number of matching associations and the requested page of article ids.
func (r *Runner) Find(ctx context.Context, spec domain.QueueSpecification, page int) (Result, error) {
	started := time.Now()

	stateID, err := r.states.QueueStateID(spec.QueueType)
	if err != nil {
		return Result{}, err
	}

	plan, err := Build(Request{Spec: spec, StateID: stateID, Page: page}, r.sorts)
	if err != nil {
		return Result{}, err
	}

	total, err := r.count(ctx, plan)
	if err != nil {
		return Result{}, err
	}

	var ids []int64
	if total > 0 && plan.Offset < uint64(total) {
		ids, err = r.page(ctx, plan)
		if err != nil {
			return Result{}, err
		}
	}

	r.observer.OnQueuePlanned(ctx, trace.QueuePlanned{
		QueueType: spec.QueueType,
		SortKey:   plan.Ordering.Key,
		Clauses:   plan.ClauseNames(),
		Total:     total,
		PageSize:  int(plan.Limit),
		Page:      page,
		Elapsed:   time.Since(started),
	})

	return Result{Total: total, ArticleIDs: ids}, nil
}

func (r *Runner) count(ctx context.Context, plan Plan) (int, error) {
	query, args, err := plan.CountSQL()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return int(total), nil
}

func (r *Runner) page(ctx context.Context, plan Plan) ([]int64, error) {
	query, args, err := plan.PageSQL()
	if err != nil {
		return nil, fmt.Errorf("build page query: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query queue page: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan article id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// DedupeIDs drops repeated ids, keeping the first occurrence of each.
func DedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
