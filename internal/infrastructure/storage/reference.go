package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"ReviewQueue/internal/domain"
)

type named struct {
	id   int64
	name string
}

func (r *PostgresRepository) named(ctx context.Context, what string, q sq.SelectBuilder) ([]named, error) {
	var out []named
	err := r.each(ctx, what, q, func(row pgx.CollectableRow) error {
		var n named
		if err := row.Scan(&n.id, &n.name); err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	return out, err
}

// Boards lists every board by name.
func (r *PostgresRepository) Boards(ctx context.Context) ([]domain.Board, error) {
	rows, err := r.named(ctx, "boards", psql.Select("id", "name").From("ebms_board").OrderBy("name"))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Board, len(rows))
	for i, n := range rows {
		out[i] = domain.Board{ID: n.id, Name: n.name}
	}
	return out, nil
}

// Cycles lists the review cycles, most recent first.
func (r *PostgresRepository) Cycles(ctx context.Context) ([]domain.Cycle, error) {
	rows, err := r.named(ctx, "review cycles", psql.Select("id", "name").From("ebms_review_cycle").OrderBy("start_date DESC"))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Cycle, len(rows))
	for i, n := range rows {
		out[i] = domain.Cycle{ID: n.id, Name: n.name}
	}
	return out, nil
}

// Tags lists the active tags by name.
func (r *PostgresRepository) Tags(ctx context.Context) ([]domain.Tag, error) {
	q := psql.Select("id", "name").From("ebms_tag").Where(sq.Expr("active")).OrderBy("name")
	rows, err := r.named(ctx, "tags", q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Tag, len(rows))
	for i, n := range rows {
		out[i] = domain.Tag{ID: n.id, Name: n.name}
	}
	return out, nil
}

const typeAncestorsSQL = `SELECT value FROM on_demand_config WHERE name = 'article-type-ancestors'`

// TypeHierarchy loads the precomputed publication-type ancestor map. A missing
// entry yields an empty hierarchy.
func (r *PostgresRepository) TypeHierarchy(ctx context.Context) (domain.TypeHierarchy, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, typeAncestorsSQL).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TypeHierarchy{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load type ancestors: %w", err)
	}

	var decoded map[string][]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode type ancestors: %w", err)
	}
	h := make(domain.TypeHierarchy, len(decoded))
	for name, ancestors := range decoded {
		h[strings.ToLower(name)] = ancestors
	}
	return h, nil
}
