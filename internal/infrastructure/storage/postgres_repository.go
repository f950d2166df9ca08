package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ReviewQueue/internal/ports"
)

// PgxIface is the subset of *pgxpool.Pool the repository uses.
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository reads and writes the review workflow tables.
type PostgresRepository struct {
	pool PgxIface
}

var (
	_ ports.StateSource    = (*PostgresRepository)(nil)
	_ ports.TopicStore     = (*PostgresRepository)(nil)
	_ ports.ArticleLoader  = (*PostgresRepository)(nil)
	_ ports.StateWriter    = (*PostgresRepository)(nil)
	_ ports.UserStore      = (*PostgresRepository)(nil)
	_ ports.ReferenceStore = (*PostgresRepository)(nil)
	_ ports.ParameterStore = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a pool implementation.
func NewPostgresRepository(pool PgxIface) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// each runs the built query and hands every row to fn.
func (r *PostgresRepository) each(ctx context.Context, what string, q sq.Sqlizer, fn func(row pgx.CollectableRow) error) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", what, err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query %s: %w", what, err)
	}
	_, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (struct{}, error) {
		return struct{}{}, fn(row)
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", what, err)
	}
	return nil
}
