package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ReviewQueue/internal/ports"
)

const (
	insertSavedRequestSQL = `INSERT INTO ebms_saved_request (id, request_type, parameters, created)
VALUES ($1, $2, $3, NOW())`
	loadSavedRequestSQL = `SELECT request_type, parameters FROM ebms_saved_request WHERE id = $1`
)

// SaveParameters stores the parameters under a new random id.
func (r *PostgresRepository) SaveParameters(ctx context.Context, kind string, params []byte) (string, error) {
	id := uuid.New()
	if _, err := r.pool.Exec(ctx, insertSavedRequestSQL, id, kind, params); err != nil {
		return "", fmt.Errorf("insert saved request: %w", err)
	}
	return id.String(), nil
}

// LoadParameters returns the kind and parameters stored under id.
func (r *PostgresRepository) LoadParameters(ctx context.Context, id string) (string, []byte, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", nil, fmt.Errorf("saved request %q: %w", id, ports.ErrNotFound)
	}

	var kind string
	var params []byte
	err = r.pool.QueryRow(ctx, loadSavedRequestSQL, parsed).Scan(&kind, &params)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, fmt.Errorf("saved request %s: %w", parsed, ports.ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("load saved request: %w", err)
	}
	return kind, params, nil
}
