package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/ports"
)

const loadUserSQL = `SELECT id, name,
	COALESCE(review_sort, ''), COALESCE(review_format, ''),
	COALESCE(review_per_page, 0), COALESCE(review_boards, '')
FROM ebms_user WHERE id = $1 AND active`

// LoadUser loads the reviewer with permissions, assignments and saved defaults.
func (r *PostgresRepository) LoadUser(ctx context.Context, id int64) (domain.User, error) {
	u := domain.User{Permissions: map[string]bool{}}
	d := &u.Defaults
	err := r.pool.QueryRow(ctx, loadUserSQL, id).Scan(&u.ID, &u.Name, &d.Sort, &d.Format, &d.PerPage, &d.ReviewBoards)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}

	perms := psql.Select("permission").From("ebms_user_permission").Where(sq.Eq{`"user"`: id})
	err = r.each(ctx, "user permissions", perms, func(row pgx.CollectableRow) error {
		var name string
		if err := row.Scan(&name); err != nil {
			return err
		}
		u.Permissions[name] = true
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	if u.Boards, err = r.userIDs(ctx, "user boards", "ebms_board_member", "board", id); err != nil {
		return domain.User{}, err
	}
	if u.Topics, err = r.userIDs(ctx, "user topics", "ebms_topic_reviewer", "topic", id); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// userIDs reads one id column of a user assignment table, in insertion order.
func (r *PostgresRepository) userIDs(ctx context.Context, what, table, column string, userID int64) ([]int64, error) {
	q := psql.Select(column).From(table).Where(sq.Eq{`"user"`: userID}).OrderBy("id")
	var ids []int64
	err := r.each(ctx, what, q, func(row pgx.CollectableRow) error {
		var id int64
		if err := row.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

const saveDefaultsSQL = `UPDATE ebms_user
SET review_sort = $2, review_format = $3, review_per_page = $4, review_boards = $5
WHERE id = $1`

// SaveReviewDefaults stores the reviewer's preferred queue display options.
func (r *PostgresRepository) SaveReviewDefaults(ctx context.Context, userID int64, d domain.ReviewDefaults) error {
	tag, err := r.pool.Exec(ctx, saveDefaultsSQL, userID, d.Sort, d.Format, d.PerPage, d.ReviewBoards)
	if err != nil {
		return fmt.Errorf("save review defaults: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, ports.ErrNotFound)
	}
	return nil
}
