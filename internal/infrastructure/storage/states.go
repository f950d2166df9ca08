package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ReviewQueue/internal/domain"
)

// StateTypes lists every registered workflow state.
func (r *PostgresRepository) StateTypes(ctx context.Context) ([]domain.StateType, error) {
	var out []domain.StateType
	q := psql.Select("id", "text_id", "name", "sequence").From("ebms_state_type").OrderBy("sequence", "id")
	err := r.each(ctx, "state types", q, func(row pgx.CollectableRow) error {
		var st domain.StateType
		if err := row.Scan(&st.ID, &st.TextID, &st.Name, &st.Sequence); err != nil {
			return err
		}
		out = append(out, st)
		return nil
	})
	return out, err
}

const (
	lockAssociationSQL = `SELECT article_topic.id, topic.board,
  COALESCE((SELECT state.value FROM ebms_state state
    WHERE state.article = article_topic.article AND state.topic = article_topic.topic AND state.current), 0)
FROM ebms_article_topic article_topic
JOIN ebms_topic topic ON topic.id = article_topic.topic
WHERE article_topic.article = $1 AND article_topic.topic = $2
FOR UPDATE OF article_topic`

	clearCurrentSQL = `UPDATE ebms_state SET current = FALSE
WHERE article = $1 AND topic = $2 AND current`

	insertStateSQL = `INSERT INTO ebms_state (article, topic, board, article_topic, value, "user", entered, current)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
RETURNING id`
)

// ApplyState locks the association, clears its current record and inserts the
// new current record in one transaction. When t.FromStateID is set and the
// association has moved to another state, nothing is written and
// domain.ErrStateChanged is returned.
func (r *PostgresRepository) ApplyState(ctx context.Context, t domain.StateTransition) (domain.StateRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.StateRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec := domain.StateRecord{
		StateID:   t.StateID,
		ArticleID: t.ArticleID,
		TopicID:   t.TopicID,
		ActorID:   t.ActorID,
		Entered:   t.Entered,
		Current:   true,
	}

	var currentState int64
	err = tx.QueryRow(ctx, lockAssociationSQL, t.ArticleID, t.TopicID).Scan(&rec.ArticleTopicID, &rec.BoardID, &currentState)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StateRecord{}, domain.ErrAssociationNotFound
	}
	if err != nil {
		return domain.StateRecord{}, fmt.Errorf("lock association: %w", err)
	}
	if t.FromStateID != 0 && currentState != t.FromStateID {
		return domain.StateRecord{}, domain.ErrStateChanged
	}

	if _, err := tx.Exec(ctx, clearCurrentSQL, t.ArticleID, t.TopicID); err != nil {
		return domain.StateRecord{}, fmt.Errorf("clear current state: %w", err)
	}

	err = tx.QueryRow(ctx, insertStateSQL,
		t.ArticleID,
		t.TopicID,
		rec.BoardID,
		rec.ArticleTopicID,
		t.StateID,
		t.ActorID,
		t.Entered,
	).Scan(&rec.ID)
	if err != nil {
		return domain.StateRecord{}, fmt.Errorf("insert state: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StateRecord{}, fmt.Errorf("commit tx: %w", err)
	}
	return rec, nil
}
