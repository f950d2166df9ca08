package storage

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"ReviewQueue/internal/domain"
)

func topicColumns() sq.SelectBuilder {
	return psql.Select("topic.id", "topic.name", "topic.board", "topic.active", "COALESCE(topic.nci_reviewer, 0)").
		From("ebms_topic topic")
}

func scanTopic(row pgx.CollectableRow) (domain.Topic, error) {
	var t domain.Topic
	err := row.Scan(&t.ID, &t.Name, &t.BoardID, &t.Active, &t.NCIReviewer)
	return t, err
}

// ActiveTopics lists the active topics of the boards, ordered by name.
func (r *PostgresRepository) ActiveTopics(ctx context.Context, boardIDs []int64) ([]domain.Topic, error) {
	if len(boardIDs) == 0 {
		return nil, nil
	}
	q := topicColumns().
		Where(sq.Eq{"topic.board": boardIDs}).
		Where(sq.Expr("topic.active")).
		OrderBy("topic.name", "topic.id")

	var out []domain.Topic
	err := r.each(ctx, "active topics", q, func(row pgx.CollectableRow) error {
		t, err := scanTopic(row)
		if err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// PendingCounts counts current state records in the state for each topic.
// Topics with nothing pending are absent from the map.
func (r *PostgresRepository) PendingCounts(ctx context.Context, topicIDs []int64, stateID int64, requireFullText bool) (map[int64]int, error) {
	counts := map[int64]int{}
	if len(topicIDs) == 0 {
		return counts, nil
	}

	q := psql.Select("state.topic", "COUNT(*)").
		From("ebms_state state").
		Join("ebms_topic topic ON topic.id = state.topic")
	if requireFullText {
		q = q.Join("ebms_article article ON article.id = state.article")
	}
	q = q.Where(sq.Eq{"state.value": stateID}).
		Where(sq.Expr("state.current")).
		Where(sq.Expr("topic.active")).
		Where(sq.Eq{"state.topic": topicIDs})
	if requireFullText {
		q = q.Where(sq.NotEq{"article.full_text_file": nil})
	}
	q = q.GroupBy("state.topic")

	err := r.each(ctx, "pending counts", q, func(row pgx.CollectableRow) error {
		var topic, count int64
		if err := row.Scan(&topic, &count); err != nil {
			return err
		}
		counts[topic] = int(count)
		return nil
	})
	return counts, err
}

// TopicsByID loads the topics; unknown ids are absent from the map.
func (r *PostgresRepository) TopicsByID(ctx context.Context, ids []int64) (map[int64]domain.Topic, error) {
	out := map[int64]domain.Topic{}
	if len(ids) == 0 {
		return out, nil
	}
	q := topicColumns().Where(sq.Eq{"topic.id": ids})
	err := r.each(ctx, "topics", q, func(row pgx.CollectableRow) error {
		t, err := scanTopic(row)
		if err != nil {
			return err
		}
		out[t.ID] = t
		return nil
	})
	return out, err
}
