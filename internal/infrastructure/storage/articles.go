package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"ReviewQueue/internal/domain"
)

// LoadArticles loads the full records for the ids, in the order requested.
// Ids with no article row are left out.
func (r *PostgresRepository) LoadArticles(ctx context.Context, ids []int64) ([]domain.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	byID := make(map[int64]*domain.Article, len(ids))
	q := psql.Select(
		"article.id",
		"article.source_id",
		"COALESCE(article.legacy_id, 0)",
		"article.title",
		"COALESCE(article.search_title, '')",
		"COALESCE(article.journal_title, '')",
		"COALESCE(article.brief_journal_title, '')",
		"COALESCE(article.source_journal_id, '')",
		"COALESCE(article.year, 0)",
		"COALESCE(article.volume, '')",
		"COALESCE(article.issue, '')",
		"COALESCE(article.pagination, '')",
		"COALESCE(article.full_text_file, '')",
	).From("ebms_article article").Where(sq.Eq{"article.id": ids})

	err := r.each(ctx, "articles", q, func(row pgx.CollectableRow) error {
		a := &domain.Article{}
		if err := row.Scan(&a.ID, &a.SourceID, &a.LegacyID, &a.Title, &a.SearchTitle, &a.JournalTitle,
			&a.BriefJournalTitle, &a.SourceJournalID, &a.Year, &a.Volume, &a.Issue, &a.Pagination, &a.FullTextFile); err != nil {
			return err
		}
		byID[a.ID] = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(byID) == 0 {
		return nil, nil
	}

	loaders := []func(context.Context, []int64, map[int64]*domain.Article) error{
		r.loadAuthors,
		r.loadTypes,
		r.loadAbstracts,
		r.loadArticleTags,
		r.loadTopics,
		r.loadRelated,
	}
	for _, load := range loaders {
		if err := load(ctx, ids, byID); err != nil {
			return nil, err
		}
	}

	out := make([]domain.Article, 0, len(byID))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *PostgresRepository) loadAuthors(ctx context.Context, ids []int64, byID map[int64]*domain.Article) error {
	q := psql.Select("article", "COALESCE(last_name, '')", "COALESCE(initials, '')", "COALESCE(search_name, '')").
		From("ebms_article_author").
		Where(sq.Eq{"article": ids}).
		OrderBy("article", "delta")
	return r.each(ctx, "authors", q, func(row pgx.CollectableRow) error {
		var articleID int64
		var au domain.Author
		if err := row.Scan(&articleID, &au.LastName, &au.Initials, &au.SearchName); err != nil {
			return err
		}
		if a, ok := byID[articleID]; ok {
			a.Authors = append(a.Authors, au)
		}
		return nil
	})
}

func (r *PostgresRepository) loadTypes(ctx context.Context, ids []int64, byID map[int64]*domain.Article) error {
	q := psql.Select("article", "name").
		From("ebms_article_publication_type").
		Where(sq.Eq{"article": ids}).
		OrderBy("article", "delta")
	return r.each(ctx, "publication types", q, func(row pgx.CollectableRow) error {
		var articleID int64
		var name string
		if err := row.Scan(&articleID, &name); err != nil {
			return err
		}
		if a, ok := byID[articleID]; ok {
			a.Types = append(a.Types, name)
		}
		return nil
	})
}

func (r *PostgresRepository) loadAbstracts(ctx context.Context, ids []int64, byID map[int64]*domain.Article) error {
	q := psql.Select("article", "COALESCE(label, '')", "body").
		From("ebms_article_abstract").
		Where(sq.Eq{"article": ids}).
		OrderBy("article", "delta")
	return r.each(ctx, "abstracts", q, func(row pgx.CollectableRow) error {
		var articleID int64
		var p domain.AbstractParagraph
		if err := row.Scan(&articleID, &p.Label, &p.Text); err != nil {
			return err
		}
		if a, ok := byID[articleID]; ok {
			a.Abstract = append(a.Abstract, p)
		}
		return nil
	})
}

func (r *PostgresRepository) loadArticleTags(ctx context.Context, ids []int64, byID map[int64]*domain.Article) error {
	q := psql.Select("atag.article", "tag.id", "tag.name", "atag.active").
		From("ebms_article_tag atag").
		Join("ebms_tag tag ON tag.id = atag.tag").
		Where(sq.Eq{"atag.article": ids})
	return r.each(ctx, "article tags", q, func(row pgx.CollectableRow) error {
		var articleID int64
		var tag domain.TagAssignment
		if err := row.Scan(&articleID, &tag.TagID, &tag.Name, &tag.Active); err != nil {
			return err
		}
		if a, ok := byID[articleID]; ok {
			a.Tags = append(a.Tags, tag)
		}
		return nil
	})
}

// loadTopics loads the associations with their current state, then their tags
// and comments.
func (r *PostgresRepository) loadTopics(ctx context.Context, ids []int64, byID map[int64]*domain.Article) error {
	type slot struct {
		article int64
		index   int
	}
	slots := map[int64]slot{}

	q := psql.Select(
		"article_topic.id",
		"article_topic.article",
		"article_topic.topic",
		"topic.name",
		"topic.board",
		"board.name",
		"COALESCE(article_topic.cycle, 0)",
		"COALESCE(state_type.text_id, '')",
	).
		From("ebms_article_topic article_topic").
		Join("ebms_topic topic ON topic.id = article_topic.topic").
		Join("ebms_board board ON board.id = topic.board").
		LeftJoin("ebms_state state ON state.article_topic = article_topic.id AND state.current").
		LeftJoin("ebms_state_type state_type ON state_type.id = state.value").
		Where(sq.Eq{"article_topic.article": ids}).
		OrderBy("article_topic.article", "topic.name")

	var associationIDs []int64
	err := r.each(ctx, "article topics", q, func(row pgx.CollectableRow) error {
		var at domain.ArticleTopic
		if err := row.Scan(&at.ID, &at.ArticleID, &at.TopicID, &at.TopicName, &at.BoardID, &at.BoardName,
			&at.CycleID, &at.CurrentState); err != nil {
			return err
		}
		a, ok := byID[at.ArticleID]
		if !ok {
			return nil
		}
		a.Topics = append(a.Topics, at)
		slots[at.ID] = slot{article: at.ArticleID, index: len(a.Topics) - 1}
		associationIDs = append(associationIDs, at.ID)
		return nil
	})
	if err != nil || len(associationIDs) == 0 {
		return err
	}

	attach := func(associationID int64, fn func(at *domain.ArticleTopic)) {
		s, ok := slots[associationID]
		if !ok {
			return
		}
		fn(&byID[s.article].Topics[s.index])
	}

	tags := psql.Select("ttag.article_topic", "tag.id", "tag.name", "ttag.active").
		From("ebms_article_topic_tag ttag").
		Join("ebms_tag tag ON tag.id = ttag.tag").
		Where(sq.Eq{"ttag.article_topic": associationIDs})
	err = r.each(ctx, "topic tags", tags, func(row pgx.CollectableRow) error {
		var associationID int64
		var tag domain.TagAssignment
		if err := row.Scan(&associationID, &tag.TagID, &tag.Name, &tag.Active); err != nil {
			return err
		}
		attach(associationID, func(at *domain.ArticleTopic) { at.Tags = append(at.Tags, tag) })
		return nil
	})
	if err != nil {
		return err
	}

	comments := psql.Select("article_topic", "body").
		From("ebms_article_topic_comment").
		Where(sq.Eq{"article_topic": associationIDs}).
		OrderBy("article_topic", "entered")
	return r.each(ctx, "topic comments", comments, func(row pgx.CollectableRow) error {
		var associationID int64
		var body string
		if err := row.Scan(&associationID, &body); err != nil {
			return err
		}
		attach(associationID, func(at *domain.ArticleTopic) { at.Comments = append(at.Comments, body) })
		return nil
	})
}

func (r *PostgresRepository) loadRelated(ctx context.Context, ids []int64, byID map[int64]*domain.Article) error {
	q := psql.Select(
		"rel.from_article",
		"related.id",
		"related.source_id",
		"COALESCE(related.brief_journal_title, '')",
		"COALESCE(related.year, 0)",
		"COALESCE(author.last_name, '')",
	).
		From("ebms_related_article rel").
		Join("ebms_article related ON related.id = rel.to_article").
		LeftJoin("ebms_article_author author ON author.article = related.id AND author.delta = 0").
		Where(sq.Eq{"rel.from_article": ids})
	return r.each(ctx, "related articles", q, func(row pgx.CollectableRow) error {
		var articleID int64
		var year int
		var rel domain.RelatedArticle
		if err := row.Scan(&articleID, &rel.ID, &rel.SourceID, &rel.BriefJournalTitle, &year, &rel.FirstAuthor); err != nil {
			return err
		}
		if year > 0 {
			rel.Year = fmt.Sprint(year)
		}
		if a, ok := byID[articleID]; ok {
			a.Related = append(a.Related, rel)
		}
		return nil
	})
}
