// Package planner turns a queue specification into the count and page
// queries for a review queue.
package planner

import (
	"math"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"ReviewQueue/internal/domain"
)

const (
	aliasTopic        = "topic"
	aliasArticle      = "article"
	aliasArticleTopic = "article_topic"
	aliasJournal      = "journal"
	aliasAuthor       = "author"
)

type joinDef struct {
	left bool
	expr string
}

// joinOrder is also the order joins are emitted in; later joins may depend on earlier ones.
var joinOrder = []string{aliasTopic, aliasArticle, aliasArticleTopic, aliasJournal, aliasAuthor}

var joinDefs = map[string]joinDef{
	aliasTopic:        {expr: "ebms_topic topic ON topic.id = state.topic"},
	aliasArticle:      {expr: "ebms_article article ON article.id = state.article"},
	aliasArticleTopic: {expr: "ebms_article_topic article_topic ON article_topic.id = state.article_topic"},
	aliasJournal:      {left: true, expr: "ebms_journal journal ON journal.source_id = article.source_journal_id"},
	aliasAuthor:       {left: true, expr: "ebms_article_author author ON author.article = article.id AND author.delta = 0"},
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Clause is one named filter of the queue query.
type Clause struct {
	Name       string
	Joins      []string
	Predicates []sq.Sqlizer
}

// Plan is the queue query as data: filters, ordering and paging.
type Plan struct {
	Clauses  []Clause
	Ordering Ordering
	Limit    uint64
	Offset   uint64
}

// Request carries what the planner needs beyond the specification itself.
type Request struct {
	Spec    domain.QueueSpecification
	StateID int64
	Page    int
}

// Build assembles the plan for the request using the given sort registry.
func Build(req Request, sorts *Registry) (Plan, error) {
	spec := req.Spec
	if _, err := spec.QueueType.TargetState(); err != nil {
		return Plan{}, err
	}
	if sorts == nil {
		sorts = NewRegistry()
	}

	clauses := []Clause{
		{
			Name: "state",
			Predicates: []sq.Sqlizer{
				sq.Eq{"state.value": req.StateID},
				sq.Expr("state.current"),
			},
		},
		{
			Name:       "active-topic",
			Joins:      []string{aliasTopic},
			Predicates: []sq.Sqlizer{sq.Expr("topic.active")},
		},
	}

	if topics := positive(spec.Topics); len(topics) > 0 {
		clauses = append(clauses, Clause{
			Name:       "topics",
			Predicates: []sq.Sqlizer{sq.Eq{"state.topic": topics}},
		})
	} else if spec.Board > 0 {
		clauses = append(clauses, Clause{
			Name:       "board",
			Predicates: []sq.Sqlizer{sq.Eq{"state.board": spec.Board}},
		})
	}

	switch spec.QueueType {
	case domain.FullTextReview, domain.OnHoldReview:
		clauses = append(clauses, Clause{
			Name:       "full-text",
			Joins:      []string{aliasArticle},
			Predicates: []sq.Sqlizer{sq.NotEq{"article.full_text_file": nil}},
		})
	case domain.LibrarianReview:
		if title := strings.TrimSpace(spec.TitleFilter); title != "" {
			clauses = append(clauses, Clause{
				Name:       "title",
				Joins:      []string{aliasArticle},
				Predicates: []sq.Sqlizer{sq.ILike{"article.search_title": containsPattern(title)}},
			})
		}
		if journal := strings.TrimSpace(spec.JournalFilter); journal != "" {
			clauses = append(clauses, Clause{
				Name:       "journal",
				Joins:      []string{aliasArticle},
				Predicates: []sq.Sqlizer{sq.ILike{"article.brief_journal_title": containsPattern(journal)}},
			})
		}
	}

	if spec.Cycle > 0 {
		clauses = append(clauses, Clause{
			Name:       "cycle",
			Joins:      []string{aliasArticleTopic},
			Predicates: []sq.Sqlizer{sq.Eq{"article_topic.cycle": spec.Cycle}},
		})
	}

	if spec.Tag > 0 && spec.QueueType != domain.LibrarianReview {
		clauses = append(clauses, Clause{
			Name: "tag",
			Predicates: []sq.Sqlizer{sq.Or{
				sq.Expr("EXISTS (SELECT 1 FROM ebms_article_tag atag WHERE atag.article = state.article AND atag.tag = ? AND atag.active)", spec.Tag),
				sq.Expr("EXISTS (SELECT 1 FROM ebms_article_topic_tag ttag WHERE ttag.article_topic = state.article_topic AND ttag.tag = ? AND ttag.active)", spec.Tag),
			}},
		})
	}

	pageSize := spec.PageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	page := req.Page
	if page < 0 {
		page = 0
	}

	return Plan{
		Clauses:  clauses,
		Ordering: sorts.Resolve(spec.SortKey),
		Limit:    uint64(pageSize),
		Offset:   pageOffset(page, pageSize),
	}, nil
}

// pageOffset saturates at math.MaxInt64, the largest OFFSET Postgres accepts.
func pageOffset(page, pageSize int) uint64 {
	if uint64(page) > math.MaxInt64/uint64(pageSize) {
		return math.MaxInt64
	}
	return uint64(page) * uint64(pageSize)
}

// ClauseNames lists the filters present in the plan.
func (p Plan) ClauseNames() []string {
	names := make([]string, len(p.Clauses))
	for i, c := range p.Clauses {
		names[i] = c.Name
	}
	return names
}

// CountSQL compiles the sort-independent count of matching associations.
func (p Plan) CountSQL() (string, []any, error) {
	return p.filtered(false, "COUNT(*)").ToSql()
}

// PageSQL compiles the ordered, paged article id query.
func (p Plan) PageSQL() (string, []any, error) {
	orderBy := append(append([]string(nil), p.Ordering.OrderBy...), "state.id")
	return p.filtered(true, "state.article").
		OrderBy(orderBy...).
		Limit(p.Limit).
		Offset(p.Offset).
		ToSql()
}

func (p Plan) filtered(withOrdering bool, columns ...string) sq.SelectBuilder {
	q := psql.Select(columns...).From("ebms_state state")
	for _, alias := range p.joins(withOrdering) {
		def := joinDefs[alias]
		if def.left {
			q = q.LeftJoin(def.expr)
		} else {
			q = q.Join(def.expr)
		}
	}
	for _, c := range p.Clauses {
		for _, pred := range c.Predicates {
			q = q.Where(pred)
		}
	}
	return q
}

func (p Plan) joins(withOrdering bool) []string {
	needed := map[string]bool{}
	for _, c := range p.Clauses {
		for _, alias := range c.Joins {
			needed[alias] = true
		}
	}
	if withOrdering {
		for _, alias := range p.Ordering.Joins {
			needed[alias] = true
		}
	}
	out := make([]string, 0, len(needed))
	for _, alias := range joinOrder {
		if needed[alias] {
			out = append(out, alias)
		}
	}
	return out
}

func containsPattern(fragment string) string {
	return "%" + likeEscaper.Replace(fragment) + "%"
}

func positive(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}
