package planner

import "ReviewQueue/internal/domain"

// Ordering is one named sort for the queue page query.
type Ordering struct {
	Key     string
	Label   string
	Joins   []string
	OrderBy []string
}

// Registry keeps the sort keys reviewers may choose, in display order.
type Registry struct {
	orderings map[string]Ordering
	keys      []string
	fallback  string
}

// NewRegistry returns the standard set of queue orderings.
func NewRegistry() *Registry {
	r := &Registry{orderings: map[string]Ordering{}, fallback: domain.DefaultSort}
	r.Register(Ordering{
		Key:     domain.DefaultSort,
		Label:   "EBMS ID #",
		OrderBy: []string{"state.article"},
	})
	r.Register(Ordering{
		Key:     "article.source_id",
		Label:   "PMID #",
		Joins:   []string{aliasArticle},
		OrderBy: []string{"article.source_id"},
	})
	r.Register(Ordering{
		Key:     "author",
		Label:   "Author",
		Joins:   []string{aliasArticle, aliasAuthor},
		OrderBy: []string{"author.search_name", "article.title"},
	})
	r.Register(Ordering{
		Key:     "article.search_title",
		Label:   "Title",
		Joins:   []string{aliasArticle},
		OrderBy: []string{"article.search_title"},
	})
	r.Register(Ordering{
		Key:     "article.journal_title",
		Label:   "Journal",
		Joins:   []string{aliasArticle},
		OrderBy: []string{"article.journal_title", "article.title"},
	})
	r.Register(Ordering{
		Key:     "article.year",
		Label:   "Publication Date",
		Joins:   []string{aliasArticle},
		OrderBy: []string{"article.year", "article.title"},
	})
	r.Register(Ordering{
		Key:     "core",
		Label:   "Core Journals",
		Joins:   []string{aliasArticle, aliasJournal},
		OrderBy: []string{"COALESCE(journal.core, 0) DESC", "article.journal_title", "article.title"},
	})
	return r
}

// Register adds or replaces an ordering.
func (r *Registry) Register(o Ordering) {
	if _, exists := r.orderings[o.Key]; !exists {
		r.keys = append(r.keys, o.Key)
	}
	r.orderings[o.Key] = o
}

// Resolve returns the ordering for key, falling back to the default ordering.
func (r *Registry) Resolve(key string) Ordering {
	if o, ok := r.orderings[key]; ok {
		return o
	}
	return r.orderings[r.fallback]
}

// Known reports whether key names a registered ordering.
func (r *Registry) Known(key string) bool {
	_, ok := r.orderings[key]
	return ok
}

// Options lists the orderings in registration order.
func (r *Registry) Options() []Ordering {
	out := make([]Ordering, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.orderings[k])
	}
	return out
}
