// Package render assembles display records for the articles on a queue page,
// including the decision buttons for each article-topic association.
package render

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/permission"
	"ReviewQueue/internal/ports"
)

const maxAuthors = 10

// Button is one decision radio button. Value is the decision code itself.
type Button struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Label   string          `json:"label"`
	Value   domain.Decision `json:"value"`
	Checked bool            `json:"checked"`
}

// TopicRow is one article-topic association as shown in the queue.
type TopicRow struct {
	TopicID  int64    `json:"topic_id"`
	Name     string   `json:"name"`
	State    string   `json:"state"`
	Buttons  []Button `json:"buttons,omitempty"`
	Tags     string   `json:"tags"`
	CanTag   bool     `json:"can_tag"`
	Comments []string `json:"comments,omitempty"`
}

// BoardGroup collects the topic rows of one board.
type BoardGroup struct {
	Name   string     `json:"name"`
	Topics []TopicRow `json:"topics"`
}

// Citation is one related-article entry.
type Citation struct {
	Citation string `json:"citation"`
	URL      string `json:"url"`
	PMID     string `json:"pmid"`
}

// Paragraph is one abstract section.
type Paragraph struct {
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

// ArticleView is the display record for one article on the queue page.
type ArticleView struct {
	ID               int64        `json:"ebms_id"`
	SourceID         string       `json:"pmid"`
	LegacyID         int64        `json:"legacy_id,omitempty"`
	Title            string       `json:"title"`
	Authors          string       `json:"authors"`
	Publication      string       `json:"publication"`
	Tags             string       `json:"tags"`
	Types            string       `json:"types"`
	Related          []Citation   `json:"related"`
	Abstract         []Paragraph  `json:"abstract,omitempty"`
	ShowAbstractLink bool         `json:"show_abstract_link"`
	FullTextURL      string       `json:"full_text_url,omitempty"`
	Boards           []BoardGroup `json:"boards"`
}

// Options describes the queue the articles are rendered for.
type Options struct {
	QueueType    domain.QueueType
	TargetState  string
	Format       string
	ReviewBoards string
	Decisions    map[domain.DecisionKey]domain.Decision
}

// Config holds the link targets used in display records.
type Config struct {
	FullTextBaseURL string
	PubMedBaseURL   string
}

// Renderer builds ArticleView records.
type Renderer struct {
	gate     *permission.Gate
	ancestry ports.TypeAncestry
	cfg      Config
}

// NewRenderer wires the permission gate and the publication-type hierarchy.
func NewRenderer(gate *permission.Gate, ancestry ports.TypeAncestry, cfg Config) *Renderer {
	if ancestry == nil {
		ancestry = domain.TypeHierarchy{}
	}
	if cfg.PubMedBaseURL == "" {
		cfg.PubMedBaseURL = "https://pubmed.ncbi.nlm.nih.gov"
	}
	return &Renderer{gate: gate, ancestry: ancestry, cfg: cfg}
}

// RenderAll renders the articles in the given order.
func (r *Renderer) RenderAll(user domain.User, articles []domain.Article, opts Options) []ArticleView {
	out := make([]ArticleView, 0, len(articles))
	for _, a := range articles {
		out = append(out, r.Render(user, a, opts))
	}
	return out
}

// Render builds the display record for one article.
func (r *Renderer) Render(user domain.User, article domain.Article, opts Options) ArticleView {
	view := ArticleView{
		ID:          article.ID,
		SourceID:    article.SourceID,
		LegacyID:    article.LegacyID,
		Title:       PlainText(article.Title),
		Authors:     authorList(article.Authors),
		Publication: publicationLabel(article),
		Tags:        activeTagNames(article.Tags),
		Types:       strings.Join(r.filterTypes(article.Types), ", "),
		Related:     r.citations(article.Related),
		Boards:      r.boards(user, article, opts),
	}

	if opts.Format == domain.FormatAbstract {
		for _, p := range article.Abstract {
			view.Abstract = append(view.Abstract, Paragraph{Label: p.Label, Text: PlainText(p.Text)})
		}
	} else {
		view.ShowAbstractLink = true
	}

	if opts.TargetState != domain.StatePublished && article.HasFullText() && r.cfg.FullTextBaseURL != "" {
		view.FullTextURL = strings.TrimSuffix(r.cfg.FullTextBaseURL, "/") + "/" + url.PathEscape(article.FullTextFile)
	}

	return view
}

func (r *Renderer) boards(user domain.User, article domain.Article, opts Options) []BoardGroup {
	actions := domain.ActionsFor(opts.TargetState)
	grouped := map[string][]TopicRow{}

	for _, at := range article.Topics {
		topic := at.Topic()
		mine := r.gate.Mine(user, topic)
		if !mine && opts.ReviewBoards == domain.ReviewBoardsMine {
			continue
		}

		row := TopicRow{
			TopicID:  at.TopicID,
			Name:     at.TopicName,
			State:    at.CurrentState,
			Tags:     activeTagNames(at.Tags),
			CanTag:   mine,
			Comments: at.Comments,
		}

		if at.CurrentState == opts.TargetState && r.gate.CanDecideTopic(user, topic, opts.QueueType) {
			key := domain.DecisionKey{ArticleID: article.ID, TopicID: at.TopicID}
			row.Buttons = Buttons(key, actions, opts.Decisions[key])
		}

		grouped[at.BoardName] = append(grouped[at.BoardName], row)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]BoardGroup, 0, len(names))
	for _, name := range names {
		rows := grouped[name]
		sort.SliceStable(rows, func(i, j int) bool {
			iHas, jHas := len(rows[i].Buttons) > 0, len(rows[j].Buttons) > 0
			if iHas != jHas {
				return iHas
			}
			return rows[i].Name < rows[j].Name
		})
		out = append(out, BoardGroup{Name: name, Topics: rows})
	}
	return out
}

// Buttons builds the radio buttons for one association, checking the queued decision.
func Buttons(key domain.DecisionKey, actions []domain.Decision, queued domain.Decision) []Button {
	name := "topic-action-" + key.String()
	out := make([]Button, 0, len(actions))
	for _, d := range actions {
		out = append(out, Button{
			ID:      name + "-" + strconv.Itoa(int(d)),
			Name:    name,
			Label:   d.Label(),
			Value:   d,
			Checked: d == queued,
		})
	}
	return out
}

// filterTypes drops types that are ancestors of another listed type, and the
// generic "journal article" type.
func (r *Renderer) filterTypes(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	ancestors := map[string]bool{}
	for _, t := range types {
		for _, a := range r.ancestry.AncestorsOf(strings.ToLower(t)) {
			ancestors[strings.ToLower(a)] = true
		}
	}
	var out []string
	for _, t := range types {
		key := strings.ToLower(t)
		if ancestors[key] || key == "journal article" {
			continue
		}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *Renderer) citations(related []domain.RelatedArticle) []Citation {
	out := make([]Citation, 0, len(related))
	base := strings.TrimSuffix(r.cfg.PubMedBaseURL, "/")
	for _, rel := range related {
		var parts []string
		for _, s := range []string{rel.FirstAuthor, rel.BriefJournalTitle, rel.Year} {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		pmid := strings.TrimSpace(rel.SourceID)
		out = append(out, Citation{
			Citation: strings.Join(parts, " "),
			URL:      base + "/" + pmid,
			PMID:     pmid,
		})
	}
	SortCitations(out)
	return out
}

func authorList(authors []domain.Author) string {
	if len(authors) > maxAuthors {
		authors = authors[:maxAuthors]
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if d := a.Display(); d != "" {
			names = append(names, d)
		}
	}
	return strings.Join(names, ", ")
}

func activeTagNames(tags []domain.TagAssignment) string {
	var names []string
	for _, t := range tags {
		if t.Active {
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func publicationLabel(a domain.Article) string {
	label := strings.TrimSpace(a.BriefJournalTitle)
	if a.Year > 0 {
		label = strings.TrimSpace(fmt.Sprintf("%s %d", label, a.Year))
	}
	if a.Volume != "" {
		label += ";" + a.Volume
		if a.Issue != "" {
			label += "(" + a.Issue + ")"
		}
	}
	if a.Pagination != "" {
		label += ":" + a.Pagination
	}
	return label
}
