package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/picklist"
	"ReviewQueue/internal/planner"
	"ReviewQueue/internal/render"
)

// Filters echoes the current selections of the queue.
type Filters struct {
	Board        int64   `json:"board"`
	Topics       []int64 `json:"topic"`
	Cycle        int64   `json:"cycle"`
	Tag          int64   `json:"tag"`
	Title        string  `json:"title"`
	Journal      string  `json:"journal"`
	Sort         string  `json:"sort"`
	Format       string  `json:"format"`
	PerPage      int     `json:"per-page"`
	ReviewBoards string  `json:"review-boards"`
	Filtered     bool    `json:"filtered"`
}

// Choice is one entry of a filter dropdown.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterOptions lists what each filter may be set to.
type FilterOptions struct {
	Boards       []domain.Board `json:"boards"`
	Cycles       []domain.Cycle `json:"cycles"`
	Tags         []domain.Tag   `json:"tags"`
	Sorts        []Choice       `json:"sorts"`
	Formats      []Choice       `json:"formats"`
	PageSizes    []int          `json:"page_sizes"`
	ReviewBoards []Choice       `json:"review_boards"`
}

// Pager describes the page being shown.
type Pager struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
	Start    int `json:"start"`
}

// QueuedDecision is one line of the pending-decisions list.
type QueuedDecision struct {
	Key     string          `json:"key"`
	Code    domain.Decision `json:"code"`
	Message string          `json:"message"`
}

// QueueView is everything needed to draw one page of a review queue.
type QueueView struct {
	ID              string               `json:"id"`
	QueueType       domain.QueueType     `json:"queue_type"`
	Title           string               `json:"title"`
	ListTitle       string               `json:"list_title"`
	QueueTypes      []domain.QueueType   `json:"queue_types"`
	QueueTypeFixed  bool                 `json:"queue_type_fixed"`
	Filters         Filters              `json:"filters"`
	Options         FilterOptions        `json:"options"`
	Topics          picklist.Picklist    `json:"topics"`
	Articles        []render.ArticleView `json:"articles"`
	Pager           Pager                `json:"pager"`
	QueuedDecisions []QueuedDecision     `json:"queued_decisions"`
}

var (
	formatChoices = []Choice{
		{Value: domain.FormatBrief, Label: "Brief"},
		{Value: domain.FormatAbstract, Label: "Abstract"},
	}
	reviewBoardChoices = []Choice{
		{Value: domain.ReviewBoardsAll, Label: "All Boards"},
		{Value: domain.ReviewBoardsMine, Label: "My Boards"},
	}
)

// BuildQueueView assembles one page of the queue stored under queueID.
func (q *ReviewQueue) BuildQueueView(ctx context.Context, queueID string, user domain.User, page int) (QueueView, error) {
	types, err := q.gate.AuthorizedQueueTypes(user)
	if err != nil {
		return QueueView{}, err
	}
	spec, err := q.load(ctx, queueID, user)
	if err != nil {
		return QueueView{}, err
	}
	if page < 0 {
		page = 0
	}

	targetState, err := spec.QueueType.TargetState()
	if err != nil {
		return QueueView{}, err
	}

	topics, err := q.picklists.Build(ctx, []int64{spec.Board}, targetState, user.ID)
	if err != nil {
		return QueueView{}, fmt.Errorf("build topic picklist: %w", err)
	}

	result, err := q.finder.Find(ctx, spec, page)
	if err != nil {
		return QueueView{}, err
	}

	articles, err := q.articles.LoadArticles(ctx, planner.DedupeIDs(result.ArticleIDs))
	if err != nil {
		return QueueView{}, fmt.Errorf("load articles: %w", err)
	}

	options, err := q.filterOptions(ctx)
	if err != nil {
		return QueueView{}, err
	}

	queued, err := q.queuedDecisions(ctx, spec)
	if err != nil {
		return QueueView{}, err
	}

	pageSize := spec.PageSize
	if pageSize <= 0 {
		pageSize = q.defaultPageSize
	}

	return QueueView{
		ID:             queueID,
		QueueType:      spec.QueueType,
		Title:          fmt.Sprintf("%s Queue", spec.QueueType),
		ListTitle:      fmt.Sprintf("Articles Waiting for %s (%d)", spec.QueueType, result.Total),
		QueueTypes:     types,
		QueueTypeFixed: len(types) == 1,
		Filters: Filters{
			Board:        spec.Board,
			Topics:       spec.Topics,
			Cycle:        spec.Cycle,
			Tag:          spec.Tag,
			Title:        spec.TitleFilter,
			Journal:      spec.JournalFilter,
			Sort:         q.finder.Sorts().Resolve(spec.SortKey).Key,
			Format:       spec.Format,
			PerPage:      pageSize,
			ReviewBoards: spec.ReviewBoards,
			Filtered:     spec.Filtered,
		},
		Options: options,
		Topics:  topics,
		Articles: q.renderer.RenderAll(user, articles, render.Options{
			QueueType:    spec.QueueType,
			TargetState:  targetState,
			Format:       spec.Format,
			ReviewBoards: spec.ReviewBoards,
			Decisions:    spec.QueuedDecisions,
		}),
		Pager:           newPager(page, pageSize, result.Total),
		QueuedDecisions: queued,
	}, nil
}

func (q *ReviewQueue) filterOptions(ctx context.Context) (FilterOptions, error) {
	boards, err := q.reference.Boards(ctx)
	if err != nil {
		return FilterOptions{}, fmt.Errorf("load boards: %w", err)
	}
	cycles, err := q.reference.Cycles(ctx)
	if err != nil {
		return FilterOptions{}, fmt.Errorf("load cycles: %w", err)
	}
	tags, err := q.reference.Tags(ctx)
	if err != nil {
		return FilterOptions{}, fmt.Errorf("load tags: %w", err)
	}

	var sorts []Choice
	for _, o := range q.finder.Sorts().Options() {
		sorts = append(sorts, Choice{Value: o.Key, Label: o.Label})
	}

	return FilterOptions{
		Boards:       boards,
		Cycles:       cycles,
		Tags:         tags,
		Sorts:        sorts,
		Formats:      formatChoices,
		PageSizes:    domain.PageSizes,
		ReviewBoards: reviewBoardChoices,
	}, nil
}

// queuedDecisions lists the pending decisions as "Article 12 approve for Lung".
func (q *ReviewQueue) queuedDecisions(ctx context.Context, spec domain.QueueSpecification) ([]QueuedDecision, error) {
	if len(spec.QueuedDecisions) == 0 {
		return nil, nil
	}

	keys := make([]domain.DecisionKey, 0, len(spec.QueuedDecisions))
	topicSet := map[int64]struct{}{}
	for k := range spec.QueuedDecisions {
		keys = append(keys, k)
		topicSet[k.TopicID] = struct{}{}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ArticleID != keys[j].ArticleID {
			return keys[i].ArticleID < keys[j].ArticleID
		}
		return keys[i].TopicID < keys[j].TopicID
	})

	topicIDs := make([]int64, 0, len(topicSet))
	for id := range topicSet {
		topicIDs = append(topicIDs, id)
	}
	sort.Slice(topicIDs, func(i, j int) bool { return topicIDs[i] < topicIDs[j] })
	topics, err := q.topics.TopicsByID(ctx, topicIDs)
	if err != nil {
		return nil, fmt.Errorf("load queued decision topics: %w", err)
	}

	out := make([]QueuedDecision, 0, len(keys))
	for _, k := range keys {
		d := spec.QueuedDecisions[k]
		name := topics[k.TopicID].Name
		if name == "" {
			name = fmt.Sprintf("topic %d", k.TopicID)
		}
		out = append(out, QueuedDecision{
			Key:     k.String(),
			Code:    d,
			Message: fmt.Sprintf("Article %d %s for %s", k.ArticleID, decisionVerb(d), name),
		})
	}
	return out, nil
}

func decisionVerb(d domain.Decision) string {
	if d == domain.DecisionFYI {
		return "marked as FYI"
	}
	return strings.ToLower(d.Label())
}

func newPager(page, pageSize, total int) Pager {
	p := Pager{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.Pages = (total + pageSize - 1) / pageSize
	}
	if total > 0 {
		p.Start = page*pageSize + 1
	}
	return p
}
