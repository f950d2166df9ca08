package usecase

import (
	"context"

	"ReviewQueue/internal/domain"
)

// FilterUpdate carries the reviewer's filter form. Nil fields keep the stored
// value; a non-nil Topics slice replaces the topic selection, even when empty.
type FilterUpdate struct {
	QueueType    *string `json:"type" validate:"omitempty,queuetype"`
	Board        *int64  `json:"board" validate:"omitempty,gte=0"`
	Topics       []int64 `json:"topic" validate:"dive,gt=0"`
	Cycle        *int64  `json:"cycle" validate:"omitempty,gte=0"`
	Tag          *int64  `json:"tag" validate:"omitempty,gte=0"`
	Title        *string `json:"title" validate:"omitempty,max=255"`
	Journal      *string `json:"journal" validate:"omitempty,max=255"`
	Sort         *string `json:"sort"`
	Format       *string `json:"format" validate:"omitempty,oneof=brief abstract"`
	PerPage      *int    `json:"per-page" validate:"omitempty,oneof=10 25 50 100"`
	ReviewBoards *string `json:"review-boards" validate:"omitempty,oneof=all mine"`
}

// UpdateFilters stores a new version of the queue with the filters applied
// and returns its id. Switching queue type drops the queued decisions since
// their codes belong to the old queue's decision table.
func (q *ReviewQueue) UpdateFilters(ctx context.Context, queueID string, user domain.User, upd FilterUpdate) (string, error) {
	if err := q.validator.Validate(upd); err != nil {
		return "", err
	}
	if upd.Sort != nil && !q.finder.Sorts().Known(*upd.Sort) {
		return "", fieldError("sort", "sort must be a known ordering")
	}

	spec, err := q.load(ctx, queueID, user)
	if err != nil {
		return "", err
	}
	next := spec.Next(queueID)

	if upd.QueueType != nil {
		qt, err := domain.ParseQueueType(*upd.QueueType)
		if err != nil {
			return "", fieldError("type", err.Error())
		}
		if qt != spec.QueueType {
			if err := q.gate.Authorize(user, qt); err != nil {
				return "", err
			}
			next.QueueType = qt
			next.QueuedDecisions = map[domain.DecisionKey]domain.Decision{}
		}
	}
	if upd.Board != nil {
		next.Board = *upd.Board
	}
	if upd.Topics != nil {
		next.Topics = append([]int64(nil), upd.Topics...)
	}
	if upd.Cycle != nil {
		next.Cycle = *upd.Cycle
	}
	if upd.Tag != nil {
		next.Tag = *upd.Tag
	}
	if upd.Title != nil {
		next.TitleFilter = *upd.Title
	}
	if upd.Journal != nil {
		next.JournalFilter = *upd.Journal
	}
	if upd.Sort != nil {
		next.SortKey = *upd.Sort
	}
	if upd.Format != nil {
		next.Format = *upd.Format
	}
	if upd.PerPage != nil {
		next.PageSize = *upd.PerPage
	}
	if upd.ReviewBoards != nil {
		next.ReviewBoards = *upd.ReviewBoards
	}
	next.Filtered = true

	return q.sessions.Save(ctx, next)
}
