// Package picklist builds the topic filter options shown on a review queue.
package picklist

import (
	"context"
	"fmt"
	"sort"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/ports"
)

// PlaceholderLabel is shown until a board has been chosen.
const PlaceholderLabel = "Select a board"

// Option is one topic entry.
type Option struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Group is a labeled set of options.
type Group struct {
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

// Picklist holds either a flat option list or labeled groups.
type Picklist struct {
	Placeholder bool     `json:"placeholder"`
	Options     []Option `json:"options,omitempty"`
	Groups      []Group  `json:"groups,omitempty"`
}

// TopicIDs lists every topic id offered, in display order.
func (p Picklist) TopicIDs() []int64 {
	var ids []int64
	for _, opt := range p.Options {
		if opt.ID != 0 {
			ids = append(ids, opt.ID)
		}
	}
	for _, g := range p.Groups {
		for _, opt := range g.Options {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// StateResolver resolves symbolic state names.
type StateResolver interface {
	StateID(name string) (int64, error)
}

// Builder computes topic picklists with pending-article counts.
type Builder struct {
	topics ports.TopicStore
	states StateResolver
}

// NewBuilder wires the topic store and the state catalog.
func NewBuilder(topics ports.TopicStore, states StateResolver) *Builder {
	return &Builder{topics: topics, states: states}
}

// Build returns the picklist for the boards and target state. reviewerID is
// the current user, used to split abstract-review lists into "mine" and "other".
func (b *Builder) Build(ctx context.Context, boardIDs []int64, state string, reviewerID int64) (Picklist, error) {
	boardIDs = nonZero(boardIDs)
	if len(boardIDs) == 0 {
		return Picklist{
			Placeholder: true,
			Options:     []Option{{ID: 0, Label: PlaceholderLabel}},
		}, nil
	}

	stateID, err := b.states.StateID(state)
	if err != nil {
		return Picklist{}, err
	}

	topics, err := b.topics.ActiveTopics(ctx, boardIDs)
	if err != nil {
		return Picklist{}, fmt.Errorf("load topics: %w", err)
	}
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })

	ids := make([]int64, len(topics))
	for i, t := range topics {
		ids[i] = t.ID
	}

	counts := map[int64]int{}
	if len(ids) > 0 {
		counts, err = b.topics.PendingCounts(ctx, ids, stateID, RequiresFullText(state))
		if err != nil {
			return Picklist{}, fmt.Errorf("count pending articles: %w", err)
		}
	}

	options := make([]Option, 0, len(topics))
	mine := map[int64]bool{}
	for _, t := range topics {
		count := counts[t.ID]
		options = append(options, Option{
			ID:    t.ID,
			Label: fmt.Sprintf("%s (%d)", t.Name, count),
			Count: count,
		})
		if reviewerID != 0 && t.NCIReviewer == reviewerID {
			mine[t.ID] = true
		}
	}

	if state != domain.StatePublished || len(mine) == 0 || len(mine) == len(options) {
		return Picklist{Options: options}, nil
	}

	var myGroup, otherGroup Group
	var myCount, otherCount int
	for _, opt := range options {
		if mine[opt.ID] {
			myGroup.Options = append(myGroup.Options, opt)
			myCount += opt.Count
		} else {
			otherGroup.Options = append(otherGroup.Options, opt)
			otherCount += opt.Count
		}
	}
	myGroup.Label = fmt.Sprintf("My Topics (%d)", myCount)
	otherGroup.Label = fmt.Sprintf("Other Topics (%d)", otherCount)
	return Picklist{Groups: []Group{myGroup, otherGroup}}, nil
}

// RequiresFullText reports whether pending counts for the state only include
// articles with a stored full-text artifact.
func RequiresFullText(state string) bool {
	return state != domain.StatePublished && state != domain.StateReadyInitReview
}

func nonZero(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}
