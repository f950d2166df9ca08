// Package decision applies batches of queued reviewer decisions as workflow
// state transitions.
package decision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/permission"
	"ReviewQueue/internal/ports"
	"ReviewQueue/internal/trace"
)

// StateResolver resolves symbolic state names.
type StateResolver interface {
	StateID(name string) (int64, error)
}

// Warning records a batch entry that was skipped.
type Warning struct {
	Key      domain.DecisionKey `json:"key"`
	Decision domain.Decision    `json:"decision"`
	Err      error              `json:"-"`
}

// Message is the reviewer-facing text for the warning.
func (w Warning) Message() string {
	return fmt.Sprintf("Article %d topic %d: %v", w.Key.ArticleID, w.Key.TopicID, w.Err)
}

// Result summarizes one batch.
type Result struct {
	Applied  int
	Records  []domain.StateRecord
	Warnings []Warning
}

// Deps wires the engine.
type Deps struct {
	States   StateResolver
	Gate     *permission.Gate
	Topics   ports.TopicStore
	Writer   ports.StateWriter
	Observer trace.Observer
}

// Engine validates and applies decision batches.
type Engine struct {
	states   StateResolver
	gate     *permission.Gate
	topics   ports.TopicStore
	writer   ports.StateWriter
	observer trace.Observer
}

// NewEngine builds an engine from its dependencies.
func NewEngine(deps Deps) *Engine {
	gate := deps.Gate
	if gate == nil {
		gate = permission.NewGate(nil)
	}
	return &Engine{
		states:   deps.States,
		gate:     gate,
		topics:   deps.Topics,
		writer:   deps.Writer,
		observer: trace.OrNop(deps.Observer),
	}
}

type entry struct {
	key      domain.DecisionKey
	decision domain.Decision
	state    string
}

// Apply records one state transition per valid entry. Entries are processed in
// (article, topic) order; invalid entries become warnings and the batch goes on.
// Associations that have left the queue's state are skipped. A store failure
// stops the batch; entries already applied stay applied and are listed in the
// returned Result.
func (e *Engine) Apply(ctx context.Context, qt domain.QueueType, decisions map[domain.DecisionKey]domain.Decision, actor domain.User, now time.Time) (Result, error) {
	if err := e.gate.Authorize(actor, qt); err != nil {
		return Result{}, err
	}

	keys := make([]domain.DecisionKey, 0, len(decisions))
	for k, d := range decisions {
		if d == domain.DecisionNone {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ArticleID != keys[j].ArticleID {
			return keys[i].ArticleID < keys[j].ArticleID
		}
		return keys[i].TopicID < keys[j].TopicID
	})

	var res Result
	var pending []entry
	topicIDs := map[int64]struct{}{}
	for _, k := range keys {
		d := decisions[k]
		state, err := domain.DecisionState(qt, d)
		if err != nil {
			var invalid *domain.InvalidDecisionCodeError
			if !errors.As(err, &invalid) {
				return res, err
			}
			e.skip(ctx, &res, qt, k, d, err)
			continue
		}
		pending = append(pending, entry{key: k, decision: d, state: state})
		topicIDs[k.TopicID] = struct{}{}
	}
	if len(pending) == 0 {
		return res, nil
	}

	fromID, err := e.queueStateID(qt)
	if err != nil {
		return res, err
	}

	ids := make([]int64, 0, len(topicIDs))
	for id := range topicIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	topics, err := e.topics.TopicsByID(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("load decision topics: %w", err)
	}

	for _, p := range pending {
		topic, ok := topics[p.key.TopicID]
		if !ok {
			e.skip(ctx, &res, qt, p.key, p.decision, domain.ErrAssociationNotFound)
			continue
		}
		if !e.gate.CanDecideTopic(actor, topic, qt) {
			e.skip(ctx, &res, qt, p.key, p.decision, domain.ErrTopicNotAssigned)
			continue
		}

		stateID, err := e.states.StateID(p.state)
		if err != nil {
			return res, err
		}

		record, err := e.writer.ApplyState(ctx, domain.StateTransition{
			ArticleID:   p.key.ArticleID,
			TopicID:     p.key.TopicID,
			FromStateID: fromID,
			StateID:     stateID,
			ActorID:     actor.ID,
			Entered:     now,
		})
		if errors.Is(err, domain.ErrAssociationNotFound) || errors.Is(err, domain.ErrStateChanged) {
			e.skip(ctx, &res, qt, p.key, p.decision, err)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("apply decision %s: %w", p.key, err)
		}

		res.Applied++
		res.Records = append(res.Records, record)
		e.observer.OnDecisionApplied(ctx, trace.DecisionApplied{
			QueueType: qt,
			Key:       p.key,
			Decision:  p.decision,
			State:     p.state,
			ActorID:   actor.ID,
		})
	}

	return res, nil
}

func (e *Engine) queueStateID(qt domain.QueueType) (int64, error) {
	name, err := qt.TargetState()
	if err != nil {
		return 0, err
	}
	return e.states.StateID(name)
}

func (e *Engine) skip(ctx context.Context, res *Result, qt domain.QueueType, key domain.DecisionKey, d domain.Decision, reason error) {
	res.Warnings = append(res.Warnings, Warning{Key: key, Decision: d, Err: reason})
	e.observer.OnDecisionSkipped(ctx, trace.DecisionSkipped{
		QueueType: qt,
		Key:       key,
		Decision:  d,
		Reason:    reason,
	})
}
