// Package session persists queue specifications as versioned values. Every
// save yields a new opaque id; stored versions are never modified.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/ports"
	"ReviewQueue/internal/trace"
)

// Kind tags saved review queue parameters in the shared request store.
const Kind = "review queue"

var (
	// ErrQueueNotFound means no specification is stored under the id.
	ErrQueueNotFound = errors.New("review queue not found")
	// ErrWrongKind means the id belongs to another kind of saved request.
	ErrWrongKind = errors.New("saved request is not a review queue")
)

// Store saves and loads queue specifications.
type Store struct {
	params   ports.ParameterStore
	observer trace.Observer
}

// NewStore wraps a parameter store.
func NewStore(params ports.ParameterStore, observer trace.Observer) *Store {
	return &Store{params: params, observer: trace.OrNop(observer)}
}

// Save stores the specification and returns its new id.
func (s *Store) Save(ctx context.Context, spec domain.QueueSpecification) (string, error) {
	if spec.QueuedDecisions == nil {
		spec.QueuedDecisions = map[domain.DecisionKey]domain.Decision{}
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("encode queue specification: %w", err)
	}
	id, err := s.params.SaveParameters(ctx, Kind, raw)
	if err != nil {
		return "", fmt.Errorf("save queue specification: %w", err)
	}
	s.observer.OnSpecificationSaved(ctx, trace.SpecificationSaved{
		ID:      id,
		Parent:  spec.Parent,
		Version: spec.Version,
		Owner:   spec.Owner,
	})
	return id, nil
}

// Load returns the specification stored under id.
func (s *Store) Load(ctx context.Context, id string) (domain.QueueSpecification, error) {
	kind, raw, err := s.params.LoadParameters(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return domain.QueueSpecification{}, ErrQueueNotFound
		}
		return domain.QueueSpecification{}, fmt.Errorf("load queue specification: %w", err)
	}
	if kind != Kind {
		return domain.QueueSpecification{}, ErrWrongKind
	}

	var spec domain.QueueSpecification
	if err := json.Unmarshal(raw, &spec); err != nil {
		return domain.QueueSpecification{}, fmt.Errorf("decode queue specification: %w", err)
	}
	if spec.QueuedDecisions == nil {
		spec.QueuedDecisions = map[domain.DecisionKey]domain.Decision{}
	}
	return spec, nil
}
