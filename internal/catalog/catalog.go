// Package catalog resolves symbolic workflow state names to stored ids.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/ports"
)

// Catalog is immutable once built.
type Catalog struct {
	byName map[string]domain.StateType
	byID   map[int64]domain.StateType
}

// Load reads every registered state from the source.
func Load(ctx context.Context, source ports.StateSource) (*Catalog, error) {
	if source == nil {
		return nil, fmt.Errorf("state source is not configured")
	}
	states, err := source.StateTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state types: %w", err)
	}
	return New(states), nil
}

// New builds a catalog from the given states. Entries with an empty text id are ignored.
func New(states []domain.StateType) *Catalog {
	c := &Catalog{
		byName: make(map[string]domain.StateType, len(states)),
		byID:   make(map[int64]domain.StateType, len(states)),
	}
	for _, st := range states {
		name := strings.TrimSpace(st.TextID)
		if name == "" {
			continue
		}
		st.TextID = name
		c.byName[name] = st
		c.byID[st.ID] = st
	}
	return c
}

// StateID returns the stored id for the symbolic name.
func (c *Catalog) StateID(name string) (int64, error) {
	st, ok := c.byName[name]
	if !ok {
		return 0, &domain.UnknownStateError{Name: name}
	}
	return st.ID, nil
}

// SymbolicName returns the text id registered for the stored id.
func (c *Catalog) SymbolicName(id int64) (string, error) {
	st, ok := c.byID[id]
	if !ok {
		return "", &domain.UnknownStateError{ID: id}
	}
	return st.TextID, nil
}

// QueueStateID resolves the target state of a queue type in one step.
func (c *Catalog) QueueStateID(qt domain.QueueType) (int64, error) {
	name, err := qt.TargetState()
	if err != nil {
		return 0, err
	}
	return c.StateID(name)
}

// States lists the registered states ordered by sequence, then id.
func (c *Catalog) States() []domain.StateType {
	out := make([]domain.StateType, 0, len(c.byID))
	for _, st := range c.byID {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID < out[j].ID
	})
	return out
}
