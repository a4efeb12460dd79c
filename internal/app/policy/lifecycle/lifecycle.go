// Package lifecycle provides the status machine shared by articles, contact
// submissions and newsletter subscribers.
//
// Rules:
//   - Each entity declares a closed set of statuses and the moves allowed
//     out of each one
//   - Staying in the same status is always allowed and is a no-op
//   - A move to an unknown status is a validation error; a move the table
//     does not list is InvalidTransition
package lifecycle

import (
	"fmt"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
)

// Machine is an immutable transition table over statuses of type S.
type Machine[S comparable] struct {
	entity string
	edges  map[S]map[S]struct{}
}

// NewMachine builds a Machine for entity. Every status must appear as a key
// of edges, even when it has no outgoing moves.
func NewMachine[S comparable](entity string, edges map[S][]S) *Machine[S] {
	m := &Machine[S]{entity: entity, edges: make(map[S]map[S]struct{}, len(edges))}
	for from, tos := range edges {
		set := make(map[S]struct{}, len(tos))
		for _, to := range tos {
			set[to] = struct{}{}
		}
		m.edges[from] = set
	}
	return m
}

// Known reports whether status belongs to the machine.
func (m *Machine[S]) Known(status S) bool {
	_, ok := m.edges[status]
	return ok
}

// Check returns nil when moving from → to is allowed.
func (m *Machine[S]) Check(from, to S) error {
	if !m.Known(to) {
		return apperr.Invalid([]apperr.FieldError{{Field: "status", Message: fmt.Sprintf("unknown %s status \"%v\"", m.entity, to)}})
	}
	if from == to {
		return nil
	}
	if _, ok := m.edges[from][to]; !ok {
		return apperr.New(apperr.InvalidTransition,
			fmt.Sprintf("Cannot move %s from %v to %v", m.entity, from, to))
	}
	return nil
}
