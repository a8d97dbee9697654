// Package store persists pick documents in their lifecycle collections.
package store

import (
	"context"
	"errors"

	"confidentpicks/automation/internal/models"
)

// MaxBatchWrites is the Firestore limit on writes in one batch
const MaxBatchWrites = 500

// ErrInvalidMove is returned for a move without a pick or with identical collections
var ErrInvalidMove = errors.New("invalid move")

// Move relocates a pick from one collection to another. The destination
// document is written and the source deleted in the same batch.
type Move struct {
	Pick *models.Pick
	From string
	To   string
}

func (m Move) validate() error {
	if m.Pick == nil || m.Pick.ID == "" {
		return ErrInvalidMove
	}
	if m.From == "" || m.To == "" || m.From == m.To {
		return ErrInvalidMove
	}
	return nil
}

// PickStore reads and writes pick collections
type PickStore interface {
	// List returns every pick in a collection
	List(ctx context.Context, collection string) ([]*models.Pick, error)
	// Upsert merges picks into a collection keyed by pick id
	Upsert(ctx context.Context, collection string, picks []*models.Pick) error
	// Move applies moves atomically per batch
	Move(ctx context.Context, moves []Move) error
}

// clonePick returns a deep copy of a pick
func clonePick(p *models.Pick) *models.Pick {
	c := *p
	if p.ActualResult != nil {
		ar := *p.ActualResult
		c.ActualResult = &ar
	}
	if p.ActualTotal != nil {
		t := *p.ActualTotal
		c.ActualTotal = &t
	}
	if p.Extra != nil {
		c.Extra = make(map[string]interface{}, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}
