package store

import (
	"context"

	"confidentpicks/automation/internal/models"

	"github.com/rs/zerolog/log"
)

// DryRun reads from another store and logs writes instead of applying them
type DryRun struct {
	reader PickStore
}

// NewDryRun wraps a store so that only its reads take effect
func NewDryRun(reader PickStore) *DryRun {
	return &DryRun{reader: reader}
}

// List delegates to the wrapped store
func (d *DryRun) List(ctx context.Context, collection string) ([]*models.Pick, error) {
	return d.reader.List(ctx, collection)
}

// Upsert logs the picks that would be merged
func (d *DryRun) Upsert(_ context.Context, collection string, picks []*models.Pick) error {
	for _, p := range picks {
		log.Info().
			Str("collection", collection).
			Str("pick_id", p.ID).
			Str("market", string(p.MarketType)).
			Str("pick", p.Pick).
			Str("result", string(p.Result)).
			Msg("[dry-run] Would upsert pick")
	}
	return nil
}

// Move logs the moves that would be applied
func (d *DryRun) Move(_ context.Context, moves []Move) error {
	for _, m := range moves {
		if err := m.validate(); err != nil {
			return err
		}
		log.Info().
			Str("pick_id", m.Pick.ID).
			Str("from", m.From).
			Str("to", m.To).
			Str("result", string(m.Pick.Result)).
			Msg("[dry-run] Would move pick")
	}
	return nil
}
