package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/papertrade/settlement/internal/interfaces"
	"github.com/papertrade/settlement/internal/models"
)

// Registry resolves ticker symbols to instrument rows and maintains the
// advisory investor counter on each instrument.
type Registry struct {
	store interfaces.SettlementStore
}

func NewRegistry(store interfaces.SettlementStore) *Registry {
	return &Registry{store: store}
}

// Resolve returns the instrument for symbol, inserting a new row with
// an investor count of zero on the first trade of a previously-unseen
// symbol. When two first-time traders race, the losing insert hits the
// symbol uniqueness constraint and falls back to re-reading the row the
// winner created, so both callers end up with the same instrument id.
func (r *Registry) Resolve(ctx context.Context, symbol string) (models.Instrument, error) {
	inst, err := r.store.GetInstrumentBySymbol(ctx, symbol)
	if err == nil {
		return inst, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return models.Instrument{}, err
	}

	inst = models.Instrument{
		ID:           uuid.New().String(),
		Symbol:       symbol,
		Name:         symbol,
		NumInvestors: 0,
		CreatedAt:    time.Now().UTC(),
	}
	err = r.store.InsertInstrument(ctx, inst)
	if err == nil {
		return inst, nil
	}
	if errors.Is(err, interfaces.ErrDuplicateSymbol) {
		// Lost the first-trade race; the winner's row is authoritative.
		return r.store.GetInstrumentBySymbol(ctx, symbol)
	}
	return models.Instrument{}, err
}

// AdjustInvestorCount applies delta to the instrument's investor count,
// clamped at zero. The counter is display-only: the read-modify-write
// here has no isolation from concurrent traders of the same instrument
// and is allowed to drift under load.
func (r *Registry) AdjustInvestorCount(ctx context.Context, instrumentID string, delta int64) error {
	inst, err := r.store.GetInstrument(ctx, instrumentID)
	if err != nil {
		return err
	}
	next := inst.NumInvestors + delta
	if next < 0 {
		next = 0
	}
	return r.store.UpdateInvestorCount(ctx, instrumentID, next)
}
