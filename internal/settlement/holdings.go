package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/settlement/internal/interfaces"
	"github.com/papertrade/settlement/internal/models"
)

// PositionChange reports whether a trade opened or closed a position,
// which is what drives the investor-count delta on the instrument.
type PositionChange int

const (
	PositionUnchanged PositionChange = iota
	PositionOpened
	PositionClosed
)

// TradeEffect is the holdings state after ApplyTrade.
type TradeEffect struct {
	Holding models.Holding // zero value when Deleted
	Deleted bool
	Change  PositionChange
}

// Book maintains per-(account, instrument) positions and their cost basis.
type Book struct {
	store interfaces.SettlementStore
}

func NewBook(store interfaces.SettlementStore) *Book {
	return &Book{store: store}
}

// Get returns the holding and whether a row exists. Absence of a row
// means a zero position; zero rows are never stored.
func (b *Book) Get(ctx context.Context, accountID, instrumentID string) (models.Holding, bool, error) {
	h, err := b.store.GetHolding(ctx, accountID, instrumentID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return models.Holding{}, false, nil
	}
	if err != nil {
		return models.Holding{}, false, err
	}
	return h, true, nil
}

// ApplyTrade mutates the position for one settled trade.
//
// Buy: quantity grows by qty, cost basis grows by qty x price; the row
// is upserted (insert on first buy).
//
// Sell: quantity shrinks by qty and the cost basis shrinks by the
// average cost of the shares sold (costBasis/oldQty per share), keeping
// the basis proportional to the shares still held. The caller must have
// validated oldQty >= qty. When the quantity reaches exactly zero the
// row is deleted rather than left as a zero row.
func (b *Book) ApplyTrade(ctx context.Context, accountID, instrumentID string, side models.Side, qty int64, price decimal.Decimal) (TradeEffect, error) {
	current, found, err := b.Get(ctx, accountID, instrumentID)
	if err != nil {
		return TradeEffect{}, err
	}

	switch side {
	case models.SideBuy:
		next := models.Holding{
			AccountID:    accountID,
			InstrumentID: instrumentID,
			Quantity:     current.Quantity + qty,
			CostBasis:    current.CostBasis.Add(price.Mul(decimal.NewFromInt(qty))),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := b.store.UpsertHolding(ctx, next); err != nil {
			return TradeEffect{}, err
		}
		change := PositionUnchanged
		if !found {
			change = PositionOpened
		}
		return TradeEffect{Holding: next, Change: change}, nil

	case models.SideSell:
		if !found || current.Quantity < qty {
			return TradeEffect{}, fmt.Errorf("sell of %d exceeds held quantity %d", qty, current.Quantity)
		}
		newQty := current.Quantity - qty
		if newQty == 0 {
			if err := b.store.DeleteHolding(ctx, accountID, instrumentID); err != nil {
				return TradeEffect{}, err
			}
			return TradeEffect{Deleted: true, Change: PositionClosed}, nil
		}
		avgCost := current.CostBasis.Div(decimal.NewFromInt(current.Quantity))
		next := models.Holding{
			AccountID:    accountID,
			InstrumentID: instrumentID,
			Quantity:     newQty,
			CostBasis:    current.CostBasis.Sub(avgCost.Mul(decimal.NewFromInt(qty))),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := b.store.UpsertHolding(ctx, next); err != nil {
			return TradeEffect{}, err
		}
		return TradeEffect{Holding: next}, nil

	default:
		return TradeEffect{}, fmt.Errorf("unknown side %q", side)
	}
}
