package settlement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/papertrade/settlement/internal/models"
)

// Read-side queries the UI layer needs alongside trade execution.

func (e *Engine) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return e.wallet.Balance(ctx, accountID)
}

func (e *Engine) Portfolio(ctx context.Context, accountID string) ([]models.Holding, error) {
	return e.book.store.ListHoldingsByAccount(ctx, accountID)
}

func (e *Engine) History(ctx context.Context, accountID string) ([]models.TransactionRecord, error) {
	return e.history.ByAccount(ctx, accountID)
}

// Instrument looks up an instrument by symbol without creating it.
func (e *Engine) Instrument(ctx context.Context, symbol string) (models.Instrument, error) {
	return e.registry.store.GetInstrumentBySymbol(ctx, symbol)
}
