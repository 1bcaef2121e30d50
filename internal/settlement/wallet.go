package settlement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/papertrade/settlement/internal/interfaces"
)

// Wallet is the cash side of the ledger: one non-negative balance per
// account, mutated only through signed adjustments.
type Wallet struct {
	store interfaces.SettlementStore
}

func NewWallet(store interfaces.SettlementStore) *Wallet {
	return &Wallet{store: store}
}

func (w *Wallet) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return w.store.GetBalance(ctx, accountID)
}

// Apply adds the signed amount to the account's balance and returns the
// new balance. The delta is applied by the store in a single operation,
// so concurrent adjustments to one account never lose updates; a result
// below zero is rejected by the store.
func (w *Wallet) Apply(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return w.store.AdjustBalance(ctx, accountID, amount)
}
