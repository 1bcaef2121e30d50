package interfaces

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/papertrade/settlement/internal/models"
)

// Contract edges every SettlementStore implementation must report.
var (
	// ErrNotFound is returned when a row matching the filter does not exist.
	ErrNotFound = errors.New("store: row not found")

	// ErrDuplicateSymbol is returned by InsertInstrument when another row
	// already owns the symbol (the uniqueness constraint fired).
	ErrDuplicateSymbol = errors.New("store: instrument symbol already exists")

	// ErrInsufficientBalance is returned by AdjustBalance when the
	// adjustment would drive the balance below zero.
	ErrInsufficientBalance = errors.New("store: balance would go negative")
)

// SettlementStore exposes the per-table row operations the settlement
// engine runs on. Every method is a single store operation and is
// individually atomic; the store gives no atomicity guarantee across
// calls. Cross-row consistency is the engine's job, not the store's.
type SettlementStore interface {
	// Instruments.
	GetInstrumentBySymbol(ctx context.Context, symbol string) (models.Instrument, error)
	GetInstrument(ctx context.Context, instrumentID string) (models.Instrument, error)
	InsertInstrument(ctx context.Context, inst models.Instrument) error
	UpdateInvestorCount(ctx context.Context, instrumentID string, count int64) error

	// Wallet. AdjustBalance applies balance = balance + delta in one
	// store-side operation (never read-then-write by the caller) and
	// rejects a result below zero with ErrInsufficientBalance.
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error)

	// Holdings, keyed on (account, instrument).
	GetHolding(ctx context.Context, accountID, instrumentID string) (models.Holding, error)
	UpsertHolding(ctx context.Context, h models.Holding) error
	DeleteHolding(ctx context.Context, accountID, instrumentID string) error
	ListHoldingsByAccount(ctx context.Context, accountID string) ([]models.Holding, error)

	// Append-only trade history.
	AppendTransaction(ctx context.Context, rec models.TransactionRecord) error
	ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.TransactionRecord, error)

	// CreateAccount provisions an account with an opening balance.
	// Accounts are created at signup, outside the settlement engine;
	// this exists for server bootstrap and tests only.
	CreateAccount(ctx context.Context, accountID string, openingBalance decimal.Decimal) error
}
