package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeRequest is the caller's intent to trade. The price per share is
// supplied by the caller; the engine never fetches market data itself.
type TradeRequest struct {
	AccountID     string          `json:"account_id"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Quantity      int64           `json:"quantity"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
}

// Validate checks the request fields before any settlement work starts.
func (r TradeRequest) Validate() error {
	if r.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}
	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !r.Side.Valid() {
		return fmt.Errorf("side must be %q or %q", SideBuy, SideSell)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("quantity must be a positive integer")
	}
	if r.PricePerShare.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("price_per_share must be positive")
	}
	return nil
}

// Total is the cash value of the request (quantity x price per share).
func (r TradeRequest) Total() decimal.Decimal {
	return r.PricePerShare.Mul(decimal.NewFromInt(r.Quantity))
}

// TransactionRecord is one row of the append-only trade history.
// Records are immutable once written.
type TransactionRecord struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	InstrumentID  string          `json:"instrument_id"`
	Side          Side            `json:"side"`
	Quantity      int64           `json:"quantity"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}
