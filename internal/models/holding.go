package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one account's position in one instrument.
// A row exists if and only if Quantity > 0; a sell that empties the
// position deletes the row instead of leaving a zero row behind.
type Holding struct {
	AccountID    string          `json:"account_id"`
	InstrumentID string          `json:"instrument_id"`
	Quantity     int64           `json:"quantity"`
	CostBasis    decimal.Decimal `json:"cost_basis"` // cumulative amount paid for the shares still held
	UpdatedAt    time.Time       `json:"updated_at"`
}
