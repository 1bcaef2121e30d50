package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSettled is emitted after a trade has fully settled. Delivery is
// best effort; consumers must not treat the stream as the ledger of record.
type TradeSettled struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	InstrumentID  string          `json:"instrument_id"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Quantity      int64           `json:"quantity"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
