package models

import "time"

// Instrument is a tradable security known to the simulator.
// A row is created lazily the first time any account trades the symbol
// and is never deleted afterwards.
type Instrument struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"` // ticker, unique across instruments
	Name         string    `json:"name"`
	NumInvestors int64     `json:"num_investors"` // advisory count of accounts holding >= 1 share
	CreatedAt    time.Time `json:"created_at"`
}
