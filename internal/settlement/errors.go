package settlement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Typed settlement failures. Validation failures (funds/shares) are
// returned before any mutation; the write failures mark which step of
// the saga broke.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientShares   = errors.New("insufficient shares")
	ErrInstrumentResolution = errors.New("instrument resolution failed")
	ErrLedgerWrite          = errors.New("ledger write failed")
	ErrHoldingsWrite        = errors.New("holdings write failed")
)

// CompensationError reports the one state a caller must never confuse
// with a normal failure: the holdings write failed AND the reversing
// ledger adjustment could not be applied, so the account's cash and
// holdings now disagree. Manual reconciliation is required.
type CompensationError struct {
	AccountID string
	// Amount is the ledger delta that is still applied but should not be.
	Amount decimal.Decimal
	// Cause is the holdings failure that triggered compensation.
	Cause error
	// Err is the last error from the failed reversal attempts.
	Err error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed for account %s: ledger delta %s not reversed: %v (trigger: %v)",
		e.AccountID, e.Amount, e.Err, e.Cause)
}

func (e *CompensationError) Unwrap() error { return e.Err }
