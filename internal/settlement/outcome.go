package settlement

// Outcome is the terminal state of one ExecuteTrade invocation.
type Outcome int

const (
	// OutcomeRejected means the trade was refused before any durable
	// mutation: validation failed or a pre-mutation read/write failed.
	OutcomeRejected Outcome = iota
	// OutcomeSettled means every step completed and the balance,
	// holdings and investor count reflect the trade.
	OutcomeSettled
	// OutcomeFailedCompensated means the holdings write failed and the
	// ledger adjustment was successfully reversed; state matches the
	// pre-trade state.
	OutcomeFailedCompensated
	// OutcomeFailedUncompensated means the reversal itself failed and
	// the stored balance can no longer be trusted.
	OutcomeFailedUncompensated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeSettled:
		return "settled"
	case OutcomeFailedCompensated:
		return "failed_compensated"
	case OutcomeFailedUncompensated:
		return "failed_uncompensated"
	default:
		return "unknown"
	}
}
