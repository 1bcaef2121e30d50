package settlement

import (
	"context"

	"github.com/papertrade/settlement/internal/interfaces"
	"github.com/papertrade/settlement/internal/models"
)

// Log is the append-only trade history. It is an audit trail, not a
// consistency-critical write: the orchestrator logs and swallows append
// failures instead of rolling back a settled trade.
type Log struct {
	store interfaces.SettlementStore
}

func NewLog(store interfaces.SettlementStore) *Log {
	return &Log{store: store}
}

func (l *Log) Append(ctx context.Context, rec models.TransactionRecord) error {
	return l.store.AppendTransaction(ctx, rec)
}

func (l *Log) ByAccount(ctx context.Context, accountID string) ([]models.TransactionRecord, error) {
	return l.store.ListTransactionsByAccount(ctx, accountID)
}
