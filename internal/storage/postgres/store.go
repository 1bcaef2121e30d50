package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/papertrade/settlement/internal/interfaces"
	"github.com/papertrade/settlement/internal/models"
)

const uniqueViolation = pq.ErrorCode("23505")

// PostgresStore implements the settlement store with one SQL statement
// per method. There is deliberately no BEGIN/COMMIT anywhere in this
// file: the engine's saga assumes only per-statement atomicity, and the
// store must not offer more than the contract promises.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) GetInstrumentBySymbol(ctx context.Context, symbol string) (models.Instrument, error) {
	const query = `SELECT id, symbol, name, num_investors, created_at FROM instruments WHERE symbol = $1`

	var inst models.Instrument
	err := p.db.QueryRowContext(ctx, query, symbol).
		Scan(&inst.ID, &inst.Symbol, &inst.Name, &inst.NumInvestors, &inst.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Instrument{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.Instrument{}, err
	}
	return inst, nil
}

func (p *PostgresStore) GetInstrument(ctx context.Context, instrumentID string) (models.Instrument, error) {
	const query = `SELECT id, symbol, name, num_investors, created_at FROM instruments WHERE id = $1`

	var inst models.Instrument
	err := p.db.QueryRowContext(ctx, query, instrumentID).
		Scan(&inst.ID, &inst.Symbol, &inst.Name, &inst.NumInvestors, &inst.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Instrument{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.Instrument{}, err
	}
	return inst, nil
}

func (p *PostgresStore) InsertInstrument(ctx context.Context, inst models.Instrument) error {
	const query = `INSERT INTO instruments (id, symbol, name, num_investors, created_at)
	VALUES ($1, $2, $3, $4, $5)`

	_, err := p.db.ExecContext(ctx, query, inst.ID, inst.Symbol, inst.Name, inst.NumInvestors, inst.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return interfaces.ErrDuplicateSymbol
	}
	return err
}

func (p *PostgresStore) UpdateInvestorCount(ctx context.Context, instrumentID string, count int64) error {
	const query = `UPDATE instruments SET num_investors = $2 WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query, instrumentID, count)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (p *PostgresStore) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	const query = `SELECT balance FROM accounts WHERE id = $1`

	var balance decimal.Decimal
	err := p.db.QueryRowContext(ctx, query, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, interfaces.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// AdjustBalance applies the delta in a single conditional UPDATE so the
// database, not the caller, performs the read-modify-write. The
// balance + delta >= 0 guard distinguishes overdraw from a missing row.
func (p *PostgresStore) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	const query = `UPDATE accounts SET balance = balance + $2
	WHERE id = $1 AND balance + $2 >= 0
	RETURNING balance`

	var balance decimal.Decimal
	err := p.db.QueryRowContext(ctx, query, accountID, delta).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		if _, gerr := p.GetBalance(ctx, accountID); errors.Is(gerr, interfaces.ErrNotFound) {
			return decimal.Zero, interfaces.ErrNotFound
		}
		return decimal.Zero, interfaces.ErrInsufficientBalance
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (p *PostgresStore) GetHolding(ctx context.Context, accountID, instrumentID string) (models.Holding, error) {
	const query = `SELECT account_id, instrument_id, quantity, cost_basis, updated_at
	FROM holdings WHERE account_id = $1 AND instrument_id = $2`

	var h models.Holding
	err := p.db.QueryRowContext(ctx, query, accountID, instrumentID).
		Scan(&h.AccountID, &h.InstrumentID, &h.Quantity, &h.CostBasis, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Holding{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.Holding{}, err
	}
	return h, nil
}

func (p *PostgresStore) UpsertHolding(ctx context.Context, h models.Holding) error {
	const query = `INSERT INTO holdings (account_id, instrument_id, quantity, cost_basis, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (account_id, instrument_id)
	DO UPDATE SET quantity = EXCLUDED.quantity, cost_basis = EXCLUDED.cost_basis, updated_at = EXCLUDED.updated_at`

	_, err := p.db.ExecContext(ctx, query, h.AccountID, h.InstrumentID, h.Quantity, h.CostBasis, h.UpdatedAt)
	return err
}

func (p *PostgresStore) DeleteHolding(ctx context.Context, accountID, instrumentID string) error {
	const query = `DELETE FROM holdings WHERE account_id = $1 AND instrument_id = $2`

	res, err := p.db.ExecContext(ctx, query, accountID, instrumentID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ListHoldingsByAccount(ctx context.Context, accountID string) ([]models.Holding, error) {
	const query = `SELECT account_id, instrument_id, quantity, cost_basis, updated_at
	FROM holdings WHERE account_id = $1`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.AccountID, &h.InstrumentID, &h.Quantity, &h.CostBasis, &h.UpdatedAt); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (p *PostgresStore) AppendTransaction(ctx context.Context, rec models.TransactionRecord) error {
	const query = `INSERT INTO transactions (id, account_id, instrument_id, side, quantity, price_per_share, total_amount, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := p.db.ExecContext(ctx, query,
		rec.ID, rec.AccountID, rec.InstrumentID, string(rec.Side),
		rec.Quantity, rec.PricePerShare, rec.TotalAmount, rec.CreatedAt)
	return err
}

func (p *PostgresStore) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.TransactionRecord, error) {
	const query = `SELECT id, account_id, instrument_id, side, quantity, price_per_share, total_amount, created_at
	FROM transactions WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		var side string
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.InstrumentID, &side,
			&rec.Quantity, &rec.PricePerShare, &rec.TotalAmount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Side = models.Side(side)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *PostgresStore) CreateAccount(ctx context.Context, accountID string, openingBalance decimal.Decimal) error {
	const query = `INSERT INTO accounts (id, balance) VALUES ($1, $2)
	ON CONFLICT (id) DO NOTHING`

	_, err := p.db.ExecContext(ctx, query, accountID, openingBalance)
	return err
}

var _ interfaces.SettlementStore = (*PostgresStore)(nil)
