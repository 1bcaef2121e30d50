package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/papertrade/settlement/internal/interfaces"
	"github.com/papertrade/settlement/internal/models"
)

// MemoryStore is an in-memory implementation of the settlement store.
// Each method takes the store mutex once, which makes every call an
// individually-atomic operation, matching the guarantees (and only the
// guarantees) the engine is allowed to rely on.
type MemoryStore struct {
	mu           sync.Mutex
	instruments  map[string]models.Instrument // keyed by instrument id
	symbols      map[string]string            // symbol -> instrument id
	balances     map[string]decimal.Decimal   // keyed by account id
	holdings     map[holdingKey]models.Holding
	transactions []models.TransactionRecord
}

type holdingKey struct {
	accountID    string
	instrumentID string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instruments: make(map[string]models.Instrument),
		symbols:     make(map[string]string),
		balances:    make(map[string]decimal.Decimal),
		holdings:    make(map[holdingKey]models.Holding),
	}
}

func (m *MemoryStore) GetInstrumentBySymbol(ctx context.Context, symbol string) (models.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.symbols[symbol]
	if !ok {
		return models.Instrument{}, interfaces.ErrNotFound
	}
	return m.instruments[id], nil
}

func (m *MemoryStore) GetInstrument(ctx context.Context, instrumentID string) (models.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instruments[instrumentID]
	if !ok {
		return models.Instrument{}, interfaces.ErrNotFound
	}
	return inst, nil
}

func (m *MemoryStore) InsertInstrument(ctx context.Context, inst models.Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.symbols[inst.Symbol]; exists {
		return interfaces.ErrDuplicateSymbol
	}
	m.instruments[inst.ID] = inst
	m.symbols[inst.Symbol] = inst.ID
	return nil
}

func (m *MemoryStore) UpdateInvestorCount(ctx context.Context, instrumentID string, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instruments[instrumentID]
	if !ok {
		return interfaces.ErrNotFound
	}
	inst.NumInvestors = count
	m.instruments[instrumentID] = inst
	return nil
}

func (m *MemoryStore) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[accountID]
	if !ok {
		return decimal.Zero, interfaces.ErrNotFound
	}
	return balance, nil
}

// AdjustBalance applies balance = balance + delta under the store lock,
// so the read and write are one atomic operation from the caller's view.
func (m *MemoryStore) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[accountID]
	if !ok {
		return decimal.Zero, interfaces.ErrNotFound
	}
	next := balance.Add(delta)
	if next.Cmp(decimal.Zero) < 0 {
		return decimal.Zero, interfaces.ErrInsufficientBalance
	}
	m.balances[accountID] = next
	return next, nil
}

func (m *MemoryStore) GetHolding(ctx context.Context, accountID, instrumentID string) (models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holdings[holdingKey{accountID, instrumentID}]
	if !ok {
		return models.Holding{}, interfaces.ErrNotFound
	}
	return h, nil
}

func (m *MemoryStore) UpsertHolding(ctx context.Context, h models.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.holdings[holdingKey{h.AccountID, h.InstrumentID}] = h
	return nil
}

func (m *MemoryStore) DeleteHolding(ctx context.Context, accountID, instrumentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := holdingKey{accountID, instrumentID}
	if _, ok := m.holdings[key]; !ok {
		return interfaces.ErrNotFound
	}
	delete(m.holdings, key)
	return nil
}

func (m *MemoryStore) ListHoldingsByAccount(ctx context.Context, accountID string) ([]models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Holding
	for key, h := range m.holdings {
		if key.accountID == accountID {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *MemoryStore) AppendTransaction(ctx context.Context, rec models.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions = append(m.transactions, rec)
	return nil
}

func (m *MemoryStore) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.TransactionRecord
	for _, rec := range m.transactions {
		if rec.AccountID == accountID {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *MemoryStore) CreateAccount(ctx context.Context, accountID string, openingBalance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[accountID] = openingBalance
	return nil
}

// Compile-time check: MemoryStore implements the settlement store.
var _ interfaces.SettlementStore = (*MemoryStore)(nil)
