package settlement

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertrade/settlement/internal/interfaces"
	"github.com/papertrade/settlement/internal/models"
	"github.com/papertrade/settlement/internal/storage/memory"
)

func TestRegistry_ResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	registry := NewRegistry(store)

	first, err := registry.Resolve(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, int64(0), first.NumInvestors)

	second, err := registry.Resolve(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "resolving twice must yield the same instrument")
}

func TestRegistry_ResolveConcurrentNewSymbol(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	registry := NewRegistry(store)

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := registry.Resolve(ctx, "NEWCO")
			assert.NoError(t, err)
			ids[i] = inst.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id, "all resolvers must agree on one instrument id")
	}
}

// staleReadStore makes the first symbol lookup miss even though the row
// exists, forcing Resolve down the insert-then-conflict path.
type staleReadStore struct {
	interfaces.SettlementStore

	mu    sync.Mutex
	reads int
}

func (s *staleReadStore) GetInstrumentBySymbol(ctx context.Context, symbol string) (models.Instrument, error) {
	s.mu.Lock()
	s.reads++
	first := s.reads == 1
	s.mu.Unlock()
	if first {
		return models.Instrument{}, interfaces.ErrNotFound
	}
	return s.SettlementStore.GetInstrumentBySymbol(ctx, symbol)
}

func TestRegistry_ResolveLosingInsertFallsBackToWinner(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewMemoryStore()
	winner := models.Instrument{ID: "winner-id", Symbol: "AAPL", Name: "AAPL"}
	require.NoError(t, inner.InsertInstrument(ctx, winner))

	registry := NewRegistry(&staleReadStore{SettlementStore: inner})

	inst, err := registry.Resolve(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "winner-id", inst.ID, "loser must adopt the winning row, not error")
}

func TestRegistry_AdjustInvestorCountClampsAtZero(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	registry := NewRegistry(store)

	inst, err := registry.Resolve(ctx, "AAPL")
	require.NoError(t, err)

	require.NoError(t, registry.AdjustInvestorCount(ctx, inst.ID, 1))
	require.NoError(t, registry.AdjustInvestorCount(ctx, inst.ID, -1))
	require.NoError(t, registry.AdjustInvestorCount(ctx, inst.ID, -1))

	got, err := store.GetInstrument(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.NumInvestors, "count must clamp at zero")
}
