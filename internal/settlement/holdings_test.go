package settlement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertrade/settlement/internal/models"
	"github.com/papertrade/settlement/internal/storage/memory"
)

func TestBook_BuyAccumulatesCostBasis(t *testing.T) {
	ctx := context.Background()
	book := NewBook(memory.NewMemoryStore())

	effect, err := book.ApplyTrade(ctx, "acct-1", "inst-1", models.SideBuy, 10, decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	assert.Equal(t, PositionOpened, effect.Change)
	assert.Equal(t, int64(10), effect.Holding.Quantity)
	assert.True(t, effect.Holding.CostBasis.Equal(decimal.RequireFromString("500.00")))

	// A second buy at a different price adds to the same row.
	effect, err = book.ApplyTrade(ctx, "acct-1", "inst-1", models.SideBuy, 5, decimal.RequireFromString("60.00"))
	require.NoError(t, err)
	assert.Equal(t, PositionUnchanged, effect.Change)
	assert.Equal(t, int64(15), effect.Holding.Quantity)
	assert.True(t, effect.Holding.CostBasis.Equal(decimal.RequireFromString("800.00")))
}

func TestBook_SellReducesBasisProportionally(t *testing.T) {
	ctx := context.Background()
	book := NewBook(memory.NewMemoryStore())

	_, err := book.ApplyTrade(ctx, "acct-1", "inst-1", models.SideBuy, 10, decimal.RequireFromString("50.00"))
	require.NoError(t, err)

	// Selling 4 of 10 removes 4 x avg cost (50.00) from the basis,
	// regardless of the sale price.
	effect, err := book.ApplyTrade(ctx, "acct-1", "inst-1", models.SideSell, 4, decimal.RequireFromString("60.00"))
	require.NoError(t, err)
	assert.Equal(t, PositionUnchanged, effect.Change)
	assert.Equal(t, int64(6), effect.Holding.Quantity)
	assert.True(t, effect.Holding.CostBasis.Equal(decimal.RequireFromString("300.00")),
		"cost basis %s", effect.Holding.CostBasis)
}

func TestBook_SellToZeroDeletesRow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	book := NewBook(store)

	_, err := book.ApplyTrade(ctx, "acct-1", "inst-1", models.SideBuy, 6, decimal.RequireFromString("50.00"))
	require.NoError(t, err)

	effect, err := book.ApplyTrade(ctx, "acct-1", "inst-1", models.SideSell, 6, decimal.RequireFromString("70.00"))
	require.NoError(t, err)
	assert.True(t, effect.Deleted)
	assert.Equal(t, PositionClosed, effect.Change)

	_, found, err := book.Get(ctx, "acct-1", "inst-1")
	require.NoError(t, err)
	assert.False(t, found, "a quantity-zero row must not linger")
}

func TestBook_SellBeyondPositionFails(t *testing.T) {
	ctx := context.Background()
	book := NewBook(memory.NewMemoryStore())

	_, err := book.ApplyTrade(ctx, "acct-1", "inst-1", models.SideSell, 1, decimal.RequireFromString("10.00"))
	assert.Error(t, err, "sell with no position")

	_, err = book.ApplyTrade(ctx, "acct-1", "inst-1", models.SideBuy, 2, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	_, err = book.ApplyTrade(ctx, "acct-1", "inst-1", models.SideSell, 3, decimal.RequireFromString("10.00"))
	assert.Error(t, err, "sell exceeding held quantity")
}
