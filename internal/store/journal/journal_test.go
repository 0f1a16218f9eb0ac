package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordOpenAndActiveTrade(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.RecordOpen(ctx, TradeRecord{
		Symbol:            "btcusdt",
		Quantity:          "0.001",
		EntryPrice:        "50000",
		TakeProfitPrice:   "51000",
		Leverage:          5,
		Margin:            "10",
		EntryOrderID:      1111,
		TakeProfitOrderID: 2222,
	})
	require.NoError(t, err)
	require.Positive(t, id)

	active, ok, err := store.ActiveTrade(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, active.ID)
	assert.Equal(t, "BTCUSDT", active.Symbol)
	assert.Equal(t, "0.001", active.Quantity)
	assert.Equal(t, TradeStatusOpen, active.Status)
	assert.Equal(t, int64(1111), active.EntryOrderID)
	assert.False(t, active.OpenedAt.IsZero())
	assert.Nil(t, active.ClosedAt)
}

func TestMarkClosed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.RecordOpen(ctx, TradeRecord{Symbol: "ETHUSDT", Quantity: "0.05", EntryPrice: "3000", TakeProfitPrice: "3100"})
	require.NoError(t, err)

	closedAt := time.Now()
	require.NoError(t, store.MarkClosed(ctx, id, closedAt))

	_, ok, err := store.ActiveTrade(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	trades, err := store.RecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, TradeStatusClosed, trades[0].Status)
	require.NotNil(t, trades[0].ClosedAt)
	assert.WithinDuration(t, closedAt, *trades[0].ClosedAt, time.Second)
}

func TestMarkClosedMissingTrade(t *testing.T) {
	store := newTestStore(t)
	err := store.MarkClosed(context.Background(), 9999, time.Now())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRecentTradesOrderAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := store.RecordOpen(ctx, TradeRecord{
			Symbol:     "BTCUSDT",
			Quantity:   "0.001",
			EntryPrice: "50000",
			OpenedAt:   base.Add(time.Duration(i) * time.Minute),
			Status:     TradeStatusClosed,
		})
		require.NoError(t, err)
	}

	trades, err := store.RecentTrades(ctx, 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.True(t, trades[0].OpenedAt.After(trades[1].OpenedAt))

	total, err := store.CountTrades(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}
