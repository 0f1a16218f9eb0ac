package trader

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"remora/internal/store/journal"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.New(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedOpenTrade(t *testing.T, store *journal.Store) int64 {
	t.Helper()
	id, err := store.RecordOpen(context.Background(), journal.TradeRecord{
		Symbol:            "BTCUSDT",
		Quantity:          "0.001",
		EntryPrice:        "50000",
		TakeProfitPrice:   "51000",
		Leverage:          5,
		Margin:            "10",
		EntryOrderID:      1111,
		TakeProfitOrderID: 2222,
		OpenedAt:          time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	return id
}

func TestRecoverAdoptsOpenTrade(t *testing.T) {
	store := newTestJournal(t)
	id := seedOpenTrade(t, store)

	mockEx := new(MockExchange)
	mockEx.On("PositionAmount", mock.Anything, "BTCUSDT").Return(decimal.RequireFromString("0.001"), nil)

	tr := NewTrader(mockEx, store, nil, testChatID)
	require.NoError(t, tr.Recover())

	snap := tr.Snapshot()
	require.True(t, snap.HasActive())
	assert.Equal(t, id, snap.Active.JournalID)
	assert.Equal(t, "BTCUSDT", snap.Active.Symbol)
	assert.Equal(t, "0.001", snap.Active.Quantity.String())
	assert.Equal(t, int64(1111), snap.Active.EntryOrderID)

	// The journal entry stays open while the position lives.
	_, ok, err := store.ActiveTrade(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecoverClosesFlatTrade(t *testing.T) {
	store := newTestJournal(t)
	seedOpenTrade(t, store)

	mockEx := new(MockExchange)
	mockEx.On("PositionAmount", mock.Anything, "BTCUSDT").Return(decimal.Zero, nil)

	tr := NewTrader(mockEx, store, nil, testChatID)
	require.NoError(t, tr.Recover())

	assert.False(t, tr.Snapshot().HasActive())
	_, ok, err := store.ActiveTrade(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecoverAdoptsWhenExchangeUnreachable(t *testing.T) {
	store := newTestJournal(t)
	seedOpenTrade(t, store)

	mockEx := new(MockExchange)
	mockEx.On("PositionAmount", mock.Anything, "BTCUSDT").Return(decimal.Zero, errors.New("dial tcp: timeout"))

	tr := NewTrader(mockEx, store, nil, testChatID)
	require.NoError(t, tr.Recover())

	// Better to track a maybe-closed position than to forget a live one.
	assert.True(t, tr.Snapshot().HasActive())
}

func TestRecoverIdleStates(t *testing.T) {
	t.Run("no journal configured", func(t *testing.T) {
		tr := NewTrader(new(MockExchange), nil, nil, testChatID)
		require.NoError(t, tr.Recover())
		assert.False(t, tr.Snapshot().HasActive())
	})
	t.Run("empty journal", func(t *testing.T) {
		tr := NewTrader(new(MockExchange), newTestJournal(t), nil, testChatID)
		require.NoError(t, tr.Recover())
		assert.False(t, tr.Snapshot().HasActive())
	})
}

func TestPollClosureWritesJournal(t *testing.T) {
	store := newTestJournal(t)

	mockEx := new(MockExchange)
	expectFullOpen(mockEx)
	mockEx.On("PositionAmount", mock.Anything, "BTCUSDT").Return(decimal.Zero, nil)

	tr := NewTrader(mockEx, store, nil, testChatID)
	tr.Start()
	t.Cleanup(tr.Stop)

	require.NoError(t, tr.SendSync(context.Background(), inboundEnvelope(testChatID, testSignal)))

	active, ok, err := store.ActiveTrade(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", active.Symbol)
	assert.NotEmpty(t, active.Steps)

	require.NoError(t, tr.SendSync(context.Background(), pollEnvelope()))

	_, ok, err = store.ActiveTrade(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	trades, err := store.RecentTrades(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, journal.TradeStatusClosed, trades[0].Status)
}
