package trader

import (
	"context"
	"errors"
	"testing"

	"remora/internal/gateway/exchange"
	"remora/internal/signal"
	"remora/internal/sizing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExchange struct {
	mock.Mock
}

func (m *MockExchange) Name() string { return "mock" }

func (m *MockExchange) Instrument(ctx context.Context, symbol string) (exchange.Instrument, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(exchange.Instrument), args.Error(1)
}

func (m *MockExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	args := m.Called(ctx, symbol, leverage)
	return args.Error(0)
}

func (m *MockExchange) SetIsolatedMargin(ctx context.Context, symbol string) error {
	args := m.Called(ctx, symbol)
	return args.Error(0)
}

func (m *MockExchange) MarketBuy(ctx context.Context, symbol, quantity string) (exchange.OrderAck, error) {
	args := m.Called(ctx, symbol, quantity)
	return args.Get(0).(exchange.OrderAck), args.Error(1)
}

func (m *MockExchange) PlaceTakeProfit(ctx context.Context, symbol, stopPrice string) (exchange.OrderAck, error) {
	args := m.Called(ctx, symbol, stopPrice)
	return args.Get(0).(exchange.OrderAck), args.Error(1)
}

func (m *MockExchange) PositionAmount(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func longIntent() *signal.TradeIntent {
	return &signal.TradeIntent{
		Symbol:     "BTCUSDT",
		Entry:      decimal.NewFromInt(50000),
		TakeProfit: decimal.NewFromInt(51000),
		Leverage:   5,
		Margin:     decimal.NewFromInt(10),
		Side:       "LONG",
	}
}

func TestExecuteFullSequence(t *testing.T) {
	mockEx := new(MockExchange)
	mockEx.On("SetLeverage", mock.Anything, "BTCUSDT", 5).Return(nil)
	mockEx.On("SetIsolatedMargin", mock.Anything, "BTCUSDT").Return(nil)
	mockEx.On("Instrument", mock.Anything, "BTCUSDT").Return(exchange.Instrument{Symbol: "BTCUSDT", StepSize: "0.001"}, nil)
	mockEx.On("MarketBuy", mock.Anything, "BTCUSDT", "0.001").Return(exchange.OrderAck{OrderID: 1111, Status: "NEW"}, nil)
	mockEx.On("PlaceTakeProfit", mock.Anything, "BTCUSDT", "51000").Return(exchange.OrderAck{OrderID: 2222, Status: "NEW"}, nil)

	position, steps, err := NewExecutor(mockEx).Execute(context.Background(), longIntent())
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, "BTCUSDT", position.Symbol)
	assert.Equal(t, int64(1111), position.EntryOrderID)
	assert.Equal(t, int64(2222), position.TakeProfitOrderID)
	assert.Equal(t, "0.001", position.Quantity.String())
	assert.False(t, position.OpenedAt.IsZero())
	assert.Len(t, steps, 5)
	for _, s := range steps {
		assert.True(t, s.OK, "step %s", s.Step)
	}
	mockEx.AssertExpectations(t)
}

func TestExecuteLeverageFailureAborts(t *testing.T) {
	mockEx := new(MockExchange)
	mockEx.On("SetLeverage", mock.Anything, "BTCUSDT", 5).Return(errors.New("api down"))

	position, _, err := NewExecutor(mockEx).Execute(context.Background(), longIntent())
	assert.Nil(t, position)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, StepLeverage, execErr.Step)
	mockEx.AssertNotCalled(t, "MarketBuy", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteMarginModeIsBestEffort(t *testing.T) {
	mockEx := new(MockExchange)
	mockEx.On("SetLeverage", mock.Anything, "BTCUSDT", 5).Return(nil)
	mockEx.On("SetIsolatedMargin", mock.Anything, "BTCUSDT").Return(errors.New("margin locked"))
	mockEx.On("Instrument", mock.Anything, "BTCUSDT").Return(exchange.Instrument{Symbol: "BTCUSDT", StepSize: "0.001"}, nil)
	mockEx.On("MarketBuy", mock.Anything, "BTCUSDT", "0.001").Return(exchange.OrderAck{OrderID: 1111}, nil)
	mockEx.On("PlaceTakeProfit", mock.Anything, "BTCUSDT", "51000").Return(exchange.OrderAck{OrderID: 2222}, nil)

	position, steps, err := NewExecutor(mockEx).Execute(context.Background(), longIntent())
	require.NoError(t, err)
	require.NotNil(t, position)

	var marginStep *StepResult
	for i := range steps {
		if steps[i].Step == StepMarginMode {
			marginStep = &steps[i]
		}
	}
	require.NotNil(t, marginStep)
	assert.False(t, marginStep.OK)
}

func TestExecuteEntryFailureLeavesNoPosition(t *testing.T) {
	mockEx := new(MockExchange)
	mockEx.On("SetLeverage", mock.Anything, "BTCUSDT", 5).Return(nil)
	mockEx.On("SetIsolatedMargin", mock.Anything, "BTCUSDT").Return(nil)
	mockEx.On("Instrument", mock.Anything, "BTCUSDT").Return(exchange.Instrument{Symbol: "BTCUSDT", StepSize: "0.001"}, nil)
	mockEx.On("MarketBuy", mock.Anything, "BTCUSDT", "0.001").Return(exchange.OrderAck{}, errors.New("insufficient balance"))

	position, _, err := NewExecutor(mockEx).Execute(context.Background(), longIntent())
	assert.Nil(t, position)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, StepEntryOrder, execErr.Step)
	mockEx.AssertNotCalled(t, "PlaceTakeProfit", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteTakeProfitFailureKeepsEntry(t *testing.T) {
	mockEx := new(MockExchange)
	mockEx.On("SetLeverage", mock.Anything, "BTCUSDT", 5).Return(nil)
	mockEx.On("SetIsolatedMargin", mock.Anything, "BTCUSDT").Return(nil)
	mockEx.On("Instrument", mock.Anything, "BTCUSDT").Return(exchange.Instrument{Symbol: "BTCUSDT", StepSize: "0.001"}, nil)
	mockEx.On("MarketBuy", mock.Anything, "BTCUSDT", "0.001").Return(exchange.OrderAck{OrderID: 1111}, nil)
	mockEx.On("PlaceTakeProfit", mock.Anything, "BTCUSDT", "51000").Return(exchange.OrderAck{}, errors.New("price would trigger immediately"))

	position, _, err := NewExecutor(mockEx).Execute(context.Background(), longIntent())
	require.NotNil(t, position)
	assert.Equal(t, int64(1111), position.EntryOrderID)
	assert.Zero(t, position.TakeProfitOrderID)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, StepTakeProfit, execErr.Step)
}

func TestExecuteUnknownInstrument(t *testing.T) {
	mockEx := new(MockExchange)
	mockEx.On("SetLeverage", mock.Anything, "NOPEUSDT", 5).Return(nil)
	mockEx.On("SetIsolatedMargin", mock.Anything, "NOPEUSDT").Return(nil)
	mockEx.On("Instrument", mock.Anything, "NOPEUSDT").Return(exchange.Instrument{}, exchange.ErrInstrumentNotFound)

	intent := longIntent()
	intent.Symbol = "NOPEUSDT"
	position, _, err := NewExecutor(mockEx).Execute(context.Background(), intent)
	assert.Nil(t, position)
	assert.ErrorIs(t, err, exchange.ErrInstrumentNotFound)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, StepSizing, execErr.Step)
	mockEx.AssertNotCalled(t, "MarketBuy", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteZeroQuantityAborts(t *testing.T) {
	mockEx := new(MockExchange)
	mockEx.On("SetLeverage", mock.Anything, "BTCUSDT", 3).Return(nil)
	mockEx.On("SetIsolatedMargin", mock.Anything, "BTCUSDT").Return(nil)
	mockEx.On("Instrument", mock.Anything, "BTCUSDT").Return(exchange.Instrument{Symbol: "BTCUSDT", StepSize: "0.001"}, nil)

	intent := longIntent()
	intent.Leverage = 3
	intent.Margin = decimal.NewFromInt(5) // 15 / 50000 truncates to 0
	position, _, err := NewExecutor(mockEx).Execute(context.Background(), intent)
	assert.Nil(t, position)
	assert.ErrorIs(t, err, sizing.ErrZeroQuantity)
	mockEx.AssertNotCalled(t, "MarketBuy", mock.Anything, mock.Anything, mock.Anything)
}
