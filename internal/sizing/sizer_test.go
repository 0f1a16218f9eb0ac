package sizing

import (
	"testing"

	"remora/internal/gateway/exchange"
	"remora/internal/signal"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIntent(margin string, leverage int, entry string) *signal.TradeIntent {
	return &signal.TradeIntent{
		Symbol:     "BTCUSDT",
		Entry:      decimal.RequireFromString(entry),
		TakeProfit: decimal.RequireFromString(entry).Mul(decimal.RequireFromString("1.02")),
		Leverage:   leverage,
		Margin:     decimal.RequireFromString(margin),
		Side:       "LONG",
	}
}

func TestSizeBasic(t *testing.T) {
	order, err := Size(testIntent("5", 3, "100"), exchange.Instrument{Symbol: "BTCUSDT", StepSize: "0.001"})
	require.NoError(t, err)
	assert.Equal(t, "0.15", order.Quantity.String())
}

func TestSizeIntegerStep(t *testing.T) {
	order, err := Size(testIntent("20", 5, "0.9"), exchange.Instrument{Symbol: "XRPUSDT", StepSize: "1"})
	require.NoError(t, err)
	// 100 / 0.9 = 111.11..., integer step keeps whole units only.
	assert.Equal(t, "111", order.Quantity.String())
}

func TestSizeTruncatesNotRounds(t *testing.T) {
	// 5*3/7 = 2.1428..., step 0.01 must yield 2.14, never 2.15.
	order, err := Size(testIntent("5", 3, "7"), exchange.Instrument{Symbol: "ADAUSDT", StepSize: "0.01"})
	require.NoError(t, err)
	assert.Equal(t, "2.14", order.Quantity.String())
}

func TestSizeTrailingZeroStep(t *testing.T) {
	order, err := Size(testIntent("5", 3, "7"), exchange.Instrument{Symbol: "ADAUSDT", StepSize: "0.010"})
	require.NoError(t, err)
	assert.Equal(t, "2.14", order.Quantity.String())
}

func TestSizeZeroQuantity(t *testing.T) {
	// 5*3/50000 = 0.0003, truncated at 3 decimals that is 0.
	_, err := Size(testIntent("5", 3, "50000"), exchange.Instrument{Symbol: "BTCUSDT", StepSize: "0.001"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroQuantity)
}

func TestSizeMissingLotSize(t *testing.T) {
	_, err := Size(testIntent("5", 3, "100"), exchange.Instrument{Symbol: "BTCUSDT"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoLotSize)
}

func TestSizeEndToEndExample(t *testing.T) {
	intent := signal.Parse("🟢 LONG SIGNAL - BTCUSDT\nEntry: 50000\nTP: 51000\nLeverage: 5x\nMargin: $10")
	require.NotNil(t, intent)
	order, err := Size(intent, exchange.Instrument{Symbol: "BTCUSDT", StepSize: "0.001"})
	require.NoError(t, err)
	assert.Equal(t, "0.001", order.Quantity.String())
}

func TestStepPrecision(t *testing.T) {
	cases := map[string]int32{
		"1":       0,
		"1.0":     0,
		"0.1":     1,
		"0.001":   3,
		"0.010":   2,
		"10":      0,
		"0.00001": 5,
	}
	for step, want := range cases {
		assert.Equal(t, want, stepPrecision(step), "step %q", step)
	}
}
