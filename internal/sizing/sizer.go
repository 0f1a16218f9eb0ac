// Package sizing converts a trade intent into an order quantity that
// conforms to the instrument's lot-size granularity.
package sizing

import (
	"errors"
	"fmt"
	"strings"

	"remora/internal/gateway/exchange"
	"remora/internal/signal"

	"github.com/shopspring/decimal"
)

var (
	// ErrZeroQuantity means the notional is too small for the instrument's
	// step and the trade must not be placed.
	ErrZeroQuantity = errors.New("sized quantity is zero")
	// ErrNoLotSize means the instrument metadata carried no LOT_SIZE step.
	ErrNoLotSize = errors.New("instrument has no lot size step")
)

// SizedOrder is an intent plus the exchange-conformant quantity. Quantity is
// always positive; sizing fails instead of producing a zero quantity.
type SizedOrder struct {
	Intent   signal.TradeIntent
	Quantity decimal.Decimal
}

// Size computes quantity = margin * leverage / entry, truncated to the
// precision implied by the instrument's step size. Truncation, not rounding:
// rounding up could exceed the tradable step and get the order rejected.
func Size(intent *signal.TradeIntent, instrument exchange.Instrument) (*SizedOrder, error) {
	if intent == nil {
		return nil, errors.New("nil intent")
	}
	if !intent.Entry.IsPositive() {
		return nil, fmt.Errorf("entry price %s is not positive", intent.Entry)
	}
	if instrument.StepSize == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoLotSize, instrument.Symbol)
	}

	notional := intent.Margin.Mul(decimal.NewFromInt(int64(intent.Leverage)))
	raw := notional.Div(intent.Entry)
	quantity := raw.Truncate(stepPrecision(instrument.StepSize))
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: %s notional %s at entry %s", ErrZeroQuantity,
			intent.Symbol, notional, intent.Entry)
	}
	return &SizedOrder{Intent: *intent, Quantity: quantity}, nil
}

// stepPrecision derives decimal places from a step string. Trailing zeros do
// not count: "0.010" allows two decimal places, not three.
func stepPrecision(step string) int32 {
	step = strings.TrimSpace(step)
	dot := strings.IndexByte(step, '.')
	if dot < 0 {
		return 0
	}
	frac := strings.TrimRight(step[dot+1:], "0")
	return int32(len(frac))
}
