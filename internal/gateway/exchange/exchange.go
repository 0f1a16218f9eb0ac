package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange is the derivatives venue the trader executes against.
// Implementations must be safe for use from a single goroutine; the trader
// actor serializes all calls.
type Exchange interface {
	Name() string

	// Instrument fetches trading metadata for a symbol. Returns
	// ErrInstrumentNotFound when the venue does not list the symbol.
	Instrument(ctx context.Context, symbol string) (Instrument, error)

	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// SetIsolatedMargin switches the symbol to isolated margin. "Already
	// isolated" is not an error.
	SetIsolatedMargin(ctx context.Context, symbol string) error

	MarketBuy(ctx context.Context, symbol, quantity string) (OrderAck, error)

	// PlaceTakeProfit rests a TAKE_PROFIT_MARKET sell that closes the whole
	// position once stopPrice is reached.
	PlaceTakeProfit(ctx context.Context, symbol, stopPrice string) (OrderAck, error)

	// PositionAmount reports the current position size for a symbol.
	// Zero means flat.
	PositionAmount(ctx context.Context, symbol string) (decimal.Decimal, error)
}
