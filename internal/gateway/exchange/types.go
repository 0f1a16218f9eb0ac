// Package exchange defines a common abstraction for derivatives venues.
// This keeps the trader and sizing logic independent of the concrete
// exchange SDK.
package exchange

import "errors"

// ErrInstrumentNotFound is returned when the venue has no metadata for a
// requested symbol.
var ErrInstrumentNotFound = errors.New("instrument not found")

// Instrument carries the subset of venue metadata that order sizing needs.
type Instrument struct {
	Symbol   string
	StepSize string // LOT_SIZE quantity increment, e.g. "0.001"; empty when the venue exposes no lot-size filter
}

// OrderAck is the venue acknowledgement for a placed order.
type OrderAck struct {
	OrderID       int64
	ClientOrderID string
	Status        string
}
