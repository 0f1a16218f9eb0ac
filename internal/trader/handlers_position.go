package trader

import (
	"context"
	"time"

	"remora/internal/logger"
)

type PollPositionHandler struct{}

func (h *PollPositionHandler) Type() EventType { return EvtPollPosition }

func (h *PollPositionHandler) Handle(ctx *HandlerContext, payload []byte, traceID string) error {
	return ctx.Trader().handlePollPosition()
}

// handlePollPosition asks the exchange for the tracked symbol's position
// amount. Exactly zero means closed: emit one closure and clear the slot.
// Any nonzero amount, even a shrunk one, is still open. Query errors are
// transient; the next tick retries.
func (t *Trader) handlePollPosition() error {
	if !t.state.HasActive() {
		return nil
	}
	symbol := t.state.Active.Symbol

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	amount, err := t.exchange.PositionAmount(ctx, symbol)
	if err != nil {
		logger.Warnf("Trader: position poll for %s failed: %v", symbol, err)
		return nil
	}
	if !amount.IsZero() {
		logger.Debugf("Trader: %s still open, amount %s", symbol, amount)
		return nil
	}

	evt := ClosureEvent{Position: *t.state.Active, DetectedAt: time.Now()}
	t.state.Active = nil
	t.state.TradesClosed++
	t.state.LastClosureAt = evt.DetectedAt

	logger.Infof("Trader: %s closed on exchange (entry #%d)", evt.Position.Symbol, evt.Position.EntryOrderID)
	t.markJournalClosed(evt)
	t.notifyClosed(evt, "")
	return nil
}

func (t *Trader) markJournalClosed(evt ClosureEvent) {
	if t.journal == nil || evt.Position.JournalID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := t.journal.MarkClosed(ctx, evt.Position.JournalID, evt.DetectedAt); err != nil {
		logger.Warnf("Trader: journal close for trade %d failed: %v", evt.Position.JournalID, err)
	}
}
