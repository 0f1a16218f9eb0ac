package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"remora/internal/logger"
	"remora/internal/signal"
	"remora/internal/store/journal"

	"gorm.io/datatypes"
)

type InboundMessageHandler struct{}

func (h *InboundMessageHandler) Type() EventType { return EvtInboundMessage }

func (h *InboundMessageHandler) Handle(ctx *HandlerContext, payload []byte, traceID string) error {
	return ctx.Trader().handleInboundMessage(payload, traceID)
}

// handleInboundMessage filters by chat, parses the text, and runs the entry
// sequence when the slot is free. Non-signal messages end here silently.
func (t *Trader) handleInboundMessage(payload []byte, traceID string) error {
	var p InboundMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to unmarshal inbound message: %w", err)
	}
	if t.allowedChatID != 0 && p.ChatID != t.allowedChatID {
		logger.Debugf("Trader: message %d from chat %d ignored", p.MessageID, p.ChatID)
		return nil
	}

	intent := signal.Parse(p.Text)
	if intent == nil {
		return nil
	}
	t.state.SignalsSeen++
	t.state.LastSignalAt = time.Now()
	logger.Infof("Trader: signal %s entry=%s tp=%s lev=%dx margin=%s (trace %s)",
		intent.Symbol, intent.Entry, intent.TakeProfit, intent.Leverage, intent.Margin, traceID)

	if t.state.HasActive() {
		t.state.SignalsIgnored++
		logger.Infof("Trader: signal %s ignored, position %s still open", intent.Symbol, t.state.Active.Symbol)
		return nil
	}
	return t.openFromSignal(intent)
}

// openFromSignal runs the executor synchronously inside the actor loop: the
// loop is the serialization primitive, so no second entry can start while
// one is in flight.
func (t *Trader) openFromSignal(intent *signal.TradeIntent) error {
	ctx, cancel := context.WithTimeout(context.Background(), executeTimeout)
	defer cancel()

	position, steps, err := t.executor.Execute(ctx, intent)
	if position == nil {
		logger.Errorf("Trader: execution for %s aborted: %v", intent.Symbol, err)
		t.notifyExecutionFailed(intent, steps, err)
		return err
	}

	t.state.Active = position
	t.state.TradesOpened++
	t.recordOpen(position, steps)

	if err != nil {
		// Entry filled but no take-profit resting. The position is tracked;
		// the TP side needs the operator.
		logger.Errorf("Trader: %s entry #%d live but take profit failed: %v", position.Symbol, position.EntryOrderID, err)
		t.notifyTakeProfitFailed(position, err)
		return err
	}

	logger.Infof("Trader: %s opened, entry #%d tp #%d qty %s",
		position.Symbol, position.EntryOrderID, position.TakeProfitOrderID, position.Quantity)
	t.notifyOpened(position)
	return nil
}

// recordOpen journals the new trade. Journal failures never unwind a live
// position; they are logged and the slot stays armed.
func (t *Trader) recordOpen(position *Position, steps []StepResult) {
	if t.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	stepsJSON, _ := json.Marshal(steps)
	id, err := t.journal.RecordOpen(ctx, journal.TradeRecord{
		Symbol:            position.Symbol,
		Quantity:          position.Quantity.String(),
		EntryPrice:        position.EntryPrice.String(),
		TakeProfitPrice:   position.TakeProfitPrice.String(),
		Leverage:          position.Leverage,
		Margin:            position.Margin.String(),
		EntryOrderID:      position.EntryOrderID,
		TakeProfitOrderID: position.TakeProfitOrderID,
		Steps:             datatypes.JSON(stepsJSON),
		OpenedAt:          position.OpenedAt,
	})
	if err != nil {
		logger.Warnf("Trader: journal write for %s failed: %v", position.Symbol, err)
		return
	}
	position.JournalID = id
}
