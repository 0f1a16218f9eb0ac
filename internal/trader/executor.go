package trader

import (
	"context"
	"fmt"
	"time"

	"remora/internal/gateway/exchange"
	"remora/internal/logger"
	"remora/internal/signal"
	"remora/internal/sizing"
)

// Step identifies the execution stage that produced a result or failure.
type Step string

const (
	StepLeverage   Step = "leverage"
	StepMarginMode Step = "margin-mode"
	StepSizing     Step = "sizing"
	StepEntryOrder Step = "entry-order"
	StepTakeProfit Step = "tp-order"
)

// ExecutionError wraps an exchange failure with the step that produced it.
type ExecutionError struct {
	Step Step
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// StepResult is one line of the execution transcript. The full transcript is
// journaled with the trade and attached to failure notifications.
type StepResult struct {
	Step   Step   `json:"step"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Executor runs the ordered entry sequence against the exchange:
// leverage, isolated margin, sizing, market buy, take-profit.
type Executor struct {
	exchange exchange.Exchange
}

func NewExecutor(ex exchange.Exchange) *Executor {
	return &Executor{exchange: ex}
}

// Execute places the order pair for a long intent. Leverage, sizing and the
// entry order are fatal when they fail; isolated margin is best-effort. When
// the take-profit order fails after a filled entry, the returned Position is
// non-nil AND err is non-nil: the entry is live on the exchange and the
// caller must keep tracking it despite the error.
func (e *Executor) Execute(ctx context.Context, intent *signal.TradeIntent) (*Position, []StepResult, error) {
	steps := make([]StepResult, 0, 5)

	if err := e.exchange.SetLeverage(ctx, intent.Symbol, intent.Leverage); err != nil {
		steps = append(steps, stepFailed(StepLeverage, err))
		return nil, steps, &ExecutionError{Step: StepLeverage, Err: err}
	}
	steps = append(steps, stepOK(StepLeverage, fmt.Sprintf("%dx", intent.Leverage)))

	// 逐仓设置失败不阻断开仓，只记录。
	if err := e.exchange.SetIsolatedMargin(ctx, intent.Symbol); err != nil {
		logger.Warnf("Executor: isolated margin for %s failed: %v", intent.Symbol, err)
		steps = append(steps, stepFailed(StepMarginMode, err))
	} else {
		steps = append(steps, stepOK(StepMarginMode, "isolated"))
	}

	instrument, err := e.exchange.Instrument(ctx, intent.Symbol)
	if err != nil {
		steps = append(steps, stepFailed(StepSizing, err))
		return nil, steps, &ExecutionError{Step: StepSizing, Err: err}
	}
	order, err := sizing.Size(intent, instrument)
	if err != nil {
		steps = append(steps, stepFailed(StepSizing, err))
		return nil, steps, &ExecutionError{Step: StepSizing, Err: err}
	}
	steps = append(steps, stepOK(StepSizing, order.Quantity.String()))

	entryAck, err := e.exchange.MarketBuy(ctx, intent.Symbol, order.Quantity.String())
	if err != nil {
		steps = append(steps, stepFailed(StepEntryOrder, err))
		return nil, steps, &ExecutionError{Step: StepEntryOrder, Err: err}
	}
	steps = append(steps, stepOK(StepEntryOrder, fmt.Sprintf("#%d %s", entryAck.OrderID, entryAck.Status)))
	logger.Infof("Executor: %s market buy %s accepted, order #%d", intent.Symbol, order.Quantity, entryAck.OrderID)

	position := &Position{
		Symbol:          intent.Symbol,
		Quantity:        order.Quantity,
		EntryPrice:      intent.Entry,
		TakeProfitPrice: intent.TakeProfit,
		Leverage:        intent.Leverage,
		Margin:          intent.Margin,
		EntryOrderID:    entryAck.OrderID,
		OpenedAt:        time.Now(),
	}

	tpAck, err := e.exchange.PlaceTakeProfit(ctx, intent.Symbol, intent.TakeProfit.String())
	if err != nil {
		steps = append(steps, stepFailed(StepTakeProfit, err))
		return position, steps, &ExecutionError{Step: StepTakeProfit, Err: err}
	}
	steps = append(steps, stepOK(StepTakeProfit, fmt.Sprintf("#%d %s", tpAck.OrderID, tpAck.Status)))
	position.TakeProfitOrderID = tpAck.OrderID
	logger.Infof("Executor: %s take profit resting at %s, order #%d", intent.Symbol, intent.TakeProfit, tpAck.OrderID)
	return position, steps, nil
}

func stepOK(step Step, detail string) StepResult {
	return StepResult{Step: step, OK: true, Detail: detail}
}

func stepFailed(step Step, err error) StepResult {
	return StepResult{Step: step, OK: false, Detail: err.Error()}
}
