package trader

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"remora/internal/gateway/exchange"
	"remora/internal/gateway/notifier"
	"remora/internal/logger"
	"remora/internal/store/journal"

	"github.com/shopspring/decimal"
)

const (
	// executeTimeout bounds one full order sequence against the exchange.
	executeTimeout = 30 * time.Second
	// queryTimeout bounds a single position poll or journal call.
	queryTimeout = 10 * time.Second
	// slowEventThreshold flags handlers that hold the loop unusually long.
	// A full order sequence legitimately takes a few seconds.
	slowEventThreshold = 5 * time.Second
)

// Trader is the core event-driven actor of the system.
// It owns the single position slot, executes signal entries, and polls the
// exchange for closure.
//
// Architecture:
// - Uses a single event loop (runLoop) to process events sequentially, avoiding race conditions.
// - State is kept in-memory (Trader.state) but reconciled against journal + exchange on startup (Recover).
// - Order placement goes through Executor; closure detection through the exchange position query.
type Trader struct {
	exchange exchange.Exchange
	executor *Executor
	journal  *journal.Store
	tg       notifier.Notifier

	// allowedChatID filters inbound messages; zero accepts any chat.
	allowedChatID int64

	eventRegistry *HandlerRegistry

	msgCh  chan EventEnvelope
	stopCh chan struct{}
	wg     sync.WaitGroup

	state *State

	// stateSnapshot holds a read-only clone for callers outside the loop.
	stateSnapshot atomic.Value
}

func NewTrader(ex exchange.Exchange, store *journal.Store, tg notifier.Notifier, allowedChatID int64) *Trader {
	eventReg := NewHandlerRegistry()
	eventReg.RegisterDefaultHandlers()

	tr := &Trader{
		exchange:      ex,
		executor:      NewExecutor(ex),
		journal:       store,
		tg:            tg,
		allowedChatID: allowedChatID,
		eventRegistry: eventReg,
		msgCh:         make(chan EventEnvelope, 100),
		stopCh:        make(chan struct{}),
		state:         NewState(),
	}
	tr.refreshSnapshot()
	return tr
}

func (t *Trader) Start() {
	t.wg.Add(1)
	go t.runLoop()
}

func (t *Trader) Stop() {
	close(t.stopCh)
	t.wg.Wait()
}

func (t *Trader) Send(evt EventEnvelope) error {
	select {
	case t.msgCh <- evt:
		return nil
	case <-t.stopCh:
		return fmt.Errorf("trader is stopped")
	}
}

// TrySend enqueues without blocking. Poll ticks use it so a slow order
// sequence drops ticks instead of piling them up behind it.
func (t *Trader) TrySend(evt EventEnvelope) bool {
	select {
	case <-t.stopCh:
		return false
	default:
	}
	select {
	case t.msgCh <- evt:
		return true
	default:
		return false
	}
}

func (t *Trader) SendSync(ctx context.Context, evt EventEnvelope) error {
	if evt.ReplyCh == nil {
		evt.ReplyCh = make(chan error, 1)
	}

	if err := t.Send(evt); err != nil {
		return err
	}

	select {
	case err := <-evt.ReplyCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopCh:
		return fmt.Errorf("trader stopped during sync call")
	}
}

// Snapshot returns the state as of the last processed event. The returned
// value is a clone and safe to read from any goroutine.
func (t *Trader) Snapshot() *State {
	val := t.stateSnapshot.Load()
	if val == nil {
		return NewState()
	}
	return val.(*State)
}

func (t *Trader) refreshSnapshot() {
	t.stateSnapshot.Store(t.state.clone())
}

func (t *Trader) runLoop() {
	defer t.wg.Done()
	logger.Infof("Trader Actor started")

	for {
		select {
		case evt := <-t.msgCh:
			t.handleEvent(evt)
		case <-t.stopCh:
			logger.Infof("Trader Actor stopping")
			return
		}
	}
}

// handleEvent is the main entry point for processing events in the actor loop.
//
// Safety:
// - Catches panics to prevent the entire actor from crashing due to a single bad handler.
// - Enforces a timeout warning for slow handlers to keep queue latency visible.
// - Closes the ReplyCh (if present) to unblock synchronous callers (SendSync).
func (t *Trader) handleEvent(evt EventEnvelope) {
	var err error
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Trader panic handling event %s: %v", evt.Type, r)
			debug.PrintStack()
			err = fmt.Errorf("panic: %v", r)
		}

		t.refreshSnapshot()

		if evt.ReplyCh != nil {
			evt.ReplyCh <- err
			close(evt.ReplyCh)
		}

		if dur := time.Since(start); dur > slowEventThreshold {
			logger.Warnf("Slow event %s took %v", evt.Type, dur)
		}
	}()

	handler, ok := t.eventRegistry.Get(evt.Type)
	if !ok {
		logger.Warnf("No handler registered for event type: %s", evt.Type)
		return
	}

	ctx := NewHandlerContext(t)
	err = handler.Handle(ctx, evt.Payload, evt.ID)

	if err != nil {
		logger.Errorf("Trader failed to handle %s: %v", evt.Type, err)
	}
}

// Recover reconciles the in-memory slot with the journal and the exchange.
// Called once before Start so it may touch state directly.
//
// Cases:
//  1. No journaled open trade: start idle.
//  2. Journaled trade still has a nonzero exchange amount: adopt it and
//     resume polling.
//  3. Journaled trade flat on the exchange: close the journal entry and
//     report the offline closure.
func (t *Trader) Recover() error {
	t.state = NewState()
	t.refreshSnapshot()

	if t.journal == nil {
		logger.Infof("Trader: no journal configured, starting idle")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rec, ok, err := t.journal.ActiveTrade(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active trade from journal: %w", err)
	}
	if !ok {
		logger.Infof("Trader: recovery complete, no open trade journaled")
		return nil
	}

	amount, err := t.exchange.PositionAmount(ctx, rec.Symbol)
	if err != nil {
		// Exchange unreachable right now: adopt anyway, the poll loop will
		// settle the real state on its next successful tick.
		logger.Warnf("Trader: position check for %s failed during recovery: %v", rec.Symbol, err)
		t.adoptJournaled(rec)
		t.refreshSnapshot()
		return nil
	}
	if amount.IsZero() {
		logger.Infof("Trader: journaled trade %s already flat on exchange, closing journal entry %d", rec.Symbol, rec.ID)
		if err := t.journal.MarkClosed(ctx, rec.ID, time.Now()); err != nil {
			logger.Warnf("Trader: journal close for trade %d failed: %v", rec.ID, err)
		}
		t.notifyClosed(ClosureEvent{Position: positionFromRecord(rec), DetectedAt: time.Now()}, "进程离线期间已平仓")
		return nil
	}

	t.adoptJournaled(rec)
	t.refreshSnapshot()
	logger.Infof("Trader: recovery adopted open position %s (journal id %d, amount %s)", rec.Symbol, rec.ID, amount)
	t.notifyAdopted(t.state.Active)
	return nil
}

func (t *Trader) adoptJournaled(rec journal.TradeRecord) {
	pos := positionFromRecord(rec)
	t.state.Active = &pos
}

func positionFromRecord(rec journal.TradeRecord) Position {
	return Position{
		JournalID:         rec.ID,
		Symbol:            rec.Symbol,
		Quantity:          decimalFromStored(rec.Quantity),
		EntryPrice:        decimalFromStored(rec.EntryPrice),
		TakeProfitPrice:   decimalFromStored(rec.TakeProfitPrice),
		Leverage:          rec.Leverage,
		Margin:            decimalFromStored(rec.Margin),
		EntryOrderID:      rec.EntryOrderID,
		TakeProfitOrderID: rec.TakeProfitOrderID,
		OpenedAt:          rec.OpenedAt,
	}
}

func decimalFromStored(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		logger.Warnf("Trader: bad decimal %q in journal, using 0", raw)
		return decimal.Zero
	}
	return val
}
