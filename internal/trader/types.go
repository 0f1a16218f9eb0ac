package trader

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EventType 定义事件类型
type EventType string

const (
	// EvtInboundMessage 收到 Telegram 消息
	EvtInboundMessage EventType = "INBOUND_MESSAGE"
	// EvtPollPosition 周期性持仓核对
	EvtPollPosition EventType = "POLL_POSITION"
)

// InboundMessagePayload carries one Telegram message into the actor.
type InboundMessagePayload struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

// EventEnvelope 是 Actor 接收的标准消息信封
type EventEnvelope struct {
	ID        string // UUID
	Type      EventType
	Payload   json.RawMessage // 具体的事件数据
	CreatedAt time.Time

	// ReplyCh 用于同步等待处理结果 (可选)
	ReplyCh chan error `json:"-"`
}

// Position is the single open trade the process tracks. TakeProfitOrderID is
// zero when the entry filled but the take-profit order could not be placed;
// such a position is still tracked and must be watched by the operator.
type Position struct {
	JournalID         int64
	Symbol            string
	Quantity          decimal.Decimal
	EntryPrice        decimal.Decimal
	TakeProfitPrice   decimal.Decimal
	Leverage          int
	Margin            decimal.Decimal
	EntryOrderID      int64
	TakeProfitOrderID int64
	OpenedAt          time.Time
}

// ClosureEvent captures the stored facts of a position whose exchange amount
// returned to zero.
type ClosureEvent struct {
	Position   Position
	DetectedAt time.Time
}

// State 维护 Trader 的内存状态 (无锁，仅单 Goroutine 访问)
type State struct {
	// Active is the single position slot. nil means idle.
	Active *Position

	SignalsSeen    int64
	SignalsIgnored int64
	TradesOpened   int64
	TradesClosed   int64
	LastSignalAt   time.Time
	LastClosureAt  time.Time
}

func NewState() *State {
	return &State{}
}

// HasActive reports whether a position currently occupies the slot.
func (s *State) HasActive() bool {
	return s != nil && s.Active != nil
}

func (s *State) clone() *State {
	if s == nil {
		return NewState()
	}
	cp := *s
	if s.Active != nil {
		pos := *s.Active
		cp.Active = &pos
	}
	return &cp
}
