package statushttp

import (
	"net/http"
	"strconv"
	"time"

	"remora/internal/store/journal"
	"remora/internal/trader"

	"github.com/gin-gonic/gin"
)

const defaultTradeLimit = 20

// positionView 是当前持仓的 JSON 视图。
type positionView struct {
	Symbol            string `json:"symbol"`
	Quantity          string `json:"quantity"`
	EntryPrice        string `json:"entry_price"`
	TakeProfitPrice   string `json:"take_profit_price"`
	Leverage          int    `json:"leverage"`
	Margin            string `json:"margin"`
	EntryOrderID      int64  `json:"entry_order_id"`
	TakeProfitOrderID int64  `json:"take_profit_order_id,omitempty"`
	OpenedAt          string `json:"opened_at"`
}

type tradeView struct {
	ID                int64  `json:"id"`
	Symbol            string `json:"symbol"`
	Quantity          string `json:"quantity"`
	EntryPrice        string `json:"entry_price"`
	TakeProfitPrice   string `json:"take_profit_price"`
	Leverage          int    `json:"leverage"`
	Margin            string `json:"margin"`
	EntryOrderID      int64  `json:"entry_order_id"`
	TakeProfitOrderID int64  `json:"take_profit_order_id,omitempty"`
	Status            string `json:"status"`
	OpenedAt          string `json:"opened_at"`
	ClosedAt          string `json:"closed_at,omitempty"`
}

func registerStatusRoutes(api *gin.RouterGroup, cfg ServerConfig) {
	api.GET("/status", func(c *gin.Context) {
		snap := cfg.Trader.Snapshot()
		body := gin.H{
			"state":           "idle",
			"position":        nil,
			"signals_seen":    snap.SignalsSeen,
			"signals_ignored": snap.SignalsIgnored,
			"trades_opened":   snap.TradesOpened,
			"trades_closed":   snap.TradesClosed,
			"started_at":      cfg.StartedAt.Format(time.RFC3339),
			"uptime_seconds":  int64(time.Since(cfg.StartedAt).Seconds()),
		}
		if !snap.LastSignalAt.IsZero() {
			body["last_signal_at"] = snap.LastSignalAt.Format(time.RFC3339)
		}
		if !snap.LastClosureAt.IsZero() {
			body["last_closure_at"] = snap.LastClosureAt.Format(time.RFC3339)
		}
		if pos := snap.Active; pos != nil {
			body["state"] = "position_open"
			body["position"] = newPositionView(pos)
		}
		c.JSON(http.StatusOK, body)
	})

	api.GET("/trades", func(c *gin.Context) {
		if cfg.Journal == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "交易流水未启用"})
			return
		}
		limit := defaultTradeLimit
		if raw := c.Query("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				limit = v
			}
		}
		records, err := cfg.Journal.RecentTrades(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		views := make([]tradeView, 0, len(records))
		for _, rec := range records {
			views = append(views, newTradeView(rec))
		}
		total, err := cfg.Journal.CountTrades(c.Request.Context())
		if err != nil {
			total = len(views)
		}
		c.JSON(http.StatusOK, gin.H{"total": total, "trades": views})
	})
}

func newPositionView(pos *trader.Position) positionView {
	return positionView{
		Symbol:            pos.Symbol,
		Quantity:          pos.Quantity.String(),
		EntryPrice:        pos.EntryPrice.String(),
		TakeProfitPrice:   pos.TakeProfitPrice.String(),
		Leverage:          pos.Leverage,
		Margin:            pos.Margin.String(),
		EntryOrderID:      pos.EntryOrderID,
		TakeProfitOrderID: pos.TakeProfitOrderID,
		OpenedAt:          pos.OpenedAt.Format(time.RFC3339),
	}
}

func newTradeView(rec journal.TradeRecord) tradeView {
	view := tradeView{
		ID:                rec.ID,
		Symbol:            rec.Symbol,
		Quantity:          rec.Quantity,
		EntryPrice:        rec.EntryPrice,
		TakeProfitPrice:   rec.TakeProfitPrice,
		Leverage:          rec.Leverage,
		Margin:            rec.Margin,
		EntryOrderID:      rec.EntryOrderID,
		TakeProfitOrderID: rec.TakeProfitOrderID,
		Status:            string(rec.Status),
		OpenedAt:          rec.OpenedAt.Format(time.RFC3339),
	}
	if rec.ClosedAt != nil {
		view.ClosedAt = rec.ClosedAt.Format(time.RFC3339)
	}
	return view
}
