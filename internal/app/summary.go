package app

import (
	"fmt"
	"strings"

	remcfg "remora/internal/config"
	"remora/internal/gateway/exchange"
	"remora/internal/signal"
)

// StartupSummary 汇总启动时生效的关键配置，便于在日志里一眼核对。
type StartupSummary struct {
	Exchange        string
	Testnet         bool
	ChatID          int64
	PollTimeout     int
	DefaultLeverage int
	DefaultMargin   string
	PollSeconds     int
	JournalPath     string
	HTTPAddr        string
}

func newStartupSummary(cfg *remcfg.Config, ex exchange.Exchange) *StartupSummary {
	name := "-"
	if ex != nil {
		name = ex.Name()
	}
	return &StartupSummary{
		Exchange:        name,
		Testnet:         cfg.Binance.Testnet,
		ChatID:          cfg.Telegram.ChatID,
		PollTimeout:     cfg.Telegram.PollTimeoutSeconds,
		DefaultLeverage: signal.DefaultLeverage,
		DefaultMargin:   signal.DefaultMargin.String(),
		PollSeconds:     cfg.Trade.PollSeconds,
		JournalPath:     cfg.Trade.JournalPath,
		HTTPAddr:        cfg.App.HTTPAddr,
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[信号源 (SIGNAL SOURCE)]")
	fmt.Printf("  允许的会话: %d\n", s.ChatID)
	fmt.Printf("  长轮询超时: %ds\n", s.PollTimeout)
	fmt.Println()

	fmt.Println("[交易 (TRADING)]")
	venue := s.Exchange
	if s.Testnet {
		venue += " (testnet)"
	}
	fmt.Printf("  交易所: %s\n", venue)
	fmt.Printf("  默认杠杆: %dx\n", s.DefaultLeverage)
	fmt.Printf("  默认保证金: %s USDT\n", s.DefaultMargin)
	fmt.Printf("  持仓轮询周期: %ds\n", s.PollSeconds)
	fmt.Println()

	fmt.Println("[存储与接口 (STORAGE & API)]")
	fmt.Printf("  交易流水: %s\n", orDisabled(s.JournalPath))
	fmt.Printf("  状态接口: %s\n", orDisabled(s.HTTPAddr))
	fmt.Println(strings.Repeat("=", 80))
}

func orDisabled(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(已禁用)"
	}
	return value
}
