package app

import (
	"fmt"
	"strings"
	"time"

	remcfg "remora/internal/config"
	"remora/internal/gateway/binance"
	"remora/internal/gateway/exchange"
	"remora/internal/gateway/notifier"
	"remora/internal/gateway/telegram"
	"remora/internal/logger"
	"remora/internal/store/journal"
	"remora/internal/trader"
	statushttp "remora/internal/transport/http/status"
)

// AppBuilder 负责把配置装配成可运行的 App。
// 各构造函数都可以被测试替换。
type AppBuilder struct {
	cfg *remcfg.Config

	exchangeFn func(remcfg.BinanceConfig) exchange.Exchange
	journalFn  func(remcfg.TradeConfig) (*journal.Store, error)
	notifierFn func(remcfg.TelegramConfig) notifier.Notifier
	statusFn   func(remcfg.AppConfig, *trader.Trader, *journal.Store) (*statushttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *remcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		exchangeFn: buildExchange,
		journalFn:  buildJournal,
		notifierFn: buildNotifier,
		statusFn:   buildStatusServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	store, err := b.journalFn(cfg.Trade)
	if err != nil {
		return nil, fmt.Errorf("初始化交易流水失败: %w", err)
	}

	ex := b.exchangeFn(cfg.Binance)
	tg := b.notifierFn(cfg.Telegram)
	tr := trader.NewTrader(ex, store, tg, cfg.Telegram.ChatID)
	listener := telegram.NewListener(cfg.Telegram.BotToken, cfg.Telegram.PollTimeoutSeconds, forwardUpdates(tr))

	statusSrv, err := b.statusFn(cfg.App, tr, store)
	if err != nil {
		return nil, fmt.Errorf("初始化状态接口失败: %w", err)
	}

	return &App{
		cfg:        cfg,
		exchange:   ex,
		journal:    store,
		trader:     tr,
		listener:   listener,
		statusHTTP: statusSrv,
		Summary:    newStartupSummary(cfg, ex),
	}, nil
}

func buildExchange(cfg remcfg.BinanceConfig) exchange.Exchange {
	return binance.NewFutures(binance.Options{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Testnet:   cfg.Testnet,
	})
}

func buildJournal(cfg remcfg.TradeConfig) (*journal.Store, error) {
	path := strings.TrimSpace(cfg.JournalPath)
	if path == "" {
		logger.Warnf("trade.journal_path 为空，交易流水持久化已禁用")
		return nil, nil
	}
	return journal.New(path)
}

func buildNotifier(cfg remcfg.TelegramConfig) notifier.Notifier {
	return notifier.NewTelegram(cfg.BotToken, cfg.ChatID)
}

func buildStatusServer(cfg remcfg.AppConfig, tr *trader.Trader, store *journal.Store) (*statushttp.Server, error) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		return nil, nil
	}
	return statushttp.NewServer(statushttp.ServerConfig{
		Addr:      addr,
		Trader:    tr,
		Journal:   store,
		StartedAt: time.Now(),
	})
}

func WithExchange(fn func(remcfg.BinanceConfig) exchange.Exchange) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.exchangeFn = fn
		}
	}
}

func WithJournal(fn func(remcfg.TradeConfig) (*journal.Store, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.journalFn = fn
		}
	}
}

func WithNotifier(fn func(remcfg.TelegramConfig) notifier.Notifier) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.notifierFn = fn
		}
	}
}

func WithStatusServer(fn func(remcfg.AppConfig, *trader.Trader, *journal.Store) (*statushttp.Server, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.statusFn = fn
		}
	}
}
