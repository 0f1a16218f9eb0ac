package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	remcfg "remora/internal/config"
	"remora/internal/gateway/exchange"
	"remora/internal/gateway/telegram"
	"remora/internal/logger"
	"remora/internal/scheduler"
	"remora/internal/store/journal"
	"remora/internal/trader"
	statushttp "remora/internal/transport/http/status"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动监听、轮询与状态接口。
type App struct {
	cfg        *remcfg.Config
	exchange   exchange.Exchange
	journal    *journal.Store
	trader     *trader.Trader
	listener   *telegram.Listener
	statusHTTP *statushttp.Server
	Summary    *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *remcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return NewAppBuilder(cfg).Build()
}

// Run 启动所有组件并阻塞，直到 ctx 取消或某个组件出错。
// 退出顺序：先等监听与轮询收尾，再停 Trader，最后关闭存储。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	if a.Summary != nil {
		a.Summary.Print()
	}

	if err := a.trader.Recover(); err != nil {
		return fmt.Errorf("startup recovery failed: %w", err)
	}
	a.trader.Start()

	group, gctx := errgroup.WithContext(ctx)

	if a.statusHTTP != nil {
		group.Go(func() error {
			if err := a.statusHTTP.Start(gctx); err != nil {
				return fmt.Errorf("status http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		return a.listener.Run(gctx)
	})

	group.Go(func() error {
		interval := time.Duration(a.cfg.Trade.PollSeconds) * time.Second
		scheduler.NewIntervalScheduler(gctx, interval).Start(a.pollPositionTick)
		return nil
	})

	err := group.Wait()

	a.trader.Stop()
	if a.journal != nil {
		if cerr := a.journal.Close(); cerr != nil {
			logger.Warnf("关闭交易流水存储失败: %v", cerr)
		}
	}
	logger.Infof("remora 已退出")
	return err
}

// pollPositionTick 向 Trader 投递一次持仓轮询。队列满时直接丢弃，
// 下一个周期会再投。
func (a *App) pollPositionTick() {
	evt := trader.EventEnvelope{
		ID:        uuid.NewString(),
		Type:      trader.EvtPollPosition,
		CreatedAt: time.Now(),
	}
	if !a.trader.TrySend(evt) {
		logger.Debugf("持仓轮询 tick 被丢弃（Trader 正忙）")
	}
}

// forwardUpdates 把 Telegram 消息封装成事件投递给 Trader。
func forwardUpdates(tr *trader.Trader) telegram.Handler {
	return func(u telegram.Update) {
		payload, err := json.Marshal(trader.InboundMessagePayload{
			ChatID:    u.ChatID,
			MessageID: u.MessageID,
			Text:      u.Text,
		})
		if err != nil {
			logger.Errorf("编码 Telegram 消息失败: %v", err)
			return
		}
		evt := trader.EventEnvelope{
			ID:        uuid.NewString(),
			Type:      trader.EvtInboundMessage,
			Payload:   payload,
			CreatedAt: time.Now(),
		}
		if err := tr.Send(evt); err != nil {
			logger.Warnf("Telegram 消息投递失败: %v", err)
		}
	}
}
