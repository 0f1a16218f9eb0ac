package trader

import (
	"fmt"
	"time"

	"remora/internal/gateway/notifier"
	"remora/internal/logger"
	"remora/internal/signal"
)

// 中文说明：
// 所有推送都是尽力而为：发送失败只记日志，绝不回滚交易状态。

func (t *Trader) notifyOpened(pos *Position) {
	if t.tg == nil {
		return
	}
	msg := notifier.NewMessage("🚀", fmt.Sprintf("开仓成功：%s", pos.Symbol)).
		AddSection("仓位",
			fmt.Sprintf("数量 %s", pos.Quantity),
			fmt.Sprintf("入场价 %s · 止盈价 %s", pos.EntryPrice, pos.TakeProfitPrice),
			fmt.Sprintf("杠杆 %dx · 保证金 %s USDT", pos.Leverage, pos.Margin),
		).
		AddSection("订单",
			fmt.Sprintf("入场单 #%d", pos.EntryOrderID),
			fmt.Sprintf("止盈单 #%d", pos.TakeProfitOrderID),
		)
	if err := t.tg.SendStructured(msg); err != nil {
		logger.Warnf("Telegram 推送失败(open): %v", err)
	}
}

func (t *Trader) notifyTakeProfitFailed(pos *Position, failure error) {
	if t.tg == nil {
		return
	}
	msg := notifier.NewMessage("⚠️", fmt.Sprintf("止盈挂单失败：%s", pos.Symbol)).
		AddSection("已成交",
			fmt.Sprintf("入场单 #%d", pos.EntryOrderID),
			fmt.Sprintf("数量 %s @ %s", pos.Quantity, pos.EntryPrice),
		).
		AddSection("失败原因", failure.Error()).
		WithFooter("持仓当前没有止盈保护，请立即人工挂单或平仓。")
	if err := t.tg.SendStructured(msg); err != nil {
		logger.Warnf("Telegram 推送失败(tp-failed): %v", err)
	}
}

func (t *Trader) notifyExecutionFailed(intent *signal.TradeIntent, steps []StepResult, failure error) {
	if t.tg == nil {
		return
	}
	stepLines := make([]string, 0, len(steps))
	for _, s := range steps {
		mark := "✓"
		if !s.OK {
			mark = "✗"
		}
		stepLines = append(stepLines, fmt.Sprintf("%s %s %s", mark, s.Step, s.Detail))
	}
	msg := notifier.NewMessage("❌", fmt.Sprintf("开仓失败：%s", intent.Symbol)).
		AddSection("信号",
			fmt.Sprintf("入场 %s · 止盈 %s", intent.Entry, intent.TakeProfit),
			fmt.Sprintf("杠杆 %dx · 保证金 %s USDT", intent.Leverage, intent.Margin),
		).
		AddSection("执行过程", stepLines...).
		WithFooter(failure.Error())
	if err := t.tg.SendStructured(msg); err != nil {
		logger.Warnf("Telegram 推送失败(exec-failed): %v", err)
	}
}

func (t *Trader) notifyClosed(evt ClosureEvent, footer string) {
	if t.tg == nil {
		return
	}
	held := evt.DetectedAt.Sub(evt.Position.OpenedAt).Round(time.Second)
	msg := notifier.NewMessage("✅", fmt.Sprintf("持仓已平：%s", evt.Position.Symbol)).
		AddSection("回顾",
			fmt.Sprintf("数量 %s", evt.Position.Quantity),
			fmt.Sprintf("入场价 %s · 止盈价 %s", evt.Position.EntryPrice, evt.Position.TakeProfitPrice),
			fmt.Sprintf("持仓时长 %s", held),
		)
	if footer != "" {
		msg = msg.WithFooter(footer)
	}
	if err := t.tg.SendStructured(msg); err != nil {
		logger.Warnf("Telegram 推送失败(closed): %v", err)
	}
}

func (t *Trader) notifyAdopted(pos *Position) {
	if t.tg == nil || pos == nil {
		return
	}
	msg := notifier.NewMessage("🔁", fmt.Sprintf("恢复持仓：%s", pos.Symbol)).
		AddSection("仓位",
			fmt.Sprintf("数量 %s @ %s", pos.Quantity, pos.EntryPrice),
			fmt.Sprintf("入场单 %s · 止盈单 %s", orderRef(pos.EntryOrderID), orderRef(pos.TakeProfitOrderID)),
		).
		WithFooter("进程重启后继续跟踪该持仓。")
	if err := t.tg.SendStructured(msg); err != nil {
		logger.Warnf("Telegram 推送失败(adopted): %v", err)
	}
}

func orderRef(id int64) string {
	if id == 0 {
		return "无"
	}
	return fmt.Sprintf("#%d", id)
}
