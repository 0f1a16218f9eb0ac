// Package telegram implements the inbound side of the bot: a getUpdates
// long-poll loop that forwards chat and channel messages to a handler.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"remora/internal/logger"

	"github.com/tidwall/gjson"
)

// 中文说明：
// Telegram 监听器：通过 getUpdates 长轮询拉取消息，普通群消息和频道
// 推送（channel_post）都转发给 handler，由上层决定是否处理。

const pollRetryDelay = 3 * time.Second

// Update is one inbound message, already reduced to the fields the trading
// core cares about.
type Update struct {
	UpdateID  int64
	MessageID int64
	ChatID    int64
	ChatTitle string
	Text      string
}

// Handler receives each inbound update. It must not block: long work should
// be handed off, otherwise polling stalls.
type Handler func(u Update)

type Listener struct {
	botToken    string
	pollTimeout int
	client      *http.Client
	offset      int64
	handler     Handler
}

func NewListener(botToken string, pollTimeoutSeconds int, handler Handler) *Listener {
	return &Listener{
		botToken:    botToken,
		pollTimeout: pollTimeoutSeconds,
		// 客户端超时要大于长轮询超时，否则请求会被本地提前掐断。
		client:  &http.Client{Timeout: time.Duration(pollTimeoutSeconds+10) * time.Second},
		handler: handler,
	}
}

// Run polls until ctx is cancelled. Poll errors are logged and retried after
// a short delay; they never terminate the loop.
func (l *Listener) Run(ctx context.Context) error {
	logger.Infof("telegram listener started, poll timeout %ds", l.pollTimeout)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("telegram listener stopped")
			return nil
		default:
		}
		if err := l.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Infof("telegram listener stopped")
				return nil
			}
			logger.Warnf("telegram getUpdates failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollRetryDelay):
			}
		}
	}
}

func (l *Listener) pollOnce(ctx context.Context) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?timeout=%d&offset=%d",
		l.botToken, l.pollTimeout, l.offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	updates, next, err := parseUpdates(string(body))
	if err != nil {
		return err
	}
	if next > l.offset {
		l.offset = next
	}
	for _, u := range updates {
		l.handler(u)
	}
	return nil
}

// parseUpdates extracts text updates and the next poll offset from a raw
// getUpdates response. Non-text updates (stickers, photos, joins) are
// skipped but still advance the offset.
func parseUpdates(raw string) ([]Update, int64, error) {
	if !gjson.Valid(raw) {
		return nil, 0, fmt.Errorf("telegram 返回的 JSON 无效")
	}
	parsed := gjson.Parse(raw)
	if !parsed.Get("ok").Bool() {
		return nil, 0, fmt.Errorf("telegram getUpdates 被拒绝: %s", parsed.Get("description").String())
	}
	var updates []Update
	var next int64
	parsed.Get("result").ForEach(func(_, item gjson.Result) bool {
		id := item.Get("update_id").Int()
		if id+1 > next {
			next = id + 1
		}
		msg := item.Get("message")
		if !msg.Exists() {
			msg = item.Get("channel_post")
		}
		if !msg.Exists() {
			return true
		}
		text := msg.Get("text").String()
		if strings.TrimSpace(text) == "" {
			return true
		}
		updates = append(updates, Update{
			UpdateID:  id,
			MessageID: msg.Get("message_id").Int(),
			ChatID:    msg.Get("chat.id").Int(),
			ChatTitle: msg.Get("chat.title").String(),
			Text:      text,
		})
		return true
	})
	return updates, next, nil
}
