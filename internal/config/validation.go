package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Telegram.validate(); err != nil {
		return err
	}
	if err := c.Binance.validate(); err != nil {
		return err
	}
	if err := c.Trade.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TelegramConfig) validate() error {
	if strings.TrimSpace(t.BotToken) == "" {
		return fmt.Errorf("telegram.bot_token must not be empty (or set REMORA_TELEGRAM_BOT_TOKEN)")
	}
	if t.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id must not be 0 (or set REMORA_TELEGRAM_CHAT_ID)")
	}
	if t.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("telegram.poll_timeout_seconds must be > 0")
	}
	return nil
}

func (b *BinanceConfig) validate() error {
	if strings.TrimSpace(b.APIKey) == "" {
		return fmt.Errorf("binance.api_key must not be empty (or set REMORA_BINANCE_API_KEY)")
	}
	if strings.TrimSpace(b.APISecret) == "" {
		return fmt.Errorf("binance.api_secret must not be empty (or set REMORA_BINANCE_API_SECRET)")
	}
	return nil
}

func (t *TradeConfig) validate() error {
	if t.PollSeconds <= 0 {
		return fmt.Errorf("trade.poll_seconds must be > 0")
	}
	return nil
}
