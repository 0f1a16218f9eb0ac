package config

import "strings"

// 默认值常量
const (
	defaultAppLogLevel         = "info"
	defaultTelegramPollTimeout = 30
	defaultTradePollSeconds    = 10
	defaultTradeJournalPath    = "data/remora.db"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Telegram.applyDefaults(keys)
	c.Trade.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
	)
}

func (t *TelegramConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "telegram.poll_timeout_seconds",
			need:  func() bool { return t.PollTimeoutSeconds <= 0 },
			apply: func() { t.PollTimeoutSeconds = defaultTelegramPollTimeout },
		},
	)
}

func (t *TradeConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "trade.poll_seconds",
			need:  func() bool { return t.PollSeconds <= 0 },
			apply: func() { t.PollSeconds = defaultTradePollSeconds },
		},
		stringFieldDefault("trade.journal_path", &t.JournalPath, defaultTradeJournalPath),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
