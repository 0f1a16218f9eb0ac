package config

import "strings"

// Config 是 remora 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Telegram TelegramConfig `toml:"telegram"`
	Binance  BinanceConfig  `toml:"binance"`
	Trade    TradeConfig    `toml:"trade"`
}

type AppConfig struct {
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"` // empty disables the status server
}

// TelegramConfig carries the bot credentials and the single allowed chat.
// Signals from any other chat are dropped by the trader.
type TelegramConfig struct {
	BotToken           string `toml:"bot_token"`
	ChatID             int64  `toml:"chat_id"`
	PollTimeoutSeconds int    `toml:"poll_timeout_seconds"`
}

type BinanceConfig struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Testnet   bool   `toml:"testnet"`
}

// TradeConfig 控制持仓轮询与成交流水存储。
type TradeConfig struct {
	PollSeconds int    `toml:"poll_seconds"`
	JournalPath string `toml:"journal_path"` // empty disables the trade journal
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
