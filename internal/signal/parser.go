// Package signal turns raw chat text into validated trade intents.
package signal

import (
	"regexp"
	"strings"

	"remora/internal/logger"

	"github.com/shopspring/decimal"
)

// Marker is the only supported signal shape. Messages without it are not
// signals and are dropped without logging.
const Marker = "LONG SIGNAL"

const (
	// DefaultLeverage applies when the signal carries no leverage line.
	DefaultLeverage = 3
)

// DefaultMargin applies when the signal carries no margin line (USDT).
var DefaultMargin = decimal.NewFromInt(5)

var (
	symbolRe   = regexp.MustCompile(`LONG SIGNAL\s*-\s*(?P<symbol>[A-Za-z0-9]+)`)
	entryRe    = regexp.MustCompile(`Entry:\s*\$?(?P<price>[0-9]+(?:\.[0-9]+)?)`)
	tpRe       = regexp.MustCompile(`TP:\s*\$?(?P<price>[0-9]+(?:\.[0-9]+)?)`)
	leverageRe = regexp.MustCompile(`Leverage:\s*(?P<lev>[0-9]+)\s*[xX]`)
	marginRe   = regexp.MustCompile(`Margin:\s*\$\s*(?P<amount>[0-9]+(?:\.[0-9]+)?)`)
)

// TradeIntent is the validated, structured form of a signal before sizing.
// Instances are never partially filled: Parse returns nil unless symbol,
// entry and take-profit are all present and positive.
type TradeIntent struct {
	Symbol     string
	Entry      decimal.Decimal
	TakeProfit decimal.Decimal
	Leverage   int
	Margin     decimal.Decimal
	Side       string // fixed to "LONG"
}

// Parse extracts a trade intent from free-form text. A nil return means the
// message is not an actionable signal; the caller must not treat it as an
// error. Mandatory fields are checked in order (marker, symbol, entry, TP)
// and the first miss short-circuits.
func Parse(text string) *TradeIntent {
	if !strings.Contains(text, Marker) {
		return nil
	}

	symbol := captureString(symbolRe, text, "symbol")
	if symbol == "" {
		logger.Debugf("signal: marker present but no symbol, skipped")
		return nil
	}
	symbol = strings.ToUpper(symbol)

	entry, ok := capturePrice(entryRe, text, "price")
	if !ok {
		logger.Debugf("signal %s: missing or invalid entry price, skipped", symbol)
		return nil
	}
	takeProfit, ok := capturePrice(tpRe, text, "price")
	if !ok {
		logger.Debugf("signal %s: missing or invalid take profit, skipped", symbol)
		return nil
	}

	intent := &TradeIntent{
		Symbol:     symbol,
		Entry:      entry,
		TakeProfit: takeProfit,
		Leverage:   DefaultLeverage,
		Margin:     DefaultMargin,
		Side:       "LONG",
	}
	if lev := captureString(leverageRe, text, "lev"); lev != "" {
		if parsed, ok := parseLeverage(lev); ok {
			intent.Leverage = parsed
		}
	}
	if amount := captureString(marginRe, text, "amount"); amount != "" {
		if parsed, err := decimal.NewFromString(amount); err == nil && parsed.IsPositive() {
			intent.Margin = parsed
		}
	}
	return intent
}

func captureString(re *regexp.Regexp, text, group string) string {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	idx := re.SubexpIndex(group)
	if idx < 0 || idx >= len(match) {
		return ""
	}
	return strings.TrimSpace(match[idx])
}

func capturePrice(re *regexp.Regexp, text, group string) (decimal.Decimal, bool) {
	raw := captureString(re, text, group)
	if raw == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || !value.IsPositive() {
		return decimal.Zero, false
	}
	return value, true
}

func parseLeverage(raw string) (int, bool) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	lev := int(value.IntPart())
	if lev <= 0 {
		return 0, false
	}
	return lev, true
}
