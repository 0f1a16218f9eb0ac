package binance

import (
	"context"
	"fmt"
	"strings"

	"remora/internal/gateway/exchange"
	"remora/internal/logger"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const testnetBaseURL = "https://testnet.binancefuture.com"

// Options 描述 USDT-M 合约网关的连接参数。
type Options struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// Futures talks to Binance USDT-M futures through the official REST API.
type Futures struct {
	client *futures.Client
}

func NewFutures(opts Options) *Futures {
	client := futures.NewClient(opts.APIKey, opts.APISecret)
	if opts.Testnet {
		client.BaseURL = testnetBaseURL
		logger.Warnf("Binance futures gateway pointed at testnet (%s)", testnetBaseURL)
	}
	return &Futures{client: client}
}

func (f *Futures) Name() string { return "binance-futures" }

// Instrument looks the symbol up in the venue's exchange info and extracts
// the LOT_SIZE step. StepSize stays empty when the filter is absent; sizing
// rejects that case.
func (f *Futures) Instrument(ctx context.Context, symbol string) (exchange.Instrument, error) {
	info, err := f.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return exchange.Instrument{}, fmt.Errorf("exchange info: %w", err)
	}
	for _, s := range info.Symbols {
		if !strings.EqualFold(s.Symbol, symbol) {
			continue
		}
		inst := exchange.Instrument{Symbol: s.Symbol}
		for _, filter := range s.Filters {
			if ft, _ := filter["filterType"].(string); ft != "LOT_SIZE" {
				continue
			}
			if step, ok := filter["stepSize"].(string); ok {
				inst.StepSize = strings.TrimSpace(step)
			}
			break
		}
		return inst, nil
	}
	return exchange.Instrument{}, fmt.Errorf("%s: %w", symbol, exchange.ErrInstrumentNotFound)
}

func (f *Futures) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := f.client.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("change leverage %s -> %dx: %w", symbol, leverage, err)
	}
	return nil
}

func (f *Futures) SetIsolatedMargin(ctx context.Context, symbol string) error {
	err := f.client.NewChangeMarginTypeService().
		Symbol(symbol).
		MarginType(futures.MarginTypeIsolated).
		Do(ctx)
	if err != nil {
		// Binance -4046: already on the requested margin type.
		if strings.Contains(err.Error(), "No need to change margin type") {
			return nil
		}
		return fmt.Errorf("change margin type %s: %w", symbol, err)
	}
	return nil
}

func (f *Futures) MarketBuy(ctx context.Context, symbol, quantity string) (exchange.OrderAck, error) {
	res, err := f.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideTypeBuy).
		Type(futures.OrderTypeMarket).
		Quantity(quantity).
		NewClientOrderID(newClientOrderID()).
		Do(ctx)
	if err != nil {
		return exchange.OrderAck{}, fmt.Errorf("market buy %s qty=%s: %w", symbol, quantity, err)
	}
	return orderAck(res), nil
}

func (f *Futures) PlaceTakeProfit(ctx context.Context, symbol, stopPrice string) (exchange.OrderAck, error) {
	res, err := f.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideTypeSell).
		Type(futures.OrderTypeTakeProfitMarket).
		StopPrice(stopPrice).
		ClosePosition(true).
		NewClientOrderID(newClientOrderID()).
		Do(ctx)
	if err != nil {
		return exchange.OrderAck{}, fmt.Errorf("take profit %s stop=%s: %w", symbol, stopPrice, err)
	}
	return orderAck(res), nil
}

func (f *Futures) PositionAmount(ctx context.Context, symbol string) (decimal.Decimal, error) {
	risks, err := f.client.NewGetPositionRiskService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("position risk %s: %w", symbol, err)
	}
	for _, r := range risks {
		if !strings.EqualFold(r.Symbol, symbol) {
			continue
		}
		amt, err := decimal.NewFromString(strings.TrimSpace(r.PositionAmt))
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse position amount %q: %w", r.PositionAmt, err)
		}
		return amt, nil
	}
	// 无持仓条目视为已平仓。
	return decimal.Zero, nil
}

func orderAck(res *futures.CreateOrderResponse) exchange.OrderAck {
	if res == nil {
		return exchange.OrderAck{}
	}
	return exchange.OrderAck{
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Status:        string(res.Status),
	}
}

// newClientOrderID produces an idempotency key accepted by Binance
// (36 chars max, uuid fits exactly).
func newClientOrderID() string {
	return uuid.NewString()
}
