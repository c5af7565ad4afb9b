package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

type MarketGateway interface {
	MarketSummary(ctx context.Context, symbol *domain.MarketSymbol) (*domain.Ticker, error)
	MarketHistory(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.Trade, error)
	OrderBook(ctx context.Context, symbol *domain.MarketSymbol, depth int) (*domain.OrderBookSnapshot, error)
	MarketSummaries(ctx context.Context) ([]domain.Ticker, error)
	Markets(ctx context.Context) ([]domain.Market, error)
}

type MarketUseCase struct {
	gateway MarketGateway
}

func NewMarketUseCase(gateway MarketGateway) *MarketUseCase {
	return &MarketUseCase{gateway: gateway}
}

func (m *MarketUseCase) Ticker(ctx context.Context, symbol *domain.MarketSymbol) (*domain.Ticker, error) {
	ticker, err := m.gateway.MarketSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}

	ticker.Symbol = symbol
	return ticker, nil
}

// RecentTrades returns the latest public trades of a market.
func (m *MarketUseCase) RecentTrades(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.Trade, error) {
	return m.gateway.MarketHistory(ctx, symbol)
}

// OrderBook reads the exchange depth directly, bypassing any local book.
func (m *MarketUseCase) OrderBook(ctx context.Context, symbol *domain.MarketSymbol, depth int) (*domain.OrderBookSnapshot, error) {
	if depth < 0 {
		return nil, fmt.Errorf("negative depth %d: %w", depth, domain.ErrInvalidArgument)
	}
	return m.gateway.OrderBook(ctx, symbol, depth)
}

// Tickers returns the ticker of every market keyed by "base_quote".
func (m *MarketUseCase) Tickers(ctx context.Context) (map[string]domain.Ticker, error) {
	tickers, err := m.gateway.MarketSummaries(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.Ticker, len(tickers))
	for _, t := range tickers {
		out[t.Symbol.String()] = t
	}
	return out, nil
}

func (m *MarketUseCase) Markets(ctx context.Context) ([]domain.Market, error) {
	return m.gateway.Markets(ctx)
}

// ValidateMarkets fails unless every symbol is listed and active.
func (m *MarketUseCase) ValidateMarkets(ctx context.Context, symbols []*domain.MarketSymbol) error {
	if len(symbols) == 0 {
		return nil
	}

	markets, err := m.gateway.Markets(ctx)
	if err != nil {
		return err
	}

	active := make(map[string]bool, len(markets))
	for _, market := range markets {
		active[market.Symbol.String()] = market.Active
	}

	var invalid []string
	for _, symbol := range symbols {
		if !active[symbol.String()] {
			invalid = append(invalid, symbol.String())
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("markets %s are not listed or inactive: %w", strings.Join(invalid, ", "), domain.ErrInvalidArgument)
	}
	return nil
}
