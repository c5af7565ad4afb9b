package bittrex

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/tidwall/gjson"
)

func marketQuery(symbol *domain.MarketSymbol) url.Values {
	return url.Values{"market": {symbol.ExchangeName()}}
}

func (api *BittrexSyncAPI) MarketSummary(ctx context.Context, symbol *domain.MarketSymbol) (*domain.Ticker, error) {
	result, err := api.public(ctx, "getmarketsummary", "public/getmarketsummary", marketQuery(symbol))
	if err != nil {
		return nil, err
	}

	summaries := result.Array()
	if len(summaries) == 0 {
		return nil, domain.NewTransportError("getmarketsummary", errors.Errorf("no summary for %s", symbol.ExchangeName()))
	}

	ticker := parseTicker(summaries[0])
	ticker.Symbol = symbol
	return ticker, nil
}

// MarketSummaries returns the ticker of every market in one call. Summaries
// of markets with an unreadable name are skipped.
func (api *BittrexSyncAPI) MarketSummaries(ctx context.Context) ([]domain.Ticker, error) {
	result, err := api.public(ctx, "getmarketsummaries", "public/getmarketsummaries", nil)
	if err != nil {
		return nil, err
	}

	tickers := make([]domain.Ticker, 0, len(result.Array()))
	for _, r := range result.Array() {
		symbol, err := domain.NewMarketSymbolFromExchangeName(r.Get("MarketName").String())
		if err != nil {
			logger.Debugf("skipping summary: %s", err)
			continue
		}

		ticker := parseTicker(r)
		ticker.Symbol = symbol
		tickers = append(tickers, *ticker)
	}
	return tickers, nil
}

func (api *BittrexSyncAPI) Markets(ctx context.Context) ([]domain.Market, error) {
	result, err := api.public(ctx, "getmarkets", "public/getmarkets", nil)
	if err != nil {
		return nil, err
	}

	markets := make([]domain.Market, 0, len(result.Array()))
	for _, r := range result.Array() {
		market, err := parseMarket(r)
		if err != nil {
			logger.Debugf("skipping market: %s", err)
			continue
		}
		markets = append(markets, market)
	}
	return markets, nil
}

// OrderBook returns the REST depth. It carries no nonce, so it cannot seed a
// delta-maintained book.
func (api *BittrexSyncAPI) OrderBook(ctx context.Context, symbol *domain.MarketSymbol, depth int) (*domain.OrderBookSnapshot, error) {
	query := marketQuery(symbol)
	query.Set("type", "both")

	result, err := api.public(ctx, "getorderbook", "public/getorderbook", query)
	if err != nil {
		return nil, err
	}

	book := domain.NewOrderBook(&domain.OrderBookSnapshot{
		Symbol: symbol,
		Bids:   parseDepth(result.Get("buy")),
		Asks:   parseDepth(result.Get("sell")),
	}, nil)

	snapshot := book.TakeSnapshot(depth)
	snapshot.Source = domain.OrderBookSource_Provider
	return snapshot, nil
}

func (api *BittrexSyncAPI) MarketHistory(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.Trade, error) {
	result, err := api.public(ctx, "getmarkethistory", "public/getmarkethistory", marketQuery(symbol))
	if err != nil {
		return nil, err
	}

	trades := make([]domain.Trade, 0, len(result.Array()))
	for _, r := range result.Array() {
		trades = append(trades, parseTrade(r))
	}
	return trades, nil
}

func (api *BittrexSyncAPI) Currencies(ctx context.Context) ([]domain.Currency, error) {
	result, err := api.public(ctx, "getcurrencies", "public/getcurrencies", nil)
	if err != nil {
		return nil, err
	}

	currencies := make([]domain.Currency, 0, len(result.Array()))
	for _, r := range result.Array() {
		currencies = append(currencies, parseCurrency(r))
	}
	return currencies, nil
}

// Ticks returns the bars of the tick interval. The endpoint always answers
// with its most recent window, bars at or before since are dropped here.
func (api *BittrexSyncAPI) Ticks(
	ctx context.Context, symbol *domain.MarketSymbol, tickInterval string, since *time.Time,
) ([]domain.Candle, error) {
	query := url.Values{
		"marketName":   {symbol.ExchangeName()},
		"tickInterval": {tickInterval},
	}
	if since != nil {
		// defeats intermediate caches while paging
		query.Set("_", strconv.FormatInt(time.Now().UnixNano()/100, 10))
	}

	result, err := api.publicV2(ctx, "GetTicks", "pub/market/GetTicks", query)
	if err != nil {
		return nil, err
	}
	if result.Type == gjson.Null {
		return nil, nil
	}

	candles := make([]domain.Candle, 0, len(result.Array()))
	for _, r := range result.Array() {
		candle := parseCandle(r)
		if since != nil && !candle.OpenTime.After(*since) {
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}
