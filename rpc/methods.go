package rpc

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *server) GetOrderBookSnapshot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	marketSymbol, err := s.market(in)
	if err != nil {
		return nil, err
	}

	source := stringField(in, "source")
	if !s.validationService.IsSupportedSource(source) {
		return nil, status.Errorf(codes.InvalidArgument, "source %q is not supported", source)
	}

	maxDepth, err := intField(in, "max_depth")
	if err != nil {
		return nil, err
	}

	var snapshot *domain.OrderBookSnapshot
	switch source {
	case SourceLocal:
		snapshot, err = s.orderbookSnapshotUseCase.LocalSnapshot(marketSymbol, maxDepth)
	case SourceExchange:
		snapshot, err = s.marketUseCase.OrderBook(ctx, marketSymbol, maxDepth)
	default:
		snapshot, err = s.orderbookSnapshotUseCase.GetOrderBookSnapshot(ctx, marketSymbol, maxDepth)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"market": marketSymbol.String(),
		"source": string(snapshot.Source),
		"nonce":  snapshot.Nonce,
		"bids":   levels(snapshot.Bids),
		"asks":   levels(snapshot.Asks),
	})
}

func (s *server) GetTicker(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	marketSymbol, err := s.market(in)
	if err != nil {
		return nil, err
	}

	ticker, err := s.marketUseCase.Ticker(ctx, marketSymbol)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"market":       marketSymbol.String(),
		"bid":          ticker.Bid.String(),
		"ask":          ticker.Ask.String(),
		"last":         ticker.Last.String(),
		"base_volume":  ticker.BaseVolume.String(),
		"quote_volume": ticker.QuoteVolume.String(),
		"timestamp":    formatTime(ticker.Timestamp),
	})
}

func (s *server) GetTickers(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	tickers, err := s.marketUseCase.Tickers(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	out := make(map[string]interface{}, len(tickers))
	for market, ticker := range tickers {
		if !s.validationService.IsSupportedMarket(ticker.Symbol) {
			continue
		}
		out[market] = map[string]interface{}{
			"bid":          ticker.Bid.String(),
			"ask":          ticker.Ask.String(),
			"last":         ticker.Last.String(),
			"base_volume":  ticker.BaseVolume.String(),
			"quote_volume": ticker.QuoteVolume.String(),
			"timestamp":    formatTime(ticker.Timestamp),
		}
	}

	return structpb.NewStruct(map[string]interface{}{"tickers": out})
}

func (s *server) GetMarkets(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	markets, err := s.marketUseCase.Markets(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]interface{}, 0, len(markets))
	for _, m := range markets {
		if !s.validationService.IsSupportedMarket(m.Symbol) {
			continue
		}
		list = append(list, map[string]interface{}{
			"market":         m.Symbol.String(),
			"exchange_name":  m.MarketName,
			"min_trade_size": m.MinTradeSize.String(),
			"step_size":      m.StepSize.String(),
			"active":         m.Active,
		})
	}

	return structpb.NewStruct(map[string]interface{}{"markets": list})
}

func (s *server) GetCandles(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	marketSymbol, err := s.market(in)
	if err != nil {
		return nil, err
	}

	period, err := intField(in, "period")
	if err != nil {
		return nil, err
	}
	start, err := timeField(in, "start")
	if err != nil {
		return nil, err
	}
	end, err := timeField(in, "end")
	if err != nil {
		return nil, err
	}

	var limit *int
	if _, ok := in.GetFields()["limit"]; ok {
		l, err := intField(in, "limit")
		if err != nil {
			return nil, err
		}
		limit = &l
	}

	candles, err := s.candlesUseCase.Candles(ctx, marketSymbol, period, start, end, limit)
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]interface{}, 0, len(candles))
	for _, c := range candles {
		list = append(list, map[string]interface{}{
			"open_time":   formatTime(c.OpenTime),
			"open":        c.Open.String(),
			"high":        c.High.String(),
			"low":         c.Low.String(),
			"close":       c.Close.String(),
			"volume":      c.Volume.String(),
			"base_volume": c.BaseVolume.String(),
		})
	}

	return structpb.NewStruct(map[string]interface{}{
		"market":  marketSymbol.String(),
		"period":  period,
		"candles": list,
	})
}

func (s *server) GetRecentTrades(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	marketSymbol, err := s.market(in)
	if err != nil {
		return nil, err
	}

	trades, err := s.marketUseCase.RecentTrades(ctx, marketSymbol)
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]interface{}, 0, len(trades))
	for _, t := range trades {
		list = append(list, map[string]interface{}{
			"id":        t.ID,
			"price":     t.Price.String(),
			"quantity":  t.Quantity.String(),
			"side":      string(t.Side),
			"timestamp": formatTime(t.Timestamp),
		})
	}

	return structpb.NewStruct(map[string]interface{}{
		"market": marketSymbol.String(),
		"trades": list,
	})
}

func (s *server) market(in *structpb.Struct) (*domain.MarketSymbol, error) {
	return marketField(in, "market", s.validationService)
}

// marketField parses a "base_quote" market and checks it is served.
func marketField(in *structpb.Struct, name string, validation *ValidationService) (*domain.MarketSymbol, error) {
	market := stringField(in, name)

	marketSymbol, err := domain.NewMarketSymbolFromString(market)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument,
			"invalid market symbol %q. Correct market symbol should use _ as a separator", market)
	}

	if !validation.IsSupportedMarket(marketSymbol) {
		return nil, status.Errorf(codes.InvalidArgument, "market %s is not supported", marketSymbol)
	}
	return marketSymbol, nil
}

// optionalMarketField is marketField where a missing market means every market.
func optionalMarketField(in *structpb.Struct, name string, validation *ValidationService) (*domain.MarketSymbol, error) {
	if stringField(in, name) == "" {
		return nil, nil
	}
	return marketField(in, name, validation)
}

func levels(depth domain.DepthSide) []interface{} {
	list := make([]interface{}, 0, len(depth))
	for _, level := range depth {
		list = append(list, map[string]interface{}{
			"price": level.Price.String(),
			"qty":   level.Quantity.String(),
		})
	}
	return list
}

func stringField(in *structpb.Struct, name string) string {
	return in.GetFields()[name].GetStringValue()
}

// intField reads a whole number; a missing field is zero.
func intField(in *structpb.Struct, name string) (int, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, nil
	}

	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number", name)
	}
	return int(n.NumberValue), nil
}

func timeField(in *structpb.Struct, name string) (*time.Time, error) {
	raw := stringField(in, name)
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("%s: %s", name, err))
	}
	t = t.UTC()
	return &t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
