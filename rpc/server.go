package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var logger = logrus.WithField("scope", "rpc")

type SnapshotService interface {
	GetOrderBookSnapshot(ctx context.Context, symbol *domain.MarketSymbol, limit int) (*domain.OrderBookSnapshot, error)
	LocalSnapshot(symbol *domain.MarketSymbol, limit int) (*domain.OrderBookSnapshot, error)
}

type MarketService interface {
	Ticker(ctx context.Context, symbol *domain.MarketSymbol) (*domain.Ticker, error)
	RecentTrades(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.Trade, error)
	OrderBook(ctx context.Context, symbol *domain.MarketSymbol, depth int) (*domain.OrderBookSnapshot, error)
	Tickers(ctx context.Context) (map[string]domain.Ticker, error)
	Markets(ctx context.Context) ([]domain.Market, error)
}

type CandleService interface {
	Candles(ctx context.Context, symbol *domain.MarketSymbol, periodSeconds int, start, end *time.Time, limit *int) ([]domain.Candle, error)
}

type server struct {
	orderbookSnapshotUseCase SnapshotService
	marketUseCase            MarketService
	candlesUseCase           CandleService
	validationService        *ValidationService
}

func NewServer(
	snapshots SnapshotService,
	market MarketService,
	candles CandleService,
	conf *ValidationServiceConfig,
) *server {
	return &server{
		orderbookSnapshotUseCase: snapshots,
		marketUseCase:            market,
		candlesUseCase:           candles,
		validationService:        NewValidationService(conf),
	}
}

// NewGRPCServer returns a grpc server with the market data service and the
// logging interceptor registered. The trading service is added separately.
func NewGRPCServer(srv MarketDataServiceServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.UnaryInterceptor(loggingInterceptor))
	s := grpc.NewServer(opts...)
	RegisterMarketDataServiceServer(s, srv)
	return s
}

func loggingInterceptor(
	ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	entry := logger.WithFields(logrus.Fields{
		"method":   info.FullMethod,
		"code":     status.Code(err).String(),
		"duration": time.Since(start),
	})
	if err != nil {
		entry.Warnf("request failed: %s", err)
	} else {
		entry.Debug("request served")
	}

	return resp, err
}

// toStatus maps domain errors onto grpc codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrUnsupported):
		code = codes.Unimplemented
	case errors.Is(err, domain.ErrOrderBookNotFound), errors.Is(err, domain.ErrLookupMiss):
		code = codes.NotFound
	case errors.Is(err, domain.ErrStaleBook):
		code = codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case domain.IsTransport(err):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}

	return status.Error(code, err.Error())
}
