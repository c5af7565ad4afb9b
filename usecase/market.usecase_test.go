package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarketGateway struct {
	balances []domain.Balance
	withdraw *domain.WithdrawalRequest
	markets  []domain.Market
}

func (f *fakeMarketGateway) MarketSummary(context.Context, *domain.MarketSymbol) (*domain.Ticker, error) {
	return &domain.Ticker{Bid: decimal.RequireFromString("0.0101"), Ask: decimal.RequireFromString("0.0102")}, nil
}

func (f *fakeMarketGateway) MarketHistory(context.Context, *domain.MarketSymbol) ([]domain.Trade, error) {
	return []domain.Trade{{ID: 42, Side: domain.Sell, Timestamp: time.Unix(0, 0)}}, nil
}

func (f *fakeMarketGateway) OrderBook(_ context.Context, symbol *domain.MarketSymbol, _ int) (*domain.OrderBookSnapshot, error) {
	return &domain.OrderBookSnapshot{Source: domain.OrderBookSource_Provider, Symbol: symbol}, nil
}

func (f *fakeMarketGateway) MarketSummaries(context.Context) ([]domain.Ticker, error) {
	ltc, _ := domain.NewMarketSymbolFromExchangeName("BTC-LTC")
	btc, _ := domain.NewMarketSymbolFromExchangeName("USDT-BTC")
	return []domain.Ticker{
		{Symbol: ltc, Last: decimal.RequireFromString("0.0101")},
		{Symbol: btc, Last: decimal.RequireFromString("16805")},
	}, nil
}

func (f *fakeMarketGateway) Markets(context.Context) ([]domain.Market, error) {
	return f.markets, nil
}

func (f *fakeMarketGateway) Balances(context.Context) ([]domain.Balance, error) {
	return f.balances, nil
}

func (f *fakeMarketGateway) Withdraw(_ context.Context, req domain.WithdrawalRequest) (*domain.WithdrawalResult, error) {
	f.withdraw = &req
	return &domain.WithdrawalResult{ID: "68b5a16c-92de-11e3-ba3b-425861b86ab6"}, nil
}

func TestMarketUseCase(t *testing.T) {
	uc := NewMarketUseCase(&fakeMarketGateway{})
	symbol := ltcBtc(t)

	ticker, err := uc.Ticker(context.Background(), symbol)
	require.NoError(t, err)
	assert.Same(t, symbol, ticker.Symbol)
	assert.Equal(t, "0.0101", ticker.Bid.String())

	trades, err := uc.RecentTrades(context.Background(), symbol)
	require.NoError(t, err)
	assert.Equal(t, int64(42), trades[0].ID)

	book, err := uc.OrderBook(context.Background(), symbol, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderBookSource_Provider, book.Source)

	_, err = uc.OrderBook(context.Background(), symbol, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestMarketUseCase_Tickers(t *testing.T) {
	uc := NewMarketUseCase(&fakeMarketGateway{})

	tickers, err := uc.Tickers(context.Background())
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, "16805", tickers["btc_usdt"].Last.String())
}

func TestMarketUseCase_ValidateMarkets(t *testing.T) {
	ltc := ltcBtc(t)
	eth, err := domain.NewMarketSymbol("eth", "btc")
	require.NoError(t, err)
	nxt, err := domain.NewMarketSymbol("nxt", "btc")
	require.NoError(t, err)

	uc := NewMarketUseCase(&fakeMarketGateway{markets: []domain.Market{
		{Symbol: ltc, MarketName: "BTC-LTC", Active: true},
		{Symbol: nxt, MarketName: "BTC-NXT", Active: false},
	}})

	assert.NoError(t, uc.ValidateMarkets(context.Background(), []*domain.MarketSymbol{ltc}))
	assert.NoError(t, uc.ValidateMarkets(context.Background(), nil))

	err = uc.ValidateMarkets(context.Background(), []*domain.MarketSymbol{ltc, eth, nxt})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.ErrorContains(t, err, "eth_btc, nxt_btc")

	markets, err := uc.Markets(context.Background())
	require.NoError(t, err)
	assert.Len(t, markets, 2)
}

func TestAccountUseCase_Amounts(t *testing.T) {
	gateway := &fakeMarketGateway{balances: []domain.Balance{
		{Currency: "btc", Total: decimal.NewFromInt(2), Available: decimal.NewFromInt(1)},
		{Currency: "LTC", Total: decimal.NewFromInt(5), Available: decimal.Zero},
		{Currency: "ETH", Total: decimal.Zero, Available: decimal.Zero},
	}}
	uc := NewAccountUseCase(gateway)

	amounts, err := uc.Amounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, amounts, 2)
	assert.Contains(t, amounts, "BTC")

	available, err := uc.AmountsAvailableToTrade(context.Background())
	require.NoError(t, err)
	assert.Len(t, available, 1)
	assert.Contains(t, available, "BTC")
}

func TestAccountUseCase_Withdraw(t *testing.T) {
	gateway := &fakeMarketGateway{}
	uc := NewAccountUseCase(gateway)

	_, err := uc.Withdraw(context.Background(), domain.WithdrawalRequest{Currency: "btc", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "address is required")

	_, err = uc.Withdraw(context.Background(), domain.WithdrawalRequest{Currency: "btc", Address: "1A", Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	result, err := uc.Withdraw(context.Background(), domain.WithdrawalRequest{
		Currency:   "xrp",
		Amount:     decimal.NewFromInt(20),
		Address:    "rPVMhWBsfF9iMXYj3aAzJVkPDTFNSyWdKy",
		AddressTag: "392414921",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "XRP", gateway.withdraw.Currency)
}
