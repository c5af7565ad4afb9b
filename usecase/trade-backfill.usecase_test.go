package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedTickSource struct {
	pages  [][]domain.Candle
	err    error
	calls  int
	sinces []*time.Time
	tokens []string
}

func (s *pagedTickSource) Ticks(_ context.Context, _ *domain.MarketSymbol, token string, since *time.Time) ([]domain.Candle, error) {
	s.calls++
	s.sinces = append(s.sinces, since)
	s.tokens = append(s.tokens, token)

	if s.err != nil && s.calls > len(s.pages) {
		return nil, s.err
	}
	if s.calls > len(s.pages) {
		return nil, nil
	}
	return s.pages[s.calls-1], nil
}

type pageCounter struct{ pages, trades int }

func (p *pageCounter) PageDelivered(_ *domain.MarketSymbol, trades int) {
	p.pages++
	p.trades += trades
}

var backfillStart = time.Date(2017, 8, 18, 17, 0, 0, 0, time.UTC)

func bars(count int, from time.Time) []domain.Candle {
	out := make([]domain.Candle, 0, count)
	// newest first, pages are not sorted
	for i := count - 1; i >= 0; i-- {
		out = append(out, domain.Candle{
			Close:    decimal.NewFromInt(int64(i + 1)),
			Volume:   decimal.NewFromInt(1),
			OpenTime: from.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func fivePages() [][]domain.Candle {
	pages := make([][]domain.Candle, 0, 5)
	for p := 0; p < 5; p++ {
		pages = append(pages, bars(3, backfillStart.Add(time.Duration(p*3)*time.Minute)))
	}
	return pages
}

func backfillSymbol(t *testing.T) *domain.MarketSymbol {
	symbol, err := domain.NewMarketSymbol("waves", "btc")
	require.NoError(t, err)
	return symbol
}

func TestBackfill_EmptyPageEndsHistory(t *testing.T) {
	source := &pagedTickSource{}
	uc := NewTradeBackfillUseCase(source, 0, nil)
	start := backfillStart

	delivered := 0
	result, err := uc.Backfill(context.Background(), backfillSymbol(t), &start, func([]domain.SyntheticTrade) bool {
		delivered++
		return true
	})

	require.NoError(t, err)
	assert.Equal(t, EndOfHistory, result.Reason)
	assert.Equal(t, 0, delivered)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, []string{"oneMin"}, source.tokens)
}

func TestBackfill_ConsumerStopsOnSecondPage(t *testing.T) {
	source := &pagedTickSource{pages: fivePages()}
	counter := &pageCounter{}
	uc := NewTradeBackfillUseCase(source, time.Millisecond, counter)
	start := backfillStart

	delivered := 0
	result, err := uc.Backfill(context.Background(), backfillSymbol(t), &start, func([]domain.SyntheticTrade) bool {
		delivered++
		return delivered < 2
	})

	require.NoError(t, err)
	assert.Equal(t, ConsumerStopped, result.Reason)
	assert.Equal(t, 2, delivered, "exactly two pages are delivered")
	assert.Equal(t, 2, source.calls, "no fetch after the consumer stops")
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 6, result.Trades)
	assert.Equal(t, 2, counter.pages)
}

func TestBackfill_AdvancesFrontierUntilEndOfHistory(t *testing.T) {
	source := &pagedTickSource{pages: fivePages()}
	uc := NewTradeBackfillUseCase(source, 0, nil)
	start := backfillStart

	var pages [][]domain.SyntheticTrade
	result, err := uc.Backfill(context.Background(), backfillSymbol(t), &start, func(page []domain.SyntheticTrade) bool {
		pages = append(pages, page)
		return true
	})

	require.NoError(t, err)
	assert.Equal(t, EndOfHistory, result.Reason)
	assert.Len(t, pages, 5)
	assert.Equal(t, 6, source.calls)

	// first request starts at the caller date, later ones at the newest trade seen
	require.NotNil(t, source.sinces[0])
	assert.Equal(t, backfillStart, *source.sinces[0])
	for i := 1; i < len(source.sinces); i++ {
		prev := pages[i-1]
		assert.Equal(t, prev[len(prev)-1].Timestamp, *source.sinces[i])
	}

	for _, page := range pages {
		for i := 1; i < len(page); i++ {
			assert.True(t, page[i-1].Timestamp.Before(page[i].Timestamp), "page must be sorted ascending")
		}
		assert.Equal(t, domain.SyntheticTradeID, page[0].SourceID)
		assert.Equal(t, domain.Buy, page[0].Side)
	}

	require.NotNil(t, result.Frontier)
	assert.Equal(t, backfillStart.Add(14*time.Minute), *result.Frontier)
}

func TestBackfill_NoStartDateIsOneShot(t *testing.T) {
	source := &pagedTickSource{pages: fivePages()}
	uc := NewTradeBackfillUseCase(source, time.Hour, nil)

	result, err := uc.Backfill(context.Background(), backfillSymbol(t), nil, func([]domain.SyntheticTrade) bool { return true })

	require.NoError(t, err)
	assert.Equal(t, OneShot, result.Reason)
	assert.Equal(t, 1, source.calls)
	assert.Nil(t, source.sinces[0], "recent mode sends no cursor")
	assert.Nil(t, result.Frontier)
}

func TestBackfill_FetchErrorPropagates(t *testing.T) {
	gatewayErr := domain.NewTransportError("GetTicks", errors.New("503 service unavailable"))
	source := &pagedTickSource{pages: fivePages()[:1], err: gatewayErr}
	uc := NewTradeBackfillUseCase(source, 0, nil)
	start := backfillStart

	result, err := uc.Backfill(context.Background(), backfillSymbol(t), &start, func([]domain.SyntheticTrade) bool { return true })

	assert.ErrorIs(t, err, gatewayErr)
	assert.True(t, domain.IsTransport(err))
	assert.Equal(t, 1, result.Pages)
	assert.Equal(t, 2, source.calls, "a failed page is not retried")
}

func TestBackfill_ContextCancelledDuringPacing(t *testing.T) {
	source := &pagedTickSource{pages: fivePages()}
	uc := NewTradeBackfillUseCase(source, time.Hour, nil)
	start := backfillStart

	ctx, cancel := context.WithCancel(context.Background())
	result, err := uc.Backfill(ctx, backfillSymbol(t), &start, func([]domain.SyntheticTrade) bool {
		cancel()
		return true
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, result.Pages)
	assert.Equal(t, 1, source.calls)
}

func TestBackfill_SynthesizesFromBar(t *testing.T) {
	openTime := time.Date(2017, 8, 18, 17, 48, 0, 0, time.UTC)
	source := &pagedTickSource{pages: [][]domain.Candle{{{
		Close:    decimal.RequireFromString("0.00106302"),
		Volume:   decimal.RequireFromString("80.58638589"),
		OpenTime: openTime,
	}}}}
	uc := NewTradeBackfillUseCase(source, 0, nil)

	var got []domain.SyntheticTrade
	_, err := uc.Backfill(context.Background(), backfillSymbol(t), nil, func(page []domain.SyntheticTrade) bool {
		got = page
		return true
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0.00106302", got[0].Price.String())
	assert.Equal(t, "80.58638589", got[0].Quantity.String())
	assert.Equal(t, openTime, got[0].Timestamp)
}
