package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandles_DefaultWindow(t *testing.T) {
	now := time.Date(2018, 3, 10, 12, 0, 0, 0, time.UTC)
	source := &pagedTickSource{pages: [][]domain.Candle{{
		{OpenTime: now.Add(-48 * time.Hour)},
		{OpenTime: now.Add(-24 * time.Hour)},
		{OpenTime: now.Add(-time.Hour)},
		{OpenTime: now},
		{OpenTime: now.Add(time.Hour)},
	}}}
	uc := NewCandlesUseCase(source)
	uc.now = func() time.Time { return now }
	symbol := ltcBtc(t)

	candles, err := uc.Candles(context.Background(), symbol, 3600, nil, nil, nil)

	require.NoError(t, err)
	require.Len(t, candles, 3, "window is [now-24h, now] inclusive")
	assert.Equal(t, now.Add(-24*time.Hour), candles[0].OpenTime)
	assert.Equal(t, now, candles[2].OpenTime)
	assert.Equal(t, 3600, candles[0].PeriodSeconds)
	assert.Same(t, symbol, candles[0].Symbol)
	assert.Equal(t, []string{"hour"}, source.tokens)
	assert.Nil(t, source.sinces[0])
}

func TestCandles_ExplicitWindow(t *testing.T) {
	base := time.Date(2018, 3, 10, 0, 0, 0, 0, time.UTC)
	source := &pagedTickSource{pages: [][]domain.Candle{{
		{OpenTime: base},
		{OpenTime: base.Add(24 * time.Hour)},
		{OpenTime: base.Add(48 * time.Hour)},
	}}}
	uc := NewCandlesUseCase(source)
	start, end := base.Add(time.Hour), base.Add(72*time.Hour)

	candles, err := uc.Candles(context.Background(), ltcBtc(t), 86400, &start, &end, nil)

	require.NoError(t, err)
	assert.Len(t, candles, 2)
	assert.Equal(t, []string{"day"}, source.tokens)
}

func TestCandles_InvalidArguments(t *testing.T) {
	source := &pagedTickSource{}
	uc := NewCandlesUseCase(source)
	limit := 10

	_, err := uc.Candles(context.Background(), ltcBtc(t), 60, nil, nil, &limit)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "limit is not supported")

	_, err = uc.Candles(context.Background(), ltcBtc(t), 45, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "45 seconds is not a tick interval")

	assert.Equal(t, 0, source.calls, "invalid requests never reach the exchange")
}
