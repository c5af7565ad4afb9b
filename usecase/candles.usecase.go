package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

const defaultCandleWindow = 24 * time.Hour

type CandlesUseCase struct {
	source TickSource
	now    func() time.Time
}

func NewCandlesUseCase(source TickSource) *CandlesUseCase {
	return &CandlesUseCase{source: source, now: time.Now}
}

// Candles returns the bars opened within [start, end]. end defaults to now
// and start to a day before end. The exchange cannot limit the bar count.
func (c *CandlesUseCase) Candles(
	ctx context.Context,
	symbol *domain.MarketSymbol,
	periodSeconds int,
	start, end *time.Time,
	limit *int,
) ([]domain.Candle, error) {
	if limit != nil {
		return nil, fmt.Errorf("candle limit is not supported: %w", domain.ErrInvalidArgument)
	}

	tickInterval, err := domain.PeriodToToken(periodSeconds)
	if err != nil {
		return nil, err
	}

	to := c.now().UTC()
	if end != nil {
		to = *end
	}
	from := to.Add(-defaultCandleWindow)
	if start != nil {
		from = *start
	}

	bars, err := c.source.Ticks(ctx, symbol, tickInterval, nil)
	if err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(bars))
	for _, bar := range bars {
		if bar.OpenTime.Before(from) || bar.OpenTime.After(to) {
			continue
		}

		bar.Symbol = symbol
		bar.PeriodSeconds = periodSeconds
		candles = append(candles, bar)
	}

	return candles, nil
}
