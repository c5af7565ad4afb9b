package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

const DefaultPageDelay = time.Second

type BackfillReason string

const (
	EndOfHistory    BackfillReason = "end_of_history"
	ConsumerStopped BackfillReason = "consumer_stopped"
	// No start date: a single page of recent trades was delivered.
	OneShot BackfillReason = "one_shot"
)

// TickSource returns the bars of a market newer than since, or the most
// recent ones when since is nil.
type TickSource interface {
	Ticks(ctx context.Context, symbol *domain.MarketSymbol, tickInterval string, since *time.Time) ([]domain.Candle, error)
}

// TradeConsumer receives one page at a time. Returning false stops the backfill.
type TradeConsumer func(page []domain.SyntheticTrade) bool

type BackfillObserver interface {
	PageDelivered(symbol *domain.MarketSymbol, trades int)
}

type BackfillResult struct {
	RunID    uuid.UUID
	Reason   BackfillReason
	Pages    int
	Trades   int
	Frontier *time.Time
}

type TradeBackfillUseCase struct {
	source    TickSource
	pageDelay time.Duration
	observer  BackfillObserver
}

func NewTradeBackfillUseCase(source TickSource, pageDelay time.Duration, observer BackfillObserver) *TradeBackfillUseCase {
	return &TradeBackfillUseCase{
		source:    source,
		pageDelay: pageDelay,
		observer:  observer,
	}
}

// Backfill pages through one-minute bars from startDate onward, handing each
// page to consume as trades. Without a start date exactly one page of recent
// bars is fetched. A failed fetch ends the run with the gateway error.
func (b *TradeBackfillUseCase) Backfill(
	ctx context.Context,
	symbol *domain.MarketSymbol,
	startDate *time.Time,
	consume TradeConsumer,
) (BackfillResult, error) {
	result := BackfillResult{RunID: uuid.New()}
	log := logger.WithField("run", result.RunID.String()).WithField("market", symbol.String())

	tickInterval, err := domain.PeriodToToken(domain.PeriodOneMinute)
	if err != nil {
		return result, err
	}

	cursor := domain.BackfillCursor{Symbol: symbol}
	if startDate != nil {
		start := *startDate
		cursor.Frontier = &start
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		candles, err := b.source.Ticks(ctx, symbol, tickInterval, cursor.Frontier)
		if err != nil {
			log.Warnf("backfill stopped after %d pages: %s", result.Pages, err)
			return result, err
		}

		if len(candles) == 0 {
			result.Reason = EndOfHistory
			break
		}

		page := domain.SynthesizeTrades(candles)
		result.Pages++
		result.Trades += len(page)
		if b.observer != nil {
			b.observer.PageDelivered(symbol, len(page))
		}

		if !consume(page) {
			result.Reason = ConsumerStopped
			break
		}

		if startDate == nil {
			result.Reason = OneShot
			break
		}

		cursor.Advance(page)
		result.Frontier = cursor.Frontier

		if err := sleepCtx(ctx, b.pageDelay); err != nil {
			return result, err
		}
	}

	log.Debugf("backfill finished: reason=%s pages=%d trades=%d", result.Reason, result.Pages, result.Trades)
	return result, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
