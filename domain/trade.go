package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SyntheticTradeID marks trades built from candles; the exchange gives them no id.
const SyntheticTradeID int64 = -1

type Candle struct {
	Symbol        *MarketSymbol
	PeriodSeconds int
	Open          decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	Close         decimal.Decimal
	Volume        decimal.Decimal
	BaseVolume    decimal.Decimal
	OpenTime      time.Time
}

type SyntheticTrade struct {
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
	Side      TradeSide
	SourceID  int64
}

// Trade is an executed trade from the public market history.
type Trade struct {
	ID        int64
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
	Side      TradeSide
}

type Ticker struct {
	Symbol      *MarketSymbol
	Bid         decimal.Decimal
	Ask         decimal.Decimal
	Last        decimal.Decimal
	BaseVolume  decimal.Decimal
	QuoteVolume decimal.Decimal
	Timestamp   time.Time
}

// BackfillCursor is the moving boundary of one backfill run. A nil Frontier
// means the most recent page.
type BackfillCursor struct {
	Symbol   *MarketSymbol
	Frontier *time.Time
}

// Advance moves the frontier to the newest trade of the page.
func (c *BackfillCursor) Advance(page []SyntheticTrade) {
	if len(page) == 0 {
		return
	}

	last := page[len(page)-1].Timestamp
	if c.Frontier == nil || last.After(*c.Frontier) {
		c.Frontier = &last
	}
}

// SynthesizeTrades turns one-minute bars into trades: close is the price,
// volume the quantity and the bar open time the timestamp. Bars carry no
// side, every trade is reported as a buy. The result is sorted by time.
func SynthesizeTrades(candles []Candle) []SyntheticTrade {
	trades := make([]SyntheticTrade, 0, len(candles))
	for _, c := range candles {
		trades = append(trades, SyntheticTrade{
			Price:     c.Close,
			Quantity:  c.Volume,
			Timestamp: c.OpenTime,
			Side:      Buy,
			SourceID:  SyntheticTradeID,
		})
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})

	return trades
}
