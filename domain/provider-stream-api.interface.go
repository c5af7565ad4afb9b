package domain

import "context"

type Subscription[T any] struct {
	Stream      chan T
	Unsubscribe func()
	Topic       string
}

// ProviderSyncAPI returns a nonce-stamped snapshot the delta stream can be
// replayed on top of.
type ProviderSyncAPI interface {
	OrderBookSnapshot(ctx context.Context, symbol *MarketSymbol, limit int) (*OrderBookSnapshot, error)
}

type ProviderStreamAPI interface {
	DepthDiffStream(symbol *MarketSymbol) (*Subscription[*OrderBookDelta], error)
}

// BookObserver receives maintainer events. Implementations must not block.
type BookObserver interface {
	DeltaApplied(symbol *MarketSymbol, result DeltaResult)
	Resynced(symbol *MarketSymbol)
}

type NopBookObserver struct{}

func (NopBookObserver) DeltaApplied(*MarketSymbol, DeltaResult) {}
func (NopBookObserver) Resynced(*MarketSymbol)                  {}
