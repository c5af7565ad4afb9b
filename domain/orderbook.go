package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type OrderBookSource string

const (
	OrderBookSource_Provider       OrderBookSource = "Provider"
	OrderBookSource_LocalOrderBook OrderBookSource = "LocalOrderBook"
)

type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// ChangeKind values match the exchange wire codes.
type ChangeKind int

const (
	ChangeNew    ChangeKind = 0
	ChangeRemove ChangeKind = 1
	ChangeUpdate ChangeKind = 2
)

type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// DepthSide is one side of the book. Bids are kept in descending price
// order, asks in ascending order, with one level per price.
type DepthSide []PriceLevel

type OrderBookSnapshot struct {
	Source OrderBookSource
	Symbol *MarketSymbol
	Nonce  int64
	Bids   DepthSide
	Asks   DepthSide
}

type LevelChange struct {
	Side     Side
	Kind     ChangeKind
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

type OrderBookDelta struct {
	Symbol  *MarketSymbol
	Nonce   int64
	Changes []LevelChange
}

// OrderBook is the live depth of one symbol. It is not safe for concurrent
// use: a single writer applies snapshots and deltas, readers synchronize
// with it externally.
type OrderBook struct {
	Symbol         *MarketSymbol
	Bids           DepthSide
	Asks           DepthSide
	LastNonce      int64
	LastUpdateTime time.Time

	stale     bool
	validator IDepthUpdateValidator
}

func NewOrderBook(snapshot *OrderBookSnapshot, validator IDepthUpdateValidator) *OrderBook {
	if validator == nil {
		validator = NewDepthUpdateValidator(NoncePermissive)
	}

	ob := &OrderBook{validator: validator}
	ob.ApplySnapshot(snapshot)

	return ob
}

// ApplySnapshot replaces the book wholesale and clears the stale flag.
func (ob *OrderBook) ApplySnapshot(snapshot *OrderBookSnapshot) {
	ob.Symbol = snapshot.Symbol
	ob.Bids = buildDepth(snapshot.Bids, Bid)
	ob.Asks = buildDepth(snapshot.Asks, Ask)
	ob.LastNonce = snapshot.Nonce
	ob.LastUpdateTime = time.Now()
	ob.stale = false
}

// ApplyDelta checks the delta nonce against the last applied one before
// touching the book. A gap marks the book stale until the next snapshot;
// whether the gapped delta is still applied depends on the validator policy.
func (ob *OrderBook) ApplyDelta(delta *OrderBookDelta) DeltaResult {
	err := ob.validator.IsValidUpd(delta, ob.LastNonce)

	switch {
	case err == nil:
		ob.applyChanges(delta)
		return Applied
	case ob.validator.IsErrOutdated(err):
		return StaleIgnored
	case ob.validator.IsErrOutOfSequence(err):
		ob.stale = true
		if ob.validator.AppliesGaps() {
			ob.applyChanges(delta)
		}
		return GapDetected
	default:
		// the delta cannot be placed in the sequence at all
		ob.stale = true
		return GapDetected
	}
}

func (ob *OrderBook) applyChanges(delta *OrderBookDelta) {
	for _, change := range delta.Changes {
		if change.Side == Bid {
			ob.Bids = updateDepth(ob.Bids, change, Bid)
		} else {
			ob.Asks = updateDepth(ob.Asks, change, Ask)
		}
	}

	ob.LastNonce = delta.Nonce
	ob.LastUpdateTime = time.Now()
}

// MarkStale flags the book as unreliable until the next snapshot.
func (ob *OrderBook) MarkStale() {
	ob.stale = true
}

func (ob *OrderBook) IsStale() bool {
	return ob.stale
}

func (ob *OrderBook) BestBid() (PriceLevel, bool) {
	if len(ob.Bids) == 0 {
		return PriceLevel{}, false
	}
	return ob.Bids[0], true
}

func (ob *OrderBook) BestAsk() (PriceLevel, bool) {
	if len(ob.Asks) == 0 {
		return PriceLevel{}, false
	}
	return ob.Asks[0], true
}

// TakeSnapshot copies at most limit levels per side. limit <= 0 copies everything.
func (ob *OrderBook) TakeSnapshot(limit int) *OrderBookSnapshot {
	return &OrderBookSnapshot{
		Source: OrderBookSource_LocalOrderBook,
		Symbol: ob.Symbol,
		Nonce:  ob.LastNonce,
		Bids:   limitDepth(ob.Bids, limit),
		Asks:   limitDepth(ob.Asks, limit),
	}
}

func limitDepth(depth DepthSide, limit int) DepthSide {
	if limit > 0 && len(depth) > limit {
		depth = depth[:limit]
	}

	out := make(DepthSide, len(depth))
	copy(out, depth)
	return out
}

func buildDepth(levels DepthSide, side Side) DepthSide {
	depth := make(DepthSide, 0, len(levels))
	for _, level := range levels {
		depth = updateDepth(depth, LevelChange{
			Side:     side,
			Kind:     ChangeUpdate,
			Price:    level.Price,
			Quantity: level.Quantity,
		}, side)
	}
	return depth
}

// updateDepth applies one change keeping the side sorted.
func updateDepth(depth DepthSide, change LevelChange, side Side) DepthSide {
	i := searchDepth(depth, change.Price, side)
	found := i < len(depth) && depth[i].Price.Equal(change.Price)

	if change.Kind == ChangeRemove || !change.Quantity.IsPositive() {
		if found {
			depth = append(depth[:i], depth[i+1:]...)
		}
		return depth
	}

	if found {
		depth[i].Quantity = change.Quantity
		return depth
	}

	depth = append(depth, PriceLevel{})
	copy(depth[i+1:], depth[i:])
	depth[i] = PriceLevel{Price: change.Price, Quantity: change.Quantity}
	return depth
}

// searchDepth returns the index of price, or where it would be inserted.
func searchDepth(depth DepthSide, price decimal.Decimal, side Side) int {
	if side == Bid {
		return sort.Search(len(depth), func(i int) bool {
			return depth[i].Price.LessThanOrEqual(price)
		})
	}
	return sort.Search(len(depth), func(i int) bool {
		return depth[i].Price.GreaterThanOrEqual(price)
	})
}
