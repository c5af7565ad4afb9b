package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(price, qty string) PriceLevel {
	return PriceLevel{Price: decimal.RequireFromString(price), Quantity: decimal.RequireFromString(qty)}
}

func change(side Side, kind ChangeKind, price, qty string) LevelChange {
	return LevelChange{
		Side:     side,
		Kind:     kind,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func newTestBook(t *testing.T, policy NoncePolicy) *OrderBook {
	symbol, err := NewMarketSymbol("LTC", "BTC")
	require.NoError(t, err)

	snapshot := &OrderBookSnapshot{
		Symbol: symbol,
		Nonce:  100,
		Bids:   DepthSide{level("9900", "2"), level("10000", "1")},
		Asks:   DepthSide{level("10200", "2.5"), level("10.300", "1.5")},
	}

	return NewOrderBook(snapshot, NewDepthUpdateValidator(policy))
}

func assertSorted(t *testing.T, ob *OrderBook) {
	t.Helper()

	for i := 1; i < len(ob.Bids); i++ {
		assert.True(t, ob.Bids[i-1].Price.GreaterThan(ob.Bids[i].Price), "bids must be strictly descending")
	}
	for i := 1; i < len(ob.Asks); i++ {
		assert.True(t, ob.Asks[i-1].Price.LessThan(ob.Asks[i].Price), "asks must be strictly ascending")
	}
	for _, l := range append(append(DepthSide{}, ob.Bids...), ob.Asks...) {
		assert.True(t, l.Quantity.IsPositive(), "no level may carry a non positive quantity")
	}
}

func TestNewOrderBook(t *testing.T) {
	ob := newTestBook(t, NoncePermissive)

	assert.Equal(t, int64(100), ob.LastNonce, "LastNonce should match the snapshot")
	assert.False(t, ob.IsStale(), "fresh book is not stale")
	assert.Len(t, ob.Bids, 2)
	assert.Len(t, ob.Asks, 2)
	assertSorted(t, ob)

	bid, ok := ob.BestBid()
	assert.True(t, ok)
	assert.True(t, bid.Price.Equal(decimal.NewFromInt(10000)), "best bid is the highest price")

	ask, ok := ob.BestAsk()
	assert.True(t, ok)
	assert.True(t, ask.Price.Equal(decimal.RequireFromString("10.3")), "best ask is the lowest price")
}

func TestOrderBook_ApplySnapshotDropsEmptyAndDuplicateLevels(t *testing.T) {
	ob := newTestBook(t, NoncePermissive)
	ob.MarkStale()

	ob.ApplySnapshot(&OrderBookSnapshot{
		Symbol: ob.Symbol,
		Nonce:  500,
		Bids:   DepthSide{level("5", "1"), level("5.0", "3"), level("4", "0")},
		Asks:   DepthSide{level("6", "-1")},
	})

	assert.False(t, ob.IsStale(), "snapshot clears the stale flag")
	assert.Equal(t, int64(500), ob.LastNonce)
	require.Len(t, ob.Bids, 1)
	assert.True(t, ob.Bids[0].Quantity.Equal(decimal.NewFromInt(3)), "last duplicate wins")
	assert.Empty(t, ob.Asks)

	_, ok := ob.BestAsk()
	assert.False(t, ok, "empty side has no best level")
}

func TestOrderBook_ApplyDelta(t *testing.T) {
	ob := newTestBook(t, NoncePermissive)

	delta := &OrderBookDelta{
		Nonce: 101,
		Changes: []LevelChange{
			change(Bid, ChangeNew, "9800", "3"),
			change(Ask, ChangeUpdate, "10.3", "2"),
			change(Ask, ChangeRemove, "10200", "1"),
		},
	}

	result := ob.ApplyDelta(delta)

	assert.Equal(t, Applied, result)
	assert.Equal(t, int64(101), ob.LastNonce, "LastNonce should advance")
	assert.Equal(t, DepthSide{level("10000", "1"), level("9900", "2"), level("9800", "3")}, ob.Bids)
	require.Len(t, ob.Asks, 1, "remove deletes the level regardless of quantity")
	assert.True(t, ob.Asks[0].Quantity.Equal(decimal.NewFromInt(2)))
	assertSorted(t, ob)
}

func TestOrderBook_ApplyDeltaZeroQuantityRemoves(t *testing.T) {
	ob := newTestBook(t, NoncePermissive)

	result := ob.ApplyDelta(&OrderBookDelta{
		Nonce:   101,
		Changes: []LevelChange{change(Bid, ChangeUpdate, "10000", "0")},
	})

	assert.Equal(t, Applied, result)
	require.Len(t, ob.Bids, 1)
	assert.True(t, ob.Bids[0].Price.Equal(decimal.NewFromInt(9900)))
}

func TestOrderBook_ApplyDeltaIsIdempotent(t *testing.T) {
	ob := newTestBook(t, NoncePermissive)

	delta := &OrderBookDelta{
		Nonce:   101,
		Changes: []LevelChange{change(Bid, ChangeNew, "9950", "4")},
	}

	assert.Equal(t, Applied, ob.ApplyDelta(delta))
	afterFirst := ob.TakeSnapshot(0)

	assert.Equal(t, StaleIgnored, ob.ApplyDelta(delta), "replayed delta is ignored")
	assert.Equal(t, afterFirst, ob.TakeSnapshot(0), "replay must not mutate the book")
	assert.False(t, ob.IsStale())
}

func TestOrderBook_ApplyDeltaGap(t *testing.T) {
	tests := []struct {
		name          string
		policy        NoncePolicy
		expectedNonce int64
		expectedBids  int
	}{
		{"Permissive", NoncePermissive, 105, 3},
		{"Strict", NonceStrict, 100, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := newTestBook(t, tt.policy)

			result := ob.ApplyDelta(&OrderBookDelta{
				Nonce:   105,
				Changes: []LevelChange{change(Bid, ChangeNew, "9000", "1")},
			})

			assert.Equal(t, GapDetected, result)
			assert.True(t, ob.IsStale(), "gap marks the book stale")
			assert.Equal(t, tt.expectedNonce, ob.LastNonce)
			assert.Len(t, ob.Bids, tt.expectedBids)
			assertSorted(t, ob)
		})
	}
}

type rejectingValidator struct {
	*DepthUpdateValidator
}

func (rejectingValidator) IsValidUpd(*OrderBookDelta, int64) error {
	return errors.New("corrupt delta")
}

func TestOrderBook_ApplyDeltaRejectedByValidator(t *testing.T) {
	ob := newTestBook(t, NoncePermissive)
	ob.validator = rejectingValidator{NewDepthUpdateValidator(NoncePermissive)}

	result := ob.ApplyDelta(&OrderBookDelta{
		Nonce:   101,
		Changes: []LevelChange{change(Bid, ChangeNew, "9000", "1")},
	})

	assert.Equal(t, GapDetected, result)
	assert.True(t, ob.IsStale())
	assert.Equal(t, int64(100), ob.LastNonce, "a rejected delta is never applied")
	assert.Len(t, ob.Bids, 2)
}

func TestOrderBook_DeterministicReplay(t *testing.T) {
	deltas := []*OrderBookDelta{
		{Nonce: 101, Changes: []LevelChange{change(Bid, ChangeNew, "9950", "1"), change(Ask, ChangeNew, "10.1", "7")}},
		{Nonce: 102, Changes: []LevelChange{change(Bid, ChangeUpdate, "9950", "2"), change(Ask, ChangeRemove, "10.3", "0")}},
		{Nonce: 103, Changes: []LevelChange{change(Bid, ChangeRemove, "10000", "0"), change(Ask, ChangeNew, "11", "1")}},
	}

	a := newTestBook(t, NoncePermissive)
	b := newTestBook(t, NoncePermissive)

	for _, d := range deltas {
		a.ApplyDelta(d)
	}
	// b sees every delta twice
	for _, d := range deltas {
		b.ApplyDelta(d)
		b.ApplyDelta(d)
	}

	assert.Equal(t, a.TakeSnapshot(0), b.TakeSnapshot(0))
	assertSorted(t, a)
}

func TestOrderBook_TakeSnapshot(t *testing.T) {
	ob := newTestBook(t, NoncePermissive)

	result := ob.TakeSnapshot(1)

	assert.Equal(t, OrderBookSource_LocalOrderBook, result.Source)
	assert.Equal(t, ob.LastNonce, result.Nonce, "Nonce should match")
	assert.Len(t, result.Bids, 1, "Bids should be limited to 1")
	assert.Len(t, result.Asks, 1, "Asks should be limited to 1")

	result.Bids[0].Quantity = decimal.NewFromInt(99)
	assert.True(t, ob.Bids[0].Quantity.Equal(decimal.NewFromInt(1)), "snapshot must be a copy")

	full := ob.TakeSnapshot(10)
	assert.Len(t, full.Bids, 2)
	assert.Len(t, full.Asks, 2)
}
