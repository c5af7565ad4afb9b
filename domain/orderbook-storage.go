package domain

import (
	"errors"
	"sync"
)

var ErrOrderBookNotFound = errors.New("order book not found")

// OrderBookStorage tracks one maintained book per market.
type OrderBookStorage struct {
	mu      sync.RWMutex
	storage map[string]*OrderbookMaintainer
}

func NewOrderBookStorage() *OrderBookStorage {
	return &OrderBookStorage{
		storage: make(map[string]*OrderbookMaintainer),
	}
}

// Add registers the maintainer unless the market is already tracked.
// It reports whether the maintainer was stored.
func (o *OrderBookStorage) Add(symbol *MarketSymbol, maintainer *OrderbookMaintainer) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.storage[symbol.String()]; ok {
		return false
	}

	o.storage[symbol.String()] = maintainer
	return true
}

func (o *OrderBookStorage) Get(symbol *MarketSymbol) (*OrderbookMaintainer, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	maintainer, ok := o.storage[symbol.String()]
	if !ok {
		return nil, ErrOrderBookNotFound
	}

	return maintainer, nil
}

// Remove forgets the market and returns its maintainer so the caller can stop it.
func (o *OrderBookStorage) Remove(symbol *MarketSymbol) (*OrderbookMaintainer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	maintainer, ok := o.storage[symbol.String()]
	if !ok {
		return nil, ErrOrderBookNotFound
	}

	delete(o.storage, symbol.String())
	return maintainer, nil
}

func (o *OrderBookStorage) OrderBookCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return len(o.storage)
}

func (o *OrderBookStorage) All() []*OrderbookMaintainer {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]*OrderbookMaintainer, 0, len(o.storage))
	for _, m := range o.storage {
		out = append(out, m)
	}
	return out
}
