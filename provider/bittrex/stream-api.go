package bittrex

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/tidwall/gjson"
)

const (
	subscribeDeltasMethod = "SubscribeToExchangeDeltas"
	queryStateMethod      = "QueryExchangeState"
)

type hubConn interface {
	Invoke(ctx context.Context, method string, args ...interface{}) (gjson.Result, error)
	Messages() <-chan []byte
}

type ExchangeDeltaEntry struct {
	Type     int             `json:"TY"`
	Quantity decimal.Decimal `json:"Q"`
	Rate     decimal.Decimal `json:"R"`
}

// ExchangeDeltas is the pushed "uE" payload.
type ExchangeDeltas struct {
	Nonce      int64                `json:"N"`
	MarketName string               `json:"M"`
	Buys       []ExchangeDeltaEntry `json:"Z"`
	Sells      []ExchangeDeltaEntry `json:"S"`
}

type ExchangeStateEntry struct {
	Quantity decimal.Decimal `json:"Q"`
	Rate     decimal.Decimal `json:"R"`
}

// ExchangeState is the QueryExchangeState result.
type ExchangeState struct {
	Nonce      int64                `json:"N"`
	MarketName string               `json:"M"`
	Buys       []ExchangeStateEntry `json:"Z"`
	Sells      []ExchangeStateEntry `json:"S"`
}

type subscriptionEntry struct {
	symbol      *domain.MarketSymbol
	subscribers map[int]chan *domain.OrderBookDelta

	// closed once the hub answered the subscribe call, err is its outcome
	ready chan struct{}
	err   error
}

// BittrexStreamAPI serves nonce-stamped snapshots and per-market delta
// streams over the hub connection.
type BittrexStreamAPI struct {
	conn hubConn

	mu            sync.Mutex
	subscriptions map[string]*subscriptionEntry
	nextSubID     int

	done     chan struct{}
	stopOnce sync.Once
}

func NewBittrexStreamAPI(conn hubConn) *BittrexStreamAPI {
	api := &BittrexStreamAPI{
		conn:          conn,
		subscriptions: make(map[string]*subscriptionEntry),
		done:          make(chan struct{}),
	}

	go api.route()
	return api
}

func (bs *BittrexStreamAPI) Close() {
	bs.stopOnce.Do(func() { close(bs.done) })
}

// DepthDiffStream subscribes to the market deltas. The hub subscription is
// shared by every subscriber of the market; concurrent first subscribers
// wait for the one hub call and share its outcome.
func (bs *BittrexStreamAPI) DepthDiffStream(symbol *domain.MarketSymbol) (*domain.Subscription[*domain.OrderBookDelta], error) {
	market := symbol.ExchangeName()

	bs.mu.Lock()
	entry, ok := bs.subscriptions[market]
	if !ok {
		entry = &subscriptionEntry{
			symbol:      symbol,
			subscribers: make(map[int]chan *domain.OrderBookDelta),
			ready:       make(chan struct{}),
		}
		bs.subscriptions[market] = entry
	}
	bs.mu.Unlock()

	if !ok {
		logger.Debugf("subscribing to %s deltas", market)
		entry.err = bs.subscribe(context.Background(), market)
		if entry.err != nil {
			bs.mu.Lock()
			if bs.subscriptions[market] == entry {
				delete(bs.subscriptions, market)
			}
			bs.mu.Unlock()
		}
		close(entry.ready)
	}

	<-entry.ready
	if entry.err != nil {
		return nil, entry.err
	}

	ch := make(chan *domain.OrderBookDelta, messageBuffer)

	bs.mu.Lock()
	if bs.subscriptions[market] != entry {
		// the last subscriber left meanwhile, start over
		bs.mu.Unlock()
		return bs.DepthDiffStream(symbol)
	}
	bs.nextSubID++
	id := bs.nextSubID
	entry.subscribers[id] = ch
	bs.mu.Unlock()

	return &domain.Subscription[*domain.OrderBookDelta]{
		Stream: ch,
		Unsubscribe: func() {
			bs.unsubscribe(market, id)
		},
		Topic: market,
	}, nil
}

// Resubscribe restores the hub subscription of every tracked market. It is
// the reconnect hook of the stream client.
func (bs *BittrexStreamAPI) Resubscribe() error {
	bs.mu.Lock()
	markets := make([]string, 0, len(bs.subscriptions))
	for market := range bs.subscriptions {
		markets = append(markets, market)
	}
	bs.mu.Unlock()

	for _, market := range markets {
		if err := bs.subscribe(context.Background(), market); err != nil {
			return err
		}
	}
	return nil
}

func (bs *BittrexStreamAPI) subscribe(ctx context.Context, market string) error {
	result, err := bs.conn.Invoke(ctx, subscribeDeltasMethod, market)
	if err != nil {
		return domain.NewTransportError(subscribeDeltasMethod, err)
	}
	if result.Exists() && result.Type == gjson.False {
		return domain.NewTransportError(subscribeDeltasMethod, errors.Errorf("subscription to %s refused", market))
	}
	return nil
}

// The hub has no unsubscribe call: the last subscriber only stops routing.
func (bs *BittrexStreamAPI) unsubscribe(market string, id int) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	entry, ok := bs.subscriptions[market]
	if !ok {
		return
	}
	if ch, ok := entry.subscribers[id]; ok {
		close(ch)
		delete(entry.subscribers, id)
	}
	if len(entry.subscribers) == 0 {
		delete(bs.subscriptions, market)
	}
}

// OrderBookSnapshot queries the full exchange state; its nonce is the
// baseline for the delta stream. limit <= 0 keeps every level.
func (bs *BittrexStreamAPI) OrderBookSnapshot(ctx context.Context, symbol *domain.MarketSymbol, limit int) (*domain.OrderBookSnapshot, error) {
	market := symbol.ExchangeName()

	result, err := bs.conn.Invoke(ctx, queryStateMethod, market)
	if err != nil {
		return nil, domain.NewTransportError(queryStateMethod, err)
	}

	payload, err := decodePayload(result.String())
	if err != nil {
		return nil, domain.NewTransportError(queryStateMethod, err)
	}

	var state ExchangeState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, domain.NewTransportError(queryStateMethod, errors.Wrap(err, "decode exchange state"))
	}

	book := domain.NewOrderBook(&domain.OrderBookSnapshot{
		Symbol: symbol,
		Nonce:  state.Nonce,
		Bids:   stateDepth(state.Buys),
		Asks:   stateDepth(state.Sells),
	}, nil)

	snapshot := book.TakeSnapshot(limit)
	snapshot.Source = domain.OrderBookSource_Provider
	return snapshot, nil
}

func (bs *BittrexStreamAPI) route() {
	for {
		select {
		case <-bs.done:
			return
		case payload, ok := <-bs.conn.Messages():
			if !ok {
				bs.closeAll()
				return
			}

			var deltas ExchangeDeltas
			if err := json.Unmarshal(payload, &deltas); err != nil {
				logger.Warnf("dropping undecodable exchange deltas: %s", err)
				continue
			}
			bs.publish(&deltas)
		}
	}
}

func (bs *BittrexStreamAPI) publish(deltas *ExchangeDeltas) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	entry, ok := bs.subscriptions[deltas.MarketName]
	if !ok {
		return
	}

	delta, err := toOrderBookDelta(entry.symbol, deltas)
	if err != nil {
		logger.Warnf("dropping %s delta %d: %s", deltas.MarketName, deltas.Nonce, err)
		return
	}

	for _, ch := range entry.subscribers {
		select {
		case ch <- delta:
		default:
			// a subscriber this far behind will see the nonce gap and resync
			logger.Warnf("subscriber of %s is full, delta %d dropped", deltas.MarketName, deltas.Nonce)
		}
	}
}

func (bs *BittrexStreamAPI) closeAll() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	for market, entry := range bs.subscriptions {
		for id, ch := range entry.subscribers {
			close(ch)
			delete(entry.subscribers, id)
		}
		delete(bs.subscriptions, market)
	}
}

func toOrderBookDelta(symbol *domain.MarketSymbol, deltas *ExchangeDeltas) (*domain.OrderBookDelta, error) {
	changes := make([]domain.LevelChange, 0, len(deltas.Buys)+len(deltas.Sells))

	for _, side := range []struct {
		side    domain.Side
		entries []ExchangeDeltaEntry
	}{
		{domain.Bid, deltas.Buys},
		{domain.Ask, deltas.Sells},
	} {
		for _, e := range side.entries {
			kind := domain.ChangeKind(e.Type)
			if kind != domain.ChangeNew && kind != domain.ChangeRemove && kind != domain.ChangeUpdate {
				return nil, errors.Errorf("unknown change type %d", e.Type)
			}

			changes = append(changes, domain.LevelChange{
				Side:     side.side,
				Kind:     kind,
				Price:    e.Rate,
				Quantity: e.Quantity,
			})
		}
	}

	return &domain.OrderBookDelta{
		Symbol:  symbol,
		Nonce:   deltas.Nonce,
		Changes: changes,
	}, nil
}

func stateDepth(entries []ExchangeStateEntry) domain.DepthSide {
	depth := make(domain.DepthSide, 0, len(entries))
	for _, e := range entries {
		depth = append(depth, domain.PriceLevel{Price: e.Rate, Quantity: e.Quantity})
	}
	return depth
}
