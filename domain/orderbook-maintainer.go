package domain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("scope", "orderbook-maintainer")

type MaintainerOptions struct {
	SnapshotDepth int
	// Refetch the snapshot as soon as a nonce gap is seen.
	ResyncOnGap bool
	// How long to wait for the first delta before fetching the snapshot.
	FirstUpdateWait  time.Duration
	SnapshotAttempts int
	RetryMin         time.Duration
	RetryMax         time.Duration
}

func DefaultMaintainerOptions() MaintainerOptions {
	return MaintainerOptions{
		SnapshotDepth:    0,
		ResyncOnGap:      true,
		FirstUpdateWait:  time.Second,
		SnapshotAttempts: 5,
		RetryMin:         200 * time.Millisecond,
		RetryMax:         10 * time.Second,
	}
}

// OrderbookMaintainer keeps the book of one market live. It subscribes to
// the delta stream before fetching the snapshot, so deltas published while
// the snapshot is in flight are buffered and replayed; the ones the snapshot
// already covers are dropped by nonce.
type OrderbookMaintainer struct {
	symbol    *MarketSymbol
	syncAPI   ProviderSyncAPI
	streamAPI ProviderStreamAPI
	validator IDepthUpdateValidator
	observer  BookObserver
	opts      MaintainerOptions

	orderBook *OrderBook
	bookMu    sync.RWMutex

	depthUpdateQueue deque.Deque[*OrderBookDelta]
	queueMu          sync.Mutex
	notify           chan struct{}
	resync           chan struct{}

	// owned by applyLoop
	resyncBackoff backoff.Backoff
	resyncRetry   <-chan time.Time

	subscription *Subscription[*OrderBookDelta]
	ctx          context.Context
	cancel       context.CancelFunc
	stopOnce     sync.Once
	wg           sync.WaitGroup

	OutOfSequenceErrCount atomic.Int64
}

func NewOrderBookMaintainer(
	symbol *MarketSymbol,
	stream ProviderStreamAPI,
	syncAPI ProviderSyncAPI,
	validator IDepthUpdateValidator,
	observer BookObserver,
	opts MaintainerOptions,
) *OrderbookMaintainer {
	if validator == nil {
		validator = NewDepthUpdateValidator(NoncePermissive)
	}
	if observer == nil {
		observer = NopBookObserver{}
	}
	if opts.SnapshotAttempts < 1 {
		opts.SnapshotAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &OrderbookMaintainer{
		symbol:    symbol,
		syncAPI:   syncAPI,
		streamAPI: stream,
		validator: validator,
		observer:  observer,
		opts:      opts,
		notify:    make(chan struct{}, 1),
		resync:    make(chan struct{}, 1),
		resyncBackoff: backoff.Backoff{
			Min:    opts.RetryMin,
			Max:    opts.RetryMax,
			Factor: 2,
			Jitter: true,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes, builds the book from a snapshot and starts applying
// deltas in the background. ctx bounds the startup only; the maintainer runs
// until Stop.
func (m *OrderbookMaintainer) Start(ctx context.Context) (*OrderBookSnapshot, error) {
	subscription, err := m.streamAPI.DepthDiffStream(m.symbol)
	if err != nil {
		m.Stop()
		return nil, err
	}
	m.subscription = subscription

	firstUpdate := make(chan struct{})
	m.wg.Add(1)
	go m.readStream(subscription, firstUpdate)

	select {
	case <-firstUpdate:
	case <-time.After(m.opts.FirstUpdateWait):
		logger.Debugf("no delta for %s within %s, fetching snapshot anyway", m.symbol, m.opts.FirstUpdateWait)
	case <-ctx.Done():
		m.Stop()
		return nil, ctx.Err()
	}

	snapshot, err := m.fetchSnapshot(ctx)
	if err != nil {
		m.Stop()
		return nil, err
	}

	m.bookMu.Lock()
	m.orderBook = NewOrderBook(snapshot, m.validator)
	m.bookMu.Unlock()

	logger.Debugf("order book %s created at nonce %d", m.symbol, snapshot.Nonce)

	m.wg.Add(1)
	go m.applyLoop()

	// replay whatever was buffered while the snapshot was in flight
	m.signal(m.notify)

	return snapshot, nil
}

func (m *OrderbookMaintainer) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		if m.subscription != nil && m.subscription.Unsubscribe != nil {
			m.subscription.Unsubscribe()
		}
	})
	m.wg.Wait()
}

func (m *OrderbookMaintainer) Symbol() *MarketSymbol {
	return m.symbol
}

// MarkStale flags the book and asks for a fresh snapshot.
func (m *OrderbookMaintainer) MarkStale() {
	m.bookMu.Lock()
	if m.orderBook != nil {
		m.orderBook.MarkStale()
	}
	m.bookMu.Unlock()

	m.signal(m.resync)
}

func (m *OrderbookMaintainer) IsStale() bool {
	m.bookMu.RLock()
	defer m.bookMu.RUnlock()

	return m.orderBook == nil || m.orderBook.IsStale()
}

func (m *OrderbookMaintainer) LastNonce() int64 {
	m.bookMu.RLock()
	defer m.bookMu.RUnlock()

	if m.orderBook == nil {
		return 0
	}
	return m.orderBook.LastNonce
}

func (m *OrderbookMaintainer) TakeSnapshot(limit int) (*OrderBookSnapshot, error) {
	m.bookMu.RLock()
	defer m.bookMu.RUnlock()

	if m.orderBook == nil {
		return nil, ErrOrderBookNotFound
	}
	return m.orderBook.TakeSnapshot(limit), nil
}

func (m *OrderbookMaintainer) BestBid() (PriceLevel, bool) {
	m.bookMu.RLock()
	defer m.bookMu.RUnlock()

	if m.orderBook == nil {
		return PriceLevel{}, false
	}
	return m.orderBook.BestBid()
}

func (m *OrderbookMaintainer) BestAsk() (PriceLevel, bool) {
	m.bookMu.RLock()
	defer m.bookMu.RUnlock()

	if m.orderBook == nil {
		return PriceLevel{}, false
	}
	return m.orderBook.BestAsk()
}

func (m *OrderbookMaintainer) readStream(subscription *Subscription[*OrderBookDelta], firstUpdate chan struct{}) {
	defer m.wg.Done()
	first := true

	for {
		select {
		case <-m.ctx.Done():
			return
		case delta, ok := <-subscription.Stream:
			if !ok {
				logger.Warnf("delta stream for %s closed", m.symbol)
				m.MarkStale()
				return
			}

			m.queueMu.Lock()
			m.depthUpdateQueue.PushBack(delta)
			m.queueMu.Unlock()

			if first {
				close(firstUpdate)
				first = false
			}
			m.signal(m.notify)
		}
	}
}

func (m *OrderbookMaintainer) applyLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.resync:
			m.resyncBook()
		case <-m.resyncRetry:
			m.resyncBook()
		case <-m.notify:
			m.drainQueue()
		}
	}
}

func (m *OrderbookMaintainer) drainQueue() {
	for {
		m.queueMu.Lock()
		if m.depthUpdateQueue.Len() == 0 {
			m.queueMu.Unlock()
			return
		}
		delta := m.depthUpdateQueue.PopFront()
		m.queueMu.Unlock()

		m.bookMu.Lock()
		result := m.orderBook.ApplyDelta(delta)
		m.bookMu.Unlock()

		m.observer.DeltaApplied(m.symbol, result)

		if result == GapDetected {
			count := m.OutOfSequenceErrCount.Add(1)
			logger.Warnf("nonce gap on %s at %d, gaps so far: %d", m.symbol, delta.Nonce, count)

			if m.opts.ResyncOnGap {
				m.resyncBook()
			}
		}

		if m.ctx.Err() != nil {
			return
		}
	}
}

// resyncBook replaces the book with a fresh snapshot. A failed resync is
// retried by applyLoop with a growing delay until one succeeds.
func (m *OrderbookMaintainer) resyncBook() {
	m.resyncRetry = nil

	snapshot, err := m.fetchSnapshot(m.ctx)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		wait := m.resyncBackoff.Duration()
		logger.Errorf("resync of %s failed, next attempt in %s: %s", m.symbol, wait, err)
		m.resyncRetry = time.After(wait)
		return
	}
	m.resyncBackoff.Reset()

	m.bookMu.Lock()
	m.orderBook.ApplySnapshot(snapshot)
	m.bookMu.Unlock()

	m.observer.Resynced(m.symbol)
	logger.Infof("order book %s resynced at nonce %d", m.symbol, snapshot.Nonce)
}

func (m *OrderbookMaintainer) fetchSnapshot(ctx context.Context) (*OrderBookSnapshot, error) {
	b := &backoff.Backoff{
		Min:    m.opts.RetryMin,
		Max:    m.opts.RetryMax,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 1; ; attempt++ {
		snapshot, err := m.syncAPI.OrderBookSnapshot(ctx, m.symbol, m.opts.SnapshotDepth)
		if err == nil && snapshot.Symbol != nil && !snapshot.Symbol.Equal(m.symbol) {
			err = fmt.Errorf("snapshot of %s returned for %s", snapshot.Symbol, m.symbol)
		}
		if err == nil {
			return snapshot, nil
		}
		if attempt >= m.opts.SnapshotAttempts {
			return nil, err
		}

		wait := b.Duration()
		logger.Warnf("snapshot of %s failed (attempt %d), retrying in %s: %s", m.symbol, attempt, wait, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (m *OrderbookMaintainer) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
