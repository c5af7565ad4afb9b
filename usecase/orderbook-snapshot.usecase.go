package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

const starting = "starting"

var logger = logrus.WithField("scope", "usecase")

type MaintainerFactory func(symbol *domain.MarketSymbol) *domain.OrderbookMaintainer

type TrackingObserver interface {
	SetOpenOrderBooks(count int)
}

type OrderBookSnapshotUseCase struct {
	syncAPI       domain.ProviderSyncAPI
	newMaintainer MaintainerFactory
	storage       *domain.OrderBookStorage
	observer      TrackingObserver

	// markets whose local book is being built
	waitingRoom sync.Map
	ctx         context.Context
}

// NewOrderBookSnapshotUseCase serves snapshots for any market. Books started
// in the background live until ctx is done or StopAll is called.
func NewOrderBookSnapshotUseCase(
	ctx context.Context,
	syncAPI domain.ProviderSyncAPI,
	newMaintainer MaintainerFactory,
	observer TrackingObserver,
) *OrderBookSnapshotUseCase {
	return &OrderBookSnapshotUseCase{
		syncAPI:       syncAPI,
		newMaintainer: newMaintainer,
		storage:       domain.NewOrderBookStorage(),
		observer:      observer,
		ctx:           ctx,
	}
}

// GetOrderBookSnapshot returns the snapshot from the local book, or from the
// exchange while the local book is missing, initializing or stale.
func (o *OrderBookSnapshotUseCase) GetOrderBookSnapshot(
	ctx context.Context, symbol *domain.MarketSymbol, limit int,
) (*domain.OrderBookSnapshot, error) {
	if _, ok := o.waitingRoom.Load(symbol.String()); ok {
		logger.Debugf("order book %s is initializing, serving the exchange snapshot", symbol)
		return o.providerSnapshot(ctx, symbol, limit)
	}

	maintainer, err := o.storage.Get(symbol)
	if err != nil {
		go func() {
			if err := o.Track(o.ctx, symbol); err != nil {
				logger.Errorf("tracking %s failed: %s", symbol, err)
			}
		}()
		return o.providerSnapshot(ctx, symbol, limit)
	}

	if maintainer.IsStale() {
		logger.Debugf("order book %s is stale, serving the exchange snapshot", symbol)
		return o.providerSnapshot(ctx, symbol, limit)
	}

	return maintainer.TakeSnapshot(limit)
}

// LocalSnapshot serves only the maintained book: ErrOrderBookNotFound when
// the market is not tracked, ErrStaleBook while it waits for a resync.
func (o *OrderBookSnapshotUseCase) LocalSnapshot(symbol *domain.MarketSymbol, limit int) (*domain.OrderBookSnapshot, error) {
	maintainer, err := o.storage.Get(symbol)
	if err != nil {
		return nil, err
	}
	if maintainer.IsStale() {
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrStaleBook)
	}

	return maintainer.TakeSnapshot(limit)
}

// Track builds and registers a maintained book for the market. Tracking an
// already tracked or initializing market is a no-op.
func (o *OrderBookSnapshotUseCase) Track(ctx context.Context, symbol *domain.MarketSymbol) error {
	if _, err := o.storage.Get(symbol); err == nil {
		return nil
	}
	if _, loaded := o.waitingRoom.LoadOrStore(symbol.String(), starting); loaded {
		return nil
	}
	defer o.waitingRoom.Delete(symbol.String())

	maintainer := o.newMaintainer(symbol)
	if _, err := maintainer.Start(ctx); err != nil {
		return err
	}

	if !o.storage.Add(symbol, maintainer) {
		maintainer.Stop()
		return nil
	}
	o.reportTracked()

	logger.Infof("order book %s is added to the runtime storage", symbol)
	return nil
}

func (o *OrderBookSnapshotUseCase) Untrack(symbol *domain.MarketSymbol) error {
	maintainer, err := o.storage.Remove(symbol)
	if err != nil {
		return err
	}

	maintainer.Stop()
	o.reportTracked()
	return nil
}

func (o *OrderBookSnapshotUseCase) StopAll() {
	for _, m := range o.storage.All() {
		_ = o.Untrack(m.Symbol())
	}
}

func (o *OrderBookSnapshotUseCase) TrackedCount() int {
	return o.storage.OrderBookCount()
}

func (o *OrderBookSnapshotUseCase) providerSnapshot(
	ctx context.Context, symbol *domain.MarketSymbol, limit int,
) (*domain.OrderBookSnapshot, error) {
	snapshot, err := o.syncAPI.OrderBookSnapshot(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}

	snapshot.Source = domain.OrderBookSource_Provider
	return snapshot, nil
}

func (o *OrderBookSnapshotUseCase) reportTracked() {
	if o.observer != nil {
		o.observer.SetOpenOrderBooks(o.storage.OrderBookCount())
	}
}
