package promclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

var logger = logrus.WithField("scope", "prometheus")

// Metrics implements the observers of the book maintainers, the snapshot
// use case and the trade backfill.
type Metrics struct {
	registry *prometheus.Registry

	OpenOrderBooks prometheus.Gauge
	DeltaResults   *prometheus.CounterVec
	Resyncs        *prometheus.CounterVec
	BackfillPages  *prometheus.CounterVec
	BackfillTrades *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OpenOrderBooks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bittrex_open_order_book",
			Help: "bittrex order books maintained locally",
		}),
		DeltaResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bittrex_order_book_deltas_total",
			Help: "order book deltas by market and outcome",
		}, []string{"market", "result"}),
		Resyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bittrex_order_book_resyncs_total",
			Help: "order book snapshots refetched after a nonce gap",
		}, []string{"market"}),
		BackfillPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bittrex_backfill_pages_total",
			Help: "trade backfill pages delivered to consumers",
		}, []string{"market"}),
		BackfillTrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bittrex_backfill_trades_total",
			Help: "synthetic trades delivered by the backfill",
		}, []string{"market"}),
	}

	m.registry.MustRegister(
		m.OpenOrderBooks,
		m.DeltaResults,
		m.Resyncs,
		m.BackfillPages,
		m.BackfillTrades,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SetOpenOrderBooks(count int) {
	m.OpenOrderBooks.Set(float64(count))
}

func (m *Metrics) DeltaApplied(symbol *domain.MarketSymbol, result domain.DeltaResult) {
	m.DeltaResults.WithLabelValues(symbol.String(), result.String()).Inc()
}

func (m *Metrics) Resynced(symbol *domain.MarketSymbol) {
	m.Resyncs.WithLabelValues(symbol.String()).Inc()
}

func (m *Metrics) PageDelivered(symbol *domain.MarketSymbol, trades int) {
	m.BackfillPages.WithLabelValues(symbol.String()).Inc()
	m.BackfillTrades.WithLabelValues(symbol.String()).Add(float64(trades))
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartPromClientServer serves /metrics on addr until ctx is done.
func StartPromClientServer(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("prometheus server listening at %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
