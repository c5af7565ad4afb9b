package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-bittrex-bridge/config"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/spooky-finn/go-bittrex-bridge/helpers"
	"github.com/spooky-finn/go-bittrex-bridge/infrastructure/logging"
	promclient "github.com/spooky-finn/go-bittrex-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-bittrex-bridge/provider"
	"github.com/spooky-finn/go-bittrex-bridge/provider/bittrex"
	"github.com/spooky-finn/go-bittrex-bridge/rpc"
	"github.com/spooky-finn/go-bittrex-bridge/storage"
	"github.com/spooky-finn/go-bittrex-bridge/usecase"
	"golang.org/x/sync/errgroup"
)

var logger = logrus.WithField("scope", "main")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bridge stopped: %s\n", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so that its deferred closers always run.
func run(args []string) error {
	flags := flag.NewFlagSet("bridge", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to the YAML config file")
	backfillMarket := flags.String("backfill", "", "backfill synthetic trades of the market (base_quote) and exit")
	since := flags.String("since", "", `backfill start: RFC3339 time, "resume" for the newest stored trade, empty for one recent page`)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	closer, err := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()
	if config.DebugMode {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connManager := provider.NewConnectionManager(bittrex.Options{
		APIKey:    cfg.Bittrex.APIKey,
		APISecret: cfg.Bittrex.APISecret,
		BaseURL:   cfg.Bittrex.BaseURL,
		BaseURL2:  cfg.Bittrex.BaseURL2,
		Timeout:   cfg.Bittrex.Timeout,
	}, cfg.Bittrex.WSURL)
	metrics := promclient.NewMetrics()

	if *backfillMarket != "" {
		err = runBackfill(ctx, cfg, connManager.BittrexSyncAPI, metrics, *backfillMarket, *since)
	} else {
		err = serve(ctx, cfg, connManager, metrics)
	}
	if err != nil {
		logger.Errorf("bridge stopped: %s", err)
	}
	return err
}

func serve(ctx context.Context, cfg *config.Config, connManager *provider.ConnectionManager, metrics *promclient.Metrics) error {
	markets, err := helpers.ParseMarkets(cfg.OrderBook.Markets)
	if err != nil {
		return err
	}
	policy, err := cfg.NoncePolicy()
	if err != nil {
		return err
	}

	marketUseCase := usecase.NewMarketUseCase(connManager.BittrexSyncAPI)
	if cfg.OrderBook.ValidateMarkets {
		allowed, err := helpers.ParseMarkets(cfg.GRPC.AllowedMarkets)
		if err != nil {
			return err
		}
		if err := marketUseCase.ValidateMarkets(ctx, append(markets, allowed...)); err != nil {
			return err
		}
	}

	if err := connManager.Init(); err != nil {
		return err
	}

	maintainerOpts := cfg.MaintainerOptions()
	newMaintainer := func(symbol *domain.MarketSymbol) *domain.OrderbookMaintainer {
		return domain.NewOrderBookMaintainer(
			symbol,
			connManager.StreamAPI(),
			connManager.SyncAPI(),
			domain.NewDepthUpdateValidator(policy),
			metrics,
			maintainerOpts,
		)
	}

	g, gctx := errgroup.WithContext(ctx)

	snapshots := usecase.NewOrderBookSnapshotUseCase(gctx, connManager.SyncAPI(), newMaintainer, metrics)
	validation := &rpc.ValidationServiceConfig{AvailableMarkets: cfg.GRPC.AllowedMarkets}
	server := rpc.NewServer(
		snapshots,
		marketUseCase,
		usecase.NewCandlesUseCase(connManager.BittrexSyncAPI),
		validation,
	)
	grpcServer := rpc.NewGRPCServer(server)

	if cfg.GRPC.Trading {
		rpc.RegisterTradingServiceServer(grpcServer, rpc.NewTradingServer(
			usecase.NewOrdersUseCase(connManager.BittrexSyncAPI),
			usecase.NewDepositUseCase(connManager.BittrexSyncAPI, domain.DefaultCoinTypeCatalog()),
			usecase.NewAccountUseCase(connManager.BittrexSyncAPI),
			validation,
		))
		logger.Info("trading service enabled")
	}

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		logger.Infof("grpc server listening at %s", lis.Addr())
		return grpcServer.Serve(lis)
	})

	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return promclient.StartPromClientServer(gctx, cfg.Metrics.Addr, metrics)
		})
	}

	for _, symbol := range markets {
		symbol := symbol
		g.Go(func() error {
			if err := snapshots.Track(gctx, symbol); err != nil {
				// served from the exchange until a request retries tracking
				logger.Errorf("failed to track %s: %s", symbol, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			grpcServer.Stop()
		}

		snapshots.StopAll()
		connManager.Close()
		return nil
	})

	return g.Wait()
}

func runBackfill(
	ctx context.Context,
	cfg *config.Config,
	syncAPI *bittrex.BittrexSyncAPI,
	metrics *promclient.Metrics,
	market, since string,
) error {
	symbol, err := domain.NewMarketSymbolFromString(market)
	if err != nil {
		return err
	}

	store, err := storage.NewTradeStore(cfg.Backfill.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	var startDate *time.Time
	switch since {
	case "":
	case "resume":
		if startDate, err = store.LatestTimestamp(ctx, symbol); err != nil {
			return err
		}
		if startDate == nil {
			return fmt.Errorf("nothing stored for %s, pass a start time", symbol)
		}
	default:
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return fmt.Errorf("since: %w", err)
		}
		startDate = &t
	}

	backfill := usecase.NewTradeBackfillUseCase(syncAPI, cfg.Backfill.PageDelay, metrics)
	result, err := backfill.Backfill(ctx, symbol, startDate, store.Consumer(ctx, symbol))
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"run":    result.RunID.String(),
		"market": symbol.String(),
		"reason": result.Reason,
		"pages":  result.Pages,
		"trades": result.Trades,
	}).Info("backfill finished")
	return nil
}
