package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/StrathCole/medianizer-go/pkg/config"
	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/metrics"
	"github.com/StrathCole/medianizer-go/pkg/pricefeed"
	"github.com/StrathCole/medianizer-go/pkg/scheduler"
	"github.com/StrathCole/medianizer-go/pkg/server/api"
	"github.com/StrathCole/medianizer-go/pkg/version"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
	once       = flag.Bool("once", false, "Run a single update cycle, print the snapshots and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("medianizer-go version %s\n", version.Version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting medianizer-go", "version", version.Version, "feeds", len(cfg.Feeds))

	feeds, err := buildFeeds(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build feeds", "error", err)
	}

	if *once {
		if err := runOnce(cfg, feeds, logger); err != nil {
			logger.Fatal("Update cycle failed", "error", err)
		}
		return
	}

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 2)
	go func() {
		errChan <- run(ctx, cfg, feeds, logger)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil {
			logger.Error("Component failed", "error", err)
			cancel()
			os.Exit(1)
		}
	}

	logger.Info("Shutdown complete")
}

// buildFeeds creates the top-level feeds and checks each tree's decimals so a
// misconfigured tree fails at startup instead of on first query.
func buildFeeds(cfg *config.Config, logger *logging.Logger) ([]pricefeed.PriceFeed, error) {
	feeds := make([]pricefeed.PriceFeed, 0, len(cfg.Feeds))
	for _, fc := range cfg.Feeds {
		feed, err := pricefeed.Create(fc, logger)
		if err != nil {
			return nil, err
		}

		decimals, err := feed.Decimals()
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", fc.Name, err)
		}

		logger.Info("Feed created", "feed", fc.Name, "type", fc.Type, "decimals", decimals, "lookback", feed.Lookback())
		feeds = append(feeds, feed)
	}
	return feeds, nil
}

func runOnce(cfg *config.Config, feeds []pricefeed.PriceFeed, logger *logging.Logger) error {
	sched, err := scheduler.New(cfg.Update.Schedule, cfg.Update.Timeout.ToDuration(), feeds, logger)
	if err != nil {
		return err
	}

	snapshots := sched.RunOnce(context.Background())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshots)
}

func run(ctx context.Context, cfg *config.Config, feeds []pricefeed.PriceFeed, logger *logging.Logger) error {
	server := api.NewServer(cfg.Server.HTTP.Addr, feeds, logger)

	var publishers []scheduler.Publisher
	var wsServer *api.WebSocketServer
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger)
		publishers = append(publishers, wsServer)

		go func() {
			if err := wsServer.Start(ctx); err != nil {
				logger.Error("WebSocket server error", "error", err)
			}
		}()
	}

	sched, err := scheduler.New(cfg.Update.Schedule, cfg.Update.Timeout.ToDuration(), feeds, logger, publishers...)
	if err != nil {
		return err
	}

	// Prime the feeds so the API has data before the first scheduled cycle.
	sched.RunOnce(ctx)

	if err := sched.Start(ctx); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sched.Stop()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown failed", "error", err)
		}
		if wsServer != nil {
			wsServer.Stop()
		}
	}()

	return server.Start()
}
