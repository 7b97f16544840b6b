// Package main runs the expected win rate REST API server. With -profile it
// also watches a matchup profile and pushes every recalculation to
// WebSocket clients.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/deck-winrate/internal/api"
	"github.com/ramonehamilton/deck-winrate/internal/config"
	"github.com/ramonehamilton/deck-winrate/internal/metrics"
	"github.com/ramonehamilton/deck-winrate/internal/profile"
	"github.com/ramonehamilton/deck-winrate/internal/version"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

var (
	configPath  = flag.String("config", "", "Config file path (default: ~/.deck-winrate/config.toml)")
	port        = flag.Int("port", 0, "API server port (overrides config)")
	profilePath = flag.String("profile", "", "Matchup profile (.toml/.yaml) to watch and broadcast")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetVersion())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := cfg.NewLogger(os.Stderr)

	if err := run(cfg, logger); err != nil {
		logger.Error("API server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	timeout, err := cfg.GetRequestTimeout()
	if err != nil {
		return err
	}

	calculator := winrate.NewCalculator(cfg.CalculatorOptions())
	recorder := metrics.NewRecorder()

	server := api.NewServer(&api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		RequestTimeout: timeout,
		Chart:          cfg.ChartOptions(),
	}, api.Deps{
		Calculator: calculator,
		Metrics:    recorder,
		Logger:     logger,
	})

	var watcher *profile.Watcher
	if *profilePath != "" {
		watcher, err = profile.NewWatcher(profile.WatcherConfig{
			Path:       *profilePath,
			Calculator: calculator,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	if watcher != nil {
		observer := server.NewProfileObserver()
		g.Go(func() error {
			return watcher.Run(ctx, observer.OnUpdate)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("Deck win rate API",
		"version", version.GetVersion(),
		"url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
		"profile", *profilePath,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
