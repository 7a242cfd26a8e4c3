// drainwatchd serves the drainage monitoring dashboard API: a simulated
// sensor feed drives the view model, and an HTTP server exposes snapshots,
// queries, and alert actions to the front end.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drainwatch.sh/internal/classifier"
	"drainwatch.sh/internal/config"
	"drainwatch.sh/internal/feed"
	"drainwatch.sh/internal/server"
	"drainwatch.sh/viewmodel"
)

func main() {
	cfg := config.FromEnv()

	vm := viewmodel.New(viewmodel.Options{
		Thresholds: classifier.Thresholds{
			WarningLevel:         cfg.WarningLevel,
			CriticalLevel:        cfg.CriticalLevel,
			OfflineIfSignalBelow: cfg.OfflineIfSignalBelow,
			FreshnessWindow:      cfg.FreshnessWindow,
		},
		HistoryLimit: cfg.HistoryLimit,
		Zones:        feed.Zones,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("received shutdown signal")
		cancel()
	}()

	if cfg.FeedInterval > 0 {
		sim := feed.New(vm, cfg.FeedInterval, cfg.CriticalLevel)
		go func() {
			if err := sim.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("feed simulator stopped", "error", err)
			}
		}()
		slog.Info("feed simulator started", "interval", cfg.FeedInterval)
	}

	if cfg.RefreshInterval > 0 {
		go refreshLoop(ctx, vm, cfg.RefreshInterval)
	}

	srv := server.New(server.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
	}, vm)

	if err := srv.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// refreshLoop reclassifies stored readings periodically so sensors that went
// silent drift to offline between ingests.
func refreshLoop(ctx context.Context, vm *viewmodel.ViewModel, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vm.Refresh()
		}
	}
}
