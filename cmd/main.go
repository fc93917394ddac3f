package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/fetch"
	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/store"
	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/transport"
	"github.com/iahsanshah/ZK-machine-Integration/internal/app"
	"github.com/iahsanshah/ZK-machine-Integration/internal/config"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/sequence"
	"github.com/iahsanshah/ZK-machine-Integration/pkg/logger"
	"github.com/iahsanshah/ZK-machine-Integration/pkg/metrics"
)

// Metrics HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	probeTimeout      = 5 * time.Second
	hoursPerDay       = 24
)

func main() {
	rederive := flag.Bool("rederive", false, "rewrite persisted log types from punch order, then exit")
	purge := flag.Bool("purge", false, "delete duplicate check-ins keeping the earliest, then exit")
	flag.Parse()

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since the logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.String("db_path", cfg.DBPath), logger.Error(err))
		return
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error(ctx, "failed to close store", logger.Error(err))
		}
	}()

	client := transport.New(cfg.APIBaseURL,
		transport.WithToken(cfg.APIToken),
		transport.WithPageLimit(cfg.PageLimit),
	)
	if cfg.APIToken == "" && cfg.APIUsername != "" {
		// RegisterToken stores the obtained token on the client.
		if _, err := client.RegisterToken(ctx, cfg.APIUsername, cfg.APIPassword); err != nil {
			log.Error(ctx, "failed to obtain API token", logger.Error(err))
			return
		}
	}

	svc := app.New(client, db, db.Resolver(),
		app.WithLogger(log.Named("sync")),
		app.WithLookback(time.Duration(cfg.LookbackMinutes)*time.Minute),
		app.WithSequencer(sequence.New(sequence.WithTrustSourceHint(cfg.TrustSourceHint))),
		app.WithNormalizer(fetch.New(
			fetch.WithMaxPast(time.Duration(cfg.MaxPastDays)*hoursPerDay*time.Hour),
			fetch.WithFutureSkew(time.Duration(cfg.FutureSkewMinutes)*time.Minute),
		)),
	)

	// One-shot maintenance passes run against the store only; no device
	// connectivity is required.
	switch {
	case *rederive:
		updated, err := svc.RederiveLogTypes(ctx, cfg.DeviceID)
		if err != nil {
			log.Error(ctx, "rederive pass failed", logger.Error(err))
			return
		}
		log.Info(ctx, "rederive pass done", logger.Int("updated", updated))
		return
	case *purge:
		deleted, err := svc.PurgeDuplicates(ctx, cfg.DeviceID)
		if err != nil {
			log.Error(ctx, "purge pass failed", logger.Error(err))
			return
		}
		log.Info(ctx, "purge pass done", logger.Int("deleted", deleted))
		return
	}

	probeDevice(ctx, log, cfg.DeviceID)

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "starting metrics server", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server failed", logger.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "metrics server shutdown failed", logger.Error(err))
		}
	}()

	runLoop(ctx, log, svc, cfg)
	log.Info(ctx, "shutting down")
}

// runLoop runs one cycle immediately and then one per interval until the
// context is canceled. A failed cycle is logged and retried on the next
// tick; the watermark only advances on success, so no window is lost.
func runLoop(ctx context.Context, log logger.Logger, svc *app.Service, cfg *config.Config) {
	interval := time.Duration(cfg.SyncIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycle := func() {
		stats, err := svc.RunCycle(ctx, cfg.DeviceID)
		if err != nil {
			log.Error(ctx, "cycle failed", logger.String("scope", cfg.DeviceID), logger.Error(err))
			return
		}
		log.Debug(ctx, "cycle ok",
			logger.Int("created", stats.Created), logger.Int("skipped", stats.Skipped()))
	}

	cycle()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle()
		}
	}
}

// probeDevice logs device reachability at startup. The sync loop starts
// either way; an unreachable device just fails its cycles until it returns.
func probeDevice(ctx context.Context, log logger.Logger, addr string) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if rtt, err := transport.Probe(probeCtx, addr); err != nil {
		log.Warn(ctx, "device unreachable at startup", logger.String("device", addr), logger.Error(err))
	} else {
		log.Info(ctx, "device reachable", logger.String("device", addr), logger.Duration("rtt", rtt))
	}
}
