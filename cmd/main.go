package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/prive/internal/adapters/repository"
	"github.com/okian/prive/internal/app"
	"github.com/okian/prive/internal/config"
	"github.com/okian/prive/internal/domain/model"
	"github.com/okian/prive/internal/domain/signals"
	"github.com/okian/prive/pkg/logger"
	"github.com/okian/prive/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	storeMetricsInterval  = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Misconfigured weights would silently skew every score, so refuse
	// to start at all.
	if err := model.ValidateWeights(); err != nil {
		os.Stderr.WriteString("invalid pillar weights: " + err.Error() + "\n")
		return
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Pick the record store: SQLite when a path is configured, in-memory
	// otherwise.
	var store repository.Store
	if cfg.DBPath != "" {
		store, err = repository.OpenSQLiteStore(cfg.DBPath)
		if err != nil {
			os.Stderr.WriteString("failed to open reputation database: " + err.Error() + "\n")
			return
		}
		log.Info(ctx, "using sqlite store", logger.String("path", cfg.DBPath))
	} else {
		store = repository.NewMemoryStore()
		log.Info(ctx, "using in-memory store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "failed to close store", logger.Error(err))
		}
	}()

	// In-memory signal sources until real upstream collaborators are
	// wired in.
	sources := signals.NewMemorySignals().Sources()

	svc := app.New(store, sources,
		app.WithLogger(log),
		app.WithSaveRetries(cfg.SaveRetries),
	)

	// Start background metrics updaters
	go startSystemMetricsUpdater(ctx)
	go startStoreMetricsUpdater(ctx, store)

	// Operational HTTP mux: health, metrics, and a read-only eligibility
	// probe for operators.
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("GET /eligibility", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		if userID == "" {
			http.Error(w, "missing user parameter", http.StatusBadRequest)
			return
		}
		snap, err := svc.GetEligibility(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startStoreMetricsUpdater starts a background goroutine that refreshes
// record-count and tier-distribution gauges from the store.
func startStoreMetricsUpdater(ctx context.Context, store repository.Store) {
	ticker := time.NewTicker(storeMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateStoreMetrics(ctx, store)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

func updateStoreMetrics(ctx context.Context, store repository.Store) {
	if n, err := store.Count(ctx); err == nil {
		metrics.UpdateRecordsTotal(n)
	}

	eligible, err := store.ListEligible(ctx, "", 0)
	if err != nil {
		return
	}
	metrics.UpdateEligibleRecords(len(eligible))

	byTier := map[model.Tier]int{}
	for _, rec := range eligible {
		byTier[rec.Tier]++
	}
	for _, tier := range []model.Tier{model.TierEntry, model.TierSignature, model.TierElite} {
		metrics.UpdateTierDistribution(string(tier), byTier[tier])
	}
}
