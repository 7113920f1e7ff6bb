// Package app wires all FluencyBoost subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects the
// storage backend, practice session, and HTTP surface; Run serves until the
// context is cancelled; and Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithWordStore, WithLedger, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/fluencyboost/fluencyboost/internal/config"
	"github.com/fluencyboost/fluencyboost/internal/health"
	"github.com/fluencyboost/fluencyboost/internal/httpapi"
	"github.com/fluencyboost/fluencyboost/internal/ledger"
	ledgerpg "github.com/fluencyboost/fluencyboost/internal/ledger/postgres"
	"github.com/fluencyboost/fluencyboost/internal/observe"
	"github.com/fluencyboost/fluencyboost/internal/practice"
	"github.com/fluencyboost/fluencyboost/internal/words"
	wordspg "github.com/fluencyboost/fluencyboost/internal/words/postgres"
	"github.com/fluencyboost/fluencyboost/pkg/provider/playback"
	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
)

// shutdownGrace is how long the HTTP server gets to drain connections.
const shutdownGrace = 10 * time.Second

// Providers holds one interface value per capability slot. Nil means the
// capability is not configured: recognition falls back to client-relayed
// events and playback becomes a no-op. Populated by main.go via the config
// registry.
type Providers struct {
	Recognition recognition.Provider
	Playback    playback.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	words    words.Store
	attempts ledger.Ledger
	session  *practice.Session
	metrics  *observe.Metrics
	server   *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithWordStore injects a word store instead of creating one from config.
func WithWordStore(s words.Store) Option {
	return func(a *App) { a.words = s }
}

// WithLedger injects an attempt ledger instead of creating one from config.
func WithLedger(l ledger.Ledger) Option {
	return func(a *App) { a.attempts = l }
}

// WithMetrics injects pre-built metric instruments instead of using the
// global meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	var checkers []health.Checker

	if err := a.initStorage(ctx, &checkers); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}

	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}

	a.initSession()

	api := httpapi.NewServer(a.words, a.attempts, a.session, a.metrics, health.New(checkers...))
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// Session exposes the practice session, mainly for tests and for hosts that
// drive the state machine directly.
func (a *App) Session() *practice.Session {
	return a.session
}

// initStorage creates the word store and attempt ledger for the configured
// backend, unless both were injected.
func (a *App) initStorage(ctx context.Context, checkers *[]health.Checker) error {
	if a.words != nil && a.attempts != nil {
		return nil // both injected
	}

	backend := a.cfg.Storage.Backend
	if backend == "" {
		backend = config.StorageFile
	}

	switch backend {
	case config.StorageMemory:
		if a.words == nil {
			a.words = words.NewMemStore()
		}
		if a.attempts == nil {
			a.attempts = ledger.NewMemStore()
		}

	case config.StorageFile:
		dir := a.cfg.Storage.DataDir
		if dir == "" {
			dir = "./data"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir %q: %w", dir, err)
		}
		if a.words == nil {
			a.words = words.NewFileStore(filepath.Join(dir, "words.json"))
		}
		if a.attempts == nil {
			a.attempts = ledger.NewFileStore(filepath.Join(dir, "attempts.jsonl"))
		}

	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})

		ws := wordspg.NewStore(pool)
		if err := ws.Migrate(ctx); err != nil {
			return err
		}
		ls := ledgerpg.NewStore(pool)
		if err := ls.Migrate(ctx); err != nil {
			return err
		}
		if a.words == nil {
			a.words = ws
		}
		if a.attempts == nil {
			a.attempts = ls
		}
		*checkers = append(*checkers, health.Checker{
			Name:  "database",
			Check: pool.Ping,
		})

	default:
		return fmt.Errorf("unknown storage backend %q", backend)
	}

	slog.Info("storage initialised", "backend", backend)
	return nil
}

// initMetrics builds the metric instruments from the global meter provider
// unless they were injected.
func (a *App) initMetrics() error {
	if a.metrics != nil {
		return nil
	}
	m, err := observe.DefaultMetrics()
	if err != nil {
		return err
	}
	a.metrics = m
	return nil
}

// initSession builds the practice session from the config and providers.
func (a *App) initSession() {
	var scorerOpts []practice.ScorerOption
	if a.cfg.Practice.SimilarityWeight != 0 || a.cfg.Practice.ConfidenceWeight != 0 {
		scorerOpts = append(scorerOpts,
			practice.WithWeights(a.cfg.Practice.SimilarityWeight, a.cfg.Practice.ConfidenceWeight))
	}

	opts := []practice.Option{
		practice.WithScorer(practice.NewScorer(scorerOpts...)),
		practice.WithMetrics(a.metrics),
		// Clients without a server-side recognizer relay recognition events
		// over the HTTP API.
		practice.WithExternalEvents(),
	}
	if a.cfg.Practice.RecordingTimeout > 0 {
		opts = append(opts, practice.WithRecordingTimeout(a.cfg.Practice.RecordingTimeout))
	}
	if a.providers.Playback != nil {
		opts = append(opts, practice.WithPlayback(a.providers.Playback))
	}
	if a.providers.Recognition != nil {
		opts = append(opts, practice.WithRecognizer(a.providers.Recognition))
	}

	a.session = practice.NewSession(a.attempts, opts...)
}

// Run serves HTTP until ctx is cancelled, then drains connections. It returns
// ctx.Err() on a clean signal-driven stop.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.server.Shutdown(drainCtx); err != nil {
			slog.Warn("http server drain error", "err", err)
		}
		return gctx.Err()
	})

	return g.Wait()
}

// Shutdown cancels any active practice session and tears down all subsystems
// in reverse-init order. It respects the context deadline: if ctx expires
// before all closers finish, remaining closers are skipped and the context
// error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.session.Cancel(ctx)

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
