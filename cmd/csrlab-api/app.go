package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/csr-lab/internal/adapters/http"
	"github.com/PabloGalante/csr-lab/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/csr-lab/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/csr-lab/internal/adapters/storage/memory"
	redisstore "github.com/PabloGalante/csr-lab/internal/adapters/storage/redis"
	sqlitestore "github.com/PabloGalante/csr-lab/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/csr-lab/internal/app/degrade"
	"github.com/PabloGalante/csr-lab/internal/app/gateway"
	"github.com/PabloGalante/csr-lab/internal/app/ledger"
	"github.com/PabloGalante/csr-lab/internal/app/randomizer"
	"github.com/PabloGalante/csr-lab/internal/app/sentiment"
	"github.com/PabloGalante/csr-lab/internal/app/study"
	"github.com/PabloGalante/csr-lab/internal/app/survey"
	"github.com/PabloGalante/csr-lab/internal/config"
	"github.com/PabloGalante/csr-lab/internal/domain"
	"github.com/PabloGalante/csr-lab/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func run(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close failed", "error", err)
			}
		}
	}()

	store, closeStore, err := openDocumentStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	sessions, closeSessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closeSessions != nil {
		closers = append(closers, closeSessions)
	}

	backend, err := llm.New(ctx, cfg.LLM, cfg.GCP)
	if err != nil {
		return fmt.Errorf("init llm backend: %w", err)
	}
	log.Info("llm backend ready", "backend", backend.Name(), "provider", cfg.LLM.Provider)

	metrics := observability.NewMetrics()

	opts := []gateway.Option{
		gateway.WithRateLimit(cfg.LLM.RatePerSecond, cfg.LLM.Burst),
		gateway.WithDefaultTimeout(cfg.LLM.Timeout),
		gateway.WithMetrics(metrics),
	}
	for _, c := range domain.Capabilities {
		opts = append(opts, gateway.WithTimeout(c, cfg.LLM.TimeoutFor(string(c))))
	}
	support := degrade.New(gateway.New(backend, sentiment.Classify, opts...), metrics)

	svc := study.NewService(study.Dependencies{
		Sessions:   sessions,
		Store:      store,
		Randomizer: randomizer.New(store, cfg.Study.QuotaPerCell, randomizer.WithMetrics(metrics)),
		Ledger:     ledger.New(store, nil),
		Surveys:    survey.NewService(store, nil),
		Support:    support,
		Metrics:    metrics,
	})

	handler := httpadapter.NewServer(svc, httpadapter.Options{
		ScreenOutURL:  cfg.Study.ScreenOutURL,
		CompletionURL: cfg.Study.CompletionURL,
		Metrics:       metrics,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("csrlab api listening", "addr", srv.Addr, "storage", cfg.Storage.Backend, "sessions", cfg.Sessions.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDocumentStore(ctx context.Context, cfg *config.Config) (domain.DocumentStore, func() error, error) {
	log := observability.Logger()

	switch cfg.Storage.Backend {
	case config.StorageFirestore:
		log.Info("using firestore storage", "project", cfg.GCP.ProjectID)
		s, err := firestorestore.NewStore(ctx, cfg.GCP.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("init firestore store: %w", err)
		}
		return s, s.Close, nil

	case config.StorageSQLite:
		log.Info("using sqlite storage", "path", cfg.Storage.SQLitePath)
		s, err := sqlitestore.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return s, s.Close, nil

	default:
		log.Info("using in-memory storage")
		return memstore.NewDocumentStore(), nil, nil
	}
}

func openSessionStore(ctx context.Context, cfg *config.Config) (domain.SessionStore, func() error, error) {
	log := observability.Logger()

	switch cfg.Sessions.Backend {
	case config.SessionsRedis:
		log.Info("using redis sessions", "addr", cfg.Redis.Addr, "ttl", cfg.Sessions.TTL)
		s := redisstore.NewSessionStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Sessions.TTL)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return s, s.Close, nil

	default:
		log.Info("using in-memory sessions", "ttl", cfg.Sessions.TTL)
		return memstore.NewSessionStore(cfg.Sessions.TTL), nil, nil
	}
}
