// Package server is the composition root: it opens the datastores,
// runs migrations, wires the gateway's components together, and serves
// the admin surface.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/botwire/conversation-gateway/internal/admin"
	"github.com/botwire/conversation-gateway/pkg/bots"
	"github.com/botwire/conversation-gateway/pkg/config"
	"github.com/botwire/conversation-gateway/pkg/database/migrate"
	"github.com/botwire/conversation-gateway/pkg/gateway"
	"github.com/botwire/conversation-gateway/pkg/health"
	licensepg "github.com/botwire/conversation-gateway/pkg/license/postgres"
	"github.com/botwire/conversation-gateway/pkg/prefs"
	prefspg "github.com/botwire/conversation-gateway/pkg/prefs/postgres"
	"github.com/botwire/conversation-gateway/pkg/quota"
	"github.com/botwire/conversation-gateway/pkg/respcache"
	respcacheredis "github.com/botwire/conversation-gateway/pkg/respcache/redis"
	"github.com/botwire/conversation-gateway/pkg/session"
	sessionpg "github.com/botwire/conversation-gateway/pkg/session/postgres"
	"github.com/botwire/conversation-gateway/pkg/upstream"
	"github.com/botwire/conversation-gateway/pkg/usage"
	usagepg "github.com/botwire/conversation-gateway/pkg/usage/postgres"
)

// Version is set at build time.
var Version = "dev"

const (
	shutdownTimeout = 10 * time.Second

	// Background sweeps: session rows idle far past any plausible
	// freshness window and usage rows past retention.
	cleanupInterval = time.Hour
	sessionMaxIdle  = 24 * time.Hour
)

// Server owns the wired components and their lifecycles.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	db           *sql.DB
	sessionStore *sessionpg.Store
	usageStore   *usagepg.Store
	sessions     *session.Cache
	cache        *respcache.Cache
	recorder     *usage.Recorder
	gateway      *gateway.Gateway
	checker      *health.Checker
	adminSrv     *http.Server
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	s, err := build(cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := migrate.Run(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func build(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*Server, error) {
	catalog, err := bots.NewCatalog(botDefs(cfg))
	if err != nil {
		return nil, fmt.Errorf("loading bot catalog: %w", err)
	}

	svc, err := upstream.NewClient(upstream.ClientConfig{
		BaseURL:        cfg.Upstream.BaseURL,
		APIKey:         cfg.Upstream.APIKey,
		RequestTimeout: cfg.Upstream.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	checker := health.NewChecker()
	checker.AddProbe("database", db.PingContext)

	var kv respcache.KV
	if cfg.Cache.Enabled {
		redisKV := respcacheredis.New(respcacheredis.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		checker.AddProbe("cache", redisKV.Ping)
		kv = redisKV
	} else {
		logger.Info("response cache backend disabled, using in-process store")
		kv = respcache.NewMemoryKV()
	}
	cache := respcache.New(kv, respcache.TTLConfig{
		Generic:      cfg.Cache.GenericTTL,
		Technical:    cfg.Cache.TechnicalTTL,
		Regulatory:   cfg.Cache.RegulatoryTTL,
		Personalized: cfg.Cache.PersonalizedTTL,
	})

	sessionStore := sessionpg.New(db)
	sessionStore.StartCleanupRoutine(cleanupInterval, sessionMaxIdle)
	sessions, err := session.NewCache(sessionStore, svc, session.CacheConfig{
		FreshnessWindow: cfg.Sessions.FreshnessWindow,
		LRUCapacity:     cfg.Sessions.LRUCapacity,
	})
	if err != nil {
		return nil, err
	}

	licenseStore := licensepg.New(db)
	usageStore := usagepg.New(db, usagepg.Config{})
	usageStore.StartCleanupRoutine(cleanupInterval)

	recorder := usage.NewRecorder(usageStore, licenseStore, logger, usage.RecorderConfig{
		Workers:   cfg.Usage.Workers,
		QueueSize: cfg.Usage.QueueSize,
	})

	gw := gateway.New(
		catalog,
		prefs.NewResolver(prefspg.New(db)),
		cache,
		quota.NewGuard(licenseStore),
		sessions,
		svc,
		recorder,
		gateway.Config{
			Exchange: upstream.ExchangeOptions{
				MaxWait:      cfg.Upstream.MaxWait,
				PollInterval: cfg.Upstream.PollInterval,
			},
			Logger: logger,
		},
	)

	adminSrv := &http.Server{
		Addr:              cfg.Server.AdminAddress,
		Handler:           admin.NewHandler(checker, cache, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		sessionStore: sessionStore,
		usageStore:   usageStore,
		sessions:     sessions,
		cache:        cache,
		recorder:     recorder,
		gateway:      gw,
		checker:      checker,
		adminSrv:     adminSrv,
	}, nil
}

func botDefs(cfg *config.Config) []bots.Bot {
	defs := make([]bots.Bot, 0, len(cfg.Bots))
	for _, b := range cfg.Bots {
		defs = append(defs, bots.Bot{
			ID:          b.ID,
			DisplayName: b.DisplayName,
			AgentRef:    b.AgentRef,
			Preamble:    b.Preamble,
		})
	}
	return defs
}

// Gateway returns the wired orchestrator for the embedding routing
// layer to call.
func (s *Server) Gateway() *gateway.Gateway {
	return s.gateway
}

// Run serves the admin listener until ctx is cancelled, then shuts
// everything down in dependency order.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening",
			"address", s.cfg.Server.AdminAddress, "version", Version)
		if err := s.adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.checker.SetReady()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("admin server: %w", err)
	}

	s.logger.Info("shutting down")
	s.checker.SetDraining()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.adminSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("admin server shutdown", "error", err)
	}

	return s.Close()
}

// Close releases all resources. Pending fire-and-forget writes are
// drained before the database handle closes.
func (s *Server) Close() error {
	var errs []error
	if err := s.sessions.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.recorder.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.sessionStore.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.usageStore.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
