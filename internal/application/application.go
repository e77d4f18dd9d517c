package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/gem-allocator/internal/allocator"
	"github.com/eugenenazirov/gem-allocator/internal/api"
	"github.com/eugenenazirov/gem-allocator/internal/catalog"
	"github.com/eugenenazirov/gem-allocator/internal/config"
	"github.com/eugenenazirov/gem-allocator/internal/metrics"
	"github.com/eugenenazirov/gem-allocator/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	engine  *allocator.Engine
	metrics *metrics.Registry
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	cat := catalog.Default()

	store := storage.NewMemoryStorage(cat)
	if len(cfg.SeedInventory) > 0 {
		if err := store.SetInventory(cfg.SeedUserID, cfg.SeedInventory); err != nil {
			return nil, fmt.Errorf("failed to apply seed inventory: %w", err)
		}
		logger.Info("seeded inventory",
			zap.String("user_id", cfg.SeedUserID),
			zap.Int("kinds", len(cfg.SeedInventory)),
		)
	}

	engine := allocator.New(cat)
	registry := metrics.New()
	handler := api.NewHandler(engine, store, cat,
		api.WithMetrics(registry),
		api.WithDefaultStrategy(cfg.DefaultStrategy),
	)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithMetricsHandler(registry.Handler()),
	)

	return &App{
		storage: store,
		engine:  engine,
		metrics: registry,
		handler: handler,
		router:  router,
		logger:  logger,
		server:  NewServer(cfg, router),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.Int("denominations", len(a.engine.Catalog().Denominations())),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler, primarily for tests.
func (a *App) Handler() http.Handler {
	return a.router
}
