// Package app wires the inventory components together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/inventory/internal/bootstrap"
	"github.com/abgdnv/inventory/internal/config"
	"github.com/abgdnv/inventory/internal/inventory/events"
	"github.com/abgdnv/inventory/internal/inventory/kv"
	"github.com/abgdnv/inventory/internal/inventory/service"
	"github.com/abgdnv/inventory/internal/inventory/store"
	grpcImpl "github.com/abgdnv/inventory/internal/inventory/transport/grpc"
	"github.com/abgdnv/inventory/internal/inventory/transport/rest"
	"github.com/abgdnv/inventory/internal/platform/messaging"
	"github.com/abgdnv/inventory/internal/platform/telemetry"
	"github.com/abgdnv/inventory/internal/platform/web"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

const serviceName = "inventory"

type Dependencies struct {
	Store            *store.InventoryStore
	InventoryService service.InventoryService
	Health           *grpcImpl.Health
	Logger           *slog.Logger
}

// SetupDependencies builds the store, the service and the health reporter on top of storage.
func SetupDependencies(storage kv.Storage, publisher messaging.Publisher, logger *slog.Logger, opts ...store.Option) *Dependencies {
	st := store.New(storage, append([]store.Option{store.WithLogger(logger)}, opts...)...)
	return &Dependencies{
		Store:            st,
		InventoryService: service.NewService(st, publisher, logger),
		Health:           grpcImpl.NewHealth(),
		Logger:           logger,
	}
}

// Start loads the persisted products, optionally seeds the samples and reports SERVING.
func (d *Dependencies) Start(ctx context.Context, seedSamples bool) error {
	d.Store.LoadProducts(ctx)
	if seedSamples {
		if _, err := d.InventoryService.SeedSamples(ctx); err != nil {
			return fmt.Errorf("failed to seed sample products: %w", err)
		}
	}
	d.Health.SetServing()
	return nil
}

// Stop reports NOT_SERVING and drains pending writes.
func (d *Dependencies) Stop(ctx context.Context) error {
	d.Health.Shutdown()
	if err := d.Store.Close(ctx); err != nil {
		return fmt.Errorf("failed to persist pending changes: %w", err)
	}
	return nil
}

// SetupStorage opens the configured key-value backend.
// The returned cleanup func releases it and must be called after the store is closed.
func SetupStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (kv.Storage, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory storage, products are lost on restart")
		return kv.NewMemory(), func() {}, nil
	case config.DriverPostgres:
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, err
		}
		if err := bootstrap.RunMigrations(cfg.Database.URL); err != nil {
			dbPool.Close()
			return nil, nil, err
		}
		logger.Info("Successfully connected to the database!")
		storage := kv.NewBreaker(kv.NewPgStorage(dbPool), kv.BreakerSettings{
			Name:                "kv-postgres",
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
		})
		return storage, dbPool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// SetupPublisher connects to NATS and makes sure the product stream exists.
// With NATS disabled, events are dropped.
func SetupPublisher(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.Enabled {
		return messaging.NopPublisher{}, func() {}, nil
	}
	nc, err := messaging.NewClient(cfg.Url, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := messaging.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	if err := messaging.EnsureStream(ctx, js, cfg.Stream, events.ProductSubjects); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS", "stream", cfg.Stream)
	cleanup := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", "error", err)
		}
	}
	return messaging.NewNatsPublisher(js), cleanup, nil
}

// SetupMetrics installs the Prometheus-backed meter provider and returns the scrape handler
// together with its shutdown func. With metrics disabled the handler is nil.
func SetupMetrics(cfg config.MetricsConfig, logger *slog.Logger) (http.Handler, func(context.Context) error, error) {
	if !cfg.Enabled {
		return nil, func(context.Context) error { return nil }, nil
	}
	mp, handler, err := telemetry.NewMeterProvider(serviceName)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Metrics enabled", "path", cfg.Path)
	return handler, mp.Shutdown, nil
}

// SetupHttpHandler initializes the router and routes, instrumented with otelhttp.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies, routes ...func(chi.Router)) http.Handler {
	mux := web.NewChiRouter(deps.Logger)
	rest.NewHandler(deps.InventoryService, deps.Logger).RegisterRoutes(mux)
	for _, register := range routes {
		register(mux)
	}
	return otelhttp.NewHandler(mux, "inventory-http")
}

// SetupHttpServer creates and configures the HTTP server.
// A non-nil metrics handler is served at cfg.Metrics.Path.
func SetupHttpServer(deps *Dependencies, cfg *config.Config, metrics http.Handler) *http.Server {
	httpCfg := web.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}
	var routes []func(chi.Router)
	if metrics != nil {
		routes = append(routes, func(r chi.Router) {
			r.Method(http.MethodGet, cfg.Metrics.Path, metrics)
		})
	}
	return web.NewHTTPServer(httpCfg, SetupHttpHandler(deps, routes...))
}

// SetupGrpcServer initializes the gRPC server with the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return grpcImpl.NewGRPCServer(reflectionEnabled, deps.Health.Register)
}
