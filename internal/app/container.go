// Package app builds the dig containers and runners for both binaries. All
// dependencies flow through the container; nothing is a package-level
// singleton.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"fooddispatch/internal/config"
	"fooddispatch/internal/http/handlers"
	"fooddispatch/internal/http/middleware"
	"fooddispatch/internal/http/middleware/ratelimit"
	"fooddispatch/internal/http/pprofserver"
	"fooddispatch/internal/http/router"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/metrics"
	"fooddispatch/internal/registry"
	"fooddispatch/internal/repository"
	"fooddispatch/internal/service/courier"
	"fooddispatch/internal/service/lifecycle"
	"fooddispatch/internal/service/matching"
	"fooddispatch/internal/service/order"
	"fooddispatch/internal/transport/kafka"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(
	fn func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns the API container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerRedis(container); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if err := registerKafkaProducer(container); err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns the API container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		config.Load,
		NewLogger,
		prometheus.NewRegistry,
	)
}

func registerDb(
	container *dig.Container,
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) error {
	providerDB := func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, cfg.DB.DSN(), 10, time.Second)
	}
	return provideAll(container, providerDB)
}

func registerRedis(container *dig.Container) error {
	return provideAll(container,
		func(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
			return registry.NewClient(ctx, cfg.Redis.Addr)
		},
		func(rdb *redis.Client, cfg *config.Config) *registry.Registry {
			return registry.New(rdb, cfg.Matching.SnapshotTTL, cfg.Matching.LocationTTL)
		},
	)
}

func registerKafkaProducer(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config) (*kafka.Producer, error) {
			return kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		},
	)
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		repository.NewOrderRepo,
		repository.NewCourierRepo,
		repository.NewRestaurantRepo,
		func(reg *prometheus.Registry) *metrics.Matching {
			return metrics.NewMatching(reg)
		},
		func(orders *repository.OrderRepo, r *registry.Registry, logger logx.Logger) *lifecycle.Service {
			return lifecycle.NewService(orders, r, 3*time.Second, logger)
		},
		func(
			r *registry.Registry,
			lc *lifecycle.Service,
			orders *repository.OrderRepo,
			restaurants *repository.RestaurantRepo,
			producer *kafka.Producer,
			cfg *config.Config,
			counters *metrics.Matching,
			logger logx.Logger,
		) *matching.Engine {
			return matching.NewEngine(r, lc, orders, restaurants, producer,
				cfg.Matching.PickupEstimate, counters, logger)
		},
		func(
			orders *repository.OrderRepo,
			restaurants *repository.RestaurantRepo,
			lc *lifecycle.Service,
			producer *kafka.Producer,
			logger logx.Logger,
		) *order.Service {
			return order.New(orders, restaurants, lc, producer, logger)
		},
		func(
			couriers *repository.CourierRepo,
			r *registry.Registry,
			producer *kafka.Producer,
			logger logx.Logger,
		) *courier.Service {
			return courier.New(couriers, r, producer, logger)
		},
	)
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return provideAll(container,
		func(logger logx.Logger, pool *pgxpool.Pool, r *registry.Registry) *handlers.Handlers {
			return handlers.New(logger, pool, r)
		},
		func(uc *order.Service, logger logx.Logger) *handlers.OrderHandler {
			return handlers.NewOrderHandler(handlers.NewOrderUsecase(uc), logger)
		},
		func(uc *courier.Service, logger logx.Logger) *handlers.CourierHandler {
			return handlers.NewCourierHandler(handlers.NewCourierUsecase(uc), logger)
		},
		func(e *matching.Engine, logger logx.Logger) *handlers.DispatchHandler {
			return handlers.NewDispatchHandler(handlers.NewMatchingUsecase(e), logger)
		},
		func(promReg *prometheus.Registry) *middleware.Metrics {
			return middleware.NewMetrics(promReg)
		},
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		func(
			base *handlers.Handlers,
			orders *handlers.OrderHandler,
			couriers *handlers.CourierHandler,
			dispatchH *handlers.DispatchHandler,
			promReg *prometheus.Registry,
			httpMetrics *middleware.Metrics,
			rl *ratelimit.Middleware,
			cfg *config.Config,
			logger logx.Logger,
		) http.Handler {
			return router.New(router.Deps{
				Base:          base,
				Orders:        orders,
				Couriers:      couriers,
				Dispatch:      dispatchH,
				Metrics:       promReg,
				Observability: middleware.Observability(logger, httpMetrics),
				RateLimit:     rl.Handler(),
				Debug:         pprofserver.Handler(pprofserver.Config{User: cfg.Pprof.User, Pass: cfg.Pprof.Pass}),
			})
		},
		serverProvider,
	)
}
