package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"fooddispatch/internal/config"
	"fooddispatch/internal/event"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/metrics"
	"fooddispatch/internal/registry"
	"fooddispatch/internal/repository"
	"fooddispatch/internal/service/dispatch"
	"fooddispatch/internal/service/lifecycle"
	"fooddispatch/internal/service/matching"
	"fooddispatch/internal/transport/kafka"
)

// MustBuildWorkerContainer builds and returns the worker container
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewWorkerContainerBuilder().MustBuild(ctx)
}

// WorkerContainerBuilder builds the worker's dig container on top of the
// shared core, store, and service providers.
type WorkerContainerBuilder struct {
	base *ContainerBuilder
}

// NewWorkerContainerBuilder returns a new worker container builder
func NewWorkerContainerBuilder() *WorkerContainerBuilder {
	return &WorkerContainerBuilder{base: NewContainerBuilder()}
}

// MustBuild builds and returns the worker container
func (b *WorkerContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.base.logFatalf("failed to build worker container: %v", err)
	}
	return container
}

func (b *WorkerContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.base.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerRedis(container); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if err := registerKafkaProducer(container); err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		func(promReg *prometheus.Registry) *prometheus.CounterVec {
			consumed := metrics.NewEventsConsumedTotal()
			promReg.MustRegister(consumed)
			return consumed
		},
		func(
			r *registry.Registry,
			engine *matching.Engine,
			lc *lifecycle.Service,
			couriers *repository.CourierRepo,
			consumed *prometheus.CounterVec,
			logger logx.Logger,
		) *dispatch.Processor {
			return dispatch.NewProcessor(r, engine, lc, couriers, consumed, logger)
		},
		func(p *dispatch.Processor) kafka.HandleFunc {
			return p.Handle
		},
		func(cfg *config.Config, h kafka.HandleFunc, logger logx.Logger) (*kafka.Consumer, error) {
			return kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, event.AllTopics(), h, logger)
		},
	)
}
