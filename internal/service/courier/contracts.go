package courier

import (
	"context"

	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
)

type courierStore interface {
	Create(ctx context.Context, c *domain.Courier) error
	Get(ctx context.Context, id string) (*domain.Courier, error)
	List(ctx context.Context) ([]domain.Courier, error)
	LocationHistory(ctx context.Context, courierID string, limit int) ([]domain.Location, error)
}

type availabilityRegistry interface {
	IsCourierOnline(ctx context.Context, courierID string) (bool, error)
	CourierCurrentOrder(ctx context.Context, courierID string) (string, error)
	CourierLocation(ctx context.Context, courierID string) (*domain.Location, error)
}

type emitter interface {
	Emit(ctx context.Context, ev event.Event) error
}
