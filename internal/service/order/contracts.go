package order

import (
	"context"

	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
	"fooddispatch/internal/service/lifecycle"
)

type orderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
}

type restaurantStore interface {
	Get(ctx context.Context, id string) (*domain.Restaurant, error)
}

type transitioner interface {
	Transition(ctx context.Context, orderID string, newStatus domain.OrderStatus, tc lifecycle.Context) error
	LiveStatus(ctx context.Context, orderID string) (*domain.OrderSnapshot, error)
}

type emitter interface {
	Emit(ctx context.Context, ev event.Event) error
}
