package matching

import (
	"context"

	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
	"fooddispatch/internal/service/lifecycle"
)

type availabilityRegistry interface {
	ListOnlineCouriers(ctx context.Context) ([]domain.CourierPresence, error)
	IsCourierAvailable(ctx context.Context, courierID string) (bool, error)
	AssignOrderToCourier(ctx context.Context, orderID, courierID string) (bool, error)
	ClearCourierAssignment(ctx context.Context, courierID string) error
	ClearOrderAssignment(ctx context.Context, orderID string) error
	CourierLocation(ctx context.Context, courierID string) (*domain.Location, error)
	EnqueueUnassignedOrder(ctx context.Context, entry domain.UnassignedOrder) error
	DequeueUnassignedOrder(ctx context.Context, orderID string) error
	ListUnassignedOrders(ctx context.Context) ([]domain.UnassignedOrder, error)
}

type transitioner interface {
	Transition(ctx context.Context, orderID string, newStatus domain.OrderStatus, tc lifecycle.Context) error
}

type orderStore interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
}

type restaurantStore interface {
	Get(ctx context.Context, id string) (*domain.Restaurant, error)
}

type emitter interface {
	Emit(ctx context.Context, ev event.Event) error
}
