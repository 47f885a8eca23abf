package handlers

import (
	"context"

	"fooddispatch/internal/domain"
	"fooddispatch/internal/service/courier"
	"fooddispatch/internal/service/matching"
	"fooddispatch/internal/service/order"
)

type orderUsecase interface {
	Create(ctx context.Context, in order.CreateInput) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	Confirm(ctx context.Context, orderID string) error
	StartPreparing(ctx context.Context, orderID string) error
	MarkReady(ctx context.Context, orderID string) error
	MarkPickedUp(ctx context.Context, orderID, courierID string) error
	MarkInTransit(ctx context.Context, orderID, courierID string) error
	MarkDelivered(ctx context.Context, orderID string) error
	Cancel(ctx context.Context, orderID, reason string) error
	LiveStatus(ctx context.Context, orderID string) (*domain.OrderSnapshot, error)
}

// NewOrderUsecase wires an order.Service into an orderUsecase.
func NewOrderUsecase(svc *order.Service) orderUsecase {
	return svc
}

type courierUsecase interface {
	Create(ctx context.Context, in courier.CreateInput) (*domain.Courier, error)
	Get(ctx context.Context, id string) (*domain.Courier, error)
	List(ctx context.Context) ([]domain.Courier, error)
	GoOnline(ctx context.Context, courierID string, loc domain.Location) error
	GoOffline(ctx context.Context, courierID string) error
	UpdateLocation(ctx context.Context, courierID string, loc domain.Location) error
	Presence(ctx context.Context, courierID string) (*courier.Presence, error)
	LocationHistory(ctx context.Context, courierID string, limit int) ([]domain.Location, error)
}

// NewCourierUsecase wires a courier.Service into a courierUsecase.
func NewCourierUsecase(svc *courier.Service) courierUsecase {
	return svc
}

type matchingUsecase interface {
	Stats(ctx context.Context) (matching.Stats, error)
}

// NewMatchingUsecase wires a matching.Engine into a matchingUsecase.
func NewMatchingUsecase(e *matching.Engine) matchingUsecase {
	return e
}

type pinger interface {
	Ping(ctx context.Context) error
}
