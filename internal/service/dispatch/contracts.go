package dispatch

import (
	"context"

	"fooddispatch/internal/domain"
	"fooddispatch/internal/service/lifecycle"
)

type availabilityRegistry interface {
	MarkCourierOnline(ctx context.Context, courierID string, loc domain.Location) error
	MarkCourierOffline(ctx context.Context, courierID string) error
	UpdateCourierLocation(ctx context.Context, courierID string, loc domain.Location) error
	CourierCurrentOrder(ctx context.Context, courierID string) (string, error)
	ClearCourierAssignment(ctx context.Context, courierID string) error
	ClearOrderAssignment(ctx context.Context, orderID string) error
	EnqueueUnassignedOrder(ctx context.Context, entry domain.UnassignedOrder) error
	SetOrderSnapshot(ctx context.Context, snap domain.OrderSnapshot) error
	OrderSnapshot(ctx context.Context, orderID string) (*domain.OrderSnapshot, error)
}

type matcher interface {
	TryMatchOrder(ctx context.Context, orderID string) (bool, error)
	TryMatchCourier(ctx context.Context, courierID string) (bool, error)
	ReassignOrder(ctx context.Context, orderID, previousCourierID string) (bool, error)
}

type transitioner interface {
	Transition(ctx context.Context, orderID string, newStatus domain.OrderStatus, tc lifecycle.Context) error
}

type courierStore interface {
	UpdateStatus(ctx context.Context, id string, status domain.CourierStatus) error
	AppendLocation(ctx context.Context, courierID string, loc domain.Location) error
}
