package lifecycle

import (
	"context"

	"fooddispatch/internal/domain"
	"fooddispatch/internal/ports/ordertx"
)

type orderStore interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	WithTx(ctx context.Context, fn func(tx ordertx.Repository) error) error
}

type snapshotStore interface {
	SetOrderSnapshot(ctx context.Context, snap domain.OrderSnapshot) error
	OrderSnapshot(ctx context.Context, orderID string) (*domain.OrderSnapshot, error)
	CourierLocation(ctx context.Context, courierID string) (*domain.Location, error)
}
