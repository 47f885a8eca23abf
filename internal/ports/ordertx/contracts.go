package ordertx

import (
	"context"
	"time"

	"fooddispatch/internal/domain"
)

// Repository is the slice of order operations available inside a transaction.
type Repository interface {
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, courierID *string, at time.Time) error
	AppendHistory(ctx context.Context, change domain.StatusChange) error
}

// Runner is a transaction runner.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
