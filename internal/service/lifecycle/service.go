// Package lifecycle owns the order status state machine: it validates
// transitions against the domain table, keeps the durable record and its
// history authoritative, and refreshes the live snapshot in the registry.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/ports/ordertx"
)

// Context carries optional data recorded with a transition.
type Context struct {
	CourierID string
	Metadata  map[string]any
}

// Service validates and records order status transitions.
type Service struct {
	orders           orderStore
	snaps            snapshotStore
	logger           logx.Logger
	operationTimeout time.Duration
	now              func() time.Time
}

// NewService creates a lifecycle Service.
func NewService(orders orderStore, snaps snapshotStore, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		orders:           orders,
		snaps:            snaps,
		logger:           logger,
		operationTimeout: timeout,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Transition moves an order to newStatus. It rejects anything outside the
// lifecycle table, records the change in the durable store and history, and
// refreshes the live snapshot. Re-applying the order's current status is a
// no-op, so redelivered events are harmless.
func (s *Service) Transition(ctx context.Context, orderID string, newStatus domain.OrderStatus, tc Context) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", apperr.Invalid, newStatus)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %q: %w", orderID, apperr.NotFound)
	}

	if order.Status == newStatus {
		s.logger.Debug("transition already applied",
			logx.String("order_id", orderID),
			logx.String("status", string(newStatus)),
		)
		return nil
	}
	if !domain.CanTransition(order.Status, newStatus) {
		return fmt.Errorf("%w: %s -> %s", apperr.InvalidTransition, order.Status, newStatus)
	}

	now := s.now()
	var courierID *string
	if tc.CourierID != "" {
		courierID = &tc.CourierID
	}

	// status row and history entry commit together or not at all
	err = s.orders.WithTx(ctx, func(tx ordertx.Repository) error {
		if err := tx.UpdateStatus(ctx, orderID, newStatus, courierID, now); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, domain.StatusChange{
			OrderID:    orderID,
			Status:     newStatus,
			Metadata:   tc.Metadata,
			RecordedAt: now,
		})
	})
	if err != nil {
		return err
	}

	snap := domain.OrderSnapshot{
		OrderID:   orderID,
		Status:    newStatus,
		CourierID: tc.CourierID,
		UpdatedAt: now,
		Extra:     tc.Metadata,
	}
	if snap.CourierID == "" && order.CourierID != nil {
		snap.CourierID = *order.CourierID
	}
	if err := s.snaps.SetOrderSnapshot(ctx, snap); err != nil {
		return err
	}

	s.logger.Info("order transitioned",
		logx.String("order_id", orderID),
		logx.String("from", string(order.Status)),
		logx.String("to", string(newStatus)),
	)
	return nil
}

// LiveStatus returns the externally observable order status: the fresh
// snapshot when present, falling back to the durable record, enriched with
// the assigned courier's last known location when one exists. A missing
// courier location is not an error.
func (s *Service) LiveStatus(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	snap, err := s.snaps.OrderSnapshot(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		order, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, fmt.Errorf("order %q: %w", orderID, apperr.NotFound)
		}
		snap = &domain.OrderSnapshot{
			OrderID:   order.ID,
			Status:    order.Status,
			UpdatedAt: order.UpdatedAt,
		}
		if order.CourierID != nil {
			snap.CourierID = *order.CourierID
		}
	}

	if snap.CourierID != "" {
		loc, err := s.snaps.CourierLocation(ctx, snap.CourierID)
		if err != nil {
			s.logger.Warn("courier location lookup failed",
				logx.String("order_id", orderID),
				logx.String("courier_id", snap.CourierID),
				logx.Err(err),
			)
		} else if loc != nil {
			snap.CourierLocation = loc
		}
	}
	return snap, nil
}
