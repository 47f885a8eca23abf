// Package order exposes the API-side order commands: creation, the
// restaurant- and courier-driven transitions, and reads.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/service/lifecycle"
)

// CreateInput is the payload for placing a new order.
type CreateInput struct {
	CustomerID      string
	RestaurantID    string
	Items           []domain.OrderItem
	DeliveryAddress domain.Address
}

func (in CreateInput) validate() error {
	if in.CustomerID == "" {
		return fmt.Errorf("customer id is required: %w", apperr.Invalid)
	}
	if in.RestaurantID == "" {
		return fmt.Errorf("restaurant id is required: %w", apperr.Invalid)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("at least one item is required: %w", apperr.Invalid)
	}
	for i, it := range in.Items {
		if it.Name == "" || it.Quantity <= 0 || it.Price < 0 {
			return fmt.Errorf("item %d is malformed: %w", i, apperr.Invalid)
		}
	}
	return nil
}

type Service struct {
	orders      orderStore
	restaurants restaurantStore
	lifecycle   transitioner
	emitter     emitter
	logger      logx.Logger
	now         func() time.Time
}

func New(orders orderStore, restaurants restaurantStore, lc transitioner, em emitter, logger logx.Logger) *Service {
	return &Service{
		orders:      orders,
		restaurants: restaurants,
		lifecycle:   lc,
		emitter:     em,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts the order and announces it. The total is computed
// server-side from the items; client-sent totals are ignored.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	restaurant, err := s.restaurants.Get(ctx, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, fmt.Errorf("restaurant %q: %w", in.RestaurantID, apperr.NotFound)
	}

	now := s.now()
	o := &domain.Order{
		ID:              uuid.NewString(),
		CustomerID:      in.CustomerID,
		RestaurantID:    in.RestaurantID,
		Items:           in.Items,
		TotalAmount:     domain.TotalOf(in.Items),
		Status:          domain.StatusCreated,
		DeliveryAddress: in.DeliveryAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	if err := s.emitter.Emit(ctx, event.OrderCreated{
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
		RestaurantID:    o.RestaurantID,
		Items:           o.Items,
		TotalAmount:     o.TotalAmount,
		DeliveryAddress: o.DeliveryAddress,
		Timestamp:       now,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		logx.String("order_id", o.ID),
		logx.String("customer_id", o.CustomerID),
		logx.Float64("total", o.TotalAmount),
	)
	return o, nil
}

// Confirm moves a freshly created order into the restaurant's queue.
func (s *Service) Confirm(ctx context.Context, orderID string) error {
	return s.lifecycle.Transition(ctx, orderID, domain.StatusConfirmed, lifecycle.Context{})
}

// StartPreparing marks the kitchen as working on the order.
func (s *Service) StartPreparing(ctx context.Context, orderID string) error {
	return s.lifecycle.Transition(ctx, orderID, domain.StatusPreparing, lifecycle.Context{})
}

// MarkReady records the ready transition and announces the order to the
// matching stage with the restaurant's coordinates.
func (s *Service) MarkReady(ctx context.Context, orderID string) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("order %q: %w", orderID, apperr.NotFound)
	}
	restaurant, err := s.restaurants.Get(ctx, o.RestaurantID)
	if err != nil {
		return err
	}
	if restaurant == nil {
		return fmt.Errorf("restaurant %q: %w", o.RestaurantID, apperr.NotFound)
	}

	if err := s.lifecycle.Transition(ctx, orderID, domain.StatusReady, lifecycle.Context{}); err != nil {
		return err
	}

	now := s.now()
	return s.emitter.Emit(ctx, event.OrderReady{
		OrderID:      orderID,
		RestaurantID: restaurant.ID,
		RestaurantLocation: domain.Location{
			Latitude:  restaurant.Latitude,
			Longitude: restaurant.Longitude,
			Timestamp: now,
		},
		Timestamp: now,
	})
}

// MarkPickedUp records the courier collecting the order.
func (s *Service) MarkPickedUp(ctx context.Context, orderID, courierID string) error {
	return s.lifecycle.Transition(ctx, orderID, domain.StatusPickedUp, lifecycle.Context{
		CourierID: courierID,
	})
}

// MarkInTransit records the courier heading to the customer.
func (s *Service) MarkInTransit(ctx context.Context, orderID, courierID string) error {
	return s.lifecycle.Transition(ctx, orderID, domain.StatusInTransit, lifecycle.Context{
		CourierID: courierID,
	})
}

// MarkDelivered closes the order durably and announces the delivery so the
// worker frees the courier.
func (s *Service) MarkDelivered(ctx context.Context, orderID string) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("order %q: %w", orderID, apperr.NotFound)
	}
	courierID := ""
	if o.CourierID != nil {
		courierID = *o.CourierID
	}

	now := s.now()
	if err := s.lifecycle.Transition(ctx, orderID, domain.StatusDelivered, lifecycle.Context{
		CourierID: courierID,
	}); err != nil {
		return err
	}

	return s.emitter.Emit(ctx, event.OrderDelivered{
		OrderID:     orderID,
		CourierID:   courierID,
		DeliveredAt: now,
		Timestamp:   now,
	})
}

// Cancel aborts the order from any non-terminal stage.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) error {
	tc := lifecycle.Context{}
	if reason != "" {
		tc.Metadata = map[string]any{"reason": reason}
	}
	return s.lifecycle.Transition(ctx, orderID, domain.StatusCancelled, tc)
}

// Get returns the durable order record.
func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %q: %w", orderID, apperr.NotFound)
	}
	return o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer id is required: %w", apperr.Invalid)
	}
	return s.orders.ListByCustomer(ctx, customerID)
}

// ListByStatus returns orders currently in the given status.
func (s *Service) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, apperr.Invalid)
	}
	return s.orders.ListByStatus(ctx, status)
}

// LiveStatus returns the snapshot-backed live view of the order.
func (s *Service) LiveStatus(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	return s.lifecycle.LiveStatus(ctx, orderID)
}
