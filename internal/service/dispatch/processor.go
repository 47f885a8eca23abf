// Package dispatch wires consumed events to their effects: snapshot writes,
// durable transitions, availability bookkeeping, and matching triggers.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/service/lifecycle"
	"fooddispatch/internal/transport/kafka"
)

// Processor reacts to every consumed event. Handlers are idempotent: an event
// redelivered after a partial failure re-applies the same effects without
// diverging state.
type Processor struct {
	registry  availabilityRegistry
	matching  matcher
	lifecycle transitioner
	couriers  courierStore

	consumed *prometheus.CounterVec
	logger   logx.Logger
}

func NewProcessor(
	reg availabilityRegistry,
	m matcher,
	lc transitioner,
	couriers courierStore,
	consumed *prometheus.CounterVec,
	logger logx.Logger,
) *Processor {
	return &Processor{
		registry:  reg,
		matching:  m,
		lifecycle: lc,
		couriers:  couriers,
		consumed:  consumed,
		logger:    logger,
	}
}

// Handle routes one event to its handler. The switch is exhaustive over the
// event kinds; an unknown dynamic type means a decoder bug, not bad input.
func (p *Processor) Handle(ctx context.Context, ev event.Event) error {
	if p.consumed != nil {
		p.consumed.WithLabelValues(ev.Topic()).Inc()
	}

	var err error
	switch e := ev.(type) {
	case event.OrderCreated:
		err = p.orderCreated(ctx, e)
	case event.OrderReady:
		err = p.orderReady(ctx, e)
	case event.OrderAssigned:
		err = p.orderAssigned(ctx, e)
	case event.OrderDelivered:
		err = p.orderDelivered(ctx, e)
	case event.CourierOnline:
		err = p.courierOnline(ctx, e)
	case event.CourierLocation:
		err = p.courierLocation(ctx, e)
	case event.CourierOffline:
		err = p.courierOffline(ctx, e)
	default:
		return kafka.Permanent(fmt.Errorf("unhandled event type %T", ev))
	}

	// An illegal transition or a missing order will fail the same way on
	// every redelivery. Mark such errors permanent so the consumer skips
	// the message instead of wedging the partition.
	if errors.Is(err, apperr.InvalidTransition) || errors.Is(err, apperr.NotFound) {
		return kafka.Permanent(err)
	}
	return err
}

// orderCreated seeds the live snapshot so status queries work before the
// order reaches the matching stage.
func (p *Processor) orderCreated(ctx context.Context, e event.OrderCreated) error {
	err := p.registry.SetOrderSnapshot(ctx, domain.OrderSnapshot{
		OrderID:   e.OrderID,
		Status:    domain.StatusCreated,
		UpdatedAt: e.Timestamp,
		Extra: map[string]any{
			"customer_id":   e.CustomerID,
			"restaurant_id": e.RestaurantID,
			"total_amount":  e.TotalAmount,
		},
	})
	if err != nil {
		return err
	}
	p.logger.Info("order snapshot seeded", logx.String("order_id", e.OrderID))
	return nil
}

// orderReady queues the order for matching and tries to pair it immediately.
func (p *Processor) orderReady(ctx context.Context, e event.OrderReady) error {
	err := p.registry.EnqueueUnassignedOrder(ctx, domain.UnassignedOrder{
		OrderID:      e.OrderID,
		RestaurantID: e.RestaurantID,
		Latitude:     e.RestaurantLocation.Latitude,
		Longitude:    e.RestaurantLocation.Longitude,
		EnqueuedAt:   e.Timestamp,
	})
	if err != nil {
		return err
	}
	if err := p.registry.SetOrderSnapshot(ctx, domain.OrderSnapshot{
		OrderID:   e.OrderID,
		Status:    domain.StatusReady,
		UpdatedAt: e.Timestamp,
	}); err != nil {
		return err
	}

	matched, err := p.matching.TryMatchOrder(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if !matched {
		p.logger.Info("order queued, no courier available", logx.String("order_id", e.OrderID))
	}
	return nil
}

// orderAssigned applies the durable transition for a pairing decided by the
// matching engine. When the engine ran in this process the transition is a
// no-op re-apply.
func (p *Processor) orderAssigned(ctx context.Context, e event.OrderAssigned) error {
	return p.lifecycle.Transition(ctx, e.OrderID, domain.StatusAssigned, lifecycle.Context{
		CourierID: e.CourierID,
		Metadata: map[string]any{
			"courier_id":            e.CourierID,
			"estimated_pickup_time": e.EstimatedPickupTime,
		},
	})
}

// orderDelivered closes the order, frees the courier, and immediately looks
// for the courier's next order.
func (p *Processor) orderDelivered(ctx context.Context, e event.OrderDelivered) error {
	if err := p.lifecycle.Transition(ctx, e.OrderID, domain.StatusDelivered, lifecycle.Context{
		CourierID: e.CourierID,
		Metadata:  map[string]any{"delivered_at": e.DeliveredAt},
	}); err != nil {
		return err
	}

	if err := p.registry.ClearCourierAssignment(ctx, e.CourierID); err != nil {
		return err
	}
	if err := p.registry.ClearOrderAssignment(ctx, e.OrderID); err != nil {
		return err
	}
	if err := p.couriers.UpdateStatus(ctx, e.CourierID, domain.CourierOnline); err != nil {
		return err
	}

	matched, err := p.matching.TryMatchCourier(ctx, e.CourierID)
	if err != nil {
		return err
	}
	p.logger.Info("delivery completed",
		logx.String("order_id", e.OrderID),
		logx.String("courier_id", e.CourierID),
		logx.Any("rematched", matched),
	)
	return nil
}

// courierOnline registers presence, records durable status, and tries to
// hand the courier a waiting order.
func (p *Processor) courierOnline(ctx context.Context, e event.CourierOnline) error {
	if err := p.registry.MarkCourierOnline(ctx, e.CourierID, e.Location); err != nil {
		return err
	}
	if err := p.couriers.UpdateStatus(ctx, e.CourierID, domain.CourierOnline); err != nil {
		return err
	}

	matched, err := p.matching.TryMatchCourier(ctx, e.CourierID)
	if err != nil {
		return err
	}
	p.logger.Info("courier online",
		logx.String("courier_id", e.CourierID),
		logx.Any("matched", matched),
	)
	return nil
}

// courierLocation refreshes the ephemeral position, appends durable history,
// and enriches the held order's snapshot so customers see the courier move.
func (p *Processor) courierLocation(ctx context.Context, e event.CourierLocation) error {
	if err := p.registry.UpdateCourierLocation(ctx, e.CourierID, e.Location); err != nil {
		return err
	}
	if err := p.couriers.AppendLocation(ctx, e.CourierID, e.Location); err != nil {
		return err
	}

	orderID := e.CurrentOrderID
	if orderID == "" {
		held, err := p.registry.CourierCurrentOrder(ctx, e.CourierID)
		if err != nil {
			return err
		}
		orderID = held
	}
	if orderID == "" {
		return nil
	}

	snap, err := p.registry.OrderSnapshot(ctx, orderID)
	if err != nil {
		return err
	}
	if snap == nil {
		// Snapshot expired; the durable record is still authoritative.
		return nil
	}
	loc := e.Location
	snap.CourierLocation = &loc
	snap.UpdatedAt = e.Timestamp
	return p.registry.SetOrderSnapshot(ctx, *snap)
}

// courierOffline removes the courier from the pool first and only then
// reassigns any held order. Rematching while the courier is still listed
// online would let it win its own order back.
func (p *Processor) courierOffline(ctx context.Context, e event.CourierOffline) error {
	held, err := p.registry.CourierCurrentOrder(ctx, e.CourierID)
	if err != nil {
		return err
	}

	if err := p.registry.MarkCourierOffline(ctx, e.CourierID); err != nil {
		return err
	}
	if err := p.couriers.UpdateStatus(ctx, e.CourierID, domain.CourierOffline); err != nil {
		return err
	}

	if held != "" {
		if _, err := p.matching.ReassignOrder(ctx, held, e.CourierID); err != nil {
			return err
		}
	}

	p.logger.Info("courier offline",
		logx.String("courier_id", e.CourierID),
		logx.Any("had_order", held != ""),
	)
	return nil
}
