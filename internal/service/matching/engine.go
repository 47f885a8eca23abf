// Package matching pairs ready orders with available couriers. Matching is
// triggered from both sides: an order becoming ready looks for a courier, a
// courier coming online or finishing a delivery looks for an order. Every
// event that creates supply or demand attempts a match, so no periodic sweep
// is needed.
package matching

import (
	"context"
	"fmt"
	"time"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
	"fooddispatch/internal/geo"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/metrics"
	"fooddispatch/internal/service/lifecycle"
)

// Engine is the dispatch/matching engine.
type Engine struct {
	registry    availabilityRegistry
	lifecycle   transitioner
	orders      orderStore
	restaurants restaurantStore
	emitter     emitter

	// pickupEstimate is the fixed offset added to now() for the estimated
	// pickup time carried on the assignment event. A distance-based estimate
	// would be an improvement; the constant matches the observed behavior of
	// the platform.
	pickupEstimate time.Duration

	counters *metrics.Matching
	logger   logx.Logger
	now      func() time.Time
}

// NewEngine creates a matching Engine.
func NewEngine(
	reg availabilityRegistry,
	lc transitioner,
	orders orderStore,
	restaurants restaurantStore,
	em emitter,
	pickupEstimate time.Duration,
	counters *metrics.Matching,
	logger logx.Logger,
) *Engine {
	if pickupEstimate <= 0 {
		pickupEstimate = 15 * time.Minute
	}
	return &Engine{
		registry:       reg,
		lifecycle:      lc,
		orders:         orders,
		restaurants:    restaurants,
		emitter:        em,
		pickupEstimate: pickupEstimate,
		counters:       counters,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// TryMatchOrder scans online couriers in listing order and pairs the order
// with the first available one. Returns false when nobody is available; the
// order stays queued for the next courier-side trigger.
func (e *Engine) TryMatchOrder(ctx context.Context, orderID string) (bool, error) {
	e.incAttempts()

	couriers, err := e.registry.ListOnlineCouriers(ctx)
	if err != nil {
		return false, err
	}
	if len(couriers) == 0 {
		e.logger.Debug("no online couriers", logx.String("order_id", orderID))
		return false, nil
	}

	for _, c := range couriers {
		available, err := e.registry.IsCourierAvailable(ctx, c.CourierID)
		if err != nil {
			return false, err
		}
		if !available {
			continue
		}

		// The claim may still lose to a concurrent match; keep scanning the
		// remaining pool in that case.
		paired, err := e.pair(ctx, orderID, c.CourierID)
		if err != nil {
			return false, err
		}
		if paired {
			return true, nil
		}
	}

	e.logger.Debug("no available couriers", logx.String("order_id", orderID))
	return false, nil
}

// TryMatchCourier pairs an available courier with the nearest unassigned
// order (first minimal wins). A courier whose location has expired stays
// eligible and falls back to the oldest queued order.
func (e *Engine) TryMatchCourier(ctx context.Context, courierID string) (bool, error) {
	e.incAttempts()

	available, err := e.registry.IsCourierAvailable(ctx, courierID)
	if err != nil {
		return false, err
	}
	if !available {
		return false, nil
	}

	pending, err := e.registry.ListUnassignedOrders(ctx)
	if err != nil {
		return false, err
	}
	if len(pending) == 0 {
		return false, nil
	}

	loc, err := e.registry.CourierLocation(ctx, courierID)
	if err != nil {
		return false, err
	}

	for _, entry := range e.rankCandidates(pending, loc) {
		paired, err := e.pair(ctx, entry.OrderID, courierID)
		if err != nil {
			return false, err
		}
		if paired {
			return true, nil
		}
	}
	return false, nil
}

// rankCandidates orders the pending set for a courier: nearest restaurant
// first when the courier has a known location, enqueue order otherwise (the
// list already arrives oldest-first).
func (e *Engine) rankCandidates(pending []domain.UnassignedOrder, loc *domain.Location) []domain.UnassignedOrder {
	if loc == nil {
		return pending
	}

	ranked := make([]domain.UnassignedOrder, len(pending))
	copy(ranked, pending)

	dist := make(map[string]float64, len(ranked))
	for _, entry := range ranked {
		dist[entry.OrderID] = geo.DistanceKm(loc.Latitude, loc.Longitude, entry.Latitude, entry.Longitude)
	}
	// Stable selection sort: ties keep encounter order, first minimal wins.
	for i := range ranked {
		min := i
		for j := i + 1; j < len(ranked); j++ {
			if dist[ranked[j].OrderID] < dist[ranked[min].OrderID] {
				min = j
			}
		}
		ranked[i], ranked[min] = ranked[min], ranked[i]
	}
	return ranked
}

// pair performs the assignment: atomic registry claim, durable transition
// to assigned, dequeue, and the order.assigned emission. Returns false
// without error when the claim lost a race.
func (e *Engine) pair(ctx context.Context, orderID, courierID string) (bool, error) {
	claimed, err := e.registry.AssignOrderToCourier(ctx, orderID, courierID)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	if err := e.completePairing(ctx, orderID, courierID); err != nil {
		// The claim is held but the pairing did not stick; release both sides
		// so the pool is not poisoned, then let redelivery retry.
		e.releaseClaim(ctx, orderID, courierID)
		return false, err
	}

	e.incMatches()
	e.logger.Info("order assigned",
		logx.String("order_id", orderID),
		logx.String("courier_id", courierID),
	)
	return true, nil
}

func (e *Engine) completePairing(ctx context.Context, orderID, courierID string) error {
	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %q: %w", orderID, apperr.NotFound)
	}

	if err := e.lifecycle.Transition(ctx, orderID, domain.StatusAssigned, lifecycle.Context{
		CourierID: courierID,
		Metadata:  map[string]any{"courier_id": courierID},
	}); err != nil {
		return err
	}

	// Dequeue only after the durable transition succeeds. The claim already
	// hides the order from rival pairings, and a failure before this point
	// must leave the order in the pending set for the next attempt.
	if err := e.registry.DequeueUnassignedOrder(ctx, orderID); err != nil {
		return err
	}

	now := e.now()
	return e.emitter.Emit(ctx, event.OrderAssigned{
		OrderID:             orderID,
		CourierID:           courierID,
		RestaurantID:        order.RestaurantID,
		EstimatedPickupTime: now.Add(e.pickupEstimate),
		Timestamp:           now,
	})
}

func (e *Engine) releaseClaim(ctx context.Context, orderID, courierID string) {
	if err := e.registry.ClearCourierAssignment(ctx, courierID); err != nil {
		e.logger.Error("release courier claim failed", logx.String("courier_id", courierID), logx.Err(err))
	}
	if err := e.registry.ClearOrderAssignment(ctx, orderID); err != nil {
		e.logger.Error("release order claim failed", logx.String("order_id", orderID), logx.Err(err))
	}
}

// ReassignOrder handles a courier dropping out while holding an order: the
// assignment is cleared, the order re-enters the pending set as ready, and a
// new match is attempted immediately. Returns false when no courier is
// available; the order stays queued.
func (e *Engine) ReassignOrder(ctx context.Context, orderID, previousCourierID string) (bool, error) {
	if err := e.registry.ClearCourierAssignment(ctx, previousCourierID); err != nil {
		return false, err
	}
	if err := e.registry.ClearOrderAssignment(ctx, orderID); err != nil {
		return false, err
	}

	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, fmt.Errorf("reassign: order %q: %w", orderID, apperr.NotFound)
	}
	restaurant, err := e.restaurants.Get(ctx, order.RestaurantID)
	if err != nil {
		return false, err
	}
	if restaurant == nil {
		return false, fmt.Errorf("reassign: restaurant %q: %w", order.RestaurantID, apperr.NotFound)
	}

	if err := e.registry.EnqueueUnassignedOrder(ctx, domain.UnassignedOrder{
		OrderID:      orderID,
		RestaurantID: restaurant.ID,
		Latitude:     restaurant.Latitude,
		Longitude:    restaurant.Longitude,
		EnqueuedAt:   e.now(),
	}); err != nil {
		return false, err
	}

	if err := e.lifecycle.Transition(ctx, orderID, domain.StatusReady, lifecycle.Context{
		Metadata: map[string]any{
			"reassigned":          true,
			"previous_courier_id": previousCourierID,
		},
	}); err != nil {
		return false, err
	}

	e.incReassignments()
	e.logger.Info("order reassignment started",
		logx.String("order_id", orderID),
		logx.String("previous_courier_id", previousCourierID),
	)

	matched, err := e.TryMatchOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !matched {
		e.logger.Info("order waiting for a new courier", logx.String("order_id", orderID))
	}
	return matched, nil
}

// Stats is a point-in-time, non-atomic aggregate for observability.
type Stats struct {
	UnassignedOrders  int `json:"unassignedOrders"`
	OnlineCouriers    int `json:"onlineCouriers"`
	AvailableCouriers int `json:"availableCouriers"`
}

// Stats counts unassigned orders and online/available couriers.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	pending, err := e.registry.ListUnassignedOrders(ctx)
	if err != nil {
		return Stats{}, err
	}
	couriers, err := e.registry.ListOnlineCouriers(ctx)
	if err != nil {
		return Stats{}, err
	}

	available := 0
	for _, c := range couriers {
		ok, err := e.registry.IsCourierAvailable(ctx, c.CourierID)
		if err != nil {
			return Stats{}, err
		}
		if ok {
			available++
		}
	}
	return Stats{
		UnassignedOrders:  len(pending),
		OnlineCouriers:    len(couriers),
		AvailableCouriers: available,
	}, nil
}

func (e *Engine) incAttempts() {
	if e.counters != nil {
		e.counters.Attempts.Inc()
	}
}

func (e *Engine) incMatches() {
	if e.counters != nil {
		e.counters.Matches.Inc()
	}
}

func (e *Engine) incReassignments() {
	if e.counters != nil {
		e.counters.Reassignments.Inc()
	}
}
