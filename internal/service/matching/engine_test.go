package matching_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/service/lifecycle"
	"fooddispatch/internal/service/matching"
)

// fakeRegistry mirrors the Redis registry's conditional-claim semantics: a
// claim wins only when both the courier and the order are currently free,
// checked and set under one lock.
type fakeRegistry struct {
	mu sync.Mutex

	online        []string
	locations     map[string]*domain.Location
	courierOrders map[string]string
	orderCouriers map[string]string
	pending       []domain.UnassignedOrder
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		locations:     map[string]*domain.Location{},
		courierOrders: map[string]string{},
		orderCouriers: map[string]string{},
	}
}

func (f *fakeRegistry) ListOnlineCouriers(context.Context) ([]domain.CourierPresence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CourierPresence, 0, len(f.online))
	for _, id := range f.online {
		out = append(out, domain.CourierPresence{CourierID: id})
	}
	return out, nil
}

func (f *fakeRegistry) IsCourierAvailable(_ context.Context, courierID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	online := false
	for _, id := range f.online {
		if id == courierID {
			online = true
		}
	}
	return online && f.courierOrders[courierID] == "", nil
}

func (f *fakeRegistry) AssignOrderToCourier(_ context.Context, orderID, courierID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.courierOrders[courierID] != "" || f.orderCouriers[orderID] != "" {
		return false, nil
	}
	f.courierOrders[courierID] = orderID
	f.orderCouriers[orderID] = courierID
	return true, nil
}

func (f *fakeRegistry) ClearCourierAssignment(_ context.Context, courierID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.courierOrders, courierID)
	return nil
}

func (f *fakeRegistry) ClearOrderAssignment(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.orderCouriers, orderID)
	return nil
}

func (f *fakeRegistry) CourierLocation(_ context.Context, courierID string) (*domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locations[courierID], nil
}

func (f *fakeRegistry) EnqueueUnassignedOrder(_ context.Context, entry domain.UnassignedOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, entry)
	return nil
}

func (f *fakeRegistry) DequeueUnassignedOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.pending {
		if e.OrderID == orderID {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRegistry) ListUnassignedOrders(context.Context) ([]domain.UnassignedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.UnassignedOrder, len(f.pending))
	copy(out, f.pending)
	return out, nil
}

type fakeLifecycle struct {
	mu          sync.Mutex
	transitions []string
	statuses    map[string]domain.OrderStatus
	failWith    error
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{statuses: map[string]domain.OrderStatus{}}
}

func (f *fakeLifecycle) Transition(_ context.Context, orderID string, newStatus domain.OrderStatus, _ lifecycle.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.transitions = append(f.transitions, orderID+":"+string(newStatus))
	f.statuses[orderID] = newStatus
	return nil
}

type fakeOrders struct {
	orders map[string]*domain.Order
}

func (f *fakeOrders) Get(_ context.Context, id string) (*domain.Order, error) {
	return f.orders[id], nil
}

type fakeRestaurants struct {
	restaurants map[string]*domain.Restaurant
}

func (f *fakeRestaurants) Get(_ context.Context, id string) (*domain.Restaurant, error) {
	return f.restaurants[id], nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []event.Event
}

func (f *fakeEmitter) Emit(_ context.Context, ev event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEmitter) assigned() []event.OrderAssigned {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []event.OrderAssigned
	for _, ev := range f.events {
		if a, ok := ev.(event.OrderAssigned); ok {
			out = append(out, a)
		}
	}
	return out
}

type fixture struct {
	reg         *fakeRegistry
	lc          *fakeLifecycle
	orders      *fakeOrders
	restaurants *fakeRestaurants
	emitter     *fakeEmitter
	engine      *matching.Engine
}

func newFixture() *fixture {
	f := &fixture{
		reg:         newFakeRegistry(),
		lc:          newFakeLifecycle(),
		orders:      &fakeOrders{orders: map[string]*domain.Order{}},
		restaurants: &fakeRestaurants{restaurants: map[string]*domain.Restaurant{}},
		emitter:     &fakeEmitter{},
	}
	f.engine = matching.NewEngine(
		f.reg, f.lc, f.orders, f.restaurants, f.emitter,
		15*time.Minute, nil, logx.Nop(),
	)
	return f
}

func (f *fixture) addOrder(id, restaurantID string, status domain.OrderStatus) {
	f.orders.orders[id] = &domain.Order{ID: id, RestaurantID: restaurantID, Status: status}
}

func (f *fixture) enqueue(orderID, restaurantID string, lat, lon float64, at time.Time) {
	f.reg.pending = append(f.reg.pending, domain.UnassignedOrder{
		OrderID: orderID, RestaurantID: restaurantID,
		Latitude: lat, Longitude: lon, EnqueuedAt: at,
	})
}

func TestTryMatchOrder_NoCouriers(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("o1", "r1", domain.StatusReady)
	f.enqueue("o1", "r1", 0, 0, time.Now())

	matched, err := f.engine.TryMatchOrder(context.Background(), "o1")
	require.NoError(t, err)
	require.False(t, matched)
	// The order stays queued for the next courier-side trigger.
	require.Len(t, f.reg.pending, 1)
	require.Empty(t, f.lc.transitions)
}

func TestTryMatchOrder_FirstAvailableWins(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("o1", "r1", domain.StatusReady)
	f.enqueue("o1", "r1", 0, 0, time.Now())
	f.reg.online = []string{"busy-courier", "free-courier"}
	f.reg.courierOrders["busy-courier"] = "other-order"

	matched, err := f.engine.TryMatchOrder(context.Background(), "o1")
	require.NoError(t, err)
	require.True(t, matched)

	require.Equal(t, "o1", f.reg.courierOrders["free-courier"])
	require.Equal(t, "free-courier", f.reg.orderCouriers["o1"])
	require.Empty(t, f.reg.pending)
	require.Equal(t, []string{"o1:assigned"}, f.lc.transitions)

	assigned := f.emitter.assigned()
	require.Len(t, assigned, 1)
	require.Equal(t, "free-courier", assigned[0].CourierID)
	require.Equal(t, "r1", assigned[0].RestaurantID)
	require.Equal(t, 15*time.Minute, assigned[0].EstimatedPickupTime.Sub(assigned[0].Timestamp))
}

func TestTryMatchOrder_FailedPairingKeepsOrderQueued(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("o1", "r1", domain.StatusReady)
	f.enqueue("o1", "r1", 0, 0, time.Now())
	f.reg.online = []string{"k1"}
	f.lc.failWith = errors.New("status store down")

	matched, err := f.engine.TryMatchOrder(context.Background(), "o1")
	require.Error(t, err)
	require.False(t, matched)

	// The order must survive the failed attempt: still queued, claim
	// released on both sides, so the next trigger can pair it again.
	require.Len(t, f.reg.pending, 1)
	require.Equal(t, "o1", f.reg.pending[0].OrderID)
	require.Empty(t, f.reg.courierOrders["k1"])
	require.Empty(t, f.reg.orderCouriers["o1"])
	require.Empty(t, f.emitter.assigned())
}

func TestTryMatchCourier_PicksNearestOrder(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("far", "r1", domain.StatusReady)
	f.addOrder("near", "r2", domain.StatusReady)
	f.addOrder("farther", "r3", domain.StatusReady)

	base := time.Now()
	f.enqueue("far", "r1", 52.60, 13.40, base)
	f.enqueue("near", "r2", 52.52, 13.40, base.Add(time.Second))
	f.enqueue("farther", "r3", 53.00, 13.40, base.Add(2*time.Second))

	f.reg.online = []string{"k1"}
	f.reg.locations["k1"] = &domain.Location{Latitude: 52.52, Longitude: 13.405}

	matched, err := f.engine.TryMatchCourier(context.Background(), "k1")
	require.NoError(t, err)
	require.True(t, matched)
	require.Equal(t, "near", f.reg.courierOrders["k1"])
}

func TestTryMatchCourier_TieKeepsEncounterOrder(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("first", "r1", domain.StatusReady)
	f.addOrder("second", "r2", domain.StatusReady)

	base := time.Now()
	// Identical coordinates: first minimal wins.
	f.enqueue("first", "r1", 48.85, 2.35, base)
	f.enqueue("second", "r2", 48.85, 2.35, base.Add(time.Second))

	f.reg.online = []string{"k1"}
	f.reg.locations["k1"] = &domain.Location{Latitude: 48.86, Longitude: 2.35}

	matched, err := f.engine.TryMatchCourier(context.Background(), "k1")
	require.NoError(t, err)
	require.True(t, matched)
	require.Equal(t, "first", f.reg.courierOrders["k1"])
}

func TestTryMatchCourier_NoLocationFallsBackToOldest(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("oldest", "r1", domain.StatusReady)
	f.addOrder("newest", "r2", domain.StatusReady)

	base := time.Now()
	f.enqueue("oldest", "r1", 10, 10, base)
	f.enqueue("newest", "r2", 0, 0, base.Add(time.Minute))

	f.reg.online = []string{"k1"}
	// Location expired: the courier stays matchable.

	matched, err := f.engine.TryMatchCourier(context.Background(), "k1")
	require.NoError(t, err)
	require.True(t, matched)
	require.Equal(t, "oldest", f.reg.courierOrders["k1"])
}

func TestTryMatchCourier_UnavailableIsNoop(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.enqueue("o1", "r1", 0, 0, time.Now())
	f.reg.online = []string{"k1"}
	f.reg.courierOrders["k1"] = "held-order"

	matched, err := f.engine.TryMatchCourier(context.Background(), "k1")
	require.NoError(t, err)
	require.False(t, matched)
	require.Len(t, f.reg.pending, 1)
}

func TestAssignmentRace_ExactlyOneWinner(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("o1", "r1", domain.StatusReady)
	f.addOrder("o2", "r1", domain.StatusReady)
	f.enqueue("o1", "r1", 0, 0, time.Now())
	f.enqueue("o2", "r1", 0, 0, time.Now().Add(time.Second))
	f.reg.online = []string{"k1"}

	// An order-side and a courier-side trigger race for the single courier.
	var wg sync.WaitGroup
	results := make([]bool, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ok, err := f.engine.TryMatchOrder(context.Background(), "o1")
		require.NoError(t, err)
		results[0] = ok
	}()
	go func() {
		defer wg.Done()
		ok, err := f.engine.TryMatchCourier(context.Background(), "k1")
		require.NoError(t, err)
		results[1] = ok
	}()
	wg.Wait()

	// The courier holds exactly one order, and that order points back at it.
	held := f.reg.courierOrders["k1"]
	require.NotEmpty(t, held)
	require.Equal(t, "k1", f.reg.orderCouriers[held])

	assignedOrders := 0
	for _, courier := range f.reg.orderCouriers {
		if courier != "" {
			assignedOrders++
		}
	}
	require.Equal(t, 1, assignedOrders, "single courier must hold exactly one order")
}

func TestAssignmentInvariant_AfterManyMatches(t *testing.T) {
	t.Parallel()

	f := newFixture()
	base := time.Now()
	for _, id := range []string{"o1", "o2", "o3", "o4"} {
		f.addOrder(id, "r1", domain.StatusReady)
		f.enqueue(id, "r1", 0, 0, base)
		base = base.Add(time.Second)
	}
	f.reg.online = []string{"k1", "k2"}

	var wg sync.WaitGroup
	for _, id := range []string{"o1", "o2", "o3", "o4"} {
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			_, err := f.engine.TryMatchOrder(context.Background(), orderID)
			require.NoError(t, err)
		}(id)
	}
	for _, id := range []string{"k1", "k2"} {
		wg.Add(1)
		go func(courierID string) {
			defer wg.Done()
			_, err := f.engine.TryMatchCourier(context.Background(), courierID)
			require.NoError(t, err)
		}(id)
	}
	wg.Wait()

	// No courier holds two orders and no order has two couriers.
	seenOrders := map[string]string{}
	for courier, order := range f.reg.courierOrders {
		if order == "" {
			continue
		}
		prev, dup := seenOrders[order]
		require.Falsef(t, dup, "order %s held by %s and %s", order, prev, courier)
		seenOrders[order] = courier
		require.Equal(t, courier, f.reg.orderCouriers[order])
	}
}

func TestReassignOrder_MovesToRemainingCourier(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("o1", "r1", domain.StatusAssigned)
	f.restaurants.restaurants["r1"] = &domain.Restaurant{ID: "r1", Latitude: 50, Longitude: 8}

	// Courier A held the order and dropped out; courier B is still online.
	f.reg.online = []string{"courier-b"}
	f.reg.courierOrders["courier-a"] = "o1"
	f.reg.orderCouriers["o1"] = "courier-a"

	matched, err := f.engine.ReassignOrder(context.Background(), "o1", "courier-a")
	require.NoError(t, err)
	require.True(t, matched)

	require.Empty(t, f.reg.courierOrders["courier-a"])
	require.Equal(t, "o1", f.reg.courierOrders["courier-b"])
	require.Equal(t, "courier-b", f.reg.orderCouriers["o1"])
	// ready (reassignment) then assigned (new pairing).
	require.Equal(t, []string{"o1:ready", "o1:assigned"}, f.lc.transitions)
}

func TestReassignOrder_NoCourierLeft_StaysQueued(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("o1", "r1", domain.StatusAssigned)
	f.restaurants.restaurants["r1"] = &domain.Restaurant{ID: "r1", Latitude: 50, Longitude: 8}
	f.reg.courierOrders["courier-a"] = "o1"
	f.reg.orderCouriers["o1"] = "courier-a"

	matched, err := f.engine.ReassignOrder(context.Background(), "o1", "courier-a")
	require.NoError(t, err)
	require.False(t, matched)

	require.Len(t, f.reg.pending, 1)
	require.Equal(t, "o1", f.reg.pending[0].OrderID)
	require.Equal(t, []string{"o1:ready"}, f.lc.transitions)
}

func TestReassignOrder_RestaurantMissing(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addOrder("o1", "ghost", domain.StatusAssigned)

	_, err := f.engine.ReassignOrder(context.Background(), "o1", "courier-a")
	require.ErrorIs(t, err, apperr.NotFound)
}

func TestStats(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.enqueue("o1", "r1", 0, 0, time.Now())
	f.enqueue("o2", "r1", 0, 0, time.Now())
	f.reg.online = []string{"k1", "k2", "k3"}
	f.reg.courierOrders["k2"] = "held"

	stats, err := f.engine.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, matching.Stats{
		UnassignedOrders:  2,
		OnlineCouriers:    3,
		AvailableCouriers: 2,
	}, stats)
}
