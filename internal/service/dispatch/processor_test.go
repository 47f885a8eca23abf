package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/service/dispatch"
	"fooddispatch/internal/service/lifecycle"
	"fooddispatch/internal/transport/kafka"
)

type stubRegistry struct {
	online        map[string]domain.Location
	courierOrders map[string]string
	orderCouriers map[string]string
	pending       []domain.UnassignedOrder
	snapshots     map[string]domain.OrderSnapshot
	locations     map[string]domain.Location
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{
		online:        map[string]domain.Location{},
		courierOrders: map[string]string{},
		orderCouriers: map[string]string{},
		snapshots:     map[string]domain.OrderSnapshot{},
		locations:     map[string]domain.Location{},
	}
}

func (s *stubRegistry) MarkCourierOnline(_ context.Context, courierID string, loc domain.Location) error {
	s.online[courierID] = loc
	s.locations[courierID] = loc
	return nil
}

func (s *stubRegistry) MarkCourierOffline(_ context.Context, courierID string) error {
	delete(s.online, courierID)
	delete(s.locations, courierID)
	return nil
}

func (s *stubRegistry) UpdateCourierLocation(_ context.Context, courierID string, loc domain.Location) error {
	s.locations[courierID] = loc
	return nil
}

func (s *stubRegistry) CourierCurrentOrder(_ context.Context, courierID string) (string, error) {
	return s.courierOrders[courierID], nil
}

func (s *stubRegistry) ClearCourierAssignment(_ context.Context, courierID string) error {
	delete(s.courierOrders, courierID)
	return nil
}

func (s *stubRegistry) ClearOrderAssignment(_ context.Context, orderID string) error {
	delete(s.orderCouriers, orderID)
	return nil
}

func (s *stubRegistry) EnqueueUnassignedOrder(_ context.Context, entry domain.UnassignedOrder) error {
	s.pending = append(s.pending, entry)
	return nil
}

func (s *stubRegistry) SetOrderSnapshot(_ context.Context, snap domain.OrderSnapshot) error {
	s.snapshots[snap.OrderID] = snap
	return nil
}

func (s *stubRegistry) OrderSnapshot(_ context.Context, orderID string) (*domain.OrderSnapshot, error) {
	snap, ok := s.snapshots[orderID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

type stubMatcher struct {
	orderCalls   []string
	courierCalls []string
	reassigned   [][2]string
	matchResult  bool
}

func (s *stubMatcher) TryMatchOrder(_ context.Context, orderID string) (bool, error) {
	s.orderCalls = append(s.orderCalls, orderID)
	return s.matchResult, nil
}

func (s *stubMatcher) TryMatchCourier(_ context.Context, courierID string) (bool, error) {
	s.courierCalls = append(s.courierCalls, courierID)
	return s.matchResult, nil
}

func (s *stubMatcher) ReassignOrder(_ context.Context, orderID, previousCourierID string) (bool, error) {
	s.reassigned = append(s.reassigned, [2]string{orderID, previousCourierID})
	return s.matchResult, nil
}

type stubLifecycle struct {
	transitions []transitionCall
	failWith    error
}

type transitionCall struct {
	orderID string
	status  domain.OrderStatus
	tc      lifecycle.Context
}

func (s *stubLifecycle) Transition(_ context.Context, orderID string, newStatus domain.OrderStatus, tc lifecycle.Context) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.transitions = append(s.transitions, transitionCall{orderID, newStatus, tc})
	return nil
}

type stubCouriers struct {
	statuses  map[string]domain.CourierStatus
	locations map[string][]domain.Location
}

func newStubCouriers() *stubCouriers {
	return &stubCouriers{
		statuses:  map[string]domain.CourierStatus{},
		locations: map[string][]domain.Location{},
	}
}

func (s *stubCouriers) UpdateStatus(_ context.Context, id string, status domain.CourierStatus) error {
	s.statuses[id] = status
	return nil
}

func (s *stubCouriers) AppendLocation(_ context.Context, courierID string, loc domain.Location) error {
	s.locations[courierID] = append(s.locations[courierID], loc)
	return nil
}

type procFixture struct {
	reg      *stubRegistry
	matcher  *stubMatcher
	lc       *stubLifecycle
	couriers *stubCouriers
	proc     *dispatch.Processor
}

func newProcFixture() *procFixture {
	f := &procFixture{
		reg:      newStubRegistry(),
		matcher:  &stubMatcher{},
		lc:       &stubLifecycle{},
		couriers: newStubCouriers(),
	}
	f.proc = dispatch.NewProcessor(f.reg, f.matcher, f.lc, f.couriers, nil, logx.Nop())
	return f
}

func TestHandle_OrderCreated_SeedsSnapshot(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := f.proc.Handle(context.Background(), event.OrderCreated{
		OrderID:      "o1",
		CustomerID:   "c1",
		RestaurantID: "r1",
		TotalAmount:  42.5,
		Timestamp:    ts,
	})
	require.NoError(t, err)

	snap := f.reg.snapshots["o1"]
	require.Equal(t, domain.StatusCreated, snap.Status)
	require.Equal(t, ts, snap.UpdatedAt)
	require.Equal(t, "c1", snap.Extra["customer_id"])
	require.Equal(t, 42.5, snap.Extra["total_amount"])
}

func TestHandle_OrderReady_QueuesAndMatches(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	ts := time.Now().UTC()

	err := f.proc.Handle(context.Background(), event.OrderReady{
		OrderID:            "o1",
		RestaurantID:       "r1",
		RestaurantLocation: domain.Location{Latitude: 52.5, Longitude: 13.4},
		Timestamp:          ts,
	})
	require.NoError(t, err)

	require.Len(t, f.reg.pending, 1)
	require.Equal(t, "o1", f.reg.pending[0].OrderID)
	require.Equal(t, 52.5, f.reg.pending[0].Latitude)
	require.Equal(t, ts, f.reg.pending[0].EnqueuedAt)
	require.Equal(t, domain.StatusReady, f.reg.snapshots["o1"].Status)
	require.Equal(t, []string{"o1"}, f.matcher.orderCalls)
}

func TestHandle_OrderAssigned_AppliesTransition(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	eta := time.Now().Add(15 * time.Minute)

	err := f.proc.Handle(context.Background(), event.OrderAssigned{
		OrderID:             "o1",
		CourierID:           "k1",
		EstimatedPickupTime: eta,
	})
	require.NoError(t, err)

	require.Len(t, f.lc.transitions, 1)
	call := f.lc.transitions[0]
	require.Equal(t, "o1", call.orderID)
	require.Equal(t, domain.StatusAssigned, call.status)
	require.Equal(t, "k1", call.tc.CourierID)
	require.Equal(t, eta, call.tc.Metadata["estimated_pickup_time"])
}

func TestHandle_OrderDelivered_FreesCourier(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	f.reg.courierOrders["k1"] = "o1"
	f.reg.orderCouriers["o1"] = "k1"

	err := f.proc.Handle(context.Background(), event.OrderDelivered{
		OrderID:   "o1",
		CourierID: "k1",
	})
	require.NoError(t, err)

	require.Len(t, f.lc.transitions, 1)
	require.Equal(t, domain.StatusDelivered, f.lc.transitions[0].status)
	require.Empty(t, f.reg.courierOrders)
	require.Empty(t, f.reg.orderCouriers)
	require.Equal(t, domain.CourierOnline, f.couriers.statuses["k1"])
	require.Equal(t, []string{"k1"}, f.matcher.courierCalls)
}

func TestHandle_CourierOnline_RegistersAndMatches(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	loc := domain.Location{Latitude: 48.8, Longitude: 2.3}

	err := f.proc.Handle(context.Background(), event.CourierOnline{
		CourierID: "k1",
		Location:  loc,
	})
	require.NoError(t, err)

	require.Equal(t, loc, f.reg.online["k1"])
	require.Equal(t, domain.CourierOnline, f.couriers.statuses["k1"])
	require.Equal(t, []string{"k1"}, f.matcher.courierCalls)
}

func TestHandle_CourierLocation_RefreshesHeldOrderSnapshot(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	f.reg.courierOrders["k1"] = "o1"
	f.reg.snapshots["o1"] = domain.OrderSnapshot{OrderID: "o1", Status: domain.StatusInTransit}

	ts := time.Now().UTC()
	loc := domain.Location{Latitude: 48.81, Longitude: 2.31, Timestamp: ts}
	err := f.proc.Handle(context.Background(), event.CourierLocation{
		CourierID: "k1",
		Location:  loc,
		Timestamp: ts,
	})
	require.NoError(t, err)

	require.Equal(t, loc, f.reg.locations["k1"])
	require.Equal(t, []domain.Location{loc}, f.couriers.locations["k1"])

	snap := f.reg.snapshots["o1"]
	require.NotNil(t, snap.CourierLocation)
	require.Equal(t, loc, *snap.CourierLocation)
	require.Equal(t, ts, snap.UpdatedAt)
}

func TestHandle_CourierLocation_NoHeldOrder(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	loc := domain.Location{Latitude: 1, Longitude: 2}

	err := f.proc.Handle(context.Background(), event.CourierLocation{
		CourierID: "k1",
		Location:  loc,
	})
	require.NoError(t, err)
	require.Empty(t, f.reg.snapshots)
}

func TestHandle_CourierLocation_ExpiredSnapshotIsFine(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	f.reg.courierOrders["k1"] = "o1"
	// No snapshot for o1: it expired. The update must not fail.
	err := f.proc.Handle(context.Background(), event.CourierLocation{
		CourierID: "k1",
		Location:  domain.Location{Latitude: 1, Longitude: 2},
	})
	require.NoError(t, err)
}

func TestHandle_CourierOffline_ReassignsHeldOrder(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	f.reg.online["k1"] = domain.Location{}
	f.reg.courierOrders["k1"] = "o1"

	err := f.proc.Handle(context.Background(), event.CourierOffline{CourierID: "k1"})
	require.NoError(t, err)

	require.Equal(t, [][2]string{{"o1", "k1"}}, f.matcher.reassigned)
	require.NotContains(t, f.reg.online, "k1")
	require.Equal(t, domain.CourierOffline, f.couriers.statuses["k1"])
}

func TestHandle_CourierOffline_NoHeldOrder(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	f.reg.online["k1"] = domain.Location{}

	err := f.proc.Handle(context.Background(), event.CourierOffline{CourierID: "k1"})
	require.NoError(t, err)

	require.Empty(t, f.matcher.reassigned)
	require.NotContains(t, f.reg.online, "k1")
	require.Equal(t, domain.CourierOffline, f.couriers.statuses["k1"])
}

func TestHandle_InvalidTransition_IsPermanent(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	f.lc.failWith = fmt.Errorf("order o1: %w", apperr.InvalidTransition)

	err := f.proc.Handle(context.Background(), event.OrderAssigned{OrderID: "o1", CourierID: "k1"})
	require.Error(t, err)

	// Redelivering an illegal transition fails identically every time, so
	// the consumer must be told to mark and skip instead of retrying.
	var perm kafka.PermanentError
	require.ErrorAs(t, err, &perm)
	require.ErrorIs(t, err, apperr.InvalidTransition)
}

func TestHandle_MissingOrder_IsPermanent(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	f.lc.failWith = fmt.Errorf("order ghost: %w", apperr.NotFound)

	err := f.proc.Handle(context.Background(), event.OrderDelivered{OrderID: "ghost", CourierID: "k1"})
	require.Error(t, err)

	var perm kafka.PermanentError
	require.ErrorAs(t, err, &perm)
	require.ErrorIs(t, err, apperr.NotFound)
}

func TestHandle_TransientFailure_StaysRetryable(t *testing.T) {
	t.Parallel()

	f := newProcFixture()
	f.lc.failWith = errors.New("status store timeout")

	err := f.proc.Handle(context.Background(), event.OrderAssigned{OrderID: "o1", CourierID: "k1"})
	require.Error(t, err)

	var perm kafka.PermanentError
	require.False(t, errors.As(err, &perm))
}

type unroutedEvent struct{}

func (unroutedEvent) Topic() string { return "unrouted" }
func (unroutedEvent) Key() string   { return "" }

func TestHandle_UnknownEvent_IsPermanent(t *testing.T) {
	t.Parallel()

	f := newProcFixture()

	err := f.proc.Handle(context.Background(), unroutedEvent{})
	require.Error(t, err)

	var perm kafka.PermanentError
	require.ErrorAs(t, err, &perm)
}
