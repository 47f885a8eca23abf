package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/service/lifecycle"
	"fooddispatch/internal/service/order"
)

type stubOrders struct {
	created []*domain.Order
	orders  map[string]*domain.Order
}

func (s *stubOrders) Create(_ context.Context, o *domain.Order) error {
	s.created = append(s.created, o)
	if s.orders == nil {
		s.orders = map[string]*domain.Order{}
	}
	s.orders[o.ID] = o
	return nil
}

func (s *stubOrders) Get(_ context.Context, id string) (*domain.Order, error) {
	return s.orders[id], nil
}

func (s *stubOrders) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubOrders) ListByStatus(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

type stubRestaurants struct {
	restaurants map[string]*domain.Restaurant
}

func (s *stubRestaurants) Get(_ context.Context, id string) (*domain.Restaurant, error) {
	return s.restaurants[id], nil
}

type stubLifecycle struct {
	transitions []transitionCall
	snapshots   map[string]*domain.OrderSnapshot
	err         error
}

type transitionCall struct {
	orderID string
	status  domain.OrderStatus
	tc      lifecycle.Context
}

func (s *stubLifecycle) Transition(_ context.Context, orderID string, newStatus domain.OrderStatus, tc lifecycle.Context) error {
	if s.err != nil {
		return s.err
	}
	s.transitions = append(s.transitions, transitionCall{orderID, newStatus, tc})
	return nil
}

func (s *stubLifecycle) LiveStatus(_ context.Context, orderID string) (*domain.OrderSnapshot, error) {
	return s.snapshots[orderID], nil
}

type stubEmitter struct {
	events []event.Event
}

func (s *stubEmitter) Emit(_ context.Context, ev event.Event) error {
	s.events = append(s.events, ev)
	return nil
}

type fixture struct {
	orders      *stubOrders
	restaurants *stubRestaurants
	lc          *stubLifecycle
	emitter     *stubEmitter
	svc         *order.Service
}

func newFixture() *fixture {
	f := &fixture{
		orders:      &stubOrders{orders: map[string]*domain.Order{}},
		restaurants: &stubRestaurants{restaurants: map[string]*domain.Restaurant{}},
		lc:          &stubLifecycle{},
		emitter:     &stubEmitter{},
	}
	f.svc = order.New(f.orders, f.restaurants, f.lc, f.emitter, logx.Nop())
	return f
}

func validInput() order.CreateInput {
	return order.CreateInput{
		CustomerID:   "c1",
		RestaurantID: "r1",
		Items: []domain.OrderItem{
			{Name: "pizza", Quantity: 2, Price: 12.5},
			{Name: "cola", Quantity: 1, Price: 3},
		},
		DeliveryAddress: domain.Address{Street: "Main St 1", City: "Berlin"},
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.restaurants.restaurants["r1"] = &domain.Restaurant{ID: "r1"}

	o, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, o.ID)
	require.Equal(t, domain.StatusCreated, o.Status)
	require.Equal(t, 28.0, o.TotalAmount)

	require.Len(t, f.emitter.events, 1)
	created, ok := f.emitter.events[0].(event.OrderCreated)
	require.True(t, ok)
	require.Equal(t, o.ID, created.OrderID)
	require.Equal(t, 28.0, created.TotalAmount)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*order.CreateInput){
		"missing customer":   func(in *order.CreateInput) { in.CustomerID = "" },
		"missing restaurant": func(in *order.CreateInput) { in.RestaurantID = "" },
		"no items":           func(in *order.CreateInput) { in.Items = nil },
		"zero quantity":      func(in *order.CreateInput) { in.Items[0].Quantity = 0 },
		"negative price":     func(in *order.CreateInput) { in.Items[0].Price = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			in := validInput()
			mutate(&in)

			_, err := f.svc.Create(context.Background(), in)
			require.ErrorIs(t, err, apperr.Invalid)
			require.Empty(t, f.orders.created)
			require.Empty(t, f.emitter.events)
		})
	}
}

func TestCreate_UnknownRestaurant(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.Create(context.Background(), validInput())
	require.ErrorIs(t, err, apperr.NotFound)
}

func TestMarkReady_EmitsWithRestaurantLocation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.orders.orders["o1"] = &domain.Order{ID: "o1", RestaurantID: "r1", Status: domain.StatusPreparing}
	f.restaurants.restaurants["r1"] = &domain.Restaurant{ID: "r1", Latitude: 52.5, Longitude: 13.4}

	err := f.svc.MarkReady(context.Background(), "o1")
	require.NoError(t, err)

	require.Len(t, f.lc.transitions, 1)
	require.Equal(t, domain.StatusReady, f.lc.transitions[0].status)

	require.Len(t, f.emitter.events, 1)
	ready, ok := f.emitter.events[0].(event.OrderReady)
	require.True(t, ok)
	require.Equal(t, "o1", ready.OrderID)
	require.Equal(t, 52.5, ready.RestaurantLocation.Latitude)
}

func TestMarkReady_TransitionRejected_NoEmit(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.orders.orders["o1"] = &domain.Order{ID: "o1", RestaurantID: "r1", Status: domain.StatusCreated}
	f.restaurants.restaurants["r1"] = &domain.Restaurant{ID: "r1"}
	f.lc.err = apperr.InvalidTransition

	err := f.svc.MarkReady(context.Background(), "o1")
	require.ErrorIs(t, err, apperr.InvalidTransition)
	require.Empty(t, f.emitter.events)
}

func TestMarkDelivered_UsesAssignedCourier(t *testing.T) {
	t.Parallel()

	f := newFixture()
	courierID := "k1"
	f.orders.orders["o1"] = &domain.Order{
		ID: "o1", Status: domain.StatusInTransit, CourierID: &courierID,
	}

	err := f.svc.MarkDelivered(context.Background(), "o1")
	require.NoError(t, err)

	require.Len(t, f.lc.transitions, 1)
	require.Equal(t, domain.StatusDelivered, f.lc.transitions[0].status)
	require.Equal(t, "k1", f.lc.transitions[0].tc.CourierID)

	delivered, ok := f.emitter.events[0].(event.OrderDelivered)
	require.True(t, ok)
	require.Equal(t, "k1", delivered.CourierID)
}

func TestMarkDelivered_UnknownOrder(t *testing.T) {
	t.Parallel()

	f := newFixture()
	err := f.svc.MarkDelivered(context.Background(), "ghost")
	require.ErrorIs(t, err, apperr.NotFound)
	require.Empty(t, f.emitter.events)
}

func TestCancel_RecordsReason(t *testing.T) {
	t.Parallel()

	f := newFixture()
	err := f.svc.Cancel(context.Background(), "o1", "customer request")
	require.NoError(t, err)

	require.Len(t, f.lc.transitions, 1)
	require.Equal(t, domain.StatusCancelled, f.lc.transitions[0].status)
	require.Equal(t, "customer request", f.lc.transitions[0].tc.Metadata["reason"])
}

func TestListByStatus_RejectsUnknown(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.ListByStatus(context.Background(), "sideways")
	require.ErrorIs(t, err, apperr.Invalid)
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, apperr.NotFound)
}
