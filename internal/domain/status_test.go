package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fooddispatch/internal/domain"
)

var allStatuses = []domain.OrderStatus{
	domain.StatusCreated,
	domain.StatusConfirmed,
	domain.StatusPreparing,
	domain.StatusReady,
	domain.StatusAssigned,
	domain.StatusPickedUp,
	domain.StatusInTransit,
	domain.StatusDelivered,
	domain.StatusCancelled,
}

// allowed mirrors the lifecycle table; the test walks the full cross product
// so that any accidental edit to the table shows up immediately.
var allowed = map[domain.OrderStatus][]domain.OrderStatus{
	domain.StatusCreated:   {domain.StatusConfirmed, domain.StatusCancelled},
	domain.StatusConfirmed: {domain.StatusPreparing, domain.StatusCancelled},
	domain.StatusPreparing: {domain.StatusReady, domain.StatusCancelled},
	domain.StatusReady:     {domain.StatusAssigned, domain.StatusCancelled},
	domain.StatusAssigned:  {domain.StatusPickedUp, domain.StatusReady, domain.StatusCancelled},
	domain.StatusPickedUp:  {domain.StatusInTransit, domain.StatusCancelled},
	domain.StatusInTransit: {domain.StatusDelivered, domain.StatusCancelled},
	domain.StatusDelivered: {},
	domain.StatusCancelled: {},
}

func TestCanTransition_FullTable(t *testing.T) {
	t.Parallel()

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			got := domain.CanTransition(from, to)
			require.Equalf(t, want, got, "transition %s -> %s", from, to)
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	t.Parallel()

	require.False(t, domain.CanTransition("burnt", domain.StatusReady))
	require.False(t, domain.CanTransition(domain.StatusReady, "burnt"))
}

func TestOrderStatus_Terminal(t *testing.T) {
	t.Parallel()

	require.True(t, domain.StatusDelivered.Terminal())
	require.True(t, domain.StatusCancelled.Terminal())
	require.False(t, domain.StatusCreated.Terminal())
	require.False(t, domain.OrderStatus("burnt").Terminal())
}

func TestOrderStatus_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range allStatuses {
		require.True(t, s.Valid())
	}
	require.False(t, domain.OrderStatus("").Valid())
}

func TestTotalOf(t *testing.T) {
	t.Parallel()

	items := []domain.OrderItem{
		{Name: "margherita", Quantity: 2, Price: 9.5},
		{Name: "cola", Quantity: 3, Price: 2},
	}
	require.InDelta(t, 25.0, domain.TotalOf(items), 1e-9)
	require.Zero(t, domain.TotalOf(nil))
}
