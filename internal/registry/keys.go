package registry

import "fmt"

// Key layout. Pending orders and online couriers are keyed directly by id
// (hash field / set member) so removal is O(1) and safe under concurrent
// modification.
const (
	keyUnassignedOrders = "orders:unassigned"
	keyOnlineCouriers   = "couriers:online"
)

func keyCourierPresence(courierID string) string {
	return fmt.Sprintf("courier:%s:presence", courierID)
}

func keyCourierLocation(courierID string) string {
	return fmt.Sprintf("courier:%s:location", courierID)
}

func keyCourierCurrentOrder(courierID string) string {
	return fmt.Sprintf("courier:%s:current_order", courierID)
}

func keyOrderCourier(orderID string) string {
	return fmt.Sprintf("order:%s:courier", orderID)
}

func keyOrderStatus(orderID string) string {
	return fmt.Sprintf("order:%s:status", orderID)
}
