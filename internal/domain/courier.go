package domain

import "time"

// CourierStatus represents the durable status of a courier.
type CourierStatus string

// List of possible courier statuses
const (
	CourierOffline CourierStatus = "offline"
	CourierOnline  CourierStatus = "online"
	CourierBusy    CourierStatus = "busy"
)

var allowedCourierStatuses = [...]CourierStatus{
	CourierOffline, CourierOnline, CourierBusy,
}

// Valid checks if the CourierStatus is valid.
func (s CourierStatus) Valid() bool {
	for _, v := range allowedCourierStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Courier is the durable courier record.
type Courier struct {
	ID          string
	Name        string
	Phone       string
	Email       string
	VehicleType string
	Status      CourierStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location is a point with the moment it was observed.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// CourierPresence is the ephemeral record of an online courier. Membership in
// the online set implies "online"; Location may be expired independently, in
// which case the courier is online with an unknown position.
type CourierPresence struct {
	CourierID   string    `json:"courier_id"`
	Location    Location  `json:"location"`
	OnlineSince time.Time `json:"online_since"`
}

// UnassignedOrder is a ready order waiting in the pending set for a courier.
type UnassignedOrder struct {
	OrderID      string    `json:"order_id"`
	RestaurantID string    `json:"restaurant_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// OrderSnapshot is the live, TTL-bounded view of an order kept in the
// ephemeral store, distinct from the durable record.
type OrderSnapshot struct {
	OrderID         string       `json:"order_id"`
	Status          OrderStatus  `json:"status"`
	CourierID       string       `json:"courier_id,omitempty"`
	CourierLocation *Location    `json:"courier_location,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Extra           map[string]any `json:"extra,omitempty"`
}
