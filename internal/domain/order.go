package domain

import "time"

// OrderItem is a single ordered line item.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Address is a delivery destination with coordinates.
type Address struct {
	Street    string  `json:"street"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	ZipCode   string  `json:"zip_code"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Order is the authoritative durable order record.
type Order struct {
	ID              string
	CustomerID      string
	RestaurantID    string
	CourierID       *string
	Items           []OrderItem
	TotalAmount     float64
	Status          OrderStatus
	DeliveryAddress Address
	CreatedAt       time.Time
	UpdatedAt       time.Time
	AssignedAt      *time.Time
	PickedUpAt      *time.Time
	DeliveredAt     *time.Time
}

// StatusChange is one immutable entry of an order's status history.
type StatusChange struct {
	OrderID    string
	Status     OrderStatus
	Metadata   map[string]any
	RecordedAt time.Time
}

// TotalOf computes the order total from its line items.
func TotalOf(items []OrderItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// Restaurant is the subset of the restaurant record the dispatch core reads.
type Restaurant struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
}
