// Package event defines the closed set of events exchanged over the
// transport, one topic per kind, partitioned by order or courier id. Adding a
// kind means adding a type here and a case to Decode; consumers dispatch with
// a type switch, so an unhandled kind is a compile-visible gap rather than a
// silently dropped topic.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"fooddispatch/internal/domain"
)

// Topic names, one logical topic per event kind.
const (
	TopicOrderCreated    = "order.created"
	TopicOrderReady      = "order.ready"
	TopicOrderAssigned   = "order.assigned"
	TopicOrderDelivered  = "order.delivered"
	TopicCourierOnline   = "courier.online"
	TopicCourierLocation = "courier.location"
	TopicCourierOffline  = "courier.offline"
)

// AllTopics returns every topic the worker consumes.
func AllTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderReady,
		TopicOrderAssigned,
		TopicOrderDelivered,
		TopicCourierOnline,
		TopicCourierLocation,
		TopicCourierOffline,
	}
}

// Event is one of the typed payloads below. Key is the partition/ordering
// key: all events for a given order or courier are delivered in order.
type Event interface {
	Topic() string
	Key() string
}

// OrderCreated is emitted when a customer places an order.
type OrderCreated struct {
	OrderID         string             `json:"orderId"`
	CustomerID      string             `json:"customerId"`
	RestaurantID    string             `json:"restaurantId"`
	Items           []domain.OrderItem `json:"items"`
	TotalAmount     float64            `json:"totalAmount"`
	DeliveryAddress domain.Address     `json:"deliveryAddress"`
	Timestamp       time.Time          `json:"timestamp"`
}

func (e OrderCreated) Topic() string { return TopicOrderCreated }
func (e OrderCreated) Key() string   { return e.OrderID }

// OrderReady is emitted when the restaurant finishes preparing an order; it
// triggers courier matching.
type OrderReady struct {
	OrderID            string          `json:"orderId"`
	RestaurantID       string          `json:"restaurantId"`
	RestaurantLocation domain.Location `json:"restaurantLocation"`
	Timestamp          time.Time       `json:"timestamp"`
}

func (e OrderReady) Topic() string { return TopicOrderReady }
func (e OrderReady) Key() string   { return e.OrderID }

// OrderAssigned is emitted by the matching engine once a pairing wins.
type OrderAssigned struct {
	OrderID             string    `json:"orderId"`
	CourierID           string    `json:"courierId"`
	RestaurantID        string    `json:"restaurantId"`
	EstimatedPickupTime time.Time `json:"estimatedPickupTime"`
	Timestamp           time.Time `json:"timestamp"`
}

func (e OrderAssigned) Topic() string { return TopicOrderAssigned }
func (e OrderAssigned) Key() string   { return e.OrderID }

// OrderDelivered is emitted when the courier completes the delivery.
type OrderDelivered struct {
	OrderID     string    `json:"orderId"`
	CourierID   string    `json:"courierId"`
	DeliveredAt time.Time `json:"deliveredAt"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e OrderDelivered) Topic() string { return TopicOrderDelivered }
func (e OrderDelivered) Key() string   { return e.OrderID }

// CourierOnline is emitted when a courier starts a shift.
type CourierOnline struct {
	CourierID string          `json:"courierId"`
	Location  domain.Location `json:"location"`
	Timestamp time.Time       `json:"timestamp"`
}

func (e CourierOnline) Topic() string { return TopicCourierOnline }
func (e CourierOnline) Key() string   { return e.CourierID }

// CourierLocation is emitted on every courier position update.
type CourierLocation struct {
	CourierID      string          `json:"courierId"`
	Location       domain.Location `json:"location"`
	CurrentOrderID string          `json:"currentOrderId,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

func (e CourierLocation) Topic() string { return TopicCourierLocation }
func (e CourierLocation) Key() string   { return e.CourierID }

// CourierOffline is emitted when a courier ends a shift.
type CourierOffline struct {
	CourierID string    `json:"courierId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e CourierOffline) Topic() string { return TopicCourierOffline }
func (e CourierOffline) Key() string   { return e.CourierID }

// Decode parses a payload from the given topic into its typed event.
func Decode(topic string, payload []byte) (Event, error) {
	switch topic {
	case TopicOrderCreated:
		return decodeAs[OrderCreated](payload)
	case TopicOrderReady:
		return decodeAs[OrderReady](payload)
	case TopicOrderAssigned:
		return decodeAs[OrderAssigned](payload)
	case TopicOrderDelivered:
		return decodeAs[OrderDelivered](payload)
	case TopicCourierOnline:
		return decodeAs[CourierOnline](payload)
	case TopicCourierLocation:
		return decodeAs[CourierLocation](payload)
	case TopicCourierOffline:
		return decodeAs[CourierOffline](payload)
	default:
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
}

func decodeAs[T Event](payload []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Topic(), err)
	}
	return e, nil
}
