package handlers

import (
	"time"

	"fooddispatch/internal/domain"
)

type createOrderRequest struct {
	CustomerID      string             `json:"customer_id"`
	RestaurantID    string             `json:"restaurant_id"`
	Items           []domain.OrderItem `json:"items"`
	DeliveryAddress domain.Address     `json:"delivery_address"`
}

type orderDTO struct {
	ID              string             `json:"id"`
	CustomerID      string             `json:"customer_id"`
	RestaurantID    string             `json:"restaurant_id"`
	CourierID       *string            `json:"courier_id,omitempty"`
	Items           []domain.OrderItem `json:"items"`
	TotalAmount     float64            `json:"total_amount"`
	Status          domain.OrderStatus `json:"status"`
	DeliveryAddress domain.Address     `json:"delivery_address"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	AssignedAt      *time.Time         `json:"assigned_at,omitempty"`
	PickedUpAt      *time.Time         `json:"picked_up_at,omitempty"`
	DeliveredAt     *time.Time         `json:"delivered_at,omitempty"`
}

type courierActionRequest struct {
	CourierID string `json:"courier_id"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type createCourierRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	VehicleType string `json:"vehicle_type"`
}

type courierDTO struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Phone       string               `json:"phone"`
	Email       string               `json:"email,omitempty"`
	VehicleType string               `json:"vehicle_type,omitempty"`
	Status      domain.CourierStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
