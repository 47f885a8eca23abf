package handlers

import (
	"fooddispatch/internal/domain"
	"fooddispatch/internal/service/courier"
	"fooddispatch/internal/service/order"
)

func (r createOrderRequest) toInput() order.CreateInput {
	return order.CreateInput{
		CustomerID:      r.CustomerID,
		RestaurantID:    r.RestaurantID,
		Items:           r.Items,
		DeliveryAddress: r.DeliveryAddress,
	}
}

func orderToResponse(o domain.Order) orderDTO {
	return orderDTO{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		RestaurantID:    o.RestaurantID,
		CourierID:       o.CourierID,
		Items:           o.Items,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		DeliveryAddress: o.DeliveryAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		AssignedAt:      o.AssignedAt,
		PickedUpAt:      o.PickedUpAt,
		DeliveredAt:     o.DeliveredAt,
	}
}

func ordersToResponse(list []domain.Order) []orderDTO {
	out := make([]orderDTO, 0, len(list))
	for _, o := range list {
		out = append(out, orderToResponse(o))
	}
	return out
}

func (r createCourierRequest) toInput() courier.CreateInput {
	return courier.CreateInput{
		Name:        r.Name,
		Phone:       r.Phone,
		Email:       r.Email,
		VehicleType: r.VehicleType,
	}
}

func courierToResponse(c domain.Courier) courierDTO {
	return courierDTO{
		ID:          c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		Email:       c.Email,
		VehicleType: c.VehicleType,
		Status:      c.Status,
		CreatedAt:   c.CreatedAt,
	}
}

func couriersToResponse(list []domain.Courier) []courierDTO {
	out := make([]courierDTO, 0, len(list))
	for _, c := range list {
		out = append(out, courierToResponse(c))
	}
	return out
}

func (r locationRequest) toModel() domain.Location {
	return domain.Location{Latitude: r.Latitude, Longitude: r.Longitude}
}
