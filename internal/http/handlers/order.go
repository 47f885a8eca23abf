package handlers

import (
	"context"
	"net/http"

	"fooddispatch/internal/domain"
	"fooddispatch/internal/logx"
)

// OrderHandler serves HTTP endpoints for order resources.
type OrderHandler struct {
	uc     orderUsecase
	logger logx.Logger
}

// NewOrderHandler wires an orderUsecase into HTTP handlers.
func NewOrderHandler(uc orderUsecase, logger logx.Logger) *OrderHandler {
	return &OrderHandler{uc: uc, logger: logger}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	o, err := h.uc.Create(ctx, req.toInput())
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	w.Header().Set("Location", "/orders/"+o.ID)
	writeJSON(h.logger, w, r, http.StatusCreated, orderToResponse(*o))
}

// GetByID handles GET /orders/{id}.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	o, err := h.uc.Get(ctx, id)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, orderToResponse(*o))
}

// List handles GET /orders?customer_id=...|status=...
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	q := r.URL.Query()
	customerID := q.Get("customer_id")
	status := q.Get("status")

	switch {
	case customerID != "":
		list, err := h.uc.ListByCustomer(ctx, customerID)
		if err != nil {
			writeDomainError(h.logger, w, r, err)
			return
		}
		writeJSON(h.logger, w, r, http.StatusOK, ordersToResponse(list))
	case status != "":
		list, err := h.uc.ListByStatus(ctx, domain.OrderStatus(status))
		if err != nil {
			writeDomainError(h.logger, w, r, err)
			return
		}
		writeJSON(h.logger, w, r, http.StatusOK, ordersToResponse(list))
	default:
		writeError(h.logger, w, r, http.StatusBadRequest, "customer_id or status is required")
	}
}

// LiveStatus handles GET /orders/{id}/status.
func (h *OrderHandler) LiveStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	snap, err := h.uc.LiveStatus(ctx, id)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, snap)
}

// Confirm handles POST /orders/{id}/confirm.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.uc.Confirm)
}

// StartPreparing handles POST /orders/{id}/prepare.
func (h *OrderHandler) StartPreparing(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.uc.StartPreparing)
}

// MarkReady handles POST /orders/{id}/ready.
func (h *OrderHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.uc.MarkReady)
}

// MarkDelivered handles POST /orders/{id}/delivered.
func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.uc.MarkDelivered)
}

// MarkPickedUp handles POST /orders/{id}/pickup.
func (h *OrderHandler) MarkPickedUp(w http.ResponseWriter, r *http.Request) {
	h.courierTransition(w, r, h.uc.MarkPickedUp)
}

// MarkInTransit handles POST /orders/{id}/transit.
func (h *OrderHandler) MarkInTransit(w http.ResponseWriter, r *http.Request) {
	h.courierTransition(w, r, h.uc.MarkInTransit)
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req cancelOrderRequest
	if r.ContentLength > 0 {
		if ok := decodeJSON(h.logger, w, r, &req); !ok {
			return
		}
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	if err := h.uc.Cancel(ctx, id, req.Reason); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) error) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	if err := op(ctx, id); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OrderHandler) courierTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id, courierID string) error) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req courierActionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if req.CourierID == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "courier_id is required")
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	if err := op(ctx, id, req.CourierID); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]string{"status": "ok"})
}
