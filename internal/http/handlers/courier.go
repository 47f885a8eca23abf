package handlers

import (
	"net/http"
	"strconv"

	"fooddispatch/internal/logx"
)

// CourierHandler serves HTTP endpoints for courier resources.
type CourierHandler struct {
	uc     courierUsecase
	logger logx.Logger
}

// NewCourierHandler wires a courierUsecase into HTTP handlers.
func NewCourierHandler(uc courierUsecase, logger logx.Logger) *CourierHandler {
	return &CourierHandler{uc: uc, logger: logger}
}

// Create handles POST /couriers.
func (h *CourierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCourierRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	c, err := h.uc.Create(ctx, req.toInput())
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	w.Header().Set("Location", "/couriers/"+c.ID)
	writeJSON(h.logger, w, r, http.StatusCreated, courierToResponse(*c))
}

// GetByID handles GET /couriers/{id}.
func (h *CourierHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	c, err := h.uc.Get(ctx, id)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, courierToResponse(*c))
}

// List handles GET /couriers.
func (h *CourierHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	list, err := h.uc.List(ctx)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, couriersToResponse(list))
}

// GoOnline handles POST /couriers/{id}/online.
func (h *CourierHandler) GoOnline(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req locationRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	if err := h.uc.GoOnline(ctx, id, req.toModel()); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// GoOffline handles POST /couriers/{id}/offline.
func (h *CourierHandler) GoOffline(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	if err := h.uc.GoOffline(ctx, id); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// UpdateLocation handles POST /couriers/{id}/location.
func (h *CourierHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req locationRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	if err := h.uc.UpdateLocation(ctx, id, req.toModel()); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Presence handles GET /couriers/{id}/presence.
func (h *CourierHandler) Presence(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	p, err := h.uc.Presence(ctx, id)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, p)
}

// LocationHistory handles GET /couriers/{id}/locations?limit=N.
func (h *CourierHandler) LocationHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	history, err := h.uc.LocationHistory(ctx, id, limit)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, history)
}
