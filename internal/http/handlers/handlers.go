package handlers

import (
	"net/http"

	"fooddispatch/internal/logx"
)

// Handlers holds the base endpoints and shared handler dependencies.
type Handlers struct {
	Logger logx.Logger

	db    pinger
	redis pinger
}

// New creates a Handlers instance with the given logger and dependency
// pingers for the health endpoint.
func New(logger logx.Logger, db, redis pinger) *Handlers {
	return &Handlers{Logger: logger, db: db, redis: redis}
}

// Ping handles GET /ping and returns 200 with {"message":"pong"}.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Logger, w, r, http.StatusOK, map[string]string{"message": "pong"})
}

// HealthcheckHead handles HEAD /healthcheck and returns 204 No Content.
func (h *Handlers) HealthcheckHead(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health and reports dependency reachability. The
// response is 200 only when every dependency answers.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	type depStatus struct {
		Postgres string `json:"postgres"`
		Redis    string `json:"redis"`
	}
	deps := depStatus{Postgres: "ok", Redis: "ok"}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		deps.Postgres = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if err := h.redis.Ping(ctx); err != nil {
		deps.Redis = "unreachable"
		status = http.StatusServiceUnavailable
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(h.Logger, w, r, status, map[string]any{
		"status": overall,
		"deps":   deps,
	})
}

// NotFound returns a JSON 404 error for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(h.Logger, w, r, http.StatusNotFound, "route not found")
}
