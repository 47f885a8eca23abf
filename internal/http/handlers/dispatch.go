package handlers

import (
	"net/http"

	"fooddispatch/internal/logx"
)

// DispatchHandler serves the matching statistics endpoint.
type DispatchHandler struct {
	uc     matchingUsecase
	logger logx.Logger
}

// NewDispatchHandler wires a matchingUsecase into HTTP handlers.
func NewDispatchHandler(uc matchingUsecase, logger logx.Logger) *DispatchHandler {
	return &DispatchHandler{uc: uc, logger: logger}
}

// Stats handles GET /dispatch/stats.
func (h *DispatchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withStoreTimeout(r.Context())
	defer cancel()

	stats, err := h.uc.Stats(ctx)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, stats)
}
