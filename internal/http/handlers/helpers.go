package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/logx"
)

const (
	bodyLimit = 1 << 20

	storeTimeout = 3 * time.Second
)

func withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

func reqID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "-"
}

func writeJSON(l logx.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		l.Error("json encode failed",
			logx.String("req_id", reqID(r.Context())), logx.Err(err))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func writeError(l logx.Logger, w http.ResponseWriter, r *http.Request, status int, msg string) {
	l.Warn("http error",
		logx.String("req_id", reqID(r.Context())),
		logx.Int("status", status),
		logx.String("msg", msg),
	)
	writeJSON(l, w, r, status, errResponse{Error: msg})
}

// writeDomainError maps the service error taxonomy onto HTTP statuses.
func writeDomainError(l logx.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.Invalid):
		writeError(l, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.NotFound):
		writeError(l, w, r, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.InvalidTransition):
		writeError(l, w, r, http.StatusConflict, "transition not allowed")
	case errors.Is(err, apperr.Conflict):
		writeError(l, w, r, http.StatusConflict, "conflict")
	case errors.Is(err, apperr.Unavailable):
		writeError(l, w, r, http.StatusServiceUnavailable, "dependency unavailable")
	default:
		writeError(l, w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON[T any](l logx.Logger, w http.ResponseWriter, r *http.Request, dst *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(l, w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		writeError(l, w, r, http.StatusBadRequest, "invalid json: trailing data")
		return false
	}
	return true
}

func idFromURL(r *http.Request, name string) (string, error) {
	id := chi.URLParam(r, name)
	if id == "" {
		return "", errors.New("missing id")
	}
	return id, nil
}
