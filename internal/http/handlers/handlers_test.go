package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"fooddispatch/internal/http/handlers"
	"fooddispatch/internal/logx"
)

func testLogger() logx.Logger { return logx.Nop() }

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestPing(t *testing.T) {
	t.Parallel()

	h := handlers.New(testLogger(), stubPinger{}, stubPinger{})
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rr := httptest.NewRecorder()

	h.Ping(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}

func TestHealthcheckHead(t *testing.T) {
	t.Parallel()

	h := handlers.New(testLogger(), stubPinger{}, stubPinger{})
	req := httptest.NewRequest(http.MethodHead, "/healthcheck", nil)
	rr := httptest.NewRecorder()

	h.HealthcheckHead(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHealth_AllUp(t *testing.T) {
	t.Parallel()

	h := handlers.New(testLogger(), stubPinger{}, stubPinger{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	h.Health(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Status string `json:"status"`
		Deps   struct {
			Postgres string `json:"postgres"`
			Redis    string `json:"redis"`
		} `json:"deps"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "ok", resp.Deps.Postgres)
	require.Equal(t, "ok", resp.Deps.Redis)
}

func TestHealth_RedisDown(t *testing.T) {
	t.Parallel()

	h := handlers.New(testLogger(), stubPinger{}, stubPinger{err: errors.New("dial refused")})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	h.Health(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp struct {
		Status string `json:"status"`
		Deps   struct {
			Postgres string `json:"postgres"`
			Redis    string `json:"redis"`
		} `json:"deps"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Equal(t, "degraded", resp.Status)
	require.Equal(t, "unreachable", resp.Deps.Redis)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	h := handlers.New(testLogger(), stubPinger{}, stubPinger{})
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()

	h.NotFound(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":"route not found"}`, rr.Body.String())
}
