package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fooddispatch/internal/http/handlers"
)

// Deps groups everything the router mounts.
type Deps struct {
	Base          *handlers.Handlers
	Orders        *handlers.OrderHandler
	Couriers      *handlers.CourierHandler
	Dispatch      *handlers.DispatchHandler
	Metrics       prometheus.Gatherer
	Observability func(http.Handler) http.Handler
	RateLimit     func(http.Handler) http.Handler
	Debug         http.Handler
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if d.Observability != nil {
		r.Use(d.Observability)
	} else {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/ping", d.Base.Ping)
	r.Get("/health", d.Base.Health)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}
	if d.Debug != nil {
		r.Mount("/debug", d.Debug)
	}

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", d.Orders.Create)
		r.Get("/", d.Orders.List)
		r.Get("/{id}", d.Orders.GetByID)
		r.Get("/{id}/status", d.Orders.LiveStatus)
		r.Post("/{id}/confirm", d.Orders.Confirm)
		r.Post("/{id}/prepare", d.Orders.StartPreparing)
		r.Post("/{id}/ready", d.Orders.MarkReady)
		r.Post("/{id}/pickup", d.Orders.MarkPickedUp)
		r.Post("/{id}/transit", d.Orders.MarkInTransit)
		r.Post("/{id}/delivered", d.Orders.MarkDelivered)
		r.Post("/{id}/cancel", d.Orders.Cancel)
	})

	r.Route("/couriers", func(r chi.Router) {
		r.Post("/", d.Couriers.Create)
		r.Get("/", d.Couriers.List)
		r.Get("/{id}", d.Couriers.GetByID)
		r.Get("/{id}/presence", d.Couriers.Presence)
		r.Get("/{id}/locations", d.Couriers.LocationHistory)
		r.Post("/{id}/online", d.Couriers.GoOnline)
		r.Post("/{id}/offline", d.Couriers.GoOffline)
		if d.RateLimit != nil {
			r.With(d.RateLimit).Post("/{id}/location", d.Couriers.UpdateLocation)
		} else {
			r.Post("/{id}/location", d.Couriers.UpdateLocation)
		}
	})

	r.Get("/dispatch/stats", d.Dispatch.Stats)

	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	return r
}
