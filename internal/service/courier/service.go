// Package courier exposes the API-side courier commands: registration,
// shift start/end, position updates, and reads.
package courier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
	"fooddispatch/internal/event"
	"fooddispatch/internal/logx"
)

// CreateInput is the payload for registering a courier.
type CreateInput struct {
	Name        string
	Phone       string
	Email       string
	VehicleType string
}

func (in CreateInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("name is required: %w", apperr.Invalid)
	}
	if in.Phone == "" {
		return fmt.Errorf("phone is required: %w", apperr.Invalid)
	}
	return nil
}

// Presence is the live view of a single courier.
type Presence struct {
	CourierID      string           `json:"courierId"`
	Online         bool             `json:"online"`
	CurrentOrderID string           `json:"currentOrderId,omitempty"`
	Location       *domain.Location `json:"location,omitempty"`
}

type Service struct {
	couriers courierStore
	registry availabilityRegistry
	emitter  emitter
	logger   logx.Logger
	now      func() time.Time
}

func New(couriers courierStore, reg availabilityRegistry, em emitter, logger logx.Logger) *Service {
	return &Service{
		couriers: couriers,
		registry: reg,
		emitter:  em,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a courier; new couriers start offline.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Courier, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	c := &domain.Courier{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Phone:       in.Phone,
		Email:       in.Email,
		VehicleType: in.VehicleType,
		Status:      domain.CourierOffline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.couriers.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("courier registered", logx.String("courier_id", c.ID))
	return c, nil
}

// Get returns the durable courier record.
func (s *Service) Get(ctx context.Context, id string) (*domain.Courier, error) {
	c, err := s.couriers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("courier %q: %w", id, apperr.NotFound)
	}
	return c, nil
}

// List returns all registered couriers.
func (s *Service) List(ctx context.Context) ([]domain.Courier, error) {
	return s.couriers.List(ctx)
}

// GoOnline starts a courier shift at the given position. State changes
// happen in the worker; the API only validates and announces.
func (s *Service) GoOnline(ctx context.Context, courierID string, loc domain.Location) error {
	if err := validateCoordinates(loc); err != nil {
		return err
	}
	if _, err := s.Get(ctx, courierID); err != nil {
		return err
	}

	now := s.now()
	loc.Timestamp = now
	return s.emitter.Emit(ctx, event.CourierOnline{
		CourierID: courierID,
		Location:  loc,
		Timestamp: now,
	})
}

// GoOffline ends a courier shift. Any held order is reassigned by the
// worker before the courier leaves the pool.
func (s *Service) GoOffline(ctx context.Context, courierID string) error {
	if _, err := s.Get(ctx, courierID); err != nil {
		return err
	}
	return s.emitter.Emit(ctx, event.CourierOffline{
		CourierID: courierID,
		Timestamp: s.now(),
	})
}

// UpdateLocation announces a position update for an online courier.
func (s *Service) UpdateLocation(ctx context.Context, courierID string, loc domain.Location) error {
	if err := validateCoordinates(loc); err != nil {
		return err
	}
	online, err := s.registry.IsCourierOnline(ctx, courierID)
	if err != nil {
		return err
	}
	if !online {
		return fmt.Errorf("courier %q is not online: %w", courierID, apperr.Conflict)
	}

	held, err := s.registry.CourierCurrentOrder(ctx, courierID)
	if err != nil {
		return err
	}

	now := s.now()
	loc.Timestamp = now
	return s.emitter.Emit(ctx, event.CourierLocation{
		CourierID:      courierID,
		Location:       loc,
		CurrentOrderID: held,
		Timestamp:      now,
	})
}

// Presence returns the live availability view of a courier.
func (s *Service) Presence(ctx context.Context, courierID string) (*Presence, error) {
	if _, err := s.Get(ctx, courierID); err != nil {
		return nil, err
	}

	online, err := s.registry.IsCourierOnline(ctx, courierID)
	if err != nil {
		return nil, err
	}
	p := &Presence{CourierID: courierID, Online: online}
	if !online {
		return p, nil
	}

	held, err := s.registry.CourierCurrentOrder(ctx, courierID)
	if err != nil {
		return nil, err
	}
	p.CurrentOrderID = held

	loc, err := s.registry.CourierLocation(ctx, courierID)
	if err != nil {
		s.logger.Warn("courier location lookup failed",
			logx.String("courier_id", courierID), logx.Err(err))
		return p, nil
	}
	p.Location = loc
	return p, nil
}

// LocationHistory returns the courier's recorded positions, newest first.
func (s *Service) LocationHistory(ctx context.Context, courierID string, limit int) ([]domain.Location, error) {
	if _, err := s.Get(ctx, courierID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.couriers.LocationHistory(ctx, courierID, limit)
}

func validateCoordinates(loc domain.Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range: %w", loc.Latitude, apperr.Invalid)
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range: %w", loc.Longitude, apperr.Invalid)
	}
	return nil
}
