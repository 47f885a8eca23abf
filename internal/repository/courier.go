package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
)

// CourierRepo represents the durable courier store.
type CourierRepo struct{ db *pgxpool.Pool }

// NewCourierRepo creates a new CourierRepo.
func NewCourierRepo(db *pgxpool.Pool) *CourierRepo { return &CourierRepo{db: db} }

// Create - creates a new courier.
func (r *CourierRepo) Create(ctx context.Context, c *domain.Courier) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO couriers (id, name, phone, email, vehicle_type, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at
    `, c.ID, c.Name, c.Phone, c.Email, c.VehicleType, string(c.Status)).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return apperr.Conflict
		}
		return fmt.Errorf("create courier: %w", err)
	}
	return nil
}

// Get - returns courier by its ID, or nil when it does not exist.
func (r *CourierRepo) Get(ctx context.Context, id string) (*domain.Courier, error) {
	var c domain.Courier
	err := r.db.QueryRow(ctx, `
        SELECT id, name, phone, email, vehicle_type, status, created_at, updated_at
        FROM couriers WHERE id = $1
    `, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.VehicleType, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get courier %q: %w", id, err)
	}
	return &c, nil
}

// List returns couriers, newest first.
func (r *CourierRepo) List(ctx context.Context) ([]domain.Courier, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, name, phone, email, vehicle_type, status, created_at, updated_at
        FROM couriers ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("list couriers: %w", err)
	}
	defer rows.Close()

	var out []domain.Courier
	for rows.Next() {
		var c domain.Courier
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.VehicleType, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatus - update the durable courier status.
func (r *CourierRepo) UpdateStatus(ctx context.Context, id string, status domain.CourierStatus) error {
	ct, err := r.db.Exec(ctx, `
        UPDATE couriers
        SET status = $2, updated_at = now()
        WHERE id = $1
    `, id, string(status))
	if err != nil {
		return fmt.Errorf("update courier %q status: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("courier %q not found", id)
	}
	return nil
}

// AppendLocation records one location-history entry for a courier.
func (r *CourierRepo) AppendLocation(ctx context.Context, courierID string, loc domain.Location) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO courier_location_history (courier_id, latitude, longitude)
        VALUES ($1, $2, $3)
    `, courierID, loc.Latitude, loc.Longitude)
	if err != nil {
		return fmt.Errorf("append courier %q location: %w", courierID, err)
	}
	return nil
}

// LocationHistory returns the most recent recorded locations, newest first.
func (r *CourierRepo) LocationHistory(ctx context.Context, courierID string, limit int) ([]domain.Location, error) {
	rows, err := r.db.Query(ctx, `
        SELECT latitude, longitude, recorded_at
        FROM courier_location_history
        WHERE courier_id = $1
        ORDER BY recorded_at DESC
        LIMIT $2
    `, courierID, limit)
	if err != nil {
		return nil, fmt.Errorf("courier %q location history: %w", courierID, err)
	}
	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.Latitude, &l.Longitude, &l.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
