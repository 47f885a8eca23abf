package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fooddispatch/internal/domain"
)

// RestaurantRepo represents the restaurant store. The dispatch core only
// reads identity and coordinates from it.
type RestaurantRepo struct{ db *pgxpool.Pool }

// NewRestaurantRepo creates a new RestaurantRepo.
func NewRestaurantRepo(db *pgxpool.Pool) *RestaurantRepo { return &RestaurantRepo{db: db} }

// Get - returns restaurant by its ID, or nil when it does not exist.
func (r *RestaurantRepo) Get(ctx context.Context, id string) (*domain.Restaurant, error) {
	var rest domain.Restaurant
	err := r.db.QueryRow(ctx, `
        SELECT id, name, latitude, longitude FROM restaurants WHERE id = $1
    `, id).Scan(&rest.ID, &rest.Name, &rest.Latitude, &rest.Longitude)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get restaurant %q: %w", id, err)
	}
	return &rest, nil
}
