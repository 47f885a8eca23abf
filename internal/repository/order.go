package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
	"fooddispatch/internal/ports/ordertx"
)

// executor is satisfied by both *pgxpool.Pool and pgx.Tx.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// OrderRepo represents the durable order store.
type OrderRepo struct {
	db *pgxpool.Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(db *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{db: db}
}

const orderColumns = `
    id, customer_id, restaurant_id, courier_id, items, total_amount, status,
    delivery_street, delivery_city, delivery_state, delivery_zip_code,
    delivery_latitude, delivery_longitude,
    created_at, updated_at, assigned_at, picked_up_at, delivered_at`

// Create inserts a new order with its items serialized as JSONB.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	err = r.db.QueryRow(ctx, `
        INSERT INTO orders (
            id, customer_id, restaurant_id, items, total_amount, status,
            delivery_street, delivery_city, delivery_state, delivery_zip_code,
            delivery_latitude, delivery_longitude
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING created_at, updated_at
    `, o.ID, o.CustomerID, o.RestaurantID, items, o.TotalAmount, string(o.Status),
		o.DeliveryAddress.Street, o.DeliveryAddress.City, o.DeliveryAddress.State,
		o.DeliveryAddress.ZipCode, o.DeliveryAddress.Latitude, o.DeliveryAddress.Longitude,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown restaurant %q", apperr.Invalid, o.RestaurantID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// Get returns an order by its ID, or nil when it does not exist.
func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %q: %w", id, err)
	}
	return o, nil
}

// ListByCustomer returns a customer's orders, newest first.
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders by customer %q: %w", customerID, err)
	}
	return collectOrders(rows)
}

// ListByStatus returns orders in the given status, newest first.
func (r *OrderRepo) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list orders by status %q: %w", status, err)
	}
	return collectOrders(rows)
}

// UpdateStatus sets the order status, the optional courier pointer, and the
// stage timestamp for assigned/picked_up/delivered transitions.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, courierID *string, at time.Time) error {
	return updateOrderStatus(ctx, r.db, id, status, courierID, at)
}

// AppendHistory records one immutable status-history entry.
func (r *OrderRepo) AppendHistory(ctx context.Context, change domain.StatusChange) error {
	return appendOrderHistory(ctx, r.db, change)
}

// WithTx opens a transaction and executes fn within it.
func (r *OrderRepo) WithTx(ctx context.Context, fn func(tx ordertx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &TxOrderRepo{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// TxOrderRepo exposes order operations bound to an open transaction.
type TxOrderRepo struct {
	tx pgx.Tx
}

// UpdateStatus sets the order status within the transaction.
func (r *TxOrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, courierID *string, at time.Time) error {
	return updateOrderStatus(ctx, r.tx, id, status, courierID, at)
}

// AppendHistory records a status-history entry within the transaction.
func (r *TxOrderRepo) AppendHistory(ctx context.Context, change domain.StatusChange) error {
	return appendOrderHistory(ctx, r.tx, change)
}

func updateOrderStatus(ctx context.Context, db executor, id string, status domain.OrderStatus, courierID *string, at time.Time) error {
	q := `UPDATE orders SET status = $2, updated_at = now()`
	args := []any{id, string(status)}

	if courierID != nil {
		args = append(args, *courierID)
		q += fmt.Sprintf(", courier_id = $%d", len(args))
	}

	switch status {
	case domain.StatusAssigned:
		args = append(args, at)
		q += fmt.Sprintf(", assigned_at = $%d", len(args))
	case domain.StatusPickedUp:
		args = append(args, at)
		q += fmt.Sprintf(", picked_up_at = $%d", len(args))
	case domain.StatusDelivered:
		args = append(args, at)
		q += fmt.Sprintf(", delivered_at = $%d", len(args))
	}

	q += ` WHERE id = $1`
	ct, err := db.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update order %q status: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %q not found", id)
	}
	return nil
}

func appendOrderHistory(ctx context.Context, db executor, change domain.StatusChange) error {
	meta := change.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal history metadata: %w", err)
	}

	_, err = db.Exec(ctx, `
        INSERT INTO order_status_history (order_id, status, metadata)
        VALUES ($1, $2, $3)
    `, change.OrderID, string(change.Status), raw)
	if err != nil {
		return fmt.Errorf("append order %q history: %w", change.OrderID, err)
	}
	return nil
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o     domain.Order
		items []byte
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.RestaurantID, &o.CourierID, &items, &o.TotalAmount, &o.Status,
		&o.DeliveryAddress.Street, &o.DeliveryAddress.City, &o.DeliveryAddress.State,
		&o.DeliveryAddress.ZipCode, &o.DeliveryAddress.Latitude, &o.DeliveryAddress.Longitude,
		&o.CreatedAt, &o.UpdatedAt, &o.AssignedAt, &o.PickedUpAt, &o.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	return &o, nil
}
