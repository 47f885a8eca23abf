// Package registry maintains the ephemeral presence and assignment state in
// Redis: which couriers are online, where they are, which order each one
// holds, which ready orders still wait for a courier, and the live order
// snapshots. The durable store stays the source of truth; everything here is
// TTL-bounded and may be stale.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"fooddispatch/internal/apperr"
	"fooddispatch/internal/domain"
)

// Registry is the Redis-backed availability registry.
type Registry struct {
	rdb         redis.UniversalClient
	snapshotTTL time.Duration
	locationTTL time.Duration
	now         func() time.Time
}

// New creates a Registry with the given snapshot and location TTLs.
func New(rdb redis.UniversalClient, snapshotTTL, locationTTL time.Duration) *Registry {
	return &Registry{
		rdb:         rdb,
		snapshotTTL: snapshotTTL,
		locationTTL: locationTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// NewClient connects and pings a Redis client.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// wrap marks a Redis failure as a retryable infrastructure error. Callers
// must never treat it as "no match found".
func wrap(op string, err error) error {
	return fmt.Errorf("registry %s: %w", op, errors.Join(apperr.Unavailable, err))
}

// MarkCourierOnline adds the courier to the online set and records its
// location. Calling it twice is a no-op beyond refreshing the location: the
// original online-since timestamp is preserved.
func (r *Registry) MarkCourierOnline(ctx context.Context, courierID string, loc domain.Location) error {
	if err := r.rdb.SAdd(ctx, keyOnlineCouriers, courierID).Err(); err != nil {
		return wrap("mark online", err)
	}

	presence := domain.CourierPresence{
		CourierID:   courierID,
		Location:    loc,
		OnlineSince: r.now(),
	}
	raw, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	if err := r.rdb.SetNX(ctx, keyCourierPresence(courierID), raw, 0).Err(); err != nil {
		return wrap("set presence", err)
	}

	return r.UpdateCourierLocation(ctx, courierID, loc)
}

// MarkCourierOffline removes the courier from the online set together with
// its presence and location. It deliberately leaves the current-order pointer
// untouched: the matching engine reacts to an offline courier that still
// holds an order via reassignment.
func (r *Registry) MarkCourierOffline(ctx context.Context, courierID string) error {
	if err := r.rdb.SRem(ctx, keyOnlineCouriers, courierID).Err(); err != nil {
		return wrap("mark offline", err)
	}
	if err := r.rdb.Del(ctx, keyCourierPresence(courierID), keyCourierLocation(courierID)).Err(); err != nil {
		return wrap("drop presence", err)
	}
	return nil
}

// UpdateCourierLocation refreshes the stored coordinates and resets the
// location TTL.
func (r *Registry) UpdateCourierLocation(ctx context.Context, courierID string, loc domain.Location) error {
	if loc.Timestamp.IsZero() {
		loc.Timestamp = r.now()
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	if err := r.rdb.Set(ctx, keyCourierLocation(courierID), raw, r.locationTTL).Err(); err != nil {
		return wrap("set location", err)
	}
	return nil
}

// CourierLocation returns the courier's last known location, or nil when it
// has expired or was never recorded. An expired location does not mean the
// courier is offline.
func (r *Registry) CourierLocation(ctx context.Context, courierID string) (*domain.Location, error) {
	raw, err := r.rdb.Get(ctx, keyCourierLocation(courierID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get location", err)
	}
	var loc domain.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("unmarshal location: %w", err)
	}
	return &loc, nil
}

// IsCourierOnline reports membership in the online set.
func (r *Registry) IsCourierOnline(ctx context.Context, courierID string) (bool, error) {
	online, err := r.rdb.SIsMember(ctx, keyOnlineCouriers, courierID).Result()
	if err != nil {
		return false, wrap("is online", err)
	}
	return online, nil
}

// IsCourierAvailable is true iff the courier is online and holds no order.
func (r *Registry) IsCourierAvailable(ctx context.Context, courierID string) (bool, error) {
	online, err := r.IsCourierOnline(ctx, courierID)
	if err != nil || !online {
		return false, err
	}
	current, err := r.CourierCurrentOrder(ctx, courierID)
	if err != nil {
		return false, err
	}
	return current == "", nil
}

// CourierCurrentOrder returns the order the courier currently holds, or ""
// when it is free.
func (r *Registry) CourierCurrentOrder(ctx context.Context, courierID string) (string, error) {
	orderID, err := r.rdb.Get(ctx, keyCourierCurrentOrder(courierID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", wrap("current order", err)
	}
	return orderID, nil
}

// OrderCourier returns the courier assigned to the order, or "".
func (r *Registry) OrderCourier(ctx context.Context, orderID string) (string, error) {
	courierID, err := r.rdb.Get(ctx, keyOrderCourier(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", wrap("order courier", err)
	}
	return courierID, nil
}

// AssignOrderToCourier atomically claims both sides of the pairing: the claim
// succeeds only when the courier currently holds no order AND the order has
// no courier. Concurrent matching attempts for the same courier or order
// therefore produce at most one winner; the loser sees ok=false and retries
// against the remaining pool.
func (r *Registry) AssignOrderToCourier(ctx context.Context, orderID, courierID string) (bool, error) {
	// Both sides carry the same TTL. If one side lapsed while the other
	// lingered, a courier could stay "busy" for an order nobody tracks.
	got, err := r.rdb.SetNX(ctx, keyCourierCurrentOrder(courierID), orderID, r.snapshotTTL).Result()
	if err != nil {
		return false, wrap("claim courier", err)
	}
	if !got {
		return false, nil
	}

	got, err = r.rdb.SetNX(ctx, keyOrderCourier(orderID), courierID, r.snapshotTTL).Result()
	if err != nil || !got {
		// The order side lost to a concurrent claim (or the store failed):
		// release the courier so it stays claimable.
		if delErr := r.rdb.Del(ctx, keyCourierCurrentOrder(courierID)).Err(); delErr != nil && err == nil {
			return false, wrap("release courier", delErr)
		}
		if err != nil {
			return false, wrap("claim order", err)
		}
		return false, nil
	}
	return true, nil
}

// ClearCourierAssignment removes the courier's current-order pointer. Called
// on delivery and on reassignment.
func (r *Registry) ClearCourierAssignment(ctx context.Context, courierID string) error {
	if err := r.rdb.Del(ctx, keyCourierCurrentOrder(courierID)).Err(); err != nil {
		return wrap("clear assignment", err)
	}
	return nil
}

// ClearOrderAssignment removes the order's assigned-courier pointer.
func (r *Registry) ClearOrderAssignment(ctx context.Context, orderID string) error {
	if err := r.rdb.Del(ctx, keyOrderCourier(orderID)).Err(); err != nil {
		return wrap("clear order assignment", err)
	}
	return nil
}

// EnqueueUnassignedOrder adds a ready order to the pending set.
func (r *Registry) EnqueueUnassignedOrder(ctx context.Context, entry domain.UnassignedOrder) error {
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = r.now()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal unassigned order: %w", err)
	}
	if err := r.rdb.HSet(ctx, keyUnassignedOrders, entry.OrderID, raw).Err(); err != nil {
		return wrap("enqueue order", err)
	}
	return nil
}

// DequeueUnassignedOrder removes an order from the pending set.
func (r *Registry) DequeueUnassignedOrder(ctx context.Context, orderID string) error {
	if err := r.rdb.HDel(ctx, keyUnassignedOrders, orderID).Err(); err != nil {
		return wrap("dequeue order", err)
	}
	return nil
}

// ListUnassignedOrders returns the pending set ordered by enqueue time, so a
// scan encounters older orders first.
func (r *Registry) ListUnassignedOrders(ctx context.Context) ([]domain.UnassignedOrder, error) {
	raw, err := r.rdb.HVals(ctx, keyUnassignedOrders).Result()
	if err != nil {
		return nil, wrap("list unassigned", err)
	}

	out := make([]domain.UnassignedOrder, 0, len(raw))
	for _, v := range raw {
		var entry domain.UnassignedOrder
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal unassigned order: %w", err)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out, nil
}

// ListOnlineCouriers returns a snapshot of all online couriers ordered by
// online-since time.
func (r *Registry) ListOnlineCouriers(ctx context.Context) ([]domain.CourierPresence, error) {
	ids, err := r.rdb.SMembers(ctx, keyOnlineCouriers).Result()
	if err != nil {
		return nil, wrap("list online", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyCourierPresence(id)
	}
	raws, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, wrap("get presences", err)
	}

	out := make([]domain.CourierPresence, 0, len(ids))
	for i, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			// Presence expired between SMEMBERS and MGET; keep the membership
			// with what we know.
			out = append(out, domain.CourierPresence{CourierID: ids[i]})
			continue
		}
		var p domain.CourierPresence
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, fmt.Errorf("unmarshal presence: %w", err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OnlineSince.Before(out[j].OnlineSince) })
	return out, nil
}

// SetOrderSnapshot writes the live order snapshot with the snapshot TTL.
func (r *Registry) SetOrderSnapshot(ctx context.Context, snap domain.OrderSnapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = r.now()
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.rdb.Set(ctx, keyOrderStatus(snap.OrderID), raw, r.snapshotTTL).Err(); err != nil {
		return wrap("set snapshot", err)
	}
	return nil
}

// OrderSnapshot returns the live snapshot, or nil when it has expired.
func (r *Registry) OrderSnapshot(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	raw, err := r.rdb.Get(ctx, keyOrderStatus(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get snapshot", err)
	}
	var snap domain.OrderSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Ping reports whether the store is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return wrap("ping", err)
	}
	return nil
}
