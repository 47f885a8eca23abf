package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fooddispatch/internal/repository"
)

var newPool = repository.NewPool

// connectDbWithRetry dials the database until it answers, doubling the wait
// between attempts up to five seconds. Startup races with the database in
// compose environments, so a cold first attempt is normal.
func connectDbWithRetry(ctx context.Context, dsn string, retries int, delay time.Duration) (*pgxpool.Pool, error) {
	const (
		attemptTimeout = 3 * time.Second
		maxDelay       = 5 * time.Second
	)

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		pool, err := newPool(dialCtx, dsn)
		cancel()
		if err == nil {
			log.Printf("db connected on attempt %d", attempt)
			return pool, nil
		}
		lastErr = err
		log.Printf("db connect failed (attempt %d/%d): %v", attempt, retries, err)

		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxDelay {
			delay = maxDelay
		}
	}
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", retries, lastErr)
}
