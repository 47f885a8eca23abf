package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"fooddispatch/internal/config"
	"fooddispatch/internal/http/middleware/ratelimit"
	"fooddispatch/internal/logx"
	"fooddispatch/internal/metrics"
)

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.NopLimiter{}
	}
	return ratelimit.NewTokenBucket(clock, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

func newRateLimitMiddleware(
	logger logx.Logger,
	reg *prometheus.Registry,
	limiter ratelimit.Limiter,
) *ratelimit.Middleware {
	counter := metrics.NewRateLimitExceededTotal()
	reg.MustRegister(counter)
	return ratelimit.New(logger, counter, limiter)
}
