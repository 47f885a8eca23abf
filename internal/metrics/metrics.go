package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching groups the dispatch counters.
type Matching struct {
	Attempts      prometheus.Counter
	Matches       prometheus.Counter
	Reassignments prometheus.Counter
}

// NewMatching returns registered counters for the matching engine.
func NewMatching(reg prometheus.Registerer) *Matching {
	m := &Matching{
		Attempts:      NewMatchAttemptsTotal(),
		Matches:       NewMatchesTotal(),
		Reassignments: NewReassignmentsTotal(),
	}
	reg.MustRegister(m.Attempts, m.Matches, m.Reassignments)
	return m
}

// NewMatchAttemptsTotal returns a Prometheus counter for the number of matching attempts
func NewMatchAttemptsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_attempts_total",
		Help: "Total number of matching attempts (order-seeking and courier-seeking)",
	})
}

// NewMatchesTotal returns a Prometheus counter for the number of successful pairings
func NewMatchesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matches_total",
		Help: "Total number of successful order-courier pairings",
	})
}

// NewReassignmentsTotal returns a Prometheus counter for the number of order reassignments
func NewReassignmentsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reassignments_total",
		Help: "Total number of orders reassigned after a courier dropped out",
	})
}

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewEventsConsumedTotal returns a Prometheus counter vector for consumed events by topic
func NewEventsConsumedTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Total number of events processed by the worker, by topic",
	}, []string{"topic"})
}
