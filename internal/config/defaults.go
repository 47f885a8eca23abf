package config

import "time"

const defaultPort = 3000

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "fooddelivery",
	Pass: "fooddelivery123",
	Name: "fooddelivery",
}

var defaultRedis = Redis{
	Addr: "127.0.0.1:6379",
}

var defaultKafka = Kafka{
	Brokers:  []string{"127.0.0.1:9092"},
	ClientID: "food-dispatch",
	GroupID:  "food-dispatch-group",
}

// Couriers report location every few seconds; two updates per second with a
// small burst is generous for a single courier and still contains a runaway
// client.
var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       2,
	Burst:      5,
	TTL:        10 * time.Minute,
	MaxBuckets: 100000,
}

var defaultMatching = Matching{
	PickupEstimate: 15 * time.Minute,
	SnapshotTTL:    24 * time.Hour,
	LocationTTL:    time.Hour,
}

// DefaultMatching returns the default dispatch tunables.
func DefaultMatching() Matching {
	return defaultMatching
}
