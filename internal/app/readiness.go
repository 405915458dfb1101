package app

import (
	"context"
	"fmt"
)

// Pinger is the minimal interface for a dependency capable of Ping, which
// both the pgx pool and the Redis cache satisfy.
type Pinger interface{ Ping(ctx context.Context) error }

// KafkaPinger is the minimal interface a Kafka client needs for readiness.
type KafkaPinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the db, redis and kafka readiness probes.
func BuildReadinessChecks(pool Pinger, cache Pinger, kafka KafkaPinger) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	redisCheck := func(ctx context.Context) error {
		if cache == nil {
			return fmt.Errorf("redis not configured")
		}
		return cache.Ping(ctx)
	}
	kafkaCheck := func(ctx context.Context) error {
		if kafka == nil {
			return fmt.Errorf("kafka not configured")
		}
		return kafka.Ping(ctx)
	}
	return dbCheck, redisCheck, kafkaCheck
}
