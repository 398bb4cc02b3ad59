// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"github.com/redis/go-redis/v9"

	"task_backend/internal/feature/auth/usecase"
	jwtmw "task_backend/internal/platform/jwt"
	"task_backend/internal/shared/ratelimiter"
)

// loginLimiterPrefix namespaces the throttle counters in a shared Redis.
const loginLimiterPrefix = "task_backend:ratelimit:"

// NewLoginLimiter creates the login throttle.
// If Redis is available, it returns a Redis-backed implementation shared across instances.
// Otherwise, it falls back to an in-process counter.
func NewLoginLimiter(rdb *redis.Client, limit int, window time.Duration) usecase.LoginLimiter {
	if rdb != nil {
		return ratelimiter.NewRedisLimiter(rdb, loginLimiterPrefix, limit, window)
	}
	return ratelimiter.NewMemoryLimiter(limit, window)
}

// NewSecretStore returns the Redis-backed secret store, or nil when Redis is not configured.
func NewSecretStore(rdb *redis.Client, key string) jwtmw.SecretStore {
	if rdb == nil {
		return nil
	}
	return jwtmw.NewRedisSecretStore(rdb, key)
}
