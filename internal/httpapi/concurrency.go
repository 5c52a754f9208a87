package httpapi

import (
	"context"
	"net/http"
	"time"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/metrics"
	"coffee-backoffice/pkg/logger"
	"coffee-backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Slots is a distributed counting semaphore keyed by caller.
type Slots interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisSlots caps in-flight requests per key across API replicas.
type RedisSlots struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

// NewRedisSlots: ttl bounds how long a slot leaked by a crashed replica survives.
func NewRedisSlots(rdb *redis.Client, limit int, ttl time.Duration) *RedisSlots {
	return &RedisSlots{rdb: rdb, limit: limit, ttl: ttl}
}

func (s *RedisSlots) Acquire(ctx context.Context, key string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, s.rdb, key, s.limit, s.ttl)
}

func (s *RedisSlots) Release(ctx context.Context, key string) error {
	return utils.ReleaseConcurrencyCap(ctx, s.rdb, key)
}

func slotKey(userID string) string { return "owner_wallets:inflight:" + userID }

// ConcurrencyCap bounds concurrent wallet reads per caller. Fallback reads
// fan out to several queries each, so one owner must not starve the pool.
// Redis errors fail open.
func ConcurrencyCap(slots Slots) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := auth.UserID(c.Request.Context())
		if err != nil {
			c.Next()
			return
		}
		key := slotKey(uid)
		acquired, err := slots.Acquire(c.Request.Context(), key)
		if err != nil {
			logger.FromGin(c).Warn("concurrency cap unavailable", "error", err.Error())
			c.Next()
			return
		}
		if !acquired {
			metrics.RecordConcurrencyRejection()
			abort(c, http.StatusTooManyRequests, "too many concurrent requests")
			return
		}
		defer func() {
			if err := slots.Release(context.WithoutCancel(c.Request.Context()), key); err != nil {
				logger.FromGin(c).Warn("concurrency slot release failed", "error", err.Error())
			}
		}()
		c.Next()
	}
}
