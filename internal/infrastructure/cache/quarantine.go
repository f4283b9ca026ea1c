package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/skywardops/telemetry-quality-engine/internal/infrastructure/config"
	"github.com/skywardops/telemetry-quality-engine/internal/service/validation"
)

// QuarantineQueue publishes quarantined verdicts to a Redis review queue.
// Each verdict is pushed onto a list for the review consumer and additionally
// stored under a TTL'd key so operators can look one up by id. Publishing is
// rate limited so a corrupted feed cannot flood Redis.
type QuarantineQueue struct {
	client  *redis.Client
	queue   string
	ttl     time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewQuarantineQueue connects to Redis and verifies the connection.
func NewQuarantineQueue(cfg *config.RedisConfig, logger *zap.Logger) (*QuarantineQueue, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("quarantine queue initialized",
		zap.String("addr", cfg.URL),
		zap.String("queue", cfg.QueueKey),
		zap.Int("db", cfg.DB))

	return &QuarantineQueue{
		client:  client,
		queue:   cfg.QueueKey,
		ttl:     cfg.VerdictTTL,
		limiter: rate.NewLimiter(rate.Limit(cfg.PushPerSec), cfg.PushBurst),
		logger:  logger,
	}, nil
}

// Quarantine publishes one verdict. Blocks under the rate limit until a slot
// frees or ctx is done.
func (q *QuarantineQueue) Quarantine(ctx context.Context, verdict *validation.Verdict) error {
	if err := q.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("quarantine rate limit: %w", err)
	}

	payload, err := json.Marshal(verdict)
	if err != nil {
		q.logger.Error("verdict marshal failed",
			zap.String("verdict_id", verdict.ID.String()),
			zap.Error(err))
		return fmt.Errorf("verdict marshal failed: %w", err)
	}

	if err := q.client.LPush(ctx, q.queue, payload).Err(); err != nil {
		q.logger.Error("quarantine push failed",
			zap.String("verdict_id", verdict.ID.String()),
			zap.Error(err))
		return fmt.Errorf("quarantine push failed: %w", err)
	}

	key := q.verdictKey(verdict.ID.String())
	if err := q.client.Set(ctx, key, payload, q.ttl).Err(); err != nil {
		q.logger.Error("verdict store failed",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("verdict store failed: %w", err)
	}

	return nil
}

// Lookup fetches a previously quarantined verdict by id.
func (q *QuarantineQueue) Lookup(ctx context.Context, id string) (*validation.Verdict, error) {
	data, err := q.client.Get(ctx, q.verdictKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheKeyNotFound{Key: q.verdictKey(id)}
		}
		return nil, fmt.Errorf("verdict lookup failed: %w", err)
	}

	var verdict validation.Verdict
	if err := json.Unmarshal([]byte(data), &verdict); err != nil {
		return nil, fmt.Errorf("verdict unmarshal failed: %w", err)
	}
	return &verdict, nil
}

// Depth returns the number of verdicts waiting for review.
func (q *QuarantineQueue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.queue).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth failed: %w", err)
	}
	return n, nil
}

// Close releases the Redis connection.
func (q *QuarantineQueue) Close() error {
	if err := q.client.Close(); err != nil {
		q.logger.Error("redis close failed", zap.Error(err))
		return fmt.Errorf("redis close failed: %w", err)
	}
	q.logger.Info("quarantine queue connection closed")
	return nil
}

func (q *QuarantineQueue) verdictKey(id string) string {
	return fmt.Sprintf("%s:verdict:%s", q.queue, id)
}

// ErrCacheKeyNotFound indicates a missing key.
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return fmt.Sprintf("cache key not found: %s", e.Key)
}
