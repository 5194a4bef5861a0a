package userlock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"todobot/internal/logging"
)

const (
	// DefaultTTL bounds how long a crashed holder can block a key.
	DefaultTTL = 30 * time.Second

	// DefaultRetryInterval is the pause between acquisition attempts.
	DefaultRetryInterval = 50 * time.Millisecond

	unlockTimeout = 2 * time.Second
)

// unlockScript deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Redis is a Locker shared by every process that talks to the same Redis.
// It uses SET NX PX with a random token and a compare-and-delete unlock.
type Redis struct {
	client        *redis.Client
	keyPrefix     string
	ttl           time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

// NewRedis creates a Redis-backed locker. ttl <= 0 uses DefaultTTL.
func NewRedis(client *redis.Client, keyPrefix string, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client:        client,
		keyPrefix:     keyPrefix,
		ttl:           ttl,
		retryInterval: DefaultRetryInterval,
		logger:        logger,
	}
}

// Lock implements Locker.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("redis lock %s: %w", logging.AnonymizeUser(key), err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		if err := unlockScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
			// The key expires after ttl anyway.
			r.logger.Warn("failed to release redis lock", logging.UserHash(key), logging.Err(err))
		}
	}, nil
}
