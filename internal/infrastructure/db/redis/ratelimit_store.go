package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix      = "ratelimit"
	commandTimeout = 500 * time.Millisecond
)

// RateLimitStore is a fixed-window counter shared by every API instance.
// It satisfies echo's middleware.RateLimiterStore.
type RateLimitStore struct {
	client redis.Cmdable
	window time.Duration
	max    int64
	log    zerolog.Logger
	now    func() time.Time
}

// NewRateLimitStore allows max requests per identifier per window.
func NewRateLimitStore(client redis.Cmdable, window time.Duration, max int, log zerolog.Logger) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		window: window,
		max:    int64(max),
		log:    log,
		now:    time.Now,
	}
}

// Allow counts the request against the identifier's current window. Redis
// failures let the request through.
func (s *RateLimitStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	key := s.key(identifier, s.now())

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, s.window)
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("identifier", identifier).Msg("rate limit store unavailable, allowing request")
		return true, nil
	}

	return incr.Val() <= s.max, nil
}

func (s *RateLimitStore) key(identifier string, now time.Time) string {
	bucket := now.UnixNano() / int64(s.window)
	return fmt.Sprintf("%s:%s:%d", keyPrefix, identifier, bucket)
}
