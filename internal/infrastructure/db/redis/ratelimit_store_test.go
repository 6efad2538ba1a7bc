package redis

import (
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_KeyIsBucketedByWindow(t *testing.T) {
	s := NewRateLimitStore(nil, time.Minute, 10, zerolog.Nop())

	base := time.Date(2026, 1, 1, 10, 0, 5, 0, time.UTC)
	k1 := s.key("10.0.0.1", base)
	k2 := s.key("10.0.0.1", base.Add(30*time.Second))
	k3 := s.key("10.0.0.1", base.Add(time.Minute))

	require.True(t, strings.HasPrefix(k1, "ratelimit:10.0.0.1:"))
	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
	require.NotEqual(t, k1, s.key("10.0.0.2", base))
}

func TestRateLimitStore_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRateLimitStore(client, time.Minute, 1, zerolog.Nop())
	for i := 0; i < 3; i++ {
		allowed, err := s.Allow("10.0.0.1")
		require.NoError(t, err)
		require.True(t, allowed)
	}
}
