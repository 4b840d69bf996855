package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritime/internal/shared/logger"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})

	return client
}

type captureAlerter struct {
	subjects []string
}

func (c *captureAlerter) SecurityAlert(_ context.Context, subject, _ string) {
	c.subjects = append(c.subjects, subject)
}

func newTestLimiter(client *redis.Client, alerter Alerter) *RedisRateLimiter {
	return NewRedisRateLimiter(client, Options{
		ViolationThreshold: 5,
		ViolationWindow:    10 * time.Minute,
		BlacklistDuration:  time.Hour,
	}, alerter, logger.NewLogger())
}

func TestRedisRateLimiter_CheckAndIncrement(t *testing.T) {
	client := setupTestRedis(t)
	limiter := newTestLimiter(client, nil)
	ctx := context.Background()

	key := "dvc_limit_test"

	for i := 0; i < 5; i++ {
		result, err := limiter.CheckAndIncrement(ctx, key, 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, int64(5-(i+1)), result.Remaining)
	}

	result, err := limiter.CheckAndIncrement(ctx, key, 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "6th request should be denied")
	assert.Equal(t, int64(0), result.Remaining)
}

func TestRedisRateLimiter_DenialDoesNotConsumeQuota(t *testing.T) {
	client := setupTestRedis(t)
	limiter := newTestLimiter(client, nil)
	ctx := context.Background()

	key := "dvc_denial_test"

	for i := 0; i < 3; i++ {
		_, err := limiter.CheckAndIncrement(ctx, key, 3, time.Minute)
		require.NoError(t, err)
	}

	// Hammering a full window must not extend the denial.
	for i := 0; i < 10; i++ {
		result, err := limiter.CheckAndIncrement(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
	}

	count, err := client.ZCard(ctx, requestKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count, "denied requests should not stay in the window")
}

func TestRedisRateLimiter_DifferentKeysIndependent(t *testing.T) {
	client := setupTestRedis(t)
	limiter := newTestLimiter(client, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.CheckAndIncrement(ctx, "key-a", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.CheckAndIncrement(ctx, "key-a", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "key-a should be rate limited")

	result, err = limiter.CheckAndIncrement(ctx, "key-b", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "key-b should not be affected")
}

func TestRedisRateLimiter_ZeroLimitAllowsAll(t *testing.T) {
	client := setupTestRedis(t)
	limiter := newTestLimiter(client, nil)

	result, err := limiter.CheckAndIncrement(context.Background(), "zero", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisRateLimiter_ViolationsTriggerBlacklist(t *testing.T) {
	client := setupTestRedis(t)
	alerter := &captureAlerter{}
	limiter := newTestLimiter(client, alerter)
	ctx := context.Background()

	key := "dvc_violation_test"

	for i := 0; i < 4; i++ {
		count, err := limiter.RecordViolation(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), count)

		blacklisted, err := limiter.IsBlacklisted(ctx, key)
		require.NoError(t, err)
		assert.False(t, blacklisted, "should not be blacklisted before the threshold")
	}

	count, err := limiter.RecordViolation(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	blacklisted, err := limiter.IsBlacklisted(ctx, key)
	require.NoError(t, err)
	assert.True(t, blacklisted, "5th violation should blacklist the key")
	assert.Len(t, alerter.subjects, 1, "auto-blacklist should raise a security alert")

	status, err := limiter.Status(ctx, key)
	require.NoError(t, err)
	assert.True(t, status.Blacklisted)
	assert.Contains(t, status.Reason, "violations")
}

func TestRedisRateLimiter_Unblacklist(t *testing.T) {
	client := setupTestRedis(t)
	limiter := newTestLimiter(client, nil)
	ctx := context.Background()

	key := "dvc_unblacklist_test"

	require.NoError(t, limiter.Blacklist(ctx, key, time.Hour, "manual"))
	blacklisted, err := limiter.IsBlacklisted(ctx, key)
	require.NoError(t, err)
	assert.True(t, blacklisted)

	require.NoError(t, limiter.Unblacklist(ctx, key))
	blacklisted, err = limiter.IsBlacklisted(ctx, key)
	require.NoError(t, err)
	assert.False(t, blacklisted)
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	client := setupTestRedis(t)
	limiter := newTestLimiter(client, nil)
	ctx := context.Background()

	key := "dvc_reset_test"

	for i := 0; i < 2; i++ {
		_, err := limiter.CheckAndIncrement(ctx, key, 2, time.Minute)
		require.NoError(t, err)
	}

	result, err := limiter.CheckAndIncrement(ctx, key, 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	require.NoError(t, limiter.Reset(ctx, key))

	result, err = limiter.CheckAndIncrement(ctx, key, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "should be allowed after reset")
}
