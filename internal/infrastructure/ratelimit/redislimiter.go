package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veritime/internal/shared/logger"
)

const (
	requestKeyPrefix   = "ratelimit:req:"
	violationKeyPrefix = "ratelimit:violations:"
	blacklistKeyPrefix = "blacklist:"
)

// Options tunes the violation-driven auto-blacklist.
type Options struct {
	ViolationThreshold int
	ViolationWindow    time.Duration
	BlacklistDuration  time.Duration
}

// RedisRateLimiter implements RateLimiter on redis sorted sets so multiple
// instances share one view of every window.
type RedisRateLimiter struct {
	client  *redis.Client
	opts    Options
	alerter Alerter
	logger  logger.Interface
}

func NewRedisRateLimiter(client *redis.Client, opts Options, alerter Alerter, log logger.Interface) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:  client,
		opts:    opts,
		alerter: alerter,
		logger:  log.Named("ratelimit"),
	}
}

func (l *RedisRateLimiter) CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 {
		return Result{Allowed: true, Remaining: -1, ResetAt: time.Now().Add(window)}, nil
	}

	now := time.Now()
	redisKey := requestKeyPrefix + key
	windowStart := now.Add(-window).UnixNano()
	member := fmt.Sprintf("%d", now.UnixNano())

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	zcard := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	count := zcard.Val()
	if count > int64(limit) {
		// Rejected traffic must not consume quota.
		if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
			l.logger.Warnw("failed to remove denied request from window", "key", key, "error", err)
		}
		return Result{Allowed: false, Remaining: 0, ResetAt: now.Add(window)}, nil
	}

	return Result{Allowed: true, Remaining: int64(limit) - count, ResetAt: now.Add(window)}, nil
}

func (l *RedisRateLimiter) RecordViolation(ctx context.Context, key string) (int64, error) {
	now := time.Now()
	redisKey := violationKeyPrefix + key
	windowStart := now.Add(-l.opts.ViolationWindow).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	zcard := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.opts.ViolationWindow+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record violation: %w", err)
	}

	count := zcard.Val()
	if l.opts.ViolationThreshold > 0 && count >= int64(l.opts.ViolationThreshold) {
		reason := fmt.Sprintf("%d violations within %s", count, l.opts.ViolationWindow)
		if err := l.Blacklist(ctx, key, l.opts.BlacklistDuration, reason); err != nil {
			return count, err
		}

		l.logger.Warnw("key auto-blacklisted",
			"key", key,
			"violations", count,
			"duration", l.opts.BlacklistDuration,
		)
		if l.alerter != nil {
			l.alerter.SecurityAlert(ctx,
				"device credential auto-blacklisted",
				fmt.Sprintf("key %s blacklisted for %s after %s", key, l.opts.BlacklistDuration, reason),
			)
		}
	}

	return count, nil
}

func (l *RedisRateLimiter) IsBlacklisted(ctx context.Context, key string) (bool, error) {
	err := l.client.Get(ctx, blacklistKeyPrefix+key).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return true, nil
}

func (l *RedisRateLimiter) Blacklist(ctx context.Context, key string, duration time.Duration, reason string) error {
	if err := l.client.Set(ctx, blacklistKeyPrefix+key, reason, duration).Err(); err != nil {
		return fmt.Errorf("failed to blacklist key: %w", err)
	}
	return nil
}

func (l *RedisRateLimiter) Unblacklist(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, blacklistKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to remove blacklist entry: %w", err)
	}
	return nil
}

func (l *RedisRateLimiter) Status(ctx context.Context, key string) (BlacklistStatus, error) {
	redisKey := blacklistKeyPrefix + key

	reason, err := l.client.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return BlacklistStatus{}, nil
	}
	if err != nil {
		return BlacklistStatus{}, fmt.Errorf("failed to read blacklist status: %w", err)
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return BlacklistStatus{}, fmt.Errorf("failed to read blacklist TTL: %w", err)
	}

	return BlacklistStatus{
		Blacklisted: true,
		Reason:      reason,
		ExpiresAt:   time.Now().Add(ttl),
	}, nil
}

func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	keys := []string{
		requestKeyPrefix + key,
		violationKeyPrefix + key,
		blacklistKeyPrefix + key,
	}
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to reset limiter state: %w", err)
	}
	return nil
}
