package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// BlacklistStatus describes an active blacklist entry.
type BlacklistStatus struct {
	Blacklisted bool
	Reason      string
	ExpiresAt   time.Time
}

// RateLimiter is a sliding-window limiter with violation tracking and
// auto-blacklisting. Keys are caller-defined (credential SID, source IP).
type RateLimiter interface {
	// CheckAndIncrement counts the request against the key's sliding
	// window. A denied request is removed from the window again so
	// rejected traffic does not consume quota.
	CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (Result, error)

	// RecordViolation tracks an auth or rate denial for the key and
	// blacklists it once the violation threshold is reached inside the
	// rolling violation window. Returns the current violation count.
	RecordViolation(ctx context.Context, key string) (int64, error)

	IsBlacklisted(ctx context.Context, key string) (bool, error)
	Blacklist(ctx context.Context, key string, duration time.Duration, reason string) error
	Unblacklist(ctx context.Context, key string) error
	Status(ctx context.Context, key string) (BlacklistStatus, error)

	// Reset clears all limiter state for the key.
	Reset(ctx context.Context, key string) error
}

// Alerter receives security notifications raised by the limiter.
type Alerter interface {
	SecurityAlert(ctx context.Context, subject, detail string)
}
