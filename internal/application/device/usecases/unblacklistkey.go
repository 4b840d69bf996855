package usecases

import (
	"context"

	"veritime/internal/infrastructure/ratelimit"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type UnblacklistKeyCommand struct {
	// Key is the limiter key as tracked by the authenticator, e.g.
	// "cred:dvc_abc123" or "ip:203.0.113.9".
	Key string
}

// UnblacklistKeyUseCase lifts an auto-blacklist entry early and clears the
// accumulated limiter state so the key does not trip again immediately.
type UnblacklistKeyUseCase struct {
	limiter ratelimit.RateLimiter
	logger  logger.Interface
}

func NewUnblacklistKeyUseCase(
	limiter ratelimit.RateLimiter,
	logger logger.Interface,
) *UnblacklistKeyUseCase {
	return &UnblacklistKeyUseCase{
		limiter: limiter,
		logger:  logger,
	}
}

func (uc *UnblacklistKeyUseCase) Execute(ctx context.Context, cmd UnblacklistKeyCommand) error {
	if cmd.Key == "" {
		return errors.NewValidationError("blacklist key is required")
	}

	if err := uc.limiter.Unblacklist(ctx, cmd.Key); err != nil {
		uc.logger.Errorw("failed to unblacklist key", "key", cmd.Key, "error", err)
		return errors.NewInternalError("failed to unblacklist key")
	}

	if err := uc.limiter.Reset(ctx, cmd.Key); err != nil {
		uc.logger.Warnw("failed to reset limiter state", "key", cmd.Key, "error", err)
	}

	uc.logger.Infow("key unblacklisted", "key", cmd.Key)

	return nil
}
