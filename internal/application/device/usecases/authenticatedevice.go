package usecases

import (
	"context"
	"time"

	"veritime/internal/domain/device"
	"veritime/internal/infrastructure/ratelimit"
	"veritime/internal/shared/config"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/goroutine"
	"veritime/internal/shared/logger"
)

type AuthenticateDeviceCommand struct {
	PresentedSecret string
	SourceIP        string
}

type AuthenticateDeviceResult struct {
	DeviceID      uint
	DeviceSID     string
	TenantID      uint
	CredentialID  uint
	CredentialSID string
}

// AuthenticateDeviceUseCase is the trust gate every device request passes
// through. Checks run in a fixed order: blacklist, digest lookup, credential
// state, device state, IP allow-lists, rate limit. Lookup is by SHA-256
// digest with a constant-time confirmation so unknown and known-but-wrong
// secrets take the same path.
type AuthenticateDeviceUseCase struct {
	deviceRepo device.DeviceRepository
	credRepo   device.CredentialRepository
	limiter    ratelimit.RateLimiter
	rateLimit  config.RateLimitConfig
	logger     logger.Interface
}

func NewAuthenticateDeviceUseCase(
	deviceRepo device.DeviceRepository,
	credRepo device.CredentialRepository,
	limiter ratelimit.RateLimiter,
	rateLimit config.RateLimitConfig,
	logger logger.Interface,
) *AuthenticateDeviceUseCase {
	return &AuthenticateDeviceUseCase{
		deviceRepo: deviceRepo,
		credRepo:   credRepo,
		limiter:    limiter,
		rateLimit:  rateLimit,
		logger:     logger,
	}
}

func (uc *AuthenticateDeviceUseCase) Execute(ctx context.Context, cmd AuthenticateDeviceCommand) (*AuthenticateDeviceResult, error) {
	if cmd.PresentedSecret == "" {
		return nil, errors.NewCredentialNotFoundError()
	}

	ipKey := "ip:" + cmd.SourceIP

	// Blacklist reads fail open: a redis outage must not take every
	// device fleet offline.
	if rej := uc.checkBlacklist(ctx, ipKey); rej != nil {
		return nil, rej
	}

	digest := device.DigestSecret(cmd.PresentedSecret)
	cred, err := uc.credRepo.GetByDigest(ctx, digest)
	if err != nil {
		uc.logger.Warnw("device credential not found", "source_ip", cmd.SourceIP)
		return nil, uc.deny(ctx, errors.NewCredentialNotFoundError(), ipKey)
	}

	if !cred.Verify(cmd.PresentedSecret) {
		uc.logger.Warnw("credential digest confirmation failed", "credential_sid", cred.SID())
		return nil, uc.deny(ctx, errors.NewCredentialNotFoundError(), ipKey)
	}

	credKey := "cred:" + cred.SID()

	if rej := uc.checkBlacklist(ctx, credKey); rej != nil {
		return nil, rej
	}

	if cred.IsRevoked() {
		return nil, uc.deny(ctx, errors.NewCredentialRevokedError(), credKey, ipKey)
	}

	if cred.IsExpired() {
		return nil, uc.deny(ctx, errors.NewCredentialExpiredError(cred.SID()), credKey, ipKey)
	}

	dev, err := uc.deviceRepo.GetByID(ctx, cred.DeviceID())
	if err != nil {
		uc.logger.Errorw("failed to load device for credential", "credential_sid", cred.SID(), "error", err)
		return nil, errors.NewInternalError("failed to load device")
	}

	if !dev.CanSubmitPunches() {
		return nil, uc.deny(ctx, errors.NewDeviceInactiveError(dev.Status().String()), credKey, ipKey)
	}

	// The allowlist lives on the credential; a device-level list, when
	// set, restricts every credential of the device on top of it.
	if !cred.IsIPAllowed(cmd.SourceIP) || !dev.IsIPAllowed(cmd.SourceIP) {
		return nil, uc.deny(ctx, errors.NewIPNotAllowedError(cmd.SourceIP), credKey, ipKey)
	}

	limit := cred.PerMinuteQuota()
	if limit <= 0 {
		limit = uc.rateLimit.RequestsPerMinute
	}

	// Limiter errors fail secure: if we cannot count, we do not serve.
	result, err := uc.limiter.CheckAndIncrement(ctx, credKey, limit, time.Minute)
	if err != nil {
		uc.logger.Errorw("rate limit check failed, denying", "credential_sid", cred.SID(), "error", err)
		return nil, errors.NewRateLimitedError(60)
	}
	if !result.Allowed {
		retryAfter := int(time.Until(result.ResetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return nil, uc.deny(ctx, errors.NewRateLimitedError(retryAfter), credKey, ipKey)
	}

	uc.recordUsage(cred, dev, cmd.SourceIP)

	uc.logger.Debugw("device authenticated",
		"device_sid", dev.SID(),
		"credential_sid", cred.SID(),
	)

	return &AuthenticateDeviceResult{
		DeviceID:      dev.ID(),
		DeviceSID:     dev.SID(),
		TenantID:      dev.TenantID(),
		CredentialID:  cred.ID(),
		CredentialSID: cred.SID(),
	}, nil
}

func (uc *AuthenticateDeviceUseCase) checkBlacklist(ctx context.Context, key string) *errors.RejectError {
	status, err := uc.limiter.Status(ctx, key)
	if err != nil {
		uc.logger.Warnw("blacklist check failed, allowing", "key", key, "error", err)
		return nil
	}
	if !status.Blacklisted {
		return nil
	}

	retryAfter := int(time.Until(status.ExpiresAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	return errors.NewBlacklistedError(retryAfter)
}

// deny records a violation for each key when the rejection is a tracked
// security event, then returns the rejection unchanged.
func (uc *AuthenticateDeviceUseCase) deny(ctx context.Context, rej *errors.RejectError, keys ...string) error {
	if rej.SecurityEvent {
		for _, key := range keys {
			if _, err := uc.limiter.RecordViolation(ctx, key); err != nil {
				uc.logger.Warnw("failed to record violation", "key", key, "error", err)
			}
		}
	}
	return rej
}

// recordUsage updates usage counters off the request path. Failures only
// lose telemetry, never an authentication.
func (uc *AuthenticateDeviceUseCase) recordUsage(cred *device.DeviceCredential, dev *device.Device, sourceIP string) {
	goroutine.SafeGo(uc.logger, "credential-usage-update", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		now := time.Now()
		cred.MarkUsed(now, sourceIP)
		if err := uc.credRepo.Update(ctx, cred); err != nil {
			uc.logger.Warnw("failed to update credential usage", "credential_sid", cred.SID(), "error", err)
		}

		dev.MarkSeen(now)
		if err := uc.deviceRepo.Update(ctx, dev); err != nil {
			uc.logger.Warnw("failed to update device last seen", "device_sid", dev.SID(), "error", err)
		}
	})
}
