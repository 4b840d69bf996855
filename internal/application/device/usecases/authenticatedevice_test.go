package usecases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritime/internal/domain/device"
	"veritime/internal/shared/config"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

func setupAuthFixture(t *testing.T) (*AuthenticateDeviceUseCase, *fakeDeviceRepo, *fakeCredentialRepo, *fakeLimiter) {
	t.Helper()

	deviceRepo := newFakeDeviceRepo()
	credRepo := newFakeCredentialRepo()
	limiter := newFakeLimiter()

	uc := NewAuthenticateDeviceUseCase(
		deviceRepo,
		credRepo,
		limiter,
		config.RateLimitConfig{RequestsPerMinute: 60},
		logger.NewLogger(),
	)
	return uc, deviceRepo, credRepo, limiter
}

func registerActiveDevice(t *testing.T, repo *fakeDeviceRepo, allowlist []string) *device.Device {
	t.Helper()

	dev, err := device.NewDevice("dev_auth0001", 1, "Lobby Terminal", "SN-AUTH-1", "ZK-F18", "HQ lobby", allowlist)
	require.NoError(t, err)
	require.NoError(t, dev.Activate())
	require.NoError(t, repo.Create(context.Background(), dev))
	return dev
}

func issueActiveCredential(t *testing.T, repo *fakeCredentialRepo, deviceID uint, expiresAt *time.Time) (string, *device.DeviceCredential) {
	t.Helper()

	plain, cred, err := device.IssueCredential(fmt.Sprintf("dvc_auth%04d", repo.nextID+1), deviceID, "primary", expiresAt, 0)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), cred))
	return plain, cred
}

func TestAuthenticateDevice_Success(t *testing.T) {
	uc, deviceRepo, credRepo, _ := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, cred := issueActiveCredential(t, credRepo, dev.ID(), nil)

	result, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	require.NoError(t, err)
	assert.Equal(t, dev.ID(), result.DeviceID)
	assert.Equal(t, dev.SID(), result.DeviceSID)
	assert.Equal(t, uint(1), result.TenantID)
	assert.Equal(t, cred.SID(), result.CredentialSID)
}

func TestAuthenticateDevice_UnknownSecret(t *testing.T) {
	uc, deviceRepo, credRepo, limiter := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	issueActiveCredential(t, credRepo, dev.ID(), nil)

	_, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: "vtd_definitely-not-issued",
		SourceIP:        "203.0.113.9",
	})

	require.Error(t, err)
	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeCredentialNotFound, rej.Type)
	assert.True(t, rej.SecurityEvent)
	assert.Equal(t, int64(1), limiter.violationCount("ip:203.0.113.9"))
}

func TestAuthenticateDevice_RevokedCredential(t *testing.T) {
	uc, deviceRepo, credRepo, _ := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, cred := issueActiveCredential(t, credRepo, dev.ID(), nil)
	require.NoError(t, cred.Revoke("compromised"))

	_, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeCredentialRevoked, rej.Type)
}

func TestAuthenticateDevice_ExpiredCredential(t *testing.T) {
	uc, deviceRepo, credRepo, _ := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	past := time.Now().Add(-time.Hour)
	plain, _ := issueActiveCredential(t, credRepo, dev.ID(), &past)

	_, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeCredentialExpired, rej.Type)
}

func TestAuthenticateDevice_SuspendedDevice(t *testing.T) {
	uc, deviceRepo, credRepo, _ := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, _ := issueActiveCredential(t, credRepo, dev.ID(), nil)
	require.NoError(t, dev.Suspend("vandalism report"))

	_, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeDeviceInactive, rej.Type)
}

func TestAuthenticateDevice_CredentialIPNotAllowed(t *testing.T) {
	uc, deviceRepo, credRepo, limiter := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, cred := issueActiveCredential(t, credRepo, dev.ID(), nil)
	require.NoError(t, cred.UpdateIPAllowlist([]string{"10.0.0.0/8"}))

	_, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeIPNotAllowed, rej.Type)
	assert.Equal(t, int64(1), limiter.violationCount("cred:"+cred.SID()))

	result, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "10.1.2.3",
	})
	require.NoError(t, err)
	assert.Equal(t, dev.ID(), result.DeviceID)
}

func TestAuthenticateDevice_DeviceIPRestrictionStillApplies(t *testing.T) {
	uc, deviceRepo, credRepo, _ := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, []string{"10.0.0.0/8"})
	plain, cred := issueActiveCredential(t, credRepo, dev.ID(), nil)
	require.NoError(t, cred.UpdateIPAllowlist([]string{"10.0.0.0/8", "203.0.113.9"}))

	// The credential permits the source, but the device-level list does not.
	_, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeIPNotAllowed, rej.Type)

	result, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "10.1.2.3",
	})
	require.NoError(t, err)
	assert.Equal(t, dev.ID(), result.DeviceID)
}

func TestAuthenticateDevice_RateLimited(t *testing.T) {
	uc, deviceRepo, credRepo, limiter := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, _ := issueActiveCredential(t, credRepo, dev.ID(), nil)
	limiter.denyAll = true

	_, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeRateLimited, rej.Type)
	assert.GreaterOrEqual(t, rej.RetryAfterSeconds, 1)
}

func TestAuthenticateDevice_LimiterErrorDenies(t *testing.T) {
	uc, deviceRepo, credRepo, limiter := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, _ := issueActiveCredential(t, credRepo, dev.ID(), nil)
	limiter.checkErr = fmt.Errorf("redis unreachable")

	_, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeRateLimited, rej.Type)
}

func TestAuthenticateDevice_BlacklistedCredential(t *testing.T) {
	uc, deviceRepo, credRepo, limiter := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, cred := issueActiveCredential(t, credRepo, dev.ID(), nil)
	require.NoError(t, limiter.Blacklist(context.Background(), "cred:"+cred.SID(), time.Hour, "too many violations"))

	_, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeBlacklisted, rej.Type)
	assert.GreaterOrEqual(t, rej.RetryAfterSeconds, 1)
}

func TestAuthenticateDevice_BlacklistReadFailsOpen(t *testing.T) {
	uc, deviceRepo, credRepo, limiter := setupAuthFixture(t)
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, _ := issueActiveCredential(t, credRepo, dev.ID(), nil)
	limiter.statusErr = fmt.Errorf("redis unreachable")

	result, err := uc.Execute(context.Background(), AuthenticateDeviceCommand{
		PresentedSecret: plain,
		SourceIP:        "203.0.113.9",
	})

	require.NoError(t, err)
	assert.Equal(t, dev.ID(), result.DeviceID)
}
