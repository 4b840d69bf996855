package usecases

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"veritime/internal/shared/config"
	"veritime/internal/shared/db"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

func newTestTxManager(t *testing.T) *db.TransactionManager {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db.NewTransactionManager(gdb)
}

func TestIssueCredential(t *testing.T) {
	deviceRepo := newFakeDeviceRepo()
	credRepo := newFakeCredentialRepo()
	log := logger.NewLogger()
	dev := registerActiveDevice(t, deviceRepo, nil)

	uc := NewIssueCredentialUseCase(deviceRepo, credRepo, newFakeDispatcher(), config.CredentialConfig{DefaultTTLDays: 90}, log)

	t.Run("issues with default TTL", func(t *testing.T) {
		result, err := uc.Execute(context.Background(), IssueCredentialCommand{
			DeviceSID: dev.SID(),
			Label:     "primary",
		})

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(result.PlainSecret, "vtd_"))
		assert.Equal(t, "active", result.Credential.Status)
		require.NotNil(t, result.Credential.ExpiresAt)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 90), *result.Credential.ExpiresAt, time.Minute)
	})

	t.Run("unknown device", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), IssueCredentialCommand{DeviceSID: "dev_missing"})
		require.Error(t, err)
	})

	t.Run("tenant mismatch hides device", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), IssueCredentialCommand{
			DeviceSID: dev.SID(),
			TenantID:  99,
		})
		require.Error(t, err)
		appErr := errors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)
	})
}

func TestRotateCredential(t *testing.T) {
	deviceRepo := newFakeDeviceRepo()
	credRepo := newFakeCredentialRepo()
	log := logger.NewLogger()
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, previous := issueActiveCredential(t, credRepo, dev.ID(), nil)

	dispatcher := newFakeDispatcher()
	uc := NewRotateCredentialUseCase(
		deviceRepo,
		credRepo,
		newTestTxManager(t),
		dispatcher,
		config.CredentialConfig{DefaultTTLDays: 90},
		log,
	)

	result, err := uc.Execute(context.Background(), RotateCredentialCommand{CredentialSID: previous.SID()})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.PlainSecret, "vtd_"))
	assert.NotEqual(t, plain, result.PlainSecret)
	require.NotNil(t, result.Credential.RotatedFromSID)
	assert.Equal(t, previous.SID(), *result.Credential.RotatedFromSID)
	assert.Equal(t, previous.SID(), result.RevokedCredentialSID)

	// the superseded credential is revoked in the same operation
	assert.True(t, previous.IsRevoked())
	assert.False(t, previous.IsActive())
	stored, err := credRepo.GetBySID(context.Background(), previous.SID())
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked())

	assert.Contains(t, dispatcher.eventTypes(), "device.credential.revoked")
	assert.Contains(t, dispatcher.eventTypes(), "device.credential.issued")

	t.Run("old secret no longer authenticates", func(t *testing.T) {
		authUC := NewAuthenticateDeviceUseCase(deviceRepo, credRepo, newFakeLimiter(), config.RateLimitConfig{RequestsPerMinute: 60}, log)

		_, err := authUC.Execute(context.Background(), AuthenticateDeviceCommand{
			PresentedSecret: plain,
			SourceIP:        "203.0.113.10",
		})
		require.Error(t, err)

		authed, err := authUC.Execute(context.Background(), AuthenticateDeviceCommand{
			PresentedSecret: result.PlainSecret,
			SourceIP:        "203.0.113.10",
		})
		require.NoError(t, err)
		assert.Equal(t, result.Credential.SID, authed.CredentialSID)
	})

	t.Run("revoked credential cannot rotate", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), RotateCredentialCommand{CredentialSID: previous.SID()})
		require.Error(t, err)
		appErr := errors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrorTypeConflict, appErr.Type)
	})
}

func TestRevokeCredential(t *testing.T) {
	deviceRepo := newFakeDeviceRepo()
	credRepo := newFakeCredentialRepo()
	dev := registerActiveDevice(t, deviceRepo, nil)
	plain, cred := issueActiveCredential(t, credRepo, dev.ID(), nil)

	dispatcher := newFakeDispatcher()
	uc := NewRevokeCredentialUseCase(deviceRepo, credRepo, dispatcher, logger.NewLogger())

	require.Error(t, uc.Execute(context.Background(), RevokeCredentialCommand{CredentialSID: cred.SID()}),
		"reason is required")

	require.NoError(t, uc.Execute(context.Background(), RevokeCredentialCommand{
		CredentialSID: cred.SID(),
		Reason:        "device stolen",
	}))

	assert.True(t, cred.IsRevoked())
	assert.False(t, cred.Verify(plain) && cred.IsActive())
	assert.Contains(t, dispatcher.eventTypes(), "device.credential.revoked")

	// second revoke is a conflict
	err := uc.Execute(context.Background(), RevokeCredentialCommand{
		CredentialSID: cred.SID(),
		Reason:        "again",
	})
	require.Error(t, err)
}

func TestListExpiringCredentials(t *testing.T) {
	deviceRepo := newFakeDeviceRepo()
	credRepo := newFakeCredentialRepo()
	dev := registerActiveDevice(t, deviceRepo, nil)

	soon := time.Now().Add(48 * time.Hour)
	far := time.Now().AddDate(0, 6, 0)
	issueActiveCredential(t, credRepo, dev.ID(), &soon)
	issueActiveCredential(t, credRepo, dev.ID(), &far)
	issueActiveCredential(t, credRepo, dev.ID(), nil)

	uc := NewListExpiringCredentialsUseCase(credRepo, config.CredentialConfig{ExpiryWarningDays: 7}, logger.NewLogger())

	result, err := uc.Execute(context.Background(), ListExpiringCredentialsCommand{})
	require.NoError(t, err)
	require.Len(t, result.Credentials, 1)
	require.NotNil(t, result.Credentials[0].ExpiresAt)
	assert.WithinDuration(t, soon, *result.Credentials[0].ExpiresAt, time.Second)
}
