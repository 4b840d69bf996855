package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	d, err := NewDevice("dev_test00000001", 1, "lobby-terminal", "SN-1001", "ZK-F18", "HQ lobby", nil)
	require.NoError(t, err)
	return d
}

func TestNewDevice(t *testing.T) {
	t.Run("should create device successfully", func(t *testing.T) {
		d, err := NewDevice("dev_test00000001", 1, "lobby-terminal", "SN-1001", "ZK-F18", "HQ lobby", nil)

		require.NoError(t, err)
		assert.Equal(t, "dev_test00000001", d.SID())
		assert.Equal(t, uint(1), d.TenantID())
		assert.Equal(t, DeviceStatusPending, d.Status())
		assert.Equal(t, 1, d.Version())
		assert.Len(t, d.GetEvents(), 1)
	})

	t.Run("should fail without name", func(t *testing.T) {
		_, err := NewDevice("dev_test00000001", 1, "", "SN-1001", "", "", nil)
		assert.Error(t, err)
	})

	t.Run("should fail without tenant", func(t *testing.T) {
		_, err := NewDevice("dev_test00000001", 0, "lobby-terminal", "SN-1001", "", "", nil)
		assert.Error(t, err)
	})

	t.Run("should fail with malformed allowlist entry", func(t *testing.T) {
		_, err := NewDevice("dev_test00000001", 1, "lobby-terminal", "SN-1001", "", "", []string{"not-an-ip"})
		assert.Error(t, err)
	})
}

func TestDevice_StatusTransitions(t *testing.T) {
	t.Run("pending device activates", func(t *testing.T) {
		d := newTestDevice(t)
		require.NoError(t, d.Activate())
		assert.Equal(t, DeviceStatusActive, d.Status())
	})

	t.Run("active device suspends with reason", func(t *testing.T) {
		d := newTestDevice(t)
		require.NoError(t, d.Activate())
		require.NoError(t, d.Suspend("tamper alert"))
		assert.Equal(t, DeviceStatusSuspended, d.Status())
	})

	t.Run("suspend requires a reason", func(t *testing.T) {
		d := newTestDevice(t)
		require.NoError(t, d.Activate())
		assert.Error(t, d.Suspend(""))
	})

	t.Run("decommissioned device cannot reactivate", func(t *testing.T) {
		d := newTestDevice(t)
		require.NoError(t, d.Activate())
		require.NoError(t, d.Decommission())
		assert.Error(t, d.Activate())
	})

	t.Run("pending device cannot suspend", func(t *testing.T) {
		d := newTestDevice(t)
		assert.Error(t, d.Suspend("reason"))
	})

	t.Run("activate is idempotent", func(t *testing.T) {
		d := newTestDevice(t)
		require.NoError(t, d.Activate())
		v := d.Version()
		require.NoError(t, d.Activate())
		assert.Equal(t, v, d.Version())
	})
}

func TestDevice_IsIPAllowed(t *testing.T) {
	t.Run("empty allowlist permits any IP", func(t *testing.T) {
		d := newTestDevice(t)
		assert.True(t, d.IsIPAllowed("203.0.113.7"))
	})

	t.Run("exact address match", func(t *testing.T) {
		d := newTestDevice(t)
		require.NoError(t, d.UpdateIPAllowlist([]string{"10.1.2.3"}))
		assert.True(t, d.IsIPAllowed("10.1.2.3"))
		assert.False(t, d.IsIPAllowed("10.1.2.4"))
	})

	t.Run("CIDR match", func(t *testing.T) {
		d := newTestDevice(t)
		require.NoError(t, d.UpdateIPAllowlist([]string{"192.168.10.0/24"}))
		assert.True(t, d.IsIPAllowed("192.168.10.55"))
		assert.False(t, d.IsIPAllowed("192.168.11.55"))
	})

	t.Run("malformed source IP is rejected", func(t *testing.T) {
		d := newTestDevice(t)
		require.NoError(t, d.UpdateIPAllowlist([]string{"10.1.2.3"}))
		assert.False(t, d.IsIPAllowed("garbage"))
	})
}

func TestDevice_MarkSeen(t *testing.T) {
	d := newTestDevice(t)
	require.Nil(t, d.LastSeenAt())

	now := time.Now()
	d.MarkSeen(now)
	require.NotNil(t, d.LastSeenAt())
	assert.WithinDuration(t, now, *d.LastSeenAt(), time.Second)
}

func TestDevice_CanSubmitPunches(t *testing.T) {
	d := newTestDevice(t)
	assert.False(t, d.CanSubmitPunches())

	require.NoError(t, d.Activate())
	assert.True(t, d.CanSubmitPunches())

	require.NoError(t, d.Suspend("maintenance"))
	assert.False(t, d.CanSubmitPunches())
}

func TestIssueCredential(t *testing.T) {
	t.Run("issues active credential with plaintext once", func(t *testing.T) {
		expiresAt := time.Now().Add(365 * 24 * time.Hour)
		plain, cred, err := IssueCredential("dvc_test00000001", 7, "primary", &expiresAt, 0)

		require.NoError(t, err)
		assert.NotEmpty(t, plain)
		assert.Equal(t, CredentialStatusActive, cred.Status())
		assert.True(t, cred.Verify(plain))
		assert.True(t, cred.IsActive())
		assert.False(t, cred.IsExpired())
	})

	t.Run("requires device ID", func(t *testing.T) {
		_, _, err := IssueCredential("dvc_test00000001", 0, "primary", nil, 0)
		assert.Error(t, err)
	})
}

func TestDeviceCredential_Revoke(t *testing.T) {
	_, cred, err := IssueCredential("dvc_test00000001", 7, "primary", nil, 0)
	require.NoError(t, err)

	require.NoError(t, cred.Revoke("device lost"))
	assert.True(t, cred.IsRevoked())
	assert.False(t, cred.IsActive())
	require.NotNil(t, cred.RevokeReason())
	assert.Equal(t, "device lost", *cred.RevokeReason())

	assert.Error(t, cred.Revoke("again"))
}

func TestDeviceCredential_MarkUsed(t *testing.T) {
	_, cred, err := IssueCredential("dvc_test00000001", 7, "primary", nil, 0)
	require.NoError(t, err)

	now := time.Now()
	cred.MarkUsed(now, "10.0.0.9")
	assert.Equal(t, uint64(1), cred.UsageCount())
	assert.Equal(t, "10.0.0.9", cred.LastUsedIP())
	require.NotNil(t, cred.LastUsedAt())

	cred.MarkUsed(now.Add(time.Minute), "10.0.0.9")
	assert.Equal(t, uint64(2), cred.UsageCount())
}

func TestDeviceCredential_ExpiredIsNotActive(t *testing.T) {
	expiresAt := time.Now().Add(-time.Hour)
	_, cred, err := IssueCredential("dvc_test00000001", 7, "primary", &expiresAt, 0)
	require.NoError(t, err)

	assert.True(t, cred.IsExpired())
	assert.False(t, cred.IsActive())
}

func TestRotateCredential(t *testing.T) {
	_, old, err := IssueCredential("dvc_test00000001", 7, "primary", nil, 30)
	require.NoError(t, err)

	plain, rotated, err := RotateCredential("dvc_test00000002", old, nil)
	require.NoError(t, err)

	assert.True(t, rotated.Verify(plain))
	assert.False(t, old.Verify(plain))
	assert.Equal(t, old.DeviceID(), rotated.DeviceID())
	assert.Equal(t, 30, rotated.PerMinuteQuota())
	require.NotNil(t, rotated.RotatedFromSID())
	assert.Equal(t, old.SID(), *rotated.RotatedFromSID())

	// the superseded credential is invalidated by the rotation itself
	assert.True(t, old.IsRevoked())
	assert.False(t, old.IsActive())

	_, _, err = RotateCredential("dvc_test00000003", old, nil)
	assert.Error(t, err)
}

func TestDeviceCredential_IPAllowlist(t *testing.T) {
	t.Run("empty allowlist permits any source", func(t *testing.T) {
		_, cred, err := IssueCredential("dvc_test00000001", 7, "primary", nil, 0)
		require.NoError(t, err)
		assert.True(t, cred.IsIPAllowed("203.0.113.7"))
	})

	t.Run("exact address and CIDR match", func(t *testing.T) {
		_, cred, err := IssueCredential("dvc_test00000001", 7, "primary", nil, 0)
		require.NoError(t, err)
		require.NoError(t, cred.UpdateIPAllowlist([]string{"10.1.2.3", "192.168.10.0/24"}))
		assert.True(t, cred.IsIPAllowed("10.1.2.3"))
		assert.True(t, cred.IsIPAllowed("192.168.10.55"))
		assert.False(t, cred.IsIPAllowed("10.1.2.4"))
	})

	t.Run("invalid entry is rejected", func(t *testing.T) {
		_, cred, err := IssueCredential("dvc_test00000001", 7, "primary", nil, 0)
		require.NoError(t, err)
		assert.Error(t, cred.UpdateIPAllowlist([]string{"not-an-ip"}))
	})

	t.Run("rotation carries the allowlist", func(t *testing.T) {
		_, old, err := IssueCredential("dvc_test00000001", 7, "primary", nil, 0)
		require.NoError(t, err)
		require.NoError(t, old.UpdateIPAllowlist([]string{"10.0.0.0/8"}))

		_, rotated, err := RotateCredential("dvc_test00000002", old, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.0/8"}, rotated.IPAllowlist())
		assert.True(t, rotated.IsIPAllowed("10.4.4.4"))
		assert.False(t, rotated.IsIPAllowed("203.0.113.7"))
	})
}
