package punch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord(t *testing.T) *PunchRecord {
	t.Helper()

	raw, err := NewRawPunch("emp-7", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), PunchTypeCheckIn, MethodFace, 80, nil, nil, nil)
	require.NoError(t, err)

	record, err := NewPunchRecord("0b5e9c1a-uuid", 1, 9, "dev_test00000001", raw)
	require.NoError(t, err)
	return record
}

func TestNewRawPunch_Validation(t *testing.T) {
	at := time.Now()
	lat, lon := 52.52, 13.405

	t.Run("valid with geolocation", func(t *testing.T) {
		rp, err := NewRawPunch("emp-7", at, PunchTypeCheckIn, MethodCard, 70, &lat, &lon, nil)
		require.NoError(t, err)
		assert.Equal(t, at.UTC(), rp.PunchTime())
	})

	t.Run("rejects empty device user", func(t *testing.T) {
		_, err := NewRawPunch("", at, PunchTypeCheckIn, MethodCard, 70, nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("rejects quality above 100", func(t *testing.T) {
		_, err := NewRawPunch("emp-7", at, PunchTypeCheckIn, MethodCard, 101, nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("rejects negative quality", func(t *testing.T) {
		_, err := NewRawPunch("emp-7", at, PunchTypeCheckIn, MethodCard, -1, nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("rejects latitude without longitude", func(t *testing.T) {
		_, err := NewRawPunch("emp-7", at, PunchTypeCheckIn, MethodCard, 70, &lat, nil, nil)
		assert.Error(t, err)
	})
}

func TestPunchRecord_Lifecycle(t *testing.T) {
	t.Run("happy path to processed", func(t *testing.T) {
		r := newTestRecord(t)
		assert.Equal(t, PunchStatusPending, r.Status())

		require.NoError(t, r.ResolveEmployee(7))
		require.NoError(t, r.AppendToChain(1, ChainGenesis))
		assert.True(t, r.IsChained())
		assert.NotEmpty(t, r.Digest())
		assert.Equal(t, DigestVersionV1, r.DigestVersion())

		require.NoError(t, r.MarkProcessed(55))
		assert.Equal(t, PunchStatusProcessed, r.Status())
		require.NotNil(t, r.AttendanceDayID())
		assert.Equal(t, uint(55), *r.AttendanceDayID())
		require.NotNil(t, r.ProcessedAt())
	})

	t.Run("cannot chain without employee", func(t *testing.T) {
		r := newTestRecord(t)
		assert.Error(t, r.AppendToChain(1, ChainGenesis))
	})

	t.Run("cannot chain twice", func(t *testing.T) {
		r := newTestRecord(t)
		require.NoError(t, r.ResolveEmployee(7))
		require.NoError(t, r.AppendToChain(1, ChainGenesis))
		assert.Error(t, r.AppendToChain(2, r.Digest()))
	})

	t.Run("cannot process unchained record", func(t *testing.T) {
		r := newTestRecord(t)
		require.NoError(t, r.ResolveEmployee(7))
		assert.Error(t, r.MarkProcessed(55))
	})

	t.Run("processed record is immutable", func(t *testing.T) {
		r := newTestRecord(t)
		require.NoError(t, r.ResolveEmployee(7))
		require.NoError(t, r.AppendToChain(1, ChainGenesis))
		require.NoError(t, r.MarkProcessed(55))

		assert.Error(t, r.MarkFailed("late failure"))
		assert.Error(t, r.MarkDuplicate("late duplicate"))
		assert.Error(t, r.ResolveEmployee(8))
	})
}

func TestPunchRecord_FailureAndRetry(t *testing.T) {
	r := newTestRecord(t)

	require.NoError(t, r.MarkFailed("employee not provisioned"))
	assert.Equal(t, PunchStatusFailed, r.Status())
	require.NotNil(t, r.ProcessingError())
	assert.True(t, r.Status().IsRetryable())

	require.NoError(t, r.PrepareRetry())
	assert.Equal(t, PunchStatusPending, r.Status())

	require.NoError(t, r.ResolveEmployee(7))
	require.NoError(t, r.AppendToChain(1, ChainGenesis))
	require.NoError(t, r.MarkProcessed(55))

	assert.Error(t, r.PrepareRetry())
}

func TestPunchRecord_DuplicateAndIgnored(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		r := newTestRecord(t)
		require.NoError(t, r.MarkDuplicate("within 15m window"))
		assert.Equal(t, PunchStatusDuplicate, r.Status())
		assert.True(t, r.Status().IsTerminal())
	})

	t.Run("ignored", func(t *testing.T) {
		r := newTestRecord(t)
		require.NoError(t, r.MarkIgnored("quality 42 below threshold"))
		assert.Equal(t, PunchStatusIgnored, r.Status())
		assert.True(t, r.Status().IsTerminal())
	})
}
