package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDay(t *testing.T) *AttendanceDay {
	t.Helper()
	day, err := NewAttendanceDay(1, 42, "2026-03-02", 9)
	require.NoError(t, err)
	return day
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func TestNewAttendanceDay(t *testing.T) {
	t.Run("creates incomplete day", func(t *testing.T) {
		day := newTestDay(t)
		assert.Equal(t, DayStatusIncomplete, day.Status())
		assert.Nil(t, day.CheckInAt())
		assert.Nil(t, day.CheckOutAt())
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		_, err := NewAttendanceDay(1, 42, "02/03/2026", 9)
		assert.Error(t, err)
	})

	t.Run("requires employee", func(t *testing.T) {
		_, err := NewAttendanceDay(1, 0, "2026-03-02", 9)
		assert.Error(t, err)
	})
}

func TestAttendanceDay_StandardDerivation(t *testing.T) {
	// 08:00 to 17:00 with the one-hour unpaid break yields exactly 8.00h.
	day := newTestDay(t)
	policy := DefaultPolicy()

	require.NoError(t, day.ApplyCheckIn(at(8, 0), policy))
	assert.Equal(t, DayStatusOpen, day.Status())
	assert.Equal(t, 0.0, day.WorkedHours())

	require.NoError(t, day.ApplyCheckOut(at(17, 0), policy))
	assert.Equal(t, DayStatusClosed, day.Status())
	assert.Equal(t, 8.00, day.WorkedHours())
	assert.Equal(t, 0.00, day.OvertimeHours())
}

func TestAttendanceDay_Overtime(t *testing.T) {
	day := newTestDay(t)
	policy := DefaultPolicy()

	require.NoError(t, day.ApplyCheckIn(at(8, 0), policy))
	require.NoError(t, day.ApplyCheckOut(at(19, 30), policy))

	assert.Equal(t, 10.50, day.WorkedHours())
	assert.Equal(t, 2.50, day.OvertimeHours())
}

func TestAttendanceDay_ShortDayKeepsBreak(t *testing.T) {
	// Spans at or under five hours get no break deduction.
	day := newTestDay(t)
	policy := DefaultPolicy()

	require.NoError(t, day.ApplyCheckIn(at(9, 0), policy))
	require.NoError(t, day.ApplyCheckOut(at(13, 0), policy))

	assert.Equal(t, 4.00, day.WorkedHours())
}

func TestAttendanceDay_CheckOutWithoutCheckIn(t *testing.T) {
	day := newTestDay(t)
	policy := DefaultPolicy()

	require.NoError(t, day.ApplyCheckOut(at(17, 0), policy))

	assert.Equal(t, DayStatusIncomplete, day.Status())
	assert.Equal(t, 0.0, day.WorkedHours())
	require.NotNil(t, day.CheckOutAt())
}

func TestAttendanceDay_OutOfOrderArrivalCloses(t *testing.T) {
	day := newTestDay(t)
	policy := DefaultPolicy()

	require.NoError(t, day.ApplyCheckOut(at(17, 0), policy))
	require.NoError(t, day.ApplyCheckIn(at(8, 0), policy))

	assert.Equal(t, DayStatusClosed, day.Status())
	assert.Equal(t, 8.00, day.WorkedHours())
}

func TestAttendanceDay_SecondCheckInFlagsAndKeepsEarliest(t *testing.T) {
	day := newTestDay(t)
	policy := DefaultPolicy()

	require.NoError(t, day.ApplyCheckIn(at(8, 0), policy))
	require.NoError(t, day.ApplyCheckIn(at(8, 45), policy))

	assert.Equal(t, DayStatusFlaggedForReview, day.Status())
	require.NotNil(t, day.ReviewNote())
	assert.Equal(t, at(8, 0), day.CheckInAt().UTC())

	// An earlier duplicate replaces the kept time but still flags.
	require.NoError(t, day.ApplyCheckIn(at(7, 30), policy))
	assert.Equal(t, at(7, 30), day.CheckInAt().UTC())
}

func TestAttendanceDay_CheckOutOnFlaggedDayKeepsFlag(t *testing.T) {
	day := newTestDay(t)
	policy := DefaultPolicy()

	require.NoError(t, day.ApplyCheckIn(at(8, 0), policy))
	require.NoError(t, day.ApplyCheckIn(at(9, 0), policy))
	require.NoError(t, day.ApplyCheckOut(at(17, 0), policy))

	assert.Equal(t, DayStatusFlaggedForReview, day.Status())
	assert.Equal(t, 8.00, day.WorkedHours())
}

func TestAttendanceDay_LaterCheckOutExtendsDay(t *testing.T) {
	day := newTestDay(t)
	policy := DefaultPolicy()

	require.NoError(t, day.ApplyCheckIn(at(8, 0), policy))
	require.NoError(t, day.ApplyCheckOut(at(16, 0), policy))
	require.NoError(t, day.ApplyCheckOut(at(18, 0), policy))

	assert.Equal(t, at(18, 0), day.CheckOutAt().UTC())
	assert.Equal(t, 9.00, day.WorkedHours())

	// An earlier check-out does not shrink the day.
	require.NoError(t, day.ApplyCheckOut(at(12, 0), policy))
	assert.Equal(t, at(18, 0), day.CheckOutAt().UTC())
}

func TestAttendanceDay_ClearReviewFlag(t *testing.T) {
	day := newTestDay(t)
	policy := DefaultPolicy()

	require.NoError(t, day.ApplyCheckIn(at(8, 0), policy))
	require.NoError(t, day.ApplyCheckIn(at(9, 0), policy))
	require.NoError(t, day.ApplyCheckOut(at(17, 0), policy))

	require.NoError(t, day.ClearReviewFlag())
	assert.Equal(t, DayStatusClosed, day.Status())
	assert.Nil(t, day.ReviewNote())

	assert.Error(t, day.ClearReviewFlag())
}

func TestAttendanceDay_Authorize(t *testing.T) {
	day := newTestDay(t)

	assert.Error(t, day.Authorize(""))
	require.NoError(t, day.Authorize("approved by shift lead"))
	assert.True(t, day.Authorized())
}

func TestAttendanceDay_IsWeekend(t *testing.T) {
	monday, err := NewAttendanceDay(1, 42, "2026-03-02", 9)
	require.NoError(t, err)
	assert.False(t, monday.IsWeekend())

	saturday, err := NewAttendanceDay(1, 42, "2026-03-07", 9)
	require.NoError(t, err)
	assert.True(t, saturday.IsWeekend())
}
