package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"veritime/internal/domain/attendance"
	"veritime/internal/infrastructure/persistence/models"
	"veritime/internal/infrastructure/repository"
	"veritime/internal/shared/logger"
)

func setupAttendanceRepo(t *testing.T) attendance.AttendanceDayRepository {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.AttendanceDayModel{}))
	return repository.NewAttendanceDayRepository(gdb, logger.NewLogger())
}

func createDay(t *testing.T, repo attendance.AttendanceDayRepository, employeeID uint, date string) *attendance.AttendanceDay {
	t.Helper()

	day, err := attendance.NewAttendanceDay(1, employeeID, date, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), day))
	return day
}

func TestAuthorizeDay(t *testing.T) {
	repo := setupAttendanceRepo(t)
	uc := NewAuthorizeDayUseCase(repo, logger.NewLogger())
	day := createDay(t, repo, 7, "2026-03-02")

	t.Run("requires a note", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), AuthorizeDayCommand{DayID: day.ID()})
		require.Error(t, err)
	})

	t.Run("authorizes", func(t *testing.T) {
		result, err := uc.Execute(context.Background(), AuthorizeDayCommand{
			DayID: day.ID(),
			Note:  "approved month-end overtime",
		})
		require.NoError(t, err)
		assert.True(t, result.Day.Authorized)
		require.NotNil(t, result.Day.AuthorizationNote)
	})

	t.Run("tenant mismatch hides the day", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), AuthorizeDayCommand{
			DayID:    day.ID(),
			TenantID: 99,
			Note:     "nope",
		})
		require.Error(t, err)
	})
}

func TestReviewDay(t *testing.T) {
	repo := setupAttendanceRepo(t)
	uc := NewReviewDayUseCase(repo, logger.NewLogger())
	policy := attendance.DefaultPolicy()

	day := createDay(t, repo, 7, "2026-03-02")
	in := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, day.ApplyCheckIn(in, policy))
	require.NoError(t, day.ApplyCheckIn(in.Add(30*time.Minute), policy))
	require.NoError(t, repo.Update(context.Background(), day))
	require.Equal(t, attendance.DayStatusFlaggedForReview, day.Status())

	result, err := uc.Execute(context.Background(), ReviewDayCommand{DayID: day.ID()})
	require.NoError(t, err)
	assert.Equal(t, "open", result.Day.Status)
	assert.Nil(t, result.Day.ReviewNote)

	t.Run("unflagged day is a conflict", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), ReviewDayCommand{DayID: day.ID()})
		require.Error(t, err)
	})
}

func TestListAttendance(t *testing.T) {
	repo := setupAttendanceRepo(t)
	uc := NewListAttendanceUseCase(repo, logger.NewLogger())
	createDay(t, repo, 7, "2026-03-02")
	createDay(t, repo, 7, "2026-03-03")
	createDay(t, repo, 8, "2026-03-02")

	employee := uint(7)
	result, err := uc.Execute(context.Background(), ListAttendanceCommand{
		TenantID:   1,
		EmployeeID: &employee,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)

	from, to := "2026-03-03", "2026-03-03"
	result, err = uc.Execute(context.Background(), ListAttendanceCommand{
		TenantID: 1,
		DateFrom: &from,
		DateTo:   &to,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	bad := "03/02/2026"
	_, err = uc.Execute(context.Background(), ListAttendanceCommand{TenantID: 1, DateFrom: &bad})
	require.Error(t, err)
}
