package usecases

import (
	"context"

	"veritime/internal/domain/attendance"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type ReviewDayCommand struct {
	DayID    uint
	TenantID uint
}

type ReviewDayResult struct {
	Day *AttendanceDayDTO
}

// ReviewDayUseCase resolves a flagged day after manual review, returning it
// to the state its recorded punches imply.
type ReviewDayUseCase struct {
	attRepo attendance.AttendanceDayRepository
	logger  logger.Interface
}

func NewReviewDayUseCase(
	attRepo attendance.AttendanceDayRepository,
	logger logger.Interface,
) *ReviewDayUseCase {
	return &ReviewDayUseCase{
		attRepo: attRepo,
		logger:  logger,
	}
}

func (uc *ReviewDayUseCase) Execute(ctx context.Context, cmd ReviewDayCommand) (*ReviewDayResult, error) {
	if cmd.DayID == 0 {
		return nil, errors.NewValidationError("attendance day ID is required")
	}

	day, err := uc.attRepo.GetByID(ctx, cmd.DayID)
	if err != nil {
		return nil, err
	}
	if cmd.TenantID != 0 && day.TenantID() != cmd.TenantID {
		return nil, errors.NewNotFoundError("attendance day not found")
	}

	if err := day.ClearReviewFlag(); err != nil {
		return nil, errors.NewConflictError(err.Error())
	}

	if err := uc.attRepo.Update(ctx, day); err != nil {
		uc.logger.Errorw("failed to clear review flag", "day_id", cmd.DayID, "error", err)
		return nil, err
	}

	uc.logger.Infow("attendance day review cleared",
		"day_id", day.ID(),
		"status", day.Status().String(),
	)

	return &ReviewDayResult{Day: toAttendanceDayDTO(day)}, nil
}
