package usecases

import (
	"context"

	"veritime/internal/domain/attendance"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type AuthorizeDayCommand struct {
	DayID    uint
	TenantID uint
	Note     string
}

type AuthorizeDayResult struct {
	Day *AttendanceDayDTO
}

// AuthorizeDayUseCase marks a day's overtime as authorized by a manager.
type AuthorizeDayUseCase struct {
	attRepo attendance.AttendanceDayRepository
	logger  logger.Interface
}

func NewAuthorizeDayUseCase(
	attRepo attendance.AttendanceDayRepository,
	logger logger.Interface,
) *AuthorizeDayUseCase {
	return &AuthorizeDayUseCase{
		attRepo: attRepo,
		logger:  logger,
	}
}

func (uc *AuthorizeDayUseCase) Execute(ctx context.Context, cmd AuthorizeDayCommand) (*AuthorizeDayResult, error) {
	if cmd.DayID == 0 {
		return nil, errors.NewValidationError("attendance day ID is required")
	}
	if cmd.Note == "" {
		return nil, errors.NewValidationError("authorization note is required")
	}

	day, err := uc.attRepo.GetByID(ctx, cmd.DayID)
	if err != nil {
		return nil, err
	}
	if cmd.TenantID != 0 && day.TenantID() != cmd.TenantID {
		return nil, errors.NewNotFoundError("attendance day not found")
	}

	if err := day.Authorize(cmd.Note); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if err := uc.attRepo.Update(ctx, day); err != nil {
		uc.logger.Errorw("failed to authorize attendance day", "day_id", cmd.DayID, "error", err)
		return nil, err
	}

	uc.logger.Infow("attendance day authorized",
		"day_id", day.ID(),
		"employee_id", day.EmployeeID(),
		"date", day.Date(),
	)

	return &AuthorizeDayResult{Day: toAttendanceDayDTO(day)}, nil
}
