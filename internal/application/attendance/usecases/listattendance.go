package usecases

import (
	"context"

	"veritime/internal/domain/attendance"
	"veritime/internal/shared/biztime"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type ListAttendanceCommand struct {
	TenantID   uint
	EmployeeID *uint
	Status     *string
	DateFrom   *string
	DateTo     *string
	Page       int
	PageSize   int
	SortDesc   bool
}

type ListAttendanceResult struct {
	Days  []*AttendanceDayDTO
	Total int64
}

type ListAttendanceUseCase struct {
	attRepo attendance.AttendanceDayRepository
	logger  logger.Interface
}

func NewListAttendanceUseCase(
	attRepo attendance.AttendanceDayRepository,
	logger logger.Interface,
) *ListAttendanceUseCase {
	return &ListAttendanceUseCase{
		attRepo: attRepo,
		logger:  logger,
	}
}

func (uc *ListAttendanceUseCase) Execute(ctx context.Context, cmd ListAttendanceCommand) (*ListAttendanceResult, error) {
	if err := uc.validateCommand(cmd); err != nil {
		return nil, err
	}
	if cmd.Page < 1 {
		cmd.Page = 1
	}
	if cmd.PageSize < 1 || cmd.PageSize > 100 {
		cmd.PageSize = 31
	}

	filter := attendance.AttendanceFilter{
		EmployeeID: cmd.EmployeeID,
		Status:     cmd.Status,
		DateFrom:   cmd.DateFrom,
		DateTo:     cmd.DateTo,
		Page:       cmd.Page,
		PageSize:   cmd.PageSize,
		SortDesc:   cmd.SortDesc,
	}
	if cmd.TenantID != 0 {
		filter.TenantID = &cmd.TenantID
	}

	days, total, err := uc.attRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Errorw("failed to list attendance days", "error", err)
		return nil, err
	}

	return &ListAttendanceResult{
		Days:  toAttendanceDayDTOs(days),
		Total: total,
	}, nil
}

func (uc *ListAttendanceUseCase) validateCommand(cmd ListAttendanceCommand) error {
	for _, d := range []*string{cmd.DateFrom, cmd.DateTo} {
		if d == nil {
			continue
		}
		if _, err := biztime.ParseDateInBizTimezone(*d); err != nil {
			return errors.NewValidationError("invalid date, expected YYYY-MM-DD", *d)
		}
	}
	return nil
}
