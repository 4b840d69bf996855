package usecases

import (
	"context"
	"time"

	"veritime/internal/domain/punch"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type GetPunchHistoryCommand struct {
	DeviceID uint
	TenantID uint

	Status   *string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
	SortDesc bool
}

type GetPunchHistoryResult struct {
	Punches []*PunchRecordDTO
	Total   int64
}

type GetPunchHistoryUseCase struct {
	punchRepo punch.PunchRecordRepository
	logger    logger.Interface
}

func NewGetPunchHistoryUseCase(
	punchRepo punch.PunchRecordRepository,
	logger logger.Interface,
) *GetPunchHistoryUseCase {
	return &GetPunchHistoryUseCase{
		punchRepo: punchRepo,
		logger:    logger,
	}
}

func (uc *GetPunchHistoryUseCase) Execute(ctx context.Context, cmd GetPunchHistoryCommand) (*GetPunchHistoryResult, error) {
	if cmd.DeviceID == 0 {
		return nil, errors.NewValidationError("device ID is required")
	}
	if cmd.Page < 1 {
		cmd.Page = 1
	}
	if cmd.PageSize < 1 || cmd.PageSize > 200 {
		cmd.PageSize = 50
	}

	filter := punch.PunchFilter{
		DeviceID: &cmd.DeviceID,
		Status:   cmd.Status,
		From:     cmd.From,
		To:       cmd.To,
		Page:     cmd.Page,
		PageSize: cmd.PageSize,
		SortDesc: cmd.SortDesc,
	}
	if cmd.TenantID != 0 {
		filter.TenantID = &cmd.TenantID
	}

	records, total, err := uc.punchRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Errorw("failed to list punch history", "device_id", cmd.DeviceID, "error", err)
		return nil, err
	}

	return &GetPunchHistoryResult{
		Punches: toPunchRecordDTOs(records),
		Total:   total,
	}, nil
}
