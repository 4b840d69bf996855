package usecases

import (
	"context"

	"veritime/internal/domain/punch"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type GetPendingPunchesCommand struct {
	DeviceID uint
	Limit    int
}

type GetPendingPunchesResult struct {
	Punches []*PunchRecordDTO
	Total   int64
}

// GetPendingPunchesUseCase lists records still awaiting processing for a
// device, oldest first.
type GetPendingPunchesUseCase struct {
	punchRepo punch.PunchRecordRepository
	logger    logger.Interface
}

func NewGetPendingPunchesUseCase(
	punchRepo punch.PunchRecordRepository,
	logger logger.Interface,
) *GetPendingPunchesUseCase {
	return &GetPendingPunchesUseCase{
		punchRepo: punchRepo,
		logger:    logger,
	}
}

func (uc *GetPendingPunchesUseCase) Execute(ctx context.Context, cmd GetPendingPunchesCommand) (*GetPendingPunchesResult, error) {
	if cmd.DeviceID == 0 {
		return nil, errors.NewValidationError("device ID is required")
	}
	if cmd.Limit < 1 || cmd.Limit > 500 {
		cmd.Limit = 100
	}

	status := punch.PunchStatusPending.String()
	filter := punch.PunchFilter{
		DeviceID: &cmd.DeviceID,
		Status:   &status,
		Page:     1,
		PageSize: cmd.Limit,
	}

	records, total, err := uc.punchRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Errorw("failed to list pending punches", "device_id", cmd.DeviceID, "error", err)
		return nil, err
	}

	return &GetPendingPunchesResult{
		Punches: toPunchRecordDTOs(records),
		Total:   total,
	}, nil
}
