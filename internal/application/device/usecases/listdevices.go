package usecases

import (
	"context"

	"veritime/internal/domain/device"
	"veritime/internal/shared/logger"
)

type ListDevicesCommand struct {
	TenantID *uint
	Status   *string
	Name     *string
	Location *string
	Page     int
	PageSize int
	SortBy   string
	SortDesc bool
}

type ListDevicesResult struct {
	Devices []*DeviceDTO
	Total   int64
}

type ListDevicesUseCase struct {
	deviceRepo device.DeviceRepository
	logger     logger.Interface
}

func NewListDevicesUseCase(
	deviceRepo device.DeviceRepository,
	logger logger.Interface,
) *ListDevicesUseCase {
	return &ListDevicesUseCase{
		deviceRepo: deviceRepo,
		logger:     logger,
	}
}

func (uc *ListDevicesUseCase) Execute(ctx context.Context, cmd ListDevicesCommand) (*ListDevicesResult, error) {
	if cmd.Page < 1 {
		cmd.Page = 1
	}
	if cmd.PageSize < 1 || cmd.PageSize > 100 {
		cmd.PageSize = 20
	}

	filter := device.DeviceFilter{
		TenantID: cmd.TenantID,
		Status:   cmd.Status,
		Name:     cmd.Name,
		Location: cmd.Location,
		Page:     cmd.Page,
		PageSize: cmd.PageSize,
		SortBy:   cmd.SortBy,
		SortDesc: cmd.SortDesc,
	}

	devices, total, err := uc.deviceRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Errorw("failed to list devices", "error", err)
		return nil, err
	}

	return &ListDevicesResult{
		Devices: toDeviceDTOs(devices),
		Total:   total,
	}, nil
}
