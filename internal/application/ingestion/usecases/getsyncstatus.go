package usecases

import (
	"context"
	"time"

	"veritime/internal/domain/device"
	"veritime/internal/domain/punch"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/goroutine"
	"veritime/internal/shared/logger"
)

type GetSyncStatusCommand struct {
	DeviceID uint
}

type GetSyncStatusResult struct {
	DeviceSID      string     `json:"device_sid"`
	Status         string     `json:"status"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	HeadSequenceNo uint64     `json:"head_sequence_no"`
	HeadDigest     string     `json:"head_digest,omitempty"`
	PendingPunches int64      `json:"pending_punches"`
	FailedPunches  int64      `json:"failed_punches"`
}

// GetSyncStatusUseCase reports a device's view of its own pipeline: chain
// head, unprocessed backlog and sync checkpoints. Calling it counts as a
// sync, so last-sync-at is advanced off the request path.
type GetSyncStatusUseCase struct {
	deviceRepo device.DeviceRepository
	punchRepo  punch.PunchRecordRepository
	logger     logger.Interface
}

func NewGetSyncStatusUseCase(
	deviceRepo device.DeviceRepository,
	punchRepo punch.PunchRecordRepository,
	logger logger.Interface,
) *GetSyncStatusUseCase {
	return &GetSyncStatusUseCase{
		deviceRepo: deviceRepo,
		punchRepo:  punchRepo,
		logger:     logger,
	}
}

func (uc *GetSyncStatusUseCase) Execute(ctx context.Context, cmd GetSyncStatusCommand) (*GetSyncStatusResult, error) {
	if cmd.DeviceID == 0 {
		return nil, errors.NewValidationError("device ID is required")
	}

	dev, err := uc.deviceRepo.GetByID(ctx, cmd.DeviceID)
	if err != nil {
		return nil, err
	}

	result := &GetSyncStatusResult{
		DeviceSID:  dev.SID(),
		Status:     dev.Status().String(),
		LastSeenAt: dev.LastSeenAt(),
		LastSyncAt: dev.LastSyncAt(),
	}

	if head, err := uc.punchRepo.GetChainHead(ctx, dev.ID()); err == nil && head != nil {
		result.HeadSequenceNo = head.SequenceNo
		result.HeadDigest = head.Digest
	}

	result.PendingPunches = uc.countByStatus(ctx, dev.ID(), punch.PunchStatusPending.String())
	result.FailedPunches = uc.countByStatus(ctx, dev.ID(), punch.PunchStatusFailed.String())

	uc.markSynced(dev)

	return result, nil
}

func (uc *GetSyncStatusUseCase) countByStatus(ctx context.Context, deviceID uint, status string) int64 {
	filter := punch.PunchFilter{
		DeviceID: &deviceID,
		Status:   &status,
		Page:     1,
		PageSize: 1,
	}
	_, total, err := uc.punchRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Warnw("failed to count punches", "device_id", deviceID, "status", status, "error", err)
		return 0
	}
	return total
}

func (uc *GetSyncStatusUseCase) markSynced(dev *device.Device) {
	goroutine.SafeGo(uc.logger, "device-sync-checkpoint", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		dev.MarkSynced(time.Now())
		if err := uc.deviceRepo.Update(ctx, dev); err != nil {
			uc.logger.Warnw("failed to record device sync", "device_sid", dev.SID(), "error", err)
		}
	})
}
