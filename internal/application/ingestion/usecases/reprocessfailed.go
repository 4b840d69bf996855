package usecases

import (
	"context"
	"time"

	"veritime/internal/domain/punch"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

// reprocessPause yields between records so live ingestion keeps winning the
// per-device chain lock.
const reprocessPause = 25 * time.Millisecond

type ReprocessFailedCommand struct {
	// TenantID scopes the sweep; zero sweeps all tenants.
	TenantID uint
	// BatchSize caps one sweep; defaults to the configured batch size.
	BatchSize int
}

type ReprocessFailedResult struct {
	Scanned   int
	Processed int
	Rejected  int
	// StillFailed counts records that failed again and stay eligible for
	// the next sweep.
	StillFailed int
}

// ReprocessFailedUseCase re-runs the acceptance pipeline over failed
// records. Transient causes (an employee mapped since the original attempt,
// a lost chain race) resolve on replay; everything else fails again and
// waits for the next sweep. The rate limiter is never consulted here.
type ReprocessFailedUseCase struct {
	punchRepo punch.PunchRecordRepository
	ingest    *IngestPunchUseCase
	batchSize int
	logger    logger.Interface
}

func NewReprocessFailedUseCase(
	punchRepo punch.PunchRecordRepository,
	ingest *IngestPunchUseCase,
	batchSize int,
	logger logger.Interface,
) *ReprocessFailedUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReprocessFailedUseCase{
		punchRepo: punchRepo,
		ingest:    ingest,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (uc *ReprocessFailedUseCase) Execute(ctx context.Context, cmd ReprocessFailedCommand) (*ReprocessFailedResult, error) {
	batchSize := cmd.BatchSize
	if batchSize <= 0 || batchSize > uc.batchSize {
		batchSize = uc.batchSize
	}

	records, err := uc.punchRepo.ListFailed(ctx, cmd.TenantID, batchSize)
	if err != nil {
		uc.logger.Errorw("failed to list failed punches", "tenant_id", cmd.TenantID, "error", err)
		return nil, err
	}

	result := &ReprocessFailedResult{Scanned: len(records)}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if i > 0 {
			time.Sleep(reprocessPause)
		}

		if err := uc.reprocessOne(ctx, rec); err != nil {
			if errors.IsTransientReject(err) {
				result.StillFailed++
			} else {
				result.Rejected++
			}
			continue
		}
		result.Processed++
	}

	uc.logger.Infow("reprocess sweep finished",
		"tenant_id", cmd.TenantID,
		"scanned", result.Scanned,
		"processed", result.Processed,
		"rejected", result.Rejected,
		"still_failed", result.StillFailed,
	)

	return result, nil
}

func (uc *ReprocessFailedUseCase) reprocessOne(ctx context.Context, rec *punch.PunchRecord) error {
	if err := rec.PrepareRetry(); err != nil {
		uc.logger.Warnw("record not retryable", "uuid", rec.UUID(), "error", err)
		return errors.NewConflictError(err.Error())
	}
	if err := uc.punchRepo.Update(ctx, rec); err != nil {
		return err
	}

	_, err := uc.ingest.ProcessRecord(ctx, rec)
	return err
}
