package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"veritime/internal/domain/attendance"
	"veritime/internal/domain/punch"
	"veritime/internal/shared/biztime"
	"veritime/internal/shared/config"
	"veritime/internal/shared/db"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

const (
	// futureSkewTolerance absorbs device clock drift before a punch time
	// is considered invalid.
	futureSkewTolerance = 5 * time.Minute

	chainAppendAttempts = 3
	chainRetryBackoff   = 50 * time.Millisecond
)

type IngestPunchCommand struct {
	// UUID is the client idempotency key; generated when absent.
	UUID string

	TenantID  uint
	DeviceID  uint
	DeviceSID string

	DeviceUserID string
	PunchTime    time.Time
	PunchType    string
	Method       string
	QualityScore int
	Latitude     *float64
	Longitude    *float64
	RawPayload   json.RawMessage
}

type IngestPunchResult struct {
	Punch      *PunchRecordDTO
	Attendance *AttendanceSummaryDTO
	// AlreadyProcessed marks an idempotent replay of a known UUID.
	AlreadyProcessed bool
}

// IngestPunchUseCase runs the full acceptance pipeline for one punch:
// quality gate, employee resolution, access grant, duplicate window, daily
// quota, chain append and attendance derivation. Every outcome persists a
// punch record; only chain append and attendance run transactionally.
type IngestPunchUseCase struct {
	punchRepo punch.PunchRecordRepository
	attRepo   attendance.AttendanceDayRepository
	directory EmployeeDirectory
	grants    AccessGrantChecker
	txManager *db.TransactionManager
	pipeline  config.PipelineConfig
	logger    logger.Interface

	deviceLocks sync.Map
}

func NewIngestPunchUseCase(
	punchRepo punch.PunchRecordRepository,
	attRepo attendance.AttendanceDayRepository,
	directory EmployeeDirectory,
	grants AccessGrantChecker,
	txManager *db.TransactionManager,
	pipeline config.PipelineConfig,
	logger logger.Interface,
) *IngestPunchUseCase {
	return &IngestPunchUseCase{
		punchRepo: punchRepo,
		attRepo:   attRepo,
		directory: directory,
		grants:    grants,
		txManager: txManager,
		pipeline:  normalizePipeline(pipeline),
		logger:    logger,
	}
}

func (uc *IngestPunchUseCase) Execute(ctx context.Context, cmd IngestPunchCommand) (*IngestPunchResult, error) {
	if err := uc.validateCommand(cmd); err != nil {
		return nil, err
	}

	if cmd.UUID == "" {
		cmd.UUID = uuid.NewString()
	}

	// Replays of a known UUID return the recorded outcome without
	// re-running the pipeline.
	if existing, err := uc.punchRepo.GetByUUID(ctx, cmd.UUID); err == nil {
		return uc.replayResult(ctx, existing)
	}

	punchType, err := punch.NewPunchType(cmd.PunchType)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	method, err := punch.NewVerificationMethod(cmd.Method)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	raw, err := punch.NewRawPunch(
		cmd.DeviceUserID,
		cmd.PunchTime,
		punchType,
		method,
		cmd.QualityScore,
		cmd.Latitude,
		cmd.Longitude,
		cmd.RawPayload,
	)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	rec, err := punch.NewPunchRecord(cmd.UUID, cmd.TenantID, cmd.DeviceID, cmd.DeviceSID, raw)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if err := uc.punchRepo.Create(ctx, rec); err != nil {
		if errors.IsConflictError(err) {
			// Lost a replay race; the winner's record is authoritative.
			if existing, getErr := uc.punchRepo.GetByUUID(ctx, cmd.UUID); getErr == nil {
				return uc.replayResult(ctx, existing)
			}
		}
		uc.logger.Errorw("failed to persist punch record", "uuid", cmd.UUID, "error", err)
		return nil, errors.NewPersistenceError(err.Error())
	}

	return uc.ProcessRecord(ctx, rec)
}

// ProcessRecord runs the acceptance pipeline on a pending record. It is
// shared between live ingestion and reprocessing; the rate limiter is
// deliberately not part of it.
func (uc *IngestPunchUseCase) ProcessRecord(ctx context.Context, rec *punch.PunchRecord) (*IngestPunchResult, error) {
	if rec.QualityScore() < uc.pipeline.MinQualityScore {
		reason := fmt.Sprintf("quality score %d below minimum %d", rec.QualityScore(), uc.pipeline.MinQualityScore)
		return nil, uc.finalize(ctx, rec, rec.MarkIgnored, reason,
			errors.NewLowQualityError(rec.QualityScore(), uc.pipeline.MinQualityScore))
	}

	employeeID, err := uc.directory.ResolveByDeviceUser(ctx, rec.TenantID(), rec.DeviceUserID())
	if err != nil {
		uc.logger.Warnw("employee resolution failed",
			"uuid", rec.UUID(),
			"device_user_id", rec.DeviceUserID(),
			"error", err,
		)
		return nil, uc.finalize(ctx, rec, rec.MarkFailed,
			fmt.Sprintf("employee unresolved for device user %s", rec.DeviceUserID()),
			errors.NewEmployeeUnresolvedError(rec.DeviceUserID()))
	}
	if err := rec.ResolveEmployee(employeeID); err != nil {
		return nil, errors.NewInternalError(err.Error())
	}

	granted, err := uc.grants.HasActiveGrant(ctx, employeeID, rec.DeviceID(), rec.PunchTime())
	if err != nil {
		uc.logger.Errorw("access grant check failed", "uuid", rec.UUID(), "error", err)
		return nil, uc.finalize(ctx, rec, rec.MarkFailed,
			fmt.Sprintf("access grant check failed: %v", err),
			errors.NewPersistenceError("access grant check failed"))
	}
	if !granted {
		return nil, uc.finalize(ctx, rec, rec.MarkIgnored,
			"no active access grant for device",
			errors.NewDeviceNotGrantedError())
	}

	window := time.Duration(uc.pipeline.DuplicateWindowMinutes) * time.Minute
	dup, err := uc.punchRepo.HasRecentAccepted(ctx, employeeID, rec.DeviceID(), rec.Type(), rec.PunchTime(), window)
	if err != nil {
		return nil, uc.finalize(ctx, rec, rec.MarkFailed,
			fmt.Sprintf("duplicate check failed: %v", err),
			errors.NewPersistenceError("duplicate check failed"))
	}
	if dup {
		return nil, uc.finalize(ctx, rec, rec.MarkDuplicate,
			fmt.Sprintf("duplicate %s within %s window", rec.Type(), window),
			errors.NewDuplicatePunchError(rec.UUID()))
	}

	dayStart := biztime.StartOfDayUTC(rec.PunchTime())
	dayEnd := biztime.EndOfDayUTC(rec.PunchTime())
	count, err := uc.punchRepo.CountAcceptedForDay(ctx, employeeID, dayStart, dayEnd)
	if err != nil {
		return nil, uc.finalize(ctx, rec, rec.MarkFailed,
			fmt.Sprintf("daily quota check failed: %v", err),
			errors.NewPersistenceError("daily quota check failed"))
	}
	if count >= int64(uc.pipeline.MaxPunchesPerDay) {
		return nil, uc.finalize(ctx, rec, rec.MarkIgnored,
			fmt.Sprintf("daily punch quota reached (%d)", count),
			errors.NewDailyQuotaError(int(count), uc.pipeline.MaxPunchesPerDay))
	}

	return uc.acceptRecord(ctx, rec, employeeID)
}

// acceptRecord appends the punch to the device chain and folds it into the
// attendance day. Appends are serialized per device in-process; the unique
// (device, sequence) index catches cross-instance races, which are retried
// with a fresh chain head.
func (uc *IngestPunchUseCase) acceptRecord(ctx context.Context, rec *punch.PunchRecord, employeeID uint) (*IngestPunchResult, error) {
	mu := uc.lockDevice(rec.DeviceID())
	mu.Lock()
	defer mu.Unlock()

	// The punch is accepted at this point; the chain append and the
	// attendance update must complete even if the caller disconnects.
	ctx = context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 0; attempt < chainAppendAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * chainRetryBackoff)

			reloaded, err := uc.punchRepo.GetByUUID(ctx, rec.UUID())
			if err != nil {
				lastErr = err
				continue
			}
			if err := reloaded.ResolveEmployee(employeeID); err != nil {
				lastErr = err
				continue
			}
			rec = reloaded
		}

		head, err := uc.punchRepo.GetChainHead(ctx, rec.DeviceID())
		if err != nil {
			lastErr = err
			continue
		}
		sequenceNo, prevDigest := uint64(1), punch.ChainGenesis
		if head != nil {
			sequenceNo, prevDigest = head.SequenceNo+1, head.Digest
		}

		if err := rec.AppendToChain(sequenceNo, prevDigest); err != nil {
			return nil, errors.NewInternalError(err.Error())
		}

		var day *attendance.AttendanceDay
		err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
			d, err := uc.applyToAttendance(txCtx, rec)
			if err != nil {
				return err
			}
			if err := rec.MarkProcessed(d.ID()); err != nil {
				return errors.NewInternalError(err.Error())
			}
			if err := uc.punchRepo.Update(txCtx, rec); err != nil {
				return err
			}
			day = d
			return nil
		})
		if err != nil {
			lastErr = err
			if errors.IsConflictError(err) {
				uc.logger.Debugw("chain append conflict, retrying",
					"uuid", rec.UUID(),
					"sequence_no", sequenceNo,
					"attempt", attempt+1,
				)
				continue
			}
			break
		}

		uc.logger.Infow("punch accepted",
			"uuid", rec.UUID(),
			"device_sid", rec.DeviceSID(),
			"employee_id", employeeID,
			"sequence_no", rec.SequenceNo(),
		)

		return &IngestPunchResult{
			Punch:      toPunchRecordDTO(rec),
			Attendance: toAttendanceSummaryDTO(day),
		}, nil
	}

	uc.logger.Errorw("punch acceptance failed after retries",
		"uuid", rec.UUID(),
		"error", lastErr,
	)

	reason := "chain append failed"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	rej := errors.NewPersistenceError(reason)
	if errors.IsConflictError(lastErr) {
		return nil, uc.finalizeFresh(ctx, rec.UUID(), reason, errors.NewChainConflictError())
	}
	return nil, uc.finalizeFresh(ctx, rec.UUID(), reason, rej)
}

// applyToAttendance upserts the (employee, date) day and folds the punch in.
func (uc *IngestPunchUseCase) applyToAttendance(ctx context.Context, rec *punch.PunchRecord) (*attendance.AttendanceDay, error) {
	date := biztime.DateOf(rec.PunchTime())
	policy := uc.derivationPolicy()

	day, err := uc.attRepo.GetByEmployeeAndDate(ctx, *rec.EmployeeID(), date)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			return nil, err
		}
		day, err = attendance.NewAttendanceDay(rec.TenantID(), *rec.EmployeeID(), date, rec.DeviceID())
		if err != nil {
			return nil, errors.NewInternalError(err.Error())
		}
		if err := uc.applyPunch(day, rec, policy); err != nil {
			return nil, err
		}
		if err := uc.attRepo.Create(ctx, day); err != nil {
			return nil, err
		}
		return day, nil
	}

	if err := uc.applyPunch(day, rec, policy); err != nil {
		return nil, err
	}
	if err := uc.attRepo.Update(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (uc *IngestPunchUseCase) applyPunch(day *attendance.AttendanceDay, rec *punch.PunchRecord, policy attendance.DerivationPolicy) error {
	var err error
	if rec.Type().IsCheckIn() {
		err = day.ApplyCheckIn(rec.PunchTime(), policy)
	} else {
		err = day.ApplyCheckOut(rec.PunchTime(), policy)
	}
	if err != nil {
		return errors.NewInternalError(err.Error())
	}
	return nil
}

// replayResult rebuilds the original outcome for an idempotent replay.
func (uc *IngestPunchUseCase) replayResult(ctx context.Context, rec *punch.PunchRecord) (*IngestPunchResult, error) {
	result := &IngestPunchResult{
		Punch:            toPunchRecordDTO(rec),
		AlreadyProcessed: true,
	}

	if dayID := rec.AttendanceDayID(); dayID != nil {
		if day, err := uc.attRepo.GetByID(ctx, *dayID); err == nil {
			result.Attendance = toAttendanceSummaryDTO(day)
		}
	}

	return result, nil
}

// finalize marks the record with the given terminal transition, persists it
// and returns the rejection. Persistence failures here only cost telemetry;
// the rejection is returned regardless.
func (uc *IngestPunchUseCase) finalize(ctx context.Context, rec *punch.PunchRecord, mark func(string) error, reason string, rej error) error {
	if err := mark(reason); err != nil {
		uc.logger.Warnw("failed to mark punch record", "uuid", rec.UUID(), "error", err)
		return rej
	}
	if err := uc.punchRepo.Update(ctx, rec); err != nil {
		uc.logger.Warnw("failed to persist punch outcome", "uuid", rec.UUID(), "error", err)
	}
	return rej
}

// finalizeFresh reloads the record before failing it, since the in-memory
// copy may carry an uncommitted chain position.
func (uc *IngestPunchUseCase) finalizeFresh(ctx context.Context, recUUID, reason string, rej error) error {
	rec, err := uc.punchRepo.GetByUUID(ctx, recUUID)
	if err != nil {
		uc.logger.Warnw("failed to reload punch record", "uuid", recUUID, "error", err)
		return rej
	}
	return uc.finalize(ctx, rec, rec.MarkFailed, reason, rej)
}

func (uc *IngestPunchUseCase) lockDevice(deviceID uint) *sync.Mutex {
	v, _ := uc.deviceLocks.LoadOrStore(deviceID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (uc *IngestPunchUseCase) derivationPolicy() attendance.DerivationPolicy {
	return attendance.DerivationPolicy{
		BreakThresholdHours: uc.pipeline.BreakThresholdHours,
		BreakDeductionHours: uc.pipeline.BreakDeductionHours,
		StandardDailyHours:  uc.pipeline.StandardWorkdayHours,
	}
}

func (uc *IngestPunchUseCase) validateCommand(cmd IngestPunchCommand) error {
	if cmd.TenantID == 0 || cmd.DeviceID == 0 || cmd.DeviceSID == "" {
		return errors.NewValidationError("device identity is required")
	}
	if cmd.DeviceUserID == "" {
		return errors.NewValidationError("device user ID is required")
	}
	if cmd.PunchTime.IsZero() {
		return errors.NewValidationError("punch time is required")
	}
	if time.Until(cmd.PunchTime) > futureSkewTolerance {
		return errors.NewValidationError("punch time is in the future")
	}
	return nil
}

// normalizePipeline fills unset tuning knobs with the documented defaults.
func normalizePipeline(cfg config.PipelineConfig) config.PipelineConfig {
	if cfg.DuplicateWindowMinutes <= 0 {
		cfg.DuplicateWindowMinutes = 15
	}
	if cfg.MinQualityScore <= 0 {
		cfg.MinQualityScore = 70
	}
	if cfg.MaxPunchesPerDay <= 0 {
		cfg.MaxPunchesPerDay = 10
	}
	if cfg.BreakThresholdHours <= 0 {
		cfg.BreakThresholdHours = 5.0
	}
	if cfg.BreakDeductionHours <= 0 {
		cfg.BreakDeductionHours = 1.0
	}
	if cfg.StandardWorkdayHours <= 0 {
		cfg.StandardWorkdayHours = 8.0
	}
	if cfg.ReprocessBatchSize <= 0 {
		cfg.ReprocessBatchSize = 100
	}
	return cfg
}
