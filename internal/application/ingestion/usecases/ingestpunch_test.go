package usecases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"veritime/internal/domain/device"
	"veritime/internal/domain/punch"
	"veritime/internal/infrastructure/persistence/models"
	"veritime/internal/infrastructure/repository"
	"veritime/internal/shared/config"
	"veritime/internal/shared/db"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type fakeDirectory struct {
	mapping map[string]uint
	err     error
}

func (d *fakeDirectory) ResolveByDeviceUser(_ context.Context, _ uint, deviceUserID string) (uint, error) {
	if d.err != nil {
		return 0, d.err
	}
	if id, ok := d.mapping[deviceUserID]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("no mapping for %s", deviceUserID)
}

type fakeGrants struct {
	denied map[uint]bool
	err    error
}

func (g *fakeGrants) HasActiveGrant(_ context.Context, employeeID, _ uint, _ time.Time) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return !g.denied[employeeID], nil
}

type pipelineFixture struct {
	ingest    *IngestPunchUseCase
	reprocess *ReprocessFailedUseCase
	verify    *VerifyChainUseCase
	directory *fakeDirectory
	grants    *fakeGrants
	punchRepo punch.PunchRecordRepository
	device    *device.Device
	gdb       *gorm.DB
}

func setupPipeline(t *testing.T) *pipelineFixture {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.DeviceModel{},
		&models.DeviceCredentialModel{},
		&models.PunchRecordModel{},
		&models.AttendanceDayModel{},
	))

	log := logger.NewLogger()
	deviceRepo := repository.NewDeviceRepository(gdb, log)
	punchRepo := repository.NewPunchRecordRepository(gdb, log)
	attRepo := repository.NewAttendanceDayRepository(gdb, log)

	dev, err := device.NewDevice("dev_pipe0001", 1, "Lobby Terminal", "SN-PIPE-1", "ZK-F18", "HQ lobby", nil)
	require.NoError(t, err)
	require.NoError(t, dev.Activate())
	require.NoError(t, deviceRepo.Create(context.Background(), dev))

	directory := &fakeDirectory{mapping: map[string]uint{"emp-7": 7, "emp-8": 8}}
	grants := &fakeGrants{denied: map[uint]bool{}}

	ingest := NewIngestPunchUseCase(
		punchRepo,
		attRepo,
		directory,
		grants,
		db.NewTransactionManager(gdb),
		config.PipelineConfig{
			DuplicateWindowMinutes: 15,
			MinQualityScore:        70,
			MaxPunchesPerDay:       10,
		},
		log,
	)

	return &pipelineFixture{
		ingest:    ingest,
		reprocess: NewReprocessFailedUseCase(punchRepo, ingest, 100, log),
		verify:    NewVerifyChainUseCase(deviceRepo, punchRepo, log),
		directory: directory,
		grants:    grants,
		punchRepo: punchRepo,
		device:    dev,
		gdb:       gdb,
	}
}

func (f *pipelineFixture) command(uuid, deviceUserID, punchType string, at time.Time, quality int) IngestPunchCommand {
	return IngestPunchCommand{
		UUID:         uuid,
		TenantID:     1,
		DeviceID:     f.device.ID(),
		DeviceSID:    f.device.SID(),
		DeviceUserID: deviceUserID,
		PunchTime:    at,
		PunchType:    punchType,
		Method:       "fingerprint",
		QualityScore: quality,
	}
}

func TestIngestPunch_AcceptedAndDerived(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	checkIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	result, err := f.ingest.Execute(ctx, f.command("11111111-aaaa-bbbb-cccc-000000000001", "emp-7", "check_in", checkIn, 92))
	require.NoError(t, err)

	assert.Equal(t, "processed", result.Punch.Status)
	assert.Equal(t, uint64(1), result.Punch.SequenceNo)
	assert.NotEmpty(t, result.Punch.Digest)
	require.NotNil(t, result.Attendance)
	assert.Equal(t, "2026-03-02", result.Attendance.Date)
	assert.Equal(t, "open", result.Attendance.Status)

	// check-out nine hours later closes the day with the unpaid break
	// deducted and overtime computed
	result, err = f.ingest.Execute(ctx,
		f.command("11111111-aaaa-bbbb-cccc-000000000002", "emp-7", "check_out", checkIn.Add(9*time.Hour), 90))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), result.Punch.SequenceNo)
	assert.Equal(t, "closed", result.Attendance.Status)
	assert.InDelta(t, 8.0, result.Attendance.WorkedHours, 0.001)
	assert.InDelta(t, 0.0, result.Attendance.OvertimeHours, 0.001)
}

func TestIngestPunch_IdempotentReplay(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cmd := f.command("22222222-aaaa-bbbb-cccc-000000000001", "emp-7", "check_in", at, 92)

	first, err := f.ingest.Execute(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, first.AlreadyProcessed)

	replay, err := f.ingest.Execute(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyProcessed)
	assert.Equal(t, first.Punch.SequenceNo, replay.Punch.SequenceNo)
	assert.Equal(t, first.Punch.Digest, replay.Punch.Digest)
	require.NotNil(t, replay.Attendance)

	// the replay did not create a second chain entry
	head, err := f.punchRepo.GetChainHead(ctx, f.device.ID())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head.SequenceNo)
}

func TestIngestPunch_QualityBoundary(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := f.ingest.Execute(ctx, f.command("33333333-aaaa-bbbb-cccc-000000000001", "emp-7", "check_in", at, 69))
	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeLowQuality, rej.Type)

	rec, err := f.punchRepo.GetByUUID(ctx, "33333333-aaaa-bbbb-cccc-000000000001")
	require.NoError(t, err)
	assert.Equal(t, punch.PunchStatusIgnored, rec.Status())

	// exactly at threshold passes
	_, err = f.ingest.Execute(ctx, f.command("33333333-aaaa-bbbb-cccc-000000000002", "emp-7", "check_in", at, 70))
	require.NoError(t, err)
}

func TestIngestPunch_DuplicateWindow(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := f.ingest.Execute(ctx, f.command("44444444-aaaa-bbbb-cccc-000000000001", "emp-7", "check_in", at, 92))
	require.NoError(t, err)

	// same employee, device and type ten minutes later
	_, err = f.ingest.Execute(ctx, f.command("44444444-aaaa-bbbb-cccc-000000000002", "emp-7", "check_in", at.Add(10*time.Minute), 92))
	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeDuplicatePunch, rej.Type)

	rec, err := f.punchRepo.GetByUUID(ctx, "44444444-aaaa-bbbb-cccc-000000000002")
	require.NoError(t, err)
	assert.Equal(t, punch.PunchStatusDuplicate, rec.Status())

	// outside the window it is accepted again
	_, err = f.ingest.Execute(ctx, f.command("44444444-aaaa-bbbb-cccc-000000000003", "emp-7", "check_in", at.Add(16*time.Minute), 92))
	require.NoError(t, err)
}

func TestIngestPunch_DailyQuota(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		cmd := f.command(fmt.Sprintf("55555555-aaaa-bbbb-cccc-%012d", i), "emp-7", "check_in", base.Add(time.Duration(i)*time.Hour), 92)
		if i%2 == 1 {
			cmd.PunchType = "check_out"
		}
		_, err := f.ingest.Execute(ctx, cmd)
		require.NoError(t, err, "punch %d", i)
	}

	_, err := f.ingest.Execute(ctx, f.command("55555555-aaaa-bbbb-cccc-999999999999", "emp-7", "check_in", base.Add(11*time.Hour), 92))
	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeDailyQuota, rej.Type)
}

func TestIngestPunch_NoAccessGrant(t *testing.T) {
	f := setupPipeline(t)
	f.grants.denied[7] = true
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := f.ingest.Execute(context.Background(), f.command("66666666-aaaa-bbbb-cccc-000000000001", "emp-7", "check_in", at, 92))
	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeDeviceNotGranted, rej.Type)
}

func TestIngestPunch_UnresolvedEmployeeThenReprocess(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := f.ingest.Execute(ctx, f.command("77777777-aaaa-bbbb-cccc-000000000001", "emp-new", "check_in", at, 92))
	rej := errors.GetRejectError(err)
	require.NotNil(t, rej)
	assert.Equal(t, errors.ErrorTypeEmployeeUnresolved, rej.Type)
	assert.True(t, rej.Transient)

	rec, err := f.punchRepo.GetByUUID(ctx, "77777777-aaaa-bbbb-cccc-000000000001")
	require.NoError(t, err)
	assert.Equal(t, punch.PunchStatusFailed, rec.Status())

	// mapping still missing: the sweep leaves it failed
	sweep, err := f.reprocess.Execute(ctx, ReprocessFailedCommand{TenantID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, sweep.Scanned)
	assert.Equal(t, 1, sweep.StillFailed)

	// the employee gets enrolled, the next sweep recovers the punch
	f.directory.mapping["emp-new"] = 42
	sweep, err = f.reprocess.Execute(ctx, ReprocessFailedCommand{TenantID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, sweep.Processed)

	rec, err = f.punchRepo.GetByUUID(ctx, "77777777-aaaa-bbbb-cccc-000000000001")
	require.NoError(t, err)
	assert.Equal(t, punch.PunchStatusProcessed, rec.Status())
	assert.Equal(t, uint64(1), rec.SequenceNo())
	require.NotNil(t, rec.EmployeeID())
	assert.Equal(t, uint(42), *rec.EmployeeID())

	// a third sweep finds nothing to do
	sweep, err = f.reprocess.Execute(ctx, ReprocessFailedCommand{TenantID: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, sweep.Scanned)
}

func TestIngestPunch_FutureTimestamp(t *testing.T) {
	f := setupPipeline(t)

	_, err := f.ingest.Execute(context.Background(),
		f.command("88888888-aaaa-bbbb-cccc-000000000001", "emp-7", "check_in", time.Now().Add(time.Hour), 92))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		cmd := f.command(fmt.Sprintf("99999999-aaaa-bbbb-cccc-%012d", i), "emp-7", "check_in", base.Add(time.Duration(i)*time.Hour), 92)
		if i%2 == 1 {
			cmd.PunchType = "check_out"
		}
		_, err := f.ingest.Execute(ctx, cmd)
		require.NoError(t, err)
	}

	result, err := f.verify.Execute(ctx, VerifyChainCommand{DeviceSID: f.device.SID()})
	require.NoError(t, err)
	assert.False(t, result.Corrupt)
	assert.Equal(t, uint64(4), result.Verified)
	assert.Equal(t, uint64(4), result.HeadSequenceNo)

	// tamper with the stored quality score of entry 2 behind the repo's back
	require.NoError(t, f.gdb.Model(&models.PunchRecordModel{}).
		Where("device_id = ? AND sequence_no = ?", f.device.ID(), 2).
		Update("quality_score", 10).Error)

	result, err = f.verify.Execute(ctx, VerifyChainCommand{DeviceSID: f.device.SID()})
	require.NoError(t, err)
	assert.True(t, result.Corrupt)
	assert.Equal(t, uint64(2), result.FirstCorruptSeq)
	assert.Equal(t, uint64(1), result.Verified)

	// a segment verification anchored past the corruption still passes
	result, err = f.verify.Execute(ctx, VerifyChainCommand{DeviceSID: f.device.SID(), FromSeq: 3})
	require.NoError(t, err)
	assert.False(t, result.Corrupt)
	assert.Equal(t, uint64(2), result.Verified)
}
