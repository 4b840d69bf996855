package punch

import (
	"encoding/json"
	"fmt"
	"time"
)

// PunchRecord is the persisted, tamper-evident representation of a punch.
// Records are append-only: a Processed record is never mutated, and a
// retried Failed record produces a new chain entry instead of rewriting
// the old one.
type PunchRecord struct {
	id              uint
	uuid            string
	tenantID        uint
	deviceID        uint
	deviceSID       string
	deviceUserID    string
	employeeID      *uint
	punchTime       time.Time
	punchType       PunchType
	method          VerificationMethod
	qualityScore    int
	latitude        *float64
	longitude       *float64
	rawPayload      json.RawMessage
	status          PunchStatus
	processingError *string
	processedAt     *time.Time
	attendanceDayID *uint
	sequenceNo      uint64
	prevDigest      string
	digest          string
	digestVersion   string
	version         int
	createdAt       time.Time
	updatedAt       time.Time
}

// NewPunchRecord creates a pending record from a validated raw punch.
func NewPunchRecord(uuid string, tenantID, deviceID uint, deviceSID string, raw *RawPunch) (*PunchRecord, error) {
	if uuid == "" {
		return nil, fmt.Errorf("punch UUID is required")
	}
	if tenantID == 0 {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if deviceID == 0 {
		return nil, fmt.Errorf("device ID is required")
	}
	if deviceSID == "" {
		return nil, fmt.Errorf("device SID is required")
	}
	if raw == nil {
		return nil, fmt.Errorf("raw punch is required")
	}

	now := time.Now()
	return &PunchRecord{
		uuid:         uuid,
		tenantID:     tenantID,
		deviceID:     deviceID,
		deviceSID:    deviceSID,
		deviceUserID: raw.DeviceUserID(),
		punchTime:    raw.PunchTime(),
		punchType:    raw.Type(),
		method:       raw.Method(),
		qualityScore: raw.QualityScore(),
		latitude:     raw.Latitude(),
		longitude:    raw.Longitude(),
		rawPayload:   raw.RawPayload(),
		status:       PunchStatusPending,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructPunchRecord reconstructs a punch record from persistence.
func ReconstructPunchRecord(
	id uint,
	uuid string,
	tenantID uint,
	deviceID uint,
	deviceSID string,
	deviceUserID string,
	employeeID *uint,
	punchTime time.Time,
	punchType PunchType,
	method VerificationMethod,
	qualityScore int,
	latitude, longitude *float64,
	rawPayload json.RawMessage,
	status PunchStatus,
	processingError *string,
	processedAt *time.Time,
	attendanceDayID *uint,
	sequenceNo uint64,
	prevDigest string,
	digest string,
	digestVersion string,
	version int,
	createdAt, updatedAt time.Time,
) (*PunchRecord, error) {
	if id == 0 {
		return nil, fmt.Errorf("punch record ID cannot be zero")
	}
	if uuid == "" {
		return nil, fmt.Errorf("punch UUID is required")
	}
	if deviceID == 0 {
		return nil, fmt.Errorf("device ID is required")
	}

	return &PunchRecord{
		id:              id,
		uuid:            uuid,
		tenantID:        tenantID,
		deviceID:        deviceID,
		deviceSID:       deviceSID,
		deviceUserID:    deviceUserID,
		employeeID:      employeeID,
		punchTime:       punchTime,
		punchType:       punchType,
		method:          method,
		qualityScore:    qualityScore,
		latitude:        latitude,
		longitude:       longitude,
		rawPayload:      rawPayload,
		status:          status,
		processingError: processingError,
		processedAt:     processedAt,
		attendanceDayID: attendanceDayID,
		sequenceNo:      sequenceNo,
		prevDigest:      prevDigest,
		digest:          digest,
		digestVersion:   digestVersion,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}, nil
}

// ID returns the record ID.
func (p *PunchRecord) ID() uint {
	return p.id
}

// UUID returns the stable public identifier of the record.
func (p *PunchRecord) UUID() string {
	return p.uuid
}

// TenantID returns the owning tenant ID.
func (p *PunchRecord) TenantID() uint {
	return p.tenantID
}

// DeviceID returns the originating device ID.
func (p *PunchRecord) DeviceID() uint {
	return p.deviceID
}

// DeviceSID returns the originating device short ID.
func (p *PunchRecord) DeviceSID() string {
	return p.deviceSID
}

// DeviceUserID returns the device-local identifier of the person punching.
func (p *PunchRecord) DeviceUserID() string {
	return p.deviceUserID
}

// EmployeeID returns the resolved employee ID, nil until resolved.
func (p *PunchRecord) EmployeeID() *uint {
	return p.employeeID
}

// PunchTime returns the punch timestamp in UTC.
func (p *PunchRecord) PunchTime() time.Time {
	return p.punchTime
}

// Type returns the punch type.
func (p *PunchRecord) Type() PunchType {
	return p.punchType
}

// Method returns the verification method.
func (p *PunchRecord) Method() VerificationMethod {
	return p.method
}

// QualityScore returns the 0-100 verification quality score.
func (p *PunchRecord) QualityScore() int {
	return p.qualityScore
}

// Latitude returns the optional latitude.
func (p *PunchRecord) Latitude() *float64 {
	return p.latitude
}

// Longitude returns the optional longitude.
func (p *PunchRecord) Longitude() *float64 {
	return p.longitude
}

// RawPayload returns the device's original payload.
func (p *PunchRecord) RawPayload() json.RawMessage {
	return p.rawPayload
}

// Status returns the processing status.
func (p *PunchRecord) Status() PunchStatus {
	return p.status
}

// ProcessingError returns the recorded pipeline error, if any.
func (p *PunchRecord) ProcessingError() *string {
	return p.processingError
}

// ProcessedAt returns when the record reached a terminal status.
func (p *PunchRecord) ProcessedAt() *time.Time {
	return p.processedAt
}

// AttendanceDayID returns the attendance day this punch contributed to.
func (p *PunchRecord) AttendanceDayID() *uint {
	return p.attendanceDayID
}

// SequenceNo returns the per-device chain position, zero when unchained.
func (p *PunchRecord) SequenceNo() uint64 {
	return p.sequenceNo
}

// PrevDigest returns the digest of the preceding chain entry.
func (p *PunchRecord) PrevDigest() string {
	return p.prevDigest
}

// Digest returns this record's chain digest.
func (p *PunchRecord) Digest() string {
	return p.digest
}

// DigestVersion returns the digest payload layout version.
func (p *PunchRecord) DigestVersion() string {
	return p.digestVersion
}

// Version returns the aggregate version for optimistic locking.
func (p *PunchRecord) Version() int {
	return p.version
}

// SyncVersion aligns the aggregate with the version the repository
// persisted so a subsequent update passes the optimistic guard.
func (p *PunchRecord) SyncVersion(version int) {
	p.version = version
}

// CreatedAt returns when the record was persisted.
func (p *PunchRecord) CreatedAt() time.Time {
	return p.createdAt
}

// UpdatedAt returns when the record was last updated.
func (p *PunchRecord) UpdatedAt() time.Time {
	return p.updatedAt
}

// SetID sets the record ID (only for persistence layer use).
func (p *PunchRecord) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("punch record ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("punch record ID cannot be zero")
	}
	p.id = id
	return nil
}

// ResolveEmployee binds the record to a resolved employee.
func (p *PunchRecord) ResolveEmployee(employeeID uint) error {
	if employeeID == 0 {
		return fmt.Errorf("employee ID cannot be zero")
	}
	if p.status.IsTerminal() {
		return fmt.Errorf("cannot resolve employee on %s record", p.status)
	}

	p.employeeID = &employeeID
	p.updatedAt = time.Now()
	return nil
}

// AppendToChain assigns the record its chain position and computes the
// digest. The caller serializes appends per device and supplies the
// previous entry's digest (ChainGenesis for the first entry).
func (p *PunchRecord) AppendToChain(sequenceNo uint64, prevDigest string) error {
	if sequenceNo == 0 {
		return fmt.Errorf("sequence number must be positive")
	}
	if prevDigest == "" {
		return fmt.Errorf("previous digest is required")
	}
	if p.sequenceNo != 0 {
		return fmt.Errorf("record is already chained at sequence %d", p.sequenceNo)
	}
	if p.employeeID == nil {
		return fmt.Errorf("cannot chain a record without a resolved employee")
	}
	if p.status.IsTerminal() {
		return fmt.Errorf("cannot chain a %s record", p.status)
	}

	p.sequenceNo = sequenceNo
	p.prevDigest = prevDigest
	p.digestVersion = DigestVersionV1
	p.digest = ComputeDigestV1(
		p.deviceSID,
		p.deviceUserID,
		*p.employeeID,
		p.punchTime,
		p.punchType,
		p.qualityScore,
		sequenceNo,
		prevDigest,
	)
	p.updatedAt = time.Now()
	return nil
}

// MarkProcessed finalizes the record after the attendance update.
func (p *PunchRecord) MarkProcessed(attendanceDayID uint) error {
	if p.status.IsTerminal() {
		return fmt.Errorf("record is already %s", p.status)
	}
	if p.sequenceNo == 0 {
		return fmt.Errorf("cannot mark an unchained record processed")
	}
	if attendanceDayID == 0 {
		return fmt.Errorf("attendance day ID cannot be zero")
	}

	now := time.Now()
	p.status = PunchStatusProcessed
	p.attendanceDayID = &attendanceDayID
	p.processedAt = &now
	p.processingError = nil
	p.updatedAt = now
	return nil
}

// MarkFailed records a transient failure, leaving the record retryable.
func (p *PunchRecord) MarkFailed(reason string) error {
	if p.status.IsTerminal() {
		return fmt.Errorf("cannot fail a %s record", p.status)
	}
	if reason == "" {
		return fmt.Errorf("failure reason is required")
	}

	p.status = PunchStatusFailed
	p.processingError = &reason
	p.updatedAt = time.Now()
	return nil
}

// MarkDuplicate records a duplicate-window rejection.
func (p *PunchRecord) MarkDuplicate(reason string) error {
	if p.status.IsTerminal() {
		return fmt.Errorf("cannot mark a %s record duplicate", p.status)
	}

	now := time.Now()
	p.status = PunchStatusDuplicate
	p.processingError = &reason
	p.processedAt = &now
	p.updatedAt = now
	return nil
}

// MarkIgnored records a policy drop (quality threshold, daily quota).
func (p *PunchRecord) MarkIgnored(reason string) error {
	if p.status.IsTerminal() {
		return fmt.Errorf("cannot ignore a %s record", p.status)
	}

	now := time.Now()
	p.status = PunchStatusIgnored
	p.processingError = &reason
	p.processedAt = &now
	p.updatedAt = now
	return nil
}

// PrepareRetry resets a failed record for another pipeline pass.
func (p *PunchRecord) PrepareRetry() error {
	if !p.status.IsRetryable() {
		return fmt.Errorf("only failed records can be retried, status is %s", p.status)
	}

	p.status = PunchStatusPending
	p.updatedAt = time.Now()
	return nil
}

// IsChained reports whether the record occupies a chain position.
func (p *PunchRecord) IsChained() bool {
	return p.sequenceNo != 0
}
