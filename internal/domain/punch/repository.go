package punch

import (
	"context"
	"time"
)

// ChainHead is the last chain position for a device.
type ChainHead struct {
	SequenceNo uint64
	Digest     string
}

type PunchRecordRepository interface {
	Create(ctx context.Context, record *PunchRecord) error
	GetByID(ctx context.Context, id uint) (*PunchRecord, error)
	GetByUUID(ctx context.Context, uuid string) (*PunchRecord, error)
	Update(ctx context.Context, record *PunchRecord) error

	List(ctx context.Context, filter PunchFilter) ([]*PunchRecord, int64, error)
	ListFailed(ctx context.Context, tenantID uint, limit int) ([]*PunchRecord, error)
	ListChained(ctx context.Context, deviceID uint, fromSeq, toSeq uint64) ([]*PunchRecord, error)

	// GetChainHead returns the highest chained entry for a device, or nil
	// when the chain is empty.
	GetChainHead(ctx context.Context, deviceID uint) (*ChainHead, error)

	// HasRecentAccepted reports whether an accepted punch exists for the
	// same employee, device and type within the trailing window before
	// punchTime.
	HasRecentAccepted(ctx context.Context, employeeID, deviceID uint, punchType PunchType, punchTime time.Time, window time.Duration) (bool, error)

	// CountAcceptedForDay counts accepted punches for an employee inside
	// the UTC day boundaries.
	CountAcceptedForDay(ctx context.Context, employeeID uint, dayStart, dayEnd time.Time) (int64, error)
}

type PunchFilter struct {
	TenantID   *uint
	DeviceID   *uint
	EmployeeID *uint
	Status     *string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
	SortDesc   bool
}
