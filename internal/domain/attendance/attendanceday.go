package attendance

import (
	"fmt"
	"math"
	"time"

	"veritime/internal/shared/biztime"
)

// AttendanceDay is one employee's attendance record for one business date.
// Unique per (employee, date); created on the first punch of the day and
// updated by subsequent punches.
type AttendanceDay struct {
	id                uint
	tenantID          uint
	employeeID        uint
	date              string
	checkInAt         *time.Time
	checkOutAt        *time.Time
	workedHours       float64
	overtimeHours     float64
	status            DayStatus
	reviewNote        *string
	authorized        bool
	authorizationNote *string
	sourceDeviceID    uint
	version           int
	createdAt         time.Time
	updatedAt         time.Time
}

// NewAttendanceDay creates an attendance day for the business date the
// punch falls on. The first punch drives the initial state: a check-in
// opens the day, a check-out leaves it incomplete.
func NewAttendanceDay(tenantID, employeeID uint, date string, sourceDeviceID uint) (*AttendanceDay, error) {
	if tenantID == 0 {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if employeeID == 0 {
		return nil, fmt.Errorf("employee ID is required")
	}
	if _, err := time.Parse(biztime.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid attendance date %q: %w", date, err)
	}

	now := time.Now()
	return &AttendanceDay{
		tenantID:       tenantID,
		employeeID:     employeeID,
		date:           date,
		status:         DayStatusIncomplete,
		sourceDeviceID: sourceDeviceID,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructAttendanceDay reconstructs an attendance day from persistence.
func ReconstructAttendanceDay(
	id uint,
	tenantID uint,
	employeeID uint,
	date string,
	checkInAt, checkOutAt *time.Time,
	workedHours, overtimeHours float64,
	status DayStatus,
	reviewNote *string,
	authorized bool,
	authorizationNote *string,
	sourceDeviceID uint,
	version int,
	createdAt, updatedAt time.Time,
) (*AttendanceDay, error) {
	if id == 0 {
		return nil, fmt.Errorf("attendance day ID cannot be zero")
	}
	if employeeID == 0 {
		return nil, fmt.Errorf("employee ID is required")
	}

	return &AttendanceDay{
		id:                id,
		tenantID:          tenantID,
		employeeID:        employeeID,
		date:              date,
		checkInAt:         checkInAt,
		checkOutAt:        checkOutAt,
		workedHours:       workedHours,
		overtimeHours:     overtimeHours,
		status:            status,
		reviewNote:        reviewNote,
		authorized:        authorized,
		authorizationNote: authorizationNote,
		sourceDeviceID:    sourceDeviceID,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}, nil
}

// ID returns the attendance day ID.
func (a *AttendanceDay) ID() uint {
	return a.id
}

// TenantID returns the owning tenant ID.
func (a *AttendanceDay) TenantID() uint {
	return a.tenantID
}

// EmployeeID returns the employee ID.
func (a *AttendanceDay) EmployeeID() uint {
	return a.employeeID
}

// Date returns the business date (YYYY-MM-DD).
func (a *AttendanceDay) Date() string {
	return a.date
}

// CheckInAt returns the recorded check-in time.
func (a *AttendanceDay) CheckInAt() *time.Time {
	return a.checkInAt
}

// CheckOutAt returns the recorded check-out time.
func (a *AttendanceDay) CheckOutAt() *time.Time {
	return a.checkOutAt
}

// WorkedHours returns the derived worked hours, rounded to two decimals.
func (a *AttendanceDay) WorkedHours() float64 {
	return a.workedHours
}

// OvertimeHours returns the derived overtime hours.
func (a *AttendanceDay) OvertimeHours() float64 {
	return a.overtimeHours
}

// Status returns the day status.
func (a *AttendanceDay) Status() DayStatus {
	return a.status
}

// ReviewNote explains why the day was flagged, if it was.
func (a *AttendanceDay) ReviewNote() *string {
	return a.reviewNote
}

// Authorized reports whether overtime on this day has been authorized.
func (a *AttendanceDay) Authorized() bool {
	return a.authorized
}

// AuthorizationNote returns the overtime authorization note.
func (a *AttendanceDay) AuthorizationNote() *string {
	return a.authorizationNote
}

// SourceDeviceID returns the device that created the day.
func (a *AttendanceDay) SourceDeviceID() uint {
	return a.sourceDeviceID
}

// Version returns the aggregate version for optimistic locking.
func (a *AttendanceDay) Version() int {
	return a.version
}

// SyncVersion aligns the aggregate with the version the repository
// persisted so a subsequent update passes the optimistic guard.
func (a *AttendanceDay) SyncVersion(version int) {
	a.version = version
}

// CreatedAt returns when the day was created.
func (a *AttendanceDay) CreatedAt() time.Time {
	return a.createdAt
}

// UpdatedAt returns when the day was last updated.
func (a *AttendanceDay) UpdatedAt() time.Time {
	return a.updatedAt
}

// SetID sets the day ID (only for persistence layer use).
func (a *AttendanceDay) SetID(id uint) error {
	if a.id != 0 {
		return fmt.Errorf("attendance day ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("attendance day ID cannot be zero")
	}
	a.id = id
	return nil
}

// ApplyCheckIn folds a check-in punch into the day.
//
// A check-in on a fresh or incomplete day records the time. A second
// check-in while the day is already open keeps the earlier time and flags
// the day for review instead of overwriting. A check-in that completes an
// out-of-order incomplete day (check-out seen first) closes the day.
func (a *AttendanceDay) ApplyCheckIn(at time.Time, policy DerivationPolicy) error {
	at = at.UTC()

	if a.checkInAt != nil {
		// Correction candidate: keep the earliest check-in.
		if at.Before(*a.checkInAt) {
			a.checkInAt = &at
		}
		a.flagForReview(fmt.Sprintf("duplicate check-in at %s", at.Format(time.RFC3339)))
		a.recompute(policy)
		a.touch()
		return nil
	}

	a.checkInAt = &at
	if a.checkOutAt != nil {
		if at.After(*a.checkOutAt) {
			a.flagForReview("check-in recorded after check-out")
		} else {
			a.status = DayStatusClosed
		}
	} else if a.status != DayStatusFlaggedForReview {
		a.status = DayStatusOpen
	}

	a.recompute(policy)
	a.touch()
	return nil
}

// ApplyCheckOut folds a check-out punch into the day.
//
// A check-out on an open day closes it. A check-out with no prior check-in
// leaves the day incomplete. A later check-out on a closed day extends it,
// keeping the latest time.
func (a *AttendanceDay) ApplyCheckOut(at time.Time, policy DerivationPolicy) error {
	at = at.UTC()

	if a.checkOutAt == nil || at.After(*a.checkOutAt) {
		a.checkOutAt = &at
	}

	switch {
	case a.checkInAt == nil:
		if a.status != DayStatusFlaggedForReview {
			a.status = DayStatusIncomplete
		}
	case a.status == DayStatusFlaggedForReview:
		// Keep the flag; hours are still recomputed below.
	default:
		a.status = DayStatusClosed
	}

	a.recompute(policy)
	a.touch()
	return nil
}

// Authorize marks the day's overtime as authorized.
func (a *AttendanceDay) Authorize(note string) error {
	if note == "" {
		return fmt.Errorf("authorization note is required")
	}

	a.authorized = true
	a.authorizationNote = &note
	a.touch()
	return nil
}

// ClearReviewFlag resolves a flagged day after manual review.
func (a *AttendanceDay) ClearReviewFlag() error {
	if a.status != DayStatusFlaggedForReview {
		return fmt.Errorf("day is not flagged for review")
	}

	a.reviewNote = nil
	switch {
	case a.checkInAt != nil && a.checkOutAt != nil:
		a.status = DayStatusClosed
	case a.checkInAt != nil:
		a.status = DayStatusOpen
	default:
		a.status = DayStatusIncomplete
	}
	a.touch()
	return nil
}

// HasCompleteSpan reports whether both check-in and check-out are present.
func (a *AttendanceDay) HasCompleteSpan() bool {
	return a.checkInAt != nil && a.checkOutAt != nil && !a.checkOutAt.Before(*a.checkInAt)
}

// IsWeekend reports whether the business date falls on a weekend.
func (a *AttendanceDay) IsWeekend() bool {
	d, err := time.Parse(biztime.DateLayout, a.date)
	if err != nil {
		return false
	}
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (a *AttendanceDay) flagForReview(note string) {
	a.status = DayStatusFlaggedForReview
	a.reviewNote = &note
}

// recompute derives worked and overtime hours whenever a complete span is
// present. The unpaid break only applies to spans over the threshold.
func (a *AttendanceDay) recompute(policy DerivationPolicy) {
	if !a.HasCompleteSpan() {
		a.workedHours = 0
		a.overtimeHours = 0
		return
	}

	span := a.checkOutAt.Sub(*a.checkInAt).Hours()
	worked := span
	if span > policy.BreakThresholdHours {
		worked -= policy.BreakDeductionHours
	}
	if worked < 0 {
		worked = 0
	}

	overtime := worked - policy.StandardDailyHours
	if overtime < 0 {
		overtime = 0
	}

	a.workedHours = round2(worked)
	a.overtimeHours = round2(overtime)
}

func (a *AttendanceDay) touch() {
	a.updatedAt = time.Now()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
