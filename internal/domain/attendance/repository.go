package attendance

import "context"

type AttendanceDayRepository interface {
	Create(ctx context.Context, day *AttendanceDay) error
	GetByID(ctx context.Context, id uint) (*AttendanceDay, error)

	// GetByEmployeeAndDate returns the unique day for (employee, date), or
	// a not-found error when no punch has created it yet.
	GetByEmployeeAndDate(ctx context.Context, employeeID uint, date string) (*AttendanceDay, error)

	// Update persists the day with an optimistic version check; a stale
	// version returns a conflict error so the caller can reload and retry.
	Update(ctx context.Context, day *AttendanceDay) error

	List(ctx context.Context, filter AttendanceFilter) ([]*AttendanceDay, int64, error)
}

type AttendanceFilter struct {
	TenantID   *uint
	EmployeeID *uint
	Status     *string
	DateFrom   *string
	DateTo     *string
	Page       int
	PageSize   int
	SortDesc   bool
}
