package usecases

import (
	"context"
	"time"
)

// EmployeeDirectory resolves device-local user identifiers to platform
// employee IDs. The mapping lives outside this module; resolution may fail
// transiently for freshly enrolled employees.
type EmployeeDirectory interface {
	ResolveByDeviceUser(ctx context.Context, tenantID uint, deviceUserID string) (uint, error)
}

// AccessGrantChecker answers whether an employee may punch on a device at
// a given time.
type AccessGrantChecker interface {
	HasActiveGrant(ctx context.Context, employeeID, deviceID uint, at time.Time) (bool, error)
}
