package device

import "fmt"

type DeviceStatus string

const (
	DeviceStatusPending        DeviceStatus = "pending"
	DeviceStatusActive         DeviceStatus = "active"
	DeviceStatusSuspended      DeviceStatus = "suspended"
	DeviceStatusDecommissioned DeviceStatus = "decommissioned"
)

var deviceStatusTransitions = map[DeviceStatus][]DeviceStatus{
	DeviceStatusPending: {
		DeviceStatusActive,
		DeviceStatusDecommissioned,
	},
	DeviceStatusActive: {
		DeviceStatusSuspended,
		DeviceStatusDecommissioned,
	},
	DeviceStatusSuspended: {
		DeviceStatusActive,
		DeviceStatusDecommissioned,
	},
	DeviceStatusDecommissioned: {},
}

func NewDeviceStatus(status string) (DeviceStatus, error) {
	ds := DeviceStatus(status)

	switch ds {
	case DeviceStatusPending, DeviceStatusActive, DeviceStatusSuspended, DeviceStatusDecommissioned:
		return ds, nil
	default:
		return "", fmt.Errorf("invalid device status: %s", status)
	}
}

func (ds DeviceStatus) String() string {
	return string(ds)
}

func (ds DeviceStatus) IsActive() bool {
	return ds == DeviceStatusActive
}

func (ds DeviceStatus) IsSuspended() bool {
	return ds == DeviceStatusSuspended
}

func (ds DeviceStatus) IsDecommissioned() bool {
	return ds == DeviceStatusDecommissioned
}

func (ds DeviceStatus) CanTransitionTo(target DeviceStatus) bool {
	allowedTransitions, ok := deviceStatusTransitions[ds]
	if !ok {
		return false
	}

	for _, allowed := range allowedTransitions {
		if allowed == target {
			return true
		}
	}
	return false
}

func (ds DeviceStatus) ValidateTransition(target DeviceStatus) error {
	if !ds.CanTransitionTo(target) {
		return fmt.Errorf("cannot transition from %s to %s", ds, target)
	}
	return nil
}

func GetAllDeviceStatuses() []DeviceStatus {
	return []DeviceStatus{
		DeviceStatusPending,
		DeviceStatusActive,
		DeviceStatusSuspended,
		DeviceStatusDecommissioned,
	}
}
