package device

import (
	"fmt"
	"time"

	"veritime/internal/domain/shared/events"
)

const (
	EventTypeDeviceRegistered    = "device.registered"
	EventTypeDeviceStatusChanged = "device.status.changed"
	EventTypeCredentialIssued    = "device.credential.issued"
	EventTypeCredentialRevoked   = "device.credential.revoked"
)

type DeviceRegisteredEvent struct {
	events.BaseEvent
	DeviceSID    string `json:"device_sid"`
	TenantID     uint   `json:"tenant_id"`
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
}

func NewDeviceRegisteredEvent(deviceSID string, tenantID uint, name, serialNumber string) DeviceRegisteredEvent {
	return DeviceRegisteredEvent{
		BaseEvent: events.BaseEvent{
			AggregateID: fmt.Sprintf("device:%s", deviceSID),
			EventType:   EventTypeDeviceRegistered,
			OccurredAt:  time.Now(),
			Version:     1,
		},
		DeviceSID:    deviceSID,
		TenantID:     tenantID,
		Name:         name,
		SerialNumber: serialNumber,
	}
}

type DeviceStatusChangedEvent struct {
	events.BaseEvent
	DeviceSID string `json:"device_sid"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason"`
}

func NewDeviceStatusChangedEvent(deviceSID, oldStatus, newStatus, reason string) DeviceStatusChangedEvent {
	return DeviceStatusChangedEvent{
		BaseEvent: events.BaseEvent{
			AggregateID: fmt.Sprintf("device:%s", deviceSID),
			EventType:   EventTypeDeviceStatusChanged,
			OccurredAt:  time.Now(),
			Version:     1,
		},
		DeviceSID: deviceSID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Reason:    reason,
	}
}

type CredentialIssuedEvent struct {
	events.BaseEvent
	CredentialSID string     `json:"credential_sid"`
	DeviceSID     string     `json:"device_sid"`
	Label         string     `json:"label"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

func NewCredentialIssuedEvent(credentialSID, deviceSID, label string, expiresAt *time.Time) CredentialIssuedEvent {
	return CredentialIssuedEvent{
		BaseEvent: events.BaseEvent{
			AggregateID: fmt.Sprintf("device:%s", deviceSID),
			EventType:   EventTypeCredentialIssued,
			OccurredAt:  time.Now(),
			Version:     1,
		},
		CredentialSID: credentialSID,
		DeviceSID:     deviceSID,
		Label:         label,
		ExpiresAt:     expiresAt,
	}
}

type CredentialRevokedEvent struct {
	events.BaseEvent
	CredentialSID string `json:"credential_sid"`
	DeviceSID     string `json:"device_sid"`
	Reason        string `json:"reason"`
}

func NewCredentialRevokedEvent(credentialSID, deviceSID, reason string) CredentialRevokedEvent {
	return CredentialRevokedEvent{
		BaseEvent: events.BaseEvent{
			AggregateID: fmt.Sprintf("device:%s", deviceSID),
			EventType:   EventTypeCredentialRevoked,
			OccurredAt:  time.Now(),
			Version:     1,
		},
		CredentialSID: credentialSID,
		DeviceSID:     deviceSID,
		Reason:        reason,
	}
}
