package usecases

import (
	"time"

	"veritime/internal/domain/device"
)

// DeviceDTO is the wire representation of a device aggregate.
type DeviceDTO struct {
	SID          string     `json:"sid"`
	TenantID     uint       `json:"tenant_id"`
	Name         string     `json:"name"`
	SerialNumber string     `json:"serial_number"`
	Model        string     `json:"model,omitempty"`
	Location     string     `json:"location,omitempty"`
	Status       string     `json:"status"`
	IPAllowlist  []string   `json:"ip_allowlist,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CredentialDTO is the wire representation of a device credential.
// The secret digest and plaintext are never included.
type CredentialDTO struct {
	SID            string     `json:"sid"`
	DeviceID       uint       `json:"device_id"`
	Label          string     `json:"label,omitempty"`
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	PerMinuteQuota int        `json:"per_minute_quota,omitempty"`
	IPAllowlist    []string   `json:"ip_allowlist,omitempty"`
	RotatedFromSID *string    `json:"rotated_from_sid,omitempty"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	LastUsedIP     string     `json:"last_used_ip,omitempty"`
	UsageCount     uint64     `json:"usage_count"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokeReason   *string    `json:"revoke_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toDeviceDTO(d *device.Device) *DeviceDTO {
	return &DeviceDTO{
		SID:          d.SID(),
		TenantID:     d.TenantID(),
		Name:         d.Name(),
		SerialNumber: d.SerialNumber(),
		Model:        d.Model(),
		Location:     d.Location(),
		Status:       d.Status().String(),
		IPAllowlist:  d.IPAllowlist(),
		LastSeenAt:   d.LastSeenAt(),
		LastSyncAt:   d.LastSyncAt(),
		CreatedAt:    d.CreatedAt(),
		UpdatedAt:    d.UpdatedAt(),
	}
}

func toDeviceDTOs(devices []*device.Device) []*DeviceDTO {
	dtos := make([]*DeviceDTO, 0, len(devices))
	for _, d := range devices {
		dtos = append(dtos, toDeviceDTO(d))
	}
	return dtos
}

func toCredentialDTO(c *device.DeviceCredential) *CredentialDTO {
	return &CredentialDTO{
		SID:            c.SID(),
		DeviceID:       c.DeviceID(),
		Label:          c.Label(),
		Status:         string(c.Status()),
		ExpiresAt:      c.Secret().ExpiresAt(),
		PerMinuteQuota: c.PerMinuteQuota(),
		IPAllowlist:    c.IPAllowlist(),
		RotatedFromSID: c.RotatedFromSID(),
		LastUsedAt:     c.LastUsedAt(),
		LastUsedIP:     c.LastUsedIP(),
		UsageCount:     c.UsageCount(),
		RevokedAt:      c.RevokedAt(),
		RevokeReason:   c.RevokeReason(),
		CreatedAt:      c.CreatedAt(),
	}
}

func toCredentialDTOs(creds []*device.DeviceCredential) []*CredentialDTO {
	dtos := make([]*CredentialDTO, 0, len(creds))
	for _, c := range creds {
		dtos = append(dtos, toCredentialDTO(c))
	}
	return dtos
}
