package device

import (
	"context"
	"time"
)

type DeviceRepository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, id uint) (*Device, error)
	GetBySID(ctx context.Context, sid string) (*Device, error)
	Update(ctx context.Context, device *Device) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filter DeviceFilter) ([]*Device, int64, error)
	GetByTenantID(ctx context.Context, tenantID uint) ([]*Device, error)

	ExistsBySerialNumber(ctx context.Context, tenantID uint, serialNumber string) (bool, error)
}

type DeviceFilter struct {
	TenantID *uint
	Name     *string
	Status   *string
	Location *string
	Page     int
	PageSize int
	SortBy   string
	SortDesc bool
}

type CredentialRepository interface {
	Create(ctx context.Context, cred *DeviceCredential) error
	GetByID(ctx context.Context, id uint) (*DeviceCredential, error)
	GetBySID(ctx context.Context, sid string) (*DeviceCredential, error)
	GetByDigest(ctx context.Context, digest string) (*DeviceCredential, error)
	Update(ctx context.Context, cred *DeviceCredential) error

	ListByDevice(ctx context.Context, deviceID uint) ([]*DeviceCredential, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*DeviceCredential, error)
	CountActiveByDevice(ctx context.Context, deviceID uint) (int64, error)
}
