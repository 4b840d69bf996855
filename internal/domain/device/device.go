package device

import (
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// Device represents a registered biometric terminal aggregate root.
type Device struct {
	id           uint
	sid          string
	tenantID     uint
	name         string
	serialNumber string
	model        string
	location     string
	status       DeviceStatus
	ipAllowlist  []string
	lastSeenAt   *time.Time
	lastSyncAt   *time.Time
	version      int
	createdAt    time.Time
	updatedAt    time.Time
	events       []interface{}
	mu           sync.RWMutex
}

// NewDevice creates a new device aggregate in pending status.
func NewDevice(
	sid string,
	tenantID uint,
	name string,
	serialNumber string,
	model string,
	location string,
	ipAllowlist []string,
) (*Device, error) {
	if sid == "" {
		return nil, fmt.Errorf("device SID is required")
	}
	if tenantID == 0 {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if name == "" {
		return nil, fmt.Errorf("device name is required")
	}
	if serialNumber == "" {
		return nil, fmt.Errorf("serial number is required")
	}
	if err := validateAllowlist(ipAllowlist); err != nil {
		return nil, err
	}

	now := time.Now()
	d := &Device{
		sid:          sid,
		tenantID:     tenantID,
		name:         name,
		serialNumber: serialNumber,
		model:        model,
		location:     location,
		status:       DeviceStatusPending,
		ipAllowlist:  ipAllowlist,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
		events:       []interface{}{},
	}

	d.recordEvent(NewDeviceRegisteredEvent(d.sid, d.tenantID, d.name, d.serialNumber))

	return d, nil
}

// ReconstructDevice reconstructs a device from persistence.
func ReconstructDevice(
	id uint,
	sid string,
	tenantID uint,
	name string,
	serialNumber string,
	model string,
	location string,
	status DeviceStatus,
	ipAllowlist []string,
	lastSeenAt *time.Time,
	lastSyncAt *time.Time,
	version int,
	createdAt, updatedAt time.Time,
) (*Device, error) {
	if id == 0 {
		return nil, fmt.Errorf("device ID cannot be zero")
	}
	if sid == "" {
		return nil, fmt.Errorf("device SID is required")
	}
	if name == "" {
		return nil, fmt.Errorf("device name is required")
	}
	if serialNumber == "" {
		return nil, fmt.Errorf("serial number is required")
	}

	return &Device{
		id:           id,
		sid:          sid,
		tenantID:     tenantID,
		name:         name,
		serialNumber: serialNumber,
		model:        model,
		location:     location,
		status:       status,
		ipAllowlist:  ipAllowlist,
		lastSeenAt:   lastSeenAt,
		lastSyncAt:   lastSyncAt,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		events:       []interface{}{},
	}, nil
}

// ID returns the device ID.
func (d *Device) ID() uint {
	return d.id
}

// SID returns the device short ID.
func (d *Device) SID() string {
	return d.sid
}

// TenantID returns the owning tenant ID.
func (d *Device) TenantID() uint {
	return d.tenantID
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// SerialNumber returns the manufacturer serial number.
func (d *Device) SerialNumber() string {
	return d.serialNumber
}

// Model returns the device model.
func (d *Device) Model() string {
	return d.model
}

// Location returns the physical location label.
func (d *Device) Location() string {
	return d.location
}

// Status returns the device status.
func (d *Device) Status() DeviceStatus {
	return d.status
}

// IPAllowlist returns the configured source IP allowlist.
func (d *Device) IPAllowlist() []string {
	return d.ipAllowlist
}

// LastSeenAt returns when the device last authenticated.
func (d *Device) LastSeenAt() *time.Time {
	return d.lastSeenAt
}

// LastSyncAt returns when the device last delivered an accepted punch.
func (d *Device) LastSyncAt() *time.Time {
	return d.lastSyncAt
}

// Version returns the aggregate version for optimistic locking.
func (d *Device) Version() int {
	return d.version
}

// SyncVersion aligns the aggregate with the version the repository
// persisted so a subsequent update passes the optimistic guard.
func (d *Device) SyncVersion(version int) {
	d.version = version
}

// CreatedAt returns when the device was registered.
func (d *Device) CreatedAt() time.Time {
	return d.createdAt
}

// UpdatedAt returns when the device was last updated.
func (d *Device) UpdatedAt() time.Time {
	return d.updatedAt
}

// SetID sets the device ID (only for persistence layer use).
func (d *Device) SetID(id uint) error {
	if d.id != 0 {
		return fmt.Errorf("device ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("device ID cannot be zero")
	}
	d.id = id
	return nil
}

// Activate marks the device as active and able to submit punches.
func (d *Device) Activate() error {
	if d.status == DeviceStatusActive {
		return nil
	}

	if !d.status.CanTransitionTo(DeviceStatusActive) {
		return fmt.Errorf("cannot activate device with status %s", d.status)
	}

	oldStatus := d.status
	d.status = DeviceStatusActive
	d.updatedAt = time.Now()

	d.recordEvent(NewDeviceStatusChangedEvent(d.sid, oldStatus.String(), d.status.String(), "device activated"))

	return nil
}

// Suspend suspends the device so its punches are rejected.
func (d *Device) Suspend(reason string) error {
	if d.status == DeviceStatusSuspended {
		return nil
	}

	if !d.status.CanTransitionTo(DeviceStatusSuspended) {
		return fmt.Errorf("cannot suspend device with status %s", d.status)
	}
	if reason == "" {
		return fmt.Errorf("suspension reason is required")
	}

	oldStatus := d.status
	d.status = DeviceStatusSuspended
	d.updatedAt = time.Now()

	d.recordEvent(NewDeviceStatusChangedEvent(d.sid, oldStatus.String(), d.status.String(), reason))

	return nil
}

// Decommission permanently retires the device.
func (d *Device) Decommission() error {
	if d.status == DeviceStatusDecommissioned {
		return nil
	}

	if !d.status.CanTransitionTo(DeviceStatusDecommissioned) {
		return fmt.Errorf("cannot decommission device with status %s", d.status)
	}

	oldStatus := d.status
	d.status = DeviceStatusDecommissioned
	d.updatedAt = time.Now()

	d.recordEvent(NewDeviceStatusChangedEvent(d.sid, oldStatus.String(), d.status.String(), "device decommissioned"))

	return nil
}

// UpdateName updates the device name.
func (d *Device) UpdateName(name string) error {
	if name == "" {
		return fmt.Errorf("device name cannot be empty")
	}
	if d.name == name {
		return nil
	}

	d.name = name
	d.updatedAt = time.Now()

	return nil
}

// UpdateLocation updates the physical location label.
func (d *Device) UpdateLocation(location string) error {
	if d.location == location {
		return nil
	}

	d.location = location
	d.updatedAt = time.Now()

	return nil
}

// UpdateModel updates the device model.
func (d *Device) UpdateModel(model string) error {
	if d.model == model {
		return nil
	}

	d.model = model
	d.updatedAt = time.Now()

	return nil
}

// UpdateIPAllowlist replaces the source IP allowlist.
// An empty allowlist permits any source IP.
func (d *Device) UpdateIPAllowlist(allowlist []string) error {
	if err := validateAllowlist(allowlist); err != nil {
		return err
	}

	d.ipAllowlist = allowlist
	d.updatedAt = time.Now()

	return nil
}

// IsIPAllowed checks a source IP against the allowlist.
// Entries may be single addresses or CIDR prefixes.
func (d *Device) IsIPAllowed(ip string) bool {
	return allowlistPermits(d.ipAllowlist, ip)
}

func allowlistPermits(allowlist []string, ip string) bool {
	if len(allowlist) == 0 {
		return true
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	for _, entry := range allowlist {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				continue
			}
			if prefix.Contains(addr) {
				return true
			}
			continue
		}

		allowed, err := netip.ParseAddr(entry)
		if err != nil {
			continue
		}
		if allowed == addr {
			return true
		}
	}

	return false
}

// MarkSeen records a successful authentication from the device.
func (d *Device) MarkSeen(at time.Time) {
	d.lastSeenAt = &at
	d.updatedAt = time.Now()
}

// MarkSynced records a successfully ingested punch from the device.
func (d *Device) MarkSynced(at time.Time) {
	d.lastSyncAt = &at
	d.updatedAt = time.Now()
}

// CanSubmitPunches reports whether the device may deliver punches.
func (d *Device) CanSubmitPunches() bool {
	return d.status.IsActive()
}

// recordEvent records a domain event.
func (d *Device) recordEvent(event interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

// GetEvents returns and clears recorded domain events.
func (d *Device) GetEvents() []interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	events := d.events
	d.events = []interface{}{}
	return events
}

// Validate performs domain-level validation.
func (d *Device) Validate() error {
	if d.sid == "" {
		return fmt.Errorf("device SID is required")
	}
	if d.tenantID == 0 {
		return fmt.Errorf("tenant ID is required")
	}
	if d.name == "" {
		return fmt.Errorf("device name is required")
	}
	if d.serialNumber == "" {
		return fmt.Errorf("serial number is required")
	}
	return validateAllowlist(d.ipAllowlist)
}

func validateAllowlist(allowlist []string) error {
	for _, entry := range allowlist {
		if strings.Contains(entry, "/") {
			if _, err := netip.ParsePrefix(entry); err != nil {
				return fmt.Errorf("invalid allowlist CIDR %q: %w", entry, err)
			}
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("invalid allowlist address %q: %w", entry, err)
		}
	}
	return nil
}
