package usecases

import (
	"context"
	"sync"
	"time"

	"veritime/internal/domain/device"
	"veritime/internal/domain/shared/events"
	"veritime/internal/infrastructure/ratelimit"
	"veritime/internal/shared/errors"
)

type fakeDispatcher struct {
	mu        sync.Mutex
	published []events.DomainEvent
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{}
}

func (d *fakeDispatcher) Publish(event events.DomainEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *fakeDispatcher) PublishAll(batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := d.Publish(event); err != nil {
			return err
		}
	}
	return nil
}

func (d *fakeDispatcher) eventTypes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]string, 0, len(d.published))
	for _, event := range d.published {
		types = append(types, event.GetEventType())
	}
	return types
}

type fakeDeviceRepo struct {
	mu      sync.Mutex
	nextID  uint
	devices map[uint]*device.Device
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[uint]*device.Device)}
}

func (r *fakeDeviceRepo) Create(_ context.Context, d *device.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if err := d.SetID(r.nextID); err != nil {
		return err
	}
	r.devices[d.ID()] = d
	return nil
}

func (r *fakeDeviceRepo) GetByID(_ context.Context, id uint) (*device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[id]; ok {
		return d, nil
	}
	return nil, errors.NewNotFoundError("device not found")
}

func (r *fakeDeviceRepo) GetBySID(_ context.Context, sid string) (*device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.SID() == sid {
			return d, nil
		}
	}
	return nil, errors.NewNotFoundError("device not found")
}

func (r *fakeDeviceRepo) Update(_ context.Context, d *device.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[d.ID()] = d
	return nil
}

func (r *fakeDeviceRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
	return nil
}

func (r *fakeDeviceRepo) List(_ context.Context, _ device.DeviceFilter) ([]*device.Device, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

func (r *fakeDeviceRepo) GetByTenantID(_ context.Context, tenantID uint) ([]*device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*device.Device
	for _, d := range r.devices {
		if d.TenantID() == tenantID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) ExistsBySerialNumber(_ context.Context, tenantID uint, serial string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.TenantID() == tenantID && d.SerialNumber() == serial {
			return true, nil
		}
	}
	return false, nil
}

type fakeCredentialRepo struct {
	mu     sync.Mutex
	nextID uint
	creds  map[uint]*device.DeviceCredential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: make(map[uint]*device.DeviceCredential)}
}

func (r *fakeCredentialRepo) Create(_ context.Context, c *device.DeviceCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if err := c.SetID(r.nextID); err != nil {
		return err
	}
	r.creds[c.ID()] = c
	return nil
}

func (r *fakeCredentialRepo) GetByID(_ context.Context, id uint) (*device.DeviceCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.creds[id]; ok {
		return c, nil
	}
	return nil, errors.NewNotFoundError("credential not found")
}

func (r *fakeCredentialRepo) GetBySID(_ context.Context, sid string) (*device.DeviceCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creds {
		if c.SID() == sid {
			return c, nil
		}
	}
	return nil, errors.NewNotFoundError("credential not found")
}

func (r *fakeCredentialRepo) GetByDigest(_ context.Context, digest string) (*device.DeviceCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creds {
		if c.Secret().Digest() == digest {
			return c, nil
		}
	}
	return nil, errors.NewNotFoundError("credential not found")
}

func (r *fakeCredentialRepo) Update(_ context.Context, c *device.DeviceCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[c.ID()] = c
	return nil
}

func (r *fakeCredentialRepo) ListByDevice(_ context.Context, deviceID uint) ([]*device.DeviceCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*device.DeviceCredential
	for _, c := range r.creds {
		if c.DeviceID() == deviceID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepo) ListExpiring(_ context.Context, before time.Time) ([]*device.DeviceCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*device.DeviceCredential
	for _, c := range r.creds {
		if c.IsRevoked() {
			continue
		}
		if exp := c.Secret().ExpiresAt(); exp != nil && !exp.After(before) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepo) CountActiveByDevice(_ context.Context, deviceID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.creds {
		if c.DeviceID() == deviceID && !c.IsRevoked() {
			n++
		}
	}
	return n, nil
}

// fakeLimiter counts requests per key in memory and lets tests force
// denials, blacklist entries and limiter errors.
type fakeLimiter struct {
	mu          sync.Mutex
	counts      map[string]int64
	violations  map[string]int64
	blacklisted map[string]ratelimit.BlacklistStatus
	denyAll     bool
	checkErr    error
	statusErr   error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{
		counts:      make(map[string]int64),
		violations:  make(map[string]int64),
		blacklisted: make(map[string]ratelimit.BlacklistStatus),
	}
}

func (l *fakeLimiter) CheckAndIncrement(_ context.Context, key string, limit int, window time.Duration) (ratelimit.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checkErr != nil {
		return ratelimit.Result{}, l.checkErr
	}
	if l.denyAll {
		return ratelimit.Result{Allowed: false, ResetAt: time.Now().Add(window)}, nil
	}
	l.counts[key]++
	if l.counts[key] > int64(limit) {
		l.counts[key]--
		return ratelimit.Result{Allowed: false, ResetAt: time.Now().Add(window)}, nil
	}
	return ratelimit.Result{Allowed: true, Remaining: int64(limit) - l.counts[key], ResetAt: time.Now().Add(window)}, nil
}

func (l *fakeLimiter) RecordViolation(_ context.Context, key string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.violations[key]++
	return l.violations[key], nil
}

func (l *fakeLimiter) IsBlacklisted(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.blacklisted[key]
	return ok, nil
}

func (l *fakeLimiter) Blacklist(_ context.Context, key string, duration time.Duration, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blacklisted[key] = ratelimit.BlacklistStatus{
		Blacklisted: true,
		Reason:      reason,
		ExpiresAt:   time.Now().Add(duration),
	}
	return nil
}

func (l *fakeLimiter) Unblacklist(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.blacklisted, key)
	return nil
}

func (l *fakeLimiter) Status(_ context.Context, key string) (ratelimit.BlacklistStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.statusErr != nil {
		return ratelimit.BlacklistStatus{}, l.statusErr
	}
	if st, ok := l.blacklisted[key]; ok {
		return st, nil
	}
	return ratelimit.BlacklistStatus{}, nil
}

func (l *fakeLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counts, key)
	delete(l.violations, key)
	return nil
}

func (l *fakeLimiter) violationCount(key string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.violations[key]
}
