package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

func setupDirectory(t *testing.T) (*GormDirectory, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&EmployeeMappingModel{}, &AccessGrantModel{})
	require.NoError(t, err)

	return NewGormDirectory(db, logger.NewLogger()), db
}

func TestResolveByDeviceUser(t *testing.T) {
	dir, db := setupDirectory(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&EmployeeMappingModel{
		TenantID:     1,
		DeviceUserID: "emp-42",
		EmployeeID:   42,
	}).Error)

	employeeID, err := dir.ResolveByDeviceUser(ctx, 1, "emp-42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), employeeID)

	// Mapping is tenant scoped.
	_, err = dir.ResolveByDeviceUser(ctx, 2, "emp-42")
	assert.True(t, errors.IsNotFoundError(err))

	_, err = dir.ResolveByDeviceUser(ctx, 1, "emp-unknown")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestHasActiveGrant(t *testing.T) {
	dir, db := setupDirectory(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	until := now.Add(30 * 24 * time.Hour)
	revoked := now.Add(-time.Hour)

	require.NoError(t, db.Create(&AccessGrantModel{
		EmployeeID: 7,
		DeviceID:   1,
		ValidFrom:  now.Add(-24 * time.Hour),
		ValidUntil: &until,
	}).Error)
	require.NoError(t, db.Create(&AccessGrantModel{
		EmployeeID: 8,
		DeviceID:   1,
		ValidFrom:  now.Add(-24 * time.Hour),
		RevokedAt:  &revoked,
	}).Error)

	granted, err := dir.HasActiveGrant(ctx, 7, 1, now)
	require.NoError(t, err)
	assert.True(t, granted)

	// Outside validity window.
	granted, err = dir.HasActiveGrant(ctx, 7, 1, until.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, granted)

	// Revoked grant never matches.
	granted, err = dir.HasActiveGrant(ctx, 8, 1, now)
	require.NoError(t, err)
	assert.False(t, granted)

	// No grant row at all.
	granted, err = dir.HasActiveGrant(ctx, 9, 1, now)
	require.NoError(t, err)
	assert.False(t, granted)
}
