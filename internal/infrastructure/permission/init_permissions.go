package permission

import (
	"fmt"

	"github.com/casbin/casbin/v2"

	"veritime/internal/shared/logger"
)

// InitDevicePermissions initializes device and credential management permissions.
func InitDevicePermissions(enforcer *casbin.Enforcer, log logger.Interface) error {
	policies := [][]string{
		// Admin permissions - full device fleet control
		{"admin", "device", "create"},
		{"admin", "device", "read"},
		{"admin", "device", "update"},
		{"admin", "device", "decommission"},
		{"admin", "device", "blacklist"},
		{"admin", "credential", "create"},
		{"admin", "credential", "read"},
		{"admin", "credential", "rotate"},
		{"admin", "credential", "revoke"},

		// HR managers can inspect the fleet but not change trust state
		{"hr_manager", "device", "read"},
		{"hr_manager", "credential", "read"},

		{"viewer", "device", "read"},
	}

	for _, policy := range policies {
		_, err := enforcer.AddPolicy(policy)
		if err != nil {
			log.Errorw("failed to add device permission policy",
				"error", err,
				"role", policy[0],
				"resource", policy[1],
				"action", policy[2])
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w",
				policy[0], policy[1], policy[2], err)
		}
	}

	if err := enforcer.SavePolicy(); err != nil {
		log.Error("failed to save device permissions", "error", err)
		return fmt.Errorf("failed to save device permissions: %w", err)
	}

	log.Info("device permissions initialized successfully")
	return nil
}

// InitAttendancePermissions initializes punch and attendance permissions.
func InitAttendancePermissions(enforcer *casbin.Enforcer, log logger.Interface) error {
	policies := [][]string{
		{"admin", "punch", "read"},
		{"admin", "punch", "reprocess"},
		{"admin", "punch", "verify_chain"},
		{"admin", "attendance", "read"},
		{"admin", "attendance", "authorize"},
		{"admin", "attendance", "review"},

		{"hr_manager", "punch", "read"},
		{"hr_manager", "punch", "reprocess"},
		{"hr_manager", "attendance", "read"},
		{"hr_manager", "attendance", "authorize"},
		{"hr_manager", "attendance", "review"},

		{"viewer", "punch", "read"},
		{"viewer", "attendance", "read"},
	}

	for _, policy := range policies {
		_, err := enforcer.AddPolicy(policy)
		if err != nil {
			log.Errorw("failed to add attendance permission policy",
				"error", err,
				"role", policy[0],
				"resource", policy[1],
				"action", policy[2])
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w",
				policy[0], policy[1], policy[2], err)
		}
	}

	if err := enforcer.SavePolicy(); err != nil {
		log.Error("failed to save attendance permissions", "error", err)
		return fmt.Errorf("failed to save attendance permissions: %w", err)
	}

	log.Info("attendance permissions initialized successfully")
	return nil
}

// InitAllPermissions initializes all permission policies.
func InitAllPermissions(enforcer *casbin.Enforcer, log logger.Interface) error {
	if err := InitDevicePermissions(enforcer, log); err != nil {
		return err
	}

	if err := InitAttendancePermissions(enforcer, log); err != nil {
		return err
	}

	log.Info("all permissions initialized successfully")
	return nil
}
