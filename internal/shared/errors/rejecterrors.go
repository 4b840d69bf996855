package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Ingestion-specific error types
const (
	ErrorTypeCredentialNotFound ErrorType = "credential_not_found"
	ErrorTypeCredentialExpired  ErrorType = "credential_expired"
	ErrorTypeCredentialRevoked  ErrorType = "credential_revoked"
	ErrorTypeIPNotAllowed       ErrorType = "ip_not_allowed"
	ErrorTypeRateLimited        ErrorType = "rate_limited"
	ErrorTypeBlacklisted        ErrorType = "blacklisted"
	ErrorTypeDuplicatePunch     ErrorType = "duplicate_punch"
	ErrorTypeLowQuality         ErrorType = "low_quality"
	ErrorTypeDailyQuota         ErrorType = "daily_quota_exceeded"
	ErrorTypeDeviceNotGranted   ErrorType = "device_not_authorized_for_employee"
	ErrorTypeEmployeeUnresolved ErrorType = "employee_unresolved"
	ErrorTypeDeviceInactive     ErrorType = "device_inactive"
	ErrorTypeChainConflict      ErrorType = "chain_append_conflict"
	ErrorTypePersistence        ErrorType = "persistence_failure"
)

// RejectError represents an expected rejection of a device request or punch.
// Rejections are normal outcomes of the ingestion pipeline, not system faults;
// callers branch on the type rather than treating them as failures.
type RejectError struct {
	*AppError
	// Transient marks rejections whose cause can resolve over time
	// (unmapped employee, chain conflict); only these are retried.
	Transient bool
	// SecurityEvent indicates the rejection should be tracked for alerting.
	SecurityEvent bool
	// RetryAfterSeconds is set for rate-limit rejections.
	RetryAfterSeconds int
}

// Error implements the error interface
func (e *RejectError) Error() string {
	return e.AppError.Error()
}

// Unwrap allows errors.Is and errors.As to work correctly
func (e *RejectError) Unwrap() error {
	return e.AppError
}

// IsRejectError checks if the error is a RejectError
func IsRejectError(err error) bool {
	var rejErr *RejectError
	return errors.As(err, &rejErr)
}

// GetRejectError extracts RejectError from error
func GetRejectError(err error) *RejectError {
	var rejErr *RejectError
	if errors.As(err, &rejErr) {
		return rejErr
	}
	return nil
}

// IsTransientReject reports whether the error is a rejection eligible for retry.
func IsTransientReject(err error) bool {
	rejErr := GetRejectError(err)
	return rejErr != nil && rejErr.Transient
}

// NewCredentialNotFoundError creates a rejection for an unknown device credential.
// The message never echoes the presented secret.
func NewCredentialNotFoundError() *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeCredentialNotFound,
			Message: "invalid device credential",
			Code:    http.StatusUnauthorized,
		},
		SecurityEvent: true,
	}
}

// NewCredentialExpiredError creates a rejection for an expired credential.
func NewCredentialExpiredError(details ...string) *RejectError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeCredentialExpired,
			Message: "device credential has expired",
			Code:    http.StatusUnauthorized,
			Details: detail,
		},
		SecurityEvent: true,
	}
}

// NewCredentialRevokedError creates a rejection for a revoked credential.
func NewCredentialRevokedError() *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeCredentialRevoked,
			Message: "device credential has been revoked",
			Code:    http.StatusUnauthorized,
		},
		SecurityEvent: true,
	}
}

// NewIPNotAllowedError creates a rejection for a source IP outside the allow-list.
func NewIPNotAllowedError(ip string) *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeIPNotAllowed,
			Message: "source IP address is not allowed for this credential",
			Code:    http.StatusForbidden,
			Details: ip,
		},
		SecurityEvent: true,
	}
}

// NewRateLimitedError creates a rejection for an exhausted rate-limit window.
func NewRateLimitedError(retryAfterSeconds int) *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeRateLimited,
			Message: "rate limit exceeded",
			Code:    http.StatusTooManyRequests,
		},
		RetryAfterSeconds: retryAfterSeconds,
		SecurityEvent:     true,
	}
}

// NewBlacklistedError creates a rejection for a blacklisted credential or IP.
func NewBlacklistedError(retryAfterSeconds int) *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeBlacklisted,
			Message: "access temporarily blocked",
			Code:    http.StatusTooManyRequests,
		},
		RetryAfterSeconds: retryAfterSeconds,
		SecurityEvent:     true,
	}
}

// NewDuplicatePunchError creates a rejection for a punch inside the duplicate window.
func NewDuplicatePunchError(details ...string) *RejectError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeDuplicatePunch,
			Message: "duplicate punch within the detection window",
			Code:    http.StatusConflict,
			Details: detail,
		},
	}
}

// NewLowQualityError creates a rejection for a verification score below threshold.
func NewLowQualityError(score, minimum int) *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeLowQuality,
			Message: "verification quality below accepted threshold",
			Code:    http.StatusConflict,
			Details: formatQualityDetail(score, minimum),
		},
	}
}

// NewDailyQuotaError creates a rejection for an exhausted daily punch quota.
func NewDailyQuotaError(count, limit int) *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeDailyQuota,
			Message: "daily punch quota exceeded",
			Code:    http.StatusConflict,
			Details: formatQuotaDetail(count, limit),
		},
		SecurityEvent: true,
	}
}

// NewDeviceNotGrantedError creates a rejection for a missing device access grant.
func NewDeviceNotGrantedError() *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeDeviceNotGranted,
			Message: "employee has no active access grant for this device",
			Code:    http.StatusForbidden,
		},
		SecurityEvent: true,
	}
}

// NewEmployeeUnresolvedError creates a transient rejection for an unmapped
// device-local user id. These punches are queued for reprocessing.
func NewEmployeeUnresolvedError(deviceUserID string) *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeEmployeeUnresolved,
			Message: "employee not found for device user id",
			Code:    http.StatusUnprocessableEntity,
			Details: deviceUserID,
		},
		Transient: true,
	}
}

// NewDeviceInactiveError creates a rejection for a device that is not in the
// active state; suspended and decommissioned devices keep valid credentials
// but may not submit punches.
func NewDeviceInactiveError(status string) *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeDeviceInactive,
			Message: "device is not active",
			Code:    http.StatusForbidden,
			Details: status,
		},
		SecurityEvent: true,
	}
}

// NewChainConflictError creates a transient rejection for a lost chain-append race.
func NewChainConflictError() *RejectError {
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypeChainConflict,
			Message: "concurrent chain append detected",
			Code:    http.StatusConflict,
		},
		Transient: true,
	}
}

// NewPersistenceError creates a transient rejection for a storage failure.
func NewPersistenceError(details ...string) *RejectError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &RejectError{
		AppError: &AppError{
			Type:    ErrorTypePersistence,
			Message: "failed to persist record",
			Code:    http.StatusInternalServerError,
			Details: detail,
		},
		Transient: true,
	}
}

func formatQualityDetail(score, minimum int) string {
	return fmt.Sprintf("score %d below minimum %d", score, minimum)
}

func formatQuotaDetail(count, limit int) string {
	return fmt.Sprintf("%d punches recorded, limit %d", count, limit)
}
