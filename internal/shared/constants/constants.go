package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderDeviceKey     = "X-Device-Key"
	HeaderXRequestID    = "X-Request-ID"
	HeaderRetryAfter    = "Retry-After"

	// Context keys
	ContextKeyUserID     = "user_id"
	ContextKeyUserRole   = "user_role"
	ContextKeyTenantID   = "tenant_id"
	ContextKeyDeviceID   = "device_id"
	ContextKeyDeviceSID  = "device_sid"
	ContextKeyCredential = "credential_sid"

	// Device status
	DeviceStatusActive         = "active"
	DeviceStatusSuspended      = "suspended"
	DeviceStatusDecommissioned = "decommissioned"

	// Database table names
	TableDevices           = "devices"
	TableDeviceCredentials = "device_credentials"
	TablePunchRecords      = "punch_records"
	TableAttendanceDays    = "attendance_days"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgResourceNotFound    = "Resource not found"
	ErrMsgUnauthorized        = "Unauthorized access"
	ErrMsgForbidden           = "Access forbidden"
	ErrMsgValidationFailed    = "Validation failed"
	ErrMsgConflict            = "Resource already exists"
)
