package alert

import (
	"context"
	"time"

	"veritime/internal/shared/logger"
)

// LogAlerter writes alerts to the application log. Used when SMTP is
// not configured so alerts are never silently dropped.
type LogAlerter struct {
	log logger.Interface
}

func NewLogAlerter(log logger.Interface) *LogAlerter {
	return &LogAlerter{log: log}
}

func (a *LogAlerter) SecurityAlert(ctx context.Context, subject, detail string) {
	a.log.Warnw("security alert", "subject", subject, "detail", detail)
}

func (a *LogAlerter) CredentialExpiryAlert(ctx context.Context, deviceName, credentialSID string, expiresAt time.Time) {
	a.log.Warnw("credential expiry warning",
		"device", deviceName,
		"credential_sid", credentialSID,
		"expires_at", expiresAt,
	)
}
