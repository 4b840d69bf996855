package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"veritime/internal/shared/biztime"
	"veritime/internal/shared/logger"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	SecurityTo  []string
}

// SMTPAlerter delivers security and operational alerts to the
// configured recipients over SMTP.
type SMTPAlerter struct {
	config SMTPConfig
	dialer *gomail.Dialer
	log    logger.Interface
}

func NewSMTPAlerter(config SMTPConfig, log logger.Interface) *SMTPAlerter {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)

	return &SMTPAlerter{
		config: config,
		dialer: dialer,
		log:    log,
	}
}

func (a *SMTPAlerter) SecurityAlert(ctx context.Context, subject, detail string) {
	now := biztime.NowUTC().Format(time.RFC3339)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Security Alert</h2>
			<p><strong>%s</strong></p>
			<p>%s</p>
			<p>Time: %s</p>
			<p>Review the device activity log and blacklist state before re-enabling the device.</p>
		</body>
		</html>
	`, subject, detail, now)

	plainBody := fmt.Sprintf(`
Security Alert

%s

%s

Time: %s

Review the device activity log and blacklist state before re-enabling the device.
	`, subject, detail, now)

	a.send("[Security] "+subject, htmlBody, plainBody)
}

func (a *SMTPAlerter) CredentialExpiryAlert(ctx context.Context, deviceName, credentialSID string, expiresAt time.Time) {
	subject := fmt.Sprintf("Device credential expiring: %s", deviceName)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Credential Expiry Warning</h2>
			<p>Credential <strong>%s</strong> for device <strong>%s</strong> expires at %s.</p>
			<p>Rotate the credential before expiry to avoid punch ingestion outages.</p>
		</body>
		</html>
	`, credentialSID, deviceName, expiresAt.Format(time.RFC3339))

	plainBody := fmt.Sprintf(`
Credential Expiry Warning

Credential %s for device %s expires at %s.

Rotate the credential before expiry to avoid punch ingestion outages.
	`, credentialSID, deviceName, expiresAt.Format(time.RFC3339))

	a.send(subject, htmlBody, plainBody)
}

func (a *SMTPAlerter) send(subject, htmlBody, plainBody string) {
	if len(a.config.SecurityTo) == 0 {
		a.log.Warnw("security alert has no recipients configured", "subject", subject)
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", a.config.FromAddress)
	m.SetHeader("To", a.config.SecurityTo...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := a.dialer.DialAndSend(m); err != nil {
		a.log.Errorw("failed to send alert email",
			"subject", subject,
			"recipients", strings.Join(a.config.SecurityTo, ","),
			"error", err,
		)
	}
}
