package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"veritime/internal/application/device/usecases"
	"veritime/internal/shared/constants"
	"veritime/internal/shared/logger"
	"veritime/internal/shared/utils"
)

type AuthenticateDeviceExecutor interface {
	Execute(ctx context.Context, cmd usecases.AuthenticateDeviceCommand) (*usecases.AuthenticateDeviceResult, error)
}

// DeviceCredentialMiddleware authenticates device API callers by their
// shared credential. Every trust check lives in the usecase; rejections
// come back as typed errors that already carry the right status code.
type DeviceCredentialMiddleware struct {
	authenticateUC AuthenticateDeviceExecutor
	logger         logger.Interface
}

func NewDeviceCredentialMiddleware(
	authenticateUC AuthenticateDeviceExecutor,
	logger logger.Interface,
) *DeviceCredentialMiddleware {
	return &DeviceCredentialMiddleware{
		authenticateUC: authenticateUC,
		logger:         logger,
	}
}

func (m *DeviceCredentialMiddleware) RequireDeviceCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader(constants.HeaderDeviceKey)
		if secret == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing device key header")
			c.Abort()
			return
		}

		cmd := usecases.AuthenticateDeviceCommand{
			PresentedSecret: secret,
			SourceIP:        c.ClientIP(),
		}

		result, err := m.authenticateUC.Execute(c.Request.Context(), cmd)
		if err != nil {
			m.logger.Warnw("device authentication rejected", "error", err, "ip", c.ClientIP())
			utils.ErrorResponseWithError(c, err)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTenantID, result.TenantID)
		c.Set(constants.ContextKeyDeviceID, result.DeviceID)
		c.Set(constants.ContextKeyDeviceSID, result.DeviceSID)
		c.Set(constants.ContextKeyCredential, result.CredentialSID)

		c.Next()
	}
}
