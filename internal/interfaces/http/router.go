package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	attendanceUC "veritime/internal/application/attendance/usecases"
	deviceUC "veritime/internal/application/device/usecases"
	ingestionUC "veritime/internal/application/ingestion/usecases"
	"veritime/internal/domain/shared/events"
	"veritime/internal/infrastructure/alert"
	"veritime/internal/infrastructure/auth"
	"veritime/internal/infrastructure/config"
	"veritime/internal/infrastructure/directory"
	"veritime/internal/infrastructure/permission"
	"veritime/internal/infrastructure/ratelimit"
	"veritime/internal/infrastructure/repository"
	attendanceHandlers "veritime/internal/interfaces/http/handlers/attendance"
	deviceHandlers "veritime/internal/interfaces/http/handlers/device"
	ingestionHandlers "veritime/internal/interfaces/http/handlers/ingestion"
	"veritime/internal/interfaces/http/middleware"
	"veritime/internal/shared/db"
	"veritime/internal/shared/logger"
)

// Router wires repositories, usecases, handlers and middleware into one
// gin engine.
type Router struct {
	engine *gin.Engine

	deviceHandler     *deviceHandlers.DeviceHandler
	credentialHandler *deviceHandlers.CredentialHandler
	punchHandler      *ingestionHandlers.PunchHandler
	adminPunchHandler *ingestionHandlers.AdminPunchHandler
	attendanceHandler *attendanceHandlers.AttendanceHandler

	authMiddleware       *middleware.AuthMiddleware
	deviceCredMiddleware *middleware.DeviceCredentialMiddleware
	permissionMiddleware *middleware.PermissionMiddleware
}

// NewRouter builds the full HTTP stack from shared infrastructure handles.
func NewRouter(gormDB *gorm.DB, redisClient *redis.Client, enforcer *permission.Enforcer, dispatcher events.EventPublisher, cfg *config.Config, log logger.Interface) *Router {
	engine := gin.New()

	deviceRepo := repository.NewDeviceRepository(gormDB, log)
	credRepo := repository.NewCredentialRepository(gormDB, log)
	punchRepo := repository.NewPunchRecordRepository(gormDB, log)
	attRepo := repository.NewAttendanceDayRepository(gormDB, log)
	txManager := db.NewTransactionManager(gormDB)

	var alerter ratelimit.Alerter
	if cfg.Email.SMTPHost != "" {
		alerter = alert.NewSMTPAlerter(alert.SMTPConfig{
			Host:        cfg.Email.SMTPHost,
			Port:        cfg.Email.SMTPPort,
			Username:    cfg.Email.SMTPUser,
			Password:    cfg.Email.SMTPPassword,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
			SecurityTo:  cfg.Email.SecurityTo,
		}, log)
	} else {
		alerter = alert.NewLogAlerter(log)
	}

	limiter := ratelimit.NewRedisRateLimiter(redisClient, ratelimit.Options{
		ViolationThreshold: cfg.RateLimit.ViolationThreshold,
		ViolationWindow:    cfg.RateLimit.ViolationWindow(),
		BlacklistDuration:  cfg.RateLimit.BlacklistDuration(),
	}, alerter, log)

	dir := directory.NewGormDirectory(gormDB, log)

	jwtService := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes, cfg.Auth.JWT.RefreshExpDays)

	authenticateUC := deviceUC.NewAuthenticateDeviceUseCase(deviceRepo, credRepo, limiter, cfg.RateLimit, log)
	registerUC := deviceUC.NewRegisterDeviceUseCase(deviceRepo, dispatcher, log)
	getDeviceUC := deviceUC.NewGetDeviceUseCase(deviceRepo, log)
	listDevicesUC := deviceUC.NewListDevicesUseCase(deviceRepo, log)
	updateDeviceUC := deviceUC.NewUpdateDeviceUseCase(deviceRepo, dispatcher, log)
	decommissionUC := deviceUC.NewDecommissionDeviceUseCase(deviceRepo, credRepo, dispatcher, log)
	unblacklistUC := deviceUC.NewUnblacklistKeyUseCase(limiter, log)
	issueCredUC := deviceUC.NewIssueCredentialUseCase(deviceRepo, credRepo, dispatcher, cfg.Credential, log)
	rotateCredUC := deviceUC.NewRotateCredentialUseCase(deviceRepo, credRepo, txManager, dispatcher, cfg.Credential, log)
	revokeCredUC := deviceUC.NewRevokeCredentialUseCase(deviceRepo, credRepo, dispatcher, log)
	listCredsUC := deviceUC.NewListCredentialsUseCase(deviceRepo, credRepo, log)
	listExpiringUC := deviceUC.NewListExpiringCredentialsUseCase(credRepo, cfg.Credential, log)

	ingestUC := ingestionUC.NewIngestPunchUseCase(punchRepo, attRepo, dir, dir, txManager, cfg.Pipeline, log)
	reprocessUC := ingestionUC.NewReprocessFailedUseCase(punchRepo, ingestUC, cfg.Pipeline.ReprocessBatchSize, log)
	verifyChainUC := ingestionUC.NewVerifyChainUseCase(deviceRepo, punchRepo, log)
	punchHistoryUC := ingestionUC.NewGetPunchHistoryUseCase(punchRepo, log)
	syncStatusUC := ingestionUC.NewGetSyncStatusUseCase(deviceRepo, punchRepo, log)
	pendingPunchesUC := ingestionUC.NewGetPendingPunchesUseCase(punchRepo, log)

	listAttendanceUC := attendanceUC.NewListAttendanceUseCase(attRepo, log)
	authorizeDayUC := attendanceUC.NewAuthorizeDayUseCase(attRepo, log)
	reviewDayUC := attendanceUC.NewReviewDayUseCase(attRepo, log)

	return &Router{
		engine: engine,
		deviceHandler: deviceHandlers.NewDeviceHandler(
			registerUC, getDeviceUC, listDevicesUC, updateDeviceUC, decommissionUC, unblacklistUC),
		credentialHandler: deviceHandlers.NewCredentialHandler(
			issueCredUC, rotateCredUC, revokeCredUC, listCredsUC, listExpiringUC),
		punchHandler: ingestionHandlers.NewPunchHandler(
			ingestUC, punchHistoryUC, syncStatusUC, pendingPunchesUC),
		adminPunchHandler: ingestionHandlers.NewAdminPunchHandler(reprocessUC, verifyChainUC),
		attendanceHandler: attendanceHandlers.NewAttendanceHandler(
			listAttendanceUC, authorizeDayUC, reviewDayUC),
		authMiddleware:       middleware.NewAuthMiddleware(jwtService, log),
		deviceCredMiddleware: middleware.NewDeviceCredentialMiddleware(authenticateUC, log),
		permissionMiddleware: middleware.NewPermissionMiddleware(enforcer, log),
	}
}

// Engine exposes the underlying gin engine for serving and tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
