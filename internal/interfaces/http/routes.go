package http

import (
	"veritime/internal/infrastructure/config"
	"veritime/internal/interfaces/http/middleware"
	"veritime/internal/shared/logger"
)

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes(cfg *config.Config, log logger.Interface) {
	r.engine.Use(middleware.Logger(log))
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.SecurityHeaders())
	r.engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r.setupDeviceRoutes()
	r.setupAdminRoutes()
}

// setupDeviceRoutes configures the credential-authenticated terminal API.
func (r *Router) setupDeviceRoutes() {
	deviceAPI := r.engine.Group("/api/device")

	deviceAPI.GET("/health", r.punchHandler.Health)

	authenticated := deviceAPI.Group("")
	authenticated.Use(r.deviceCredMiddleware.RequireDeviceCredential())
	{
		authenticated.POST("/punch", r.punchHandler.IngestPunch)
		authenticated.GET("/punches", r.punchHandler.GetPunchHistory)
		authenticated.GET("/punches/pending", r.punchHandler.GetPendingPunches)
		authenticated.GET("/sync-status", r.punchHandler.GetSyncStatus)
	}
}

// setupAdminRoutes configures the JWT-authenticated management API.
func (r *Router) setupAdminRoutes() {
	admin := r.engine.Group("/api/admin")
	admin.Use(r.authMiddleware.RequireAuth())

	devices := admin.Group("/devices")
	{
		devices.POST("", r.permissionMiddleware.RequirePermission("device", "create"), r.deviceHandler.RegisterDevice)
		devices.GET("", r.permissionMiddleware.RequirePermission("device", "read"), r.deviceHandler.ListDevices)
		devices.GET("/:sid", r.permissionMiddleware.RequirePermission("device", "read"), r.deviceHandler.GetDevice)
		devices.PUT("/:sid", r.permissionMiddleware.RequirePermission("device", "update"), r.deviceHandler.UpdateDevice)
		devices.DELETE("/:sid", r.permissionMiddleware.RequirePermission("device", "decommission"), r.deviceHandler.DecommissionDevice)

		devices.POST("/:sid/credentials", r.permissionMiddleware.RequirePermission("credential", "create"), r.credentialHandler.IssueCredential)
		devices.GET("/:sid/credentials", r.permissionMiddleware.RequirePermission("credential", "read"), r.credentialHandler.ListCredentials)

		devices.GET("/:sid/chain/verify", r.permissionMiddleware.RequirePermission("punch", "verify_chain"), r.adminPunchHandler.VerifyChain)
	}

	credentials := admin.Group("/credentials")
	{
		credentials.GET("/expiring", r.permissionMiddleware.RequirePermission("credential", "read"), r.credentialHandler.ListExpiringCredentials)
		credentials.POST("/:sid/rotate", r.permissionMiddleware.RequirePermission("credential", "rotate"), r.credentialHandler.RotateCredential)
		credentials.DELETE("/:sid", r.permissionMiddleware.RequirePermission("credential", "revoke"), r.credentialHandler.RevokeCredential)
	}

	admin.POST("/punches/reprocess", r.permissionMiddleware.RequirePermission("punch", "reprocess"), r.adminPunchHandler.Reprocess)
	admin.DELETE("/blacklist/:key", r.permissionMiddleware.RequirePermission("device", "blacklist"), r.deviceHandler.UnblacklistKey)

	attendance := admin.Group("/attendance")
	{
		attendance.GET("", r.permissionMiddleware.RequirePermission("attendance", "read"), r.attendanceHandler.ListAttendance)
		attendance.POST("/:id/authorize", r.permissionMiddleware.RequirePermission("attendance", "authorize"), r.attendanceHandler.AuthorizeDay)
		attendance.POST("/:id/review", r.permissionMiddleware.RequirePermission("attendance", "review"), r.attendanceHandler.ReviewDay)
	}
}
