package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"veritime/internal/domain/device"
	"veritime/internal/domain/shared/events"
	"veritime/internal/infrastructure/config"
	"veritime/internal/infrastructure/database"
	"veritime/internal/infrastructure/directory"
	"veritime/internal/infrastructure/migration"
	"veritime/internal/infrastructure/permission"
	"veritime/internal/infrastructure/persistence/models"
	httpRouter "veritime/internal/interfaces/http"
	"veritime/internal/shared/biztime"
	"veritime/internal/shared/logger"
)

const rbacModelPath = "configs/rbac_model.conf"

var (
	env                string
	autoMigrate        bool
	skipMigrationCheck bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the punch ingestion and device management HTTP server.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")
	cmd.Flags().BoolVar(&skipMigrationCheck, "skip-migration-check", false, "Skip migration status check on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	logger.Info("starting server", "environment", env, "auto_migrate", autoMigrate)

	gin.SetMode(mapEnvToGinMode(env))
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := handleMigrations(env); err != nil {
		return fmt.Errorf("migration handling failed: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		// The limiter degrades per its own fail policies; boot anyway.
		logger.Warn("redis unavailable at startup", "error", err)
	}

	dispatcher := events.NewInMemoryEventDispatcher(100)
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}
	defer func() {
		if err := dispatcher.Stop(); err != nil {
			logger.Error("failed to stop event dispatcher", "error", err)
		}
	}()
	subscribeAuditHandlers(dispatcher, log)

	enforcer, err := permission.NewEnforcer(database.Get(), rbacModelPath, log)
	if err != nil {
		return fmt.Errorf("failed to initialize permission enforcer: %w", err)
	}
	if err := permission.InitAllPermissions(enforcer.Casbin(), log); err != nil {
		return fmt.Errorf("failed to seed permissions: %w", err)
	}

	router := httpRouter.NewRouter(database.Get(), redisClient, enforcer, dispatcher, cfg, log)
	router.SetupRoutes(cfg, log)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "address", cfg.Server.GetAddr(), "mode", gin.Mode())

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}

// subscribeAuditHandlers routes device lifecycle events into the audit log.
// Status changes away from active are operationally significant and logged
// at warning level.
func subscribeAuditHandlers(dispatcher events.EventDispatcher, log logger.Interface) {
	audit := func(event events.DomainEvent) error {
		log.Infow("device event",
			"event_type", event.GetEventType(),
			"aggregate_id", event.GetAggregateID(),
			"occurred_at", event.GetOccurredAt(),
		)
		return nil
	}

	statusChanged := func(event events.DomainEvent) error {
		changed, ok := event.(device.DeviceStatusChangedEvent)
		if !ok {
			return audit(event)
		}
		if changed.NewStatus != device.DeviceStatusActive.String() {
			log.Warnw("device left active service",
				"device_sid", changed.DeviceSID,
				"old_status", changed.OldStatus,
				"new_status", changed.NewStatus,
				"reason", changed.Reason,
			)
			return nil
		}
		return audit(event)
	}

	subscriptions := map[string]func(events.DomainEvent) error{
		device.EventTypeDeviceRegistered:    audit,
		device.EventTypeDeviceStatusChanged: statusChanged,
		device.EventTypeCredentialIssued:    audit,
		device.EventTypeCredentialRevoked:   audit,
	}
	for eventType, fn := range subscriptions {
		if err := dispatcher.Subscribe(eventType, events.NewSimpleEventHandler(eventType, fn)); err != nil {
			log.Warnw("failed to subscribe audit handler", "event_type", eventType, "error", err)
		}
	}
}

func handleMigrations(environment string) error {
	if skipMigrationCheck {
		logger.Info("skipping migration check")
		return nil
	}

	if autoMigrate {
		if environment == "production" {
			logger.Warn("auto-migration is enabled in production environment - this is not recommended!")
		}

		logger.Info("running auto-migration")
		migrationManager := migration.NewManager(environment)
		err := migrationManager.Migrate(database.Get(),
			&models.DeviceModel{},
			&models.DeviceCredentialModel{},
			&models.PunchRecordModel{},
			&models.AttendanceDayModel{},
			&directory.EmployeeMappingModel{},
			&directory.AccessGrantModel{},
		)
		if err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		logger.Info("auto-migration completed successfully")
		return nil
	}

	logger.Info("checking migration status")

	scriptsPath, err := filepath.Abs("./internal/infrastructure/migration/scripts")
	if err != nil {
		logger.Warn("failed to get migration scripts path", "error", err)
		return nil
	}

	strategy := migration.NewGolangMigrateStrategy(scriptsPath)
	if migrateStrategy, ok := strategy.(*migration.GolangMigrateStrategy); ok {
		version, dirty, err := migrateStrategy.GetVersion(database.Get())
		if err != nil {
			logger.Warn("failed to check migration status", "error", err)
		} else {
			logger.Info("current migration version", "version", version, "dirty", dirty)
		}
	}

	logger.Info("migration check completed")

	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
