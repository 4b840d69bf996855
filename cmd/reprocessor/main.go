package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"veritime/internal/application/ingestion/usecases"
	"veritime/internal/domain/device"
	"veritime/internal/infrastructure/alert"
	"veritime/internal/infrastructure/config"
	"veritime/internal/infrastructure/database"
	"veritime/internal/infrastructure/directory"
	"veritime/internal/infrastructure/repository"
	"veritime/internal/shared/biztime"
	"veritime/internal/shared/db"
	"veritime/internal/shared/logger"
)

const (
	defaultSweepInterval = 5 * time.Minute
	expiryCheckInterval  = 6 * time.Hour
)

// expiryAlerter is the slice of the alert surface this worker needs.
type expiryAlerter interface {
	CredentialExpiryAlert(ctx context.Context, deviceName, credentialSID string, expiresAt time.Time)
}

// The reprocessor re-runs the acceptance pipeline over failed punch records
// and warns about credentials approaching expiry. It shares nothing with the
// HTTP server but the database.
func main() {
	env := "development"
	if len(os.Args) > 1 {
		env = os.Args[1]
	}
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger()
	log.Infow("starting punch reprocessor", "environment", env)

	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		log.Fatalw("failed to initialize business timezone", "error", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	deviceRepo := repository.NewDeviceRepository(database.Get(), log)
	credRepo := repository.NewCredentialRepository(database.Get(), log)
	punchRepo := repository.NewPunchRecordRepository(database.Get(), log)
	attRepo := repository.NewAttendanceDayRepository(database.Get(), log)
	txManager := db.NewTransactionManager(database.Get())
	dir := directory.NewGormDirectory(database.Get(), log)

	ingestUC := usecases.NewIngestPunchUseCase(punchRepo, attRepo, dir, dir, txManager, cfg.Pipeline, log)
	reprocessUC := usecases.NewReprocessFailedUseCase(punchRepo, ingestUC, cfg.Pipeline.ReprocessBatchSize, log)

	var alerter expiryAlerter
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

	sweepInterval := defaultSweepInterval
	if cfg.Pipeline.ReprocessIntervalSec > 0 {
		sweepInterval = time.Duration(cfg.Pipeline.ReprocessIntervalSec) * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sweepTicker := time.NewTicker(sweepInterval)
	defer sweepTicker.Stop()
	expiryTicker := time.NewTicker(expiryCheckInterval)
	defer expiryTicker.Stop()

	runSweep(ctx, reprocessUC, log)
	runExpiryCheck(ctx, deviceRepo, credRepo, alerter, cfg.Credential.ExpiryWarningDays, log)

	log.Infow("punch reprocessor started", "sweep_interval", sweepInterval)

	for {
		select {
		case <-sweepTicker.C:
			runSweep(ctx, reprocessUC, log)

		case <-expiryTicker.C:
			runExpiryCheck(ctx, deviceRepo, credRepo, alerter, cfg.Credential.ExpiryWarningDays, log)

		case sig := <-sigChan:
			log.Infow("received signal, shutting down", "signal", sig)
			return
		}
	}
}

func runSweep(ctx context.Context, reprocessUC *usecases.ReprocessFailedUseCase, log logger.Interface) {
	result, err := reprocessUC.Execute(ctx, usecases.ReprocessFailedCommand{})
	if err != nil {
		log.Errorw("reprocess sweep failed", "error", err)
		return
	}

	if result.Scanned > 0 {
		log.Infow("reprocess sweep completed",
			"scanned", result.Scanned,
			"processed", result.Processed,
			"rejected", result.Rejected,
			"still_failed", result.StillFailed)
	}
}

func runExpiryCheck(
	ctx context.Context,
	deviceRepo device.DeviceRepository,
	credRepo device.CredentialRepository,
	alerter expiryAlerter,
	warningDays int,
	log logger.Interface,
) {
	if warningDays <= 0 {
		warningDays = 14
	}

	horizon := biztime.NowUTC().Add(time.Duration(warningDays) * 24 * time.Hour)
	expiring, err := credRepo.ListExpiring(ctx, horizon)
	if err != nil {
		log.Errorw("credential expiry check failed", "error", err)
		return
	}

	for _, cred := range expiring {
		expiresAt := cred.Secret().ExpiresAt()
		if expiresAt == nil {
			continue
		}

		deviceName := fmt.Sprintf("device #%d", cred.DeviceID())
		if dev, err := deviceRepo.GetByID(ctx, cred.DeviceID()); err == nil {
			deviceName = dev.Name()
		}

		alerter.CredentialExpiryAlert(ctx, deviceName, cred.SID(), *expiresAt)
	}
}
