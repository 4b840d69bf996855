package migration

import (
	"fmt"

	"gorm.io/gorm"

	"veritime/internal/infrastructure/persistence/models"
	"veritime/internal/shared/logger"
)

// GormAutoMigrateStrategy migrates the schema directly from the gorm
// model definitions. Development only.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

func NewGormAutoMigrateStrategy() Strategy {
	return &GormAutoMigrateStrategy{
		logger: logger.NewLogger().With("component", "migration.gorm"),
	}
}

func (s *GormAutoMigrateStrategy) Migrate(db *gorm.DB, models ...interface{}) error {
	s.logger.Infow("starting gorm auto-migration", "models_count", len(models))

	if err := db.AutoMigrate(models...); err != nil {
		s.logger.Errorw("auto-migration failed", "error", err)
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	s.logger.Infow("auto-migration completed successfully")
	return nil
}

func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.DeviceModel{},
		&models.DeviceCredentialModel{},
		&models.PunchRecordModel{},
		&models.AttendanceDayModel{},
	}
}
