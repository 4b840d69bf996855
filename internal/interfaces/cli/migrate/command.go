package migrate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"veritime/internal/infrastructure/config"
	"veritime/internal/infrastructure/database"
	"veritime/internal/infrastructure/migration"
	"veritime/internal/shared/biztime"
	"veritime/internal/shared/logger"
)

var (
	env          string
	steps        int
	version      int
	strategyName string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations: apply pending migrations, roll back, and inspect status.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVar(&strategyName, "strategy", "golang-migrate", "Migration strategy (golang-migrate, goose)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newForceCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE:  runStatus,
	}
}

func newForceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "force",
		Short: "Force the migration version and clear the dirty flag",
		RunE:  runForce,
	}

	cmd.Flags().IntVarP(&version, "version", "v", 0, "Version to force (required)")
	cmd.MarkFlagRequired("version")

	return cmd
}

func initEnv() (migration.Strategy, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	base, err := filepath.Abs("./internal/infrastructure/migration/scripts")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve migration scripts path: %w", err)
	}

	switch strategyName {
	case "goose":
		return migration.NewGooseStrategy(filepath.Join(base, "goose")), nil
	case "golang-migrate", "":
		return migration.NewGolangMigrateStrategy(base), nil
	default:
		return nil, fmt.Errorf("unknown migration strategy: %s", strategyName)
	}
}

func runUp(cmd *cobra.Command, args []string) error {
	strategy, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := strategy.Migrate(database.Get()); err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}

	logger.Info("migrations applied successfully", "strategy", strategy.GetName())
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	strategy, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	switch s := strategy.(type) {
	case *migration.GolangMigrateStrategy:
		err = s.MigrateDown(database.Get(), steps)
	case *migration.GooseStrategy:
		err = s.MigrateDown(database.Get(), steps)
	default:
		return fmt.Errorf("down migration is not supported with strategy %s", strategy.GetName())
	}
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}

	logger.Info("migrations rolled back", "steps", steps, "strategy", strategy.GetName())
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	strategy, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	switch s := strategy.(type) {
	case *migration.GolangMigrateStrategy:
		current, dirty, err := s.GetVersion(database.Get())
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		logger.Info("migration status", "version", current, "dirty", dirty)
	case *migration.GooseStrategy:
		current, err := s.GetVersion(database.Get())
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		logger.Info("migration status", "version", current)
	default:
		return fmt.Errorf("status is not supported with strategy %s", strategy.GetName())
	}

	return nil
}

func runForce(cmd *cobra.Command, args []string) error {
	strategy, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	s, ok := strategy.(*migration.GolangMigrateStrategy)
	if !ok {
		return fmt.Errorf("force is only supported with the golang-migrate strategy")
	}

	if err := s.Force(database.Get(), version); err != nil {
		return fmt.Errorf("failed to force migration version: %w", err)
	}

	logger.Info("migration version forced", "version", version)
	return nil
}
