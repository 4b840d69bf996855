package main

import (
	"os"

	"github.com/spf13/cobra"

	"veritime/internal/interfaces/cli/migrate"
	"veritime/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "veritime",
		Short: "Veritime - biometric punch ingestion service",
		Long:  `Veritime ingests punches from biometric attendance terminals, maintains the per-device audit chain and derives daily attendance.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
