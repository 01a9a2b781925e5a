package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/collection-ledger/config"
	"github.com/warp/collection-ledger/logger"
)

var version = "0.1.0"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Periodic debt collection ledger",
	Long: `ledger keeps customer and supplier debts as a history of daily
collection periods. Only today's period can be edited; older periods are
kept read-only and quantities never drop below what was already recorded.`,
	Example: `  # Run the service on a file database
  ledger serve

  # Add two scans of a barcode to today's period and submit
  ledger collect debt-lan --add 8930001 --add 8930001 --submit`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := logger.Setup(loaded.GetLoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (yaml, toml or json)")
}
