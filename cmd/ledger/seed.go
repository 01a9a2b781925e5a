package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/collection-ledger/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the database contents with demo debts and products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("seed")

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SeedDemo(cmd.Context(), time.Now()); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
		log.Info().Str("db", cfg.Database.Path).Msg("Demo data loaded")
		fmt.Fprintln(cmd.OutOrStdout(), "Seeded debts debt-lan and debt-mekong.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("db", "", "SQLite path (overrides database.path)")
}
