package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/collection-ledger/report"
)

var exportCmd = &cobra.Command{
	Use:   "export <debt-id>",
	Short: "Write a debt statement to an XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newRemote()
		detail, err := client.FetchDebtDetail(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = detail.Record.Code + ".xlsx"
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := report.WriteStatement(f, detail); err != nil {
			return fmt.Errorf("failed to write statement: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
		return f.Close()
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("out", "o", "", "output file (default <code>.xlsx)")
}
