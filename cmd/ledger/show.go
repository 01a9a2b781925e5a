package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/collection-ledger/collection"
	"github.com/warp/collection-ledger/session"
)

var showCmd = &cobra.Command{
	Use:   "show <debt-id>",
	Short: "Print a debt record and its periods, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession()
		if err := s.Open(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSession(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func printSession(out io.Writer, s *session.Session) {
	rec := s.Record()
	store := s.Store()
	today := s.Today()

	fmt.Fprintf(out, "%s  %s  (%s)\n", rec.Code, rec.CounterpartyName, rec.Kind)
	fmt.Fprintf(out, "total %s  paid %s  remaining %s  status %s\n",
		rec.TotalAmount, rec.PaidAmount, rec.RemainingAmount, rec.Status)
	if due := s.DueDate(); !due.IsZero() {
		fmt.Fprintf(out, "due %s", due.Format("2006-01-02"))
	}
	if note := s.Note(); note != "" {
		fmt.Fprintf(out, "  note %q", note)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, key := range store.Periods() {
		label := "locked"
		if collection.IsMutable(key, today) {
			label = "today"
		}
		fmt.Fprintf(tw, "\n%s\t%s\t\t\ttotal %s\n", key, label, collection.PeriodTotal(store, key))
		for _, it := range store.Items(key) {
			flags := ""
			if it.Dirty {
				flags += "*"
			}
			if it.ShipNow {
				flags += " ship-now"
			}
			if it.IsLocked() {
				flags += " returned"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%d x %s\t= %s\t%s\n",
				it.ID, it.ProductName, it.Quantity, it.SellingPrice, it.LineTotal(), flags)
		}
	}
	tw.Flush()

	if dirty := s.DirtyItems(); len(dirty) > 0 {
		fmt.Fprintf(out, "\n%d unsaved item(s), amount due now %s\n", len(dirty), s.IncrementalAmountDue())
	}
}
