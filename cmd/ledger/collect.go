package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/collection-ledger/logger"
	"github.com/warp/collection-ledger/remote"
	"github.com/warp/collection-ledger/session"
)

var collectCmd = &cobra.Command{
	Use:   "collect <debt-id>",
	Short: "Edit today's period of a debt and optionally submit it",
	Long: `Open an edit session on a debt, apply the given edits to today's period
and print the result. Edits are applied in flag order: adds, quantities,
prices, ship-now toggles, removals. Nothing is sent unless --submit is set.

Item ids are the ones printed by "ledger show".`,
	Example: `  # Scan a barcode twice
  ledger collect debt-lan --add 8930001 --add 8930001

  # Raise an item to 5 and submit with a new due date
  ledger collect debt-lan --qty 3f2a...=5 --due 2026-04-30 --submit`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringArray("add", nil, "product code, barcode or id to add one unit of (repeatable)")
	collectCmd.Flags().StringArray("qty", nil, "item=quantity (repeatable)")
	collectCmd.Flags().StringArray("price", nil, "item=unit price (repeatable)")
	collectCmd.Flags().StringArray("ship-now", nil, "item=true|false (repeatable)")
	collectCmd.Flags().StringArray("remove", nil, "item id to remove from today's period (repeatable)")
	collectCmd.Flags().String("due", "", "due date, YYYY-MM-DD")
	collectCmd.Flags().String("note", "", "replace the record note")
	collectCmd.Flags().Bool("submit", false, "send today's changes to the service")
}

func runCollect(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("collect")
	ctx := cmd.Context()
	flags := cmd.Flags()

	s := newSession()
	if err := s.Open(ctx, args[0]); err != nil {
		return err
	}

	adds, _ := flags.GetStringArray("add")
	for _, code := range adds {
		if err := s.AddProduct(ctx, code); err != nil {
			return err
		}
	}

	if err := eachPair(flags, "qty", func(id, v string) error {
		q, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid quantity %q for %s", v, id)
		}
		return s.SetQuantity(id, q)
	}); err != nil {
		return err
	}
	if err := eachPair(flags, "price", func(id, v string) error {
		p, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid price %q for %s", v, id)
		}
		return s.SetPrice(id, p)
	}); err != nil {
		return err
	}
	if err := eachPair(flags, "ship-now", func(id, v string) error {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ship-now %q for %s", v, id)
		}
		return s.SetShipNow(id, on)
	}); err != nil {
		return err
	}

	removes, _ := flags.GetStringArray("remove")
	for _, id := range removes {
		if err := s.RemoveItem(id); err != nil {
			return err
		}
	}

	if due, _ := flags.GetString("due"); due != "" {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		t, err := time.ParseInLocation("2006-01-02", due, loc)
		if err != nil {
			return fmt.Errorf("invalid due date %q: %w", due, err)
		}
		if err := s.SetDueDate(t); err != nil {
			return err
		}
	}
	if flags.Changed("note") {
		note, _ := flags.GetString("note")
		if err := s.SetNote(note); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if submit, _ := flags.GetBool("submit"); !submit {
		printSession(out, s)
		return nil
	}

	amount := s.IncrementalAmountDue()
	if err := s.Submit(ctx); err != nil {
		return err
	}
	log.Info().Str("debt_id", args[0]).Str("amount", amount.String()).Msg("Period submitted")
	fmt.Fprintf(out, "Submitted %s.\n\n", amount)
	printSession(out, s)
	return nil
}

type flagGetter interface {
	GetStringArray(name string) ([]string, error)
}

// eachPair calls fn for every "key=value" entry of a repeatable flag.
func eachPair(flags flagGetter, name string, fn func(key, value string) error) error {
	pairs, err := flags.GetStringArray(name)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return fmt.Errorf("--%s expects item=value, got %q", name, p)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

func newSession() *session.Session {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}
	log := logger.WithComponent("session")
	return session.New(newRemote(), session.Options{
		Location:  loc,
		Precision: cfg.Ledger.Precision,
		Logger:    &log,
	})
}

func newRemote() *remote.Client {
	return remote.New(cfg.Client.APIURL, cfg.Client.Timeout)
}
