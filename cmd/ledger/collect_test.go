package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/collection-ledger/api"
	"github.com/warp/collection-ledger/store/sqlite"
)

func TestEachPair(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringArray("qty", nil, "")
	require.NoError(t, cmd.Flags().Set("qty", "a=1"))
	require.NoError(t, cmd.Flags().Set("qty", "b=2"))

	got := map[string]string{}
	err := eachPair(cmd.Flags(), "qty", func(k, v string) error {
		got[k] = v
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got)

	require.NoError(t, cmd.Flags().Set("qty", "broken"))
	err = eachPair(cmd.Flags(), "qty", func(k, v string) error { return nil })
	assert.ErrorContains(t, err, "expects item=value")
}

// runCLI executes the root command against a seeded in-memory service.
func runCLI(t *testing.T, args ...string) (string, *sqlite.Store, error) {
	t.Helper()
	store, err := sqlite.NewInLocation(":memory:", time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SeedDemo(context.Background(), time.Now()))

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(store, zerolog.Nop()), nil))
	t.Cleanup(srv.Close)

	t.Setenv("LEDGER_CLIENT_API_URL", srv.URL)
	t.Setenv("LEDGER_LEDGER_TIMEZONE", "UTC")
	t.Setenv("LEDGER_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), store, err
}

func TestCollect_AddAndSubmit(t *testing.T) {
	// GIVEN: The demo debt with two past periods
	// WHEN: One bottle of oil is scanned and submitted
	out, store, err := runCLI(t, "collect", "debt-lan", "--add", "8930002", "--note", "cash next week", "--submit")

	// THEN: The record grows by one bottle and the session reloads clean
	require.NoError(t, err)
	assert.Contains(t, out, "Submitted 42000.")
	assert.Contains(t, out, "Cooking oil 1L")
	assert.NotContains(t, out, "unsaved")

	record, err := store.GetDebt(context.Background(), "debt-lan")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(871000).Equal(record.TotalAmount))
	assert.Equal(t, "cash next week", record.Note)
}
