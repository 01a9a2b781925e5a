package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	err := Setup(LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestSetup_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.log")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	require.NoError(t, Setup(LogConfig{Level: "debug", Format: "json", Output: path}))

	log := WithComponent("session")
	log.Debug().Str("debt_id", "debt-1").Msg("debt loaded")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(raw, &line))
	assert.Equal(t, "session", line["component"])
	assert.Equal(t, "debt-1", line["debt_id"])
	assert.Equal(t, "debug", line["level"])
}
