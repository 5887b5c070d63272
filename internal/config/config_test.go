package config_test

import (
	"testing"

	"github.com/smilemakc/ta-engine/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 0.1, cfg.SafetyBufferPct)
	require.Equal(t, 500, cfg.SnapshotCadence)
	require.Equal(t, config.AlignLastKnown, cfg.DefaultAlignment)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SAFETY_BUFFER_PCT", "0.25")
	t.Setenv("SNAPSHOT_CADENCE", "100")
	t.Setenv("DEFAULT_ALIGNMENT", "strict")

	cfg := config.Load()
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 9090, cfg.GetPortInt())
	require.Equal(t, 0.25, cfg.SafetyBufferPct)
	require.Equal(t, 100, cfg.SnapshotCadence)
	require.Equal(t, config.AlignStrict, cfg.DefaultAlignment)
}

func TestLoadInvalidNumericEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("SAFETY_BUFFER_PCT", "not-a-number")
	cfg := config.Load()
	require.Equal(t, 0.1, cfg.SafetyBufferPct)
}
