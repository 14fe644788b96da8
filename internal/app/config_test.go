package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileSeedsUnsetEnvOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "burstreply.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
group_debounce_delay_ms: 3000
aggregate_reply_header: "Received:"
cors_allowed_origins:
  - https://a.example.com
  - https://b.example.com
`), 0o600))

	t.Setenv("PORT", "7000")
	for _, k := range []string{"GROUP_DEBOUNCE_DELAY_MS", "AGGREGATE_REPLY_HEADER", "CORS_ALLOWED_ORIGINS"} {
		k := k
		t.Cleanup(func() { _ = os.Unsetenv(k) })
	}

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "7000", cfg.Port)
	require.Equal(t, 3*time.Second, cfg.Grouping.Delay)
	require.Equal(t, "Received:", cfg.Grouping.ReplyHeader)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	require.Equal(t, SchedulerAuto, cfg.Scheduler)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Run("scheduler", func(t *testing.T) {
		t.Setenv("SCHEDULER", "cron")
		_, err := LoadConfig("")
		require.Error(t, err)
	})
	t.Run("temporal without address", func(t *testing.T) {
		t.Setenv("SCHEDULER", "temporal")
		t.Setenv("TEMPORAL_ADDRESS", "")
		_, err := LoadConfig("")
		require.Error(t, err)
	})
	t.Run("delay beyond lock", func(t *testing.T) {
		t.Setenv("GROUP_DEBOUNCE_DELAY_MS", "7000")
		_, err := LoadConfig("")
		require.Error(t, err)
	})
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
