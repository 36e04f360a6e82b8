package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flatscout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func withSecrets(t *testing.T) {
	t.Helper()
	t.Setenv(EnvTelegramToken, "123:abc")
	t.Setenv(EnvCatalogAPIKey, "key")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	withSecrets(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, 5, cfg.Catalog.PageSize)
	assert.Equal(t, 20*time.Second, cfg.Notifier.Warmup)
	assert.Equal(t, 12*time.Hour, cfg.Notifier.Interval)
	assert.Equal(t, 1, cfg.Notifier.MaxPerCycle)
	assert.Equal(t, 15*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
}

func TestLoadFile(t *testing.T) {
	withSecrets(t)
	path := writeConfig(t, `
catalog:
  city_id: 12
  page_size: 10
store:
  driver: memory
notifier:
  warmup: 1m
  interval: 30m
  max_per_cycle: 3
queue:
  workers: 8
log:
  level: warn
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Catalog.CityID)
	assert.Equal(t, 10, cfg.Catalog.PageSize)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, time.Minute, cfg.Notifier.Warmup)
	assert.Equal(t, 30*time.Minute, cfg.Notifier.Interval)
	assert.Equal(t, 3, cfg.Notifier.MaxPerCycle)
	assert.Equal(t, 8, cfg.Queue.Workers)
	assert.Equal(t, slog.LevelWarn, cfg.Log.SlogLevel())
	assert.Equal(t, 15*time.Second, cfg.Catalog.Timeout, "unset keys keep defaults")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: from-file
catalog:
  api_key: from-file
store:
  path: file.db
`)
	t.Setenv(EnvTelegramToken, "from-env")
	t.Setenv(EnvDBPath, "/var/lib/flatscout/env.db")
	t.Setenv(EnvMetricsAddr, "127.0.0.1:9100")
	t.Setenv(EnvDebug, "1")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, "from-file", cfg.Catalog.APIKey)
	assert.Equal(t, "/var/lib/flatscout/env.db", cfg.Store.Path)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestPrefixedEnvironmentCoversEveryKey(t *testing.T) {
	withSecrets(t)
	t.Setenv("FLATSCOUT_NOTIFIER_INTERVAL", "45m")
	t.Setenv("FLATSCOUT_QUEUE_WORKERS", "2")
	t.Setenv("FLATSCOUT_QUEUE_POLL_TIMEOUT", "5s")
	t.Setenv("FLATSCOUT_STORE_PATH", "/tmp/prefixed.db")
	t.Setenv("FLATSCOUT_CATALOG_API_KEY", "canonical")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.Notifier.Interval)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, 5*time.Second, cfg.Queue.PollTimeout)
	assert.Equal(t, "/tmp/prefixed.db", cfg.Store.Path)
	assert.Equal(t, "canonical", cfg.Catalog.APIKey, "prefixed name wins over the alias")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	withSecrets(t)
	t.Setenv(EnvMetricsAddr, "127.0.0.1:9100")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("metrics-addr", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--metrics-addr", ":9200"}))

	v := New()
	require.NoError(t, v.BindPFlag("metrics.addr", flags.Lookup("metrics-addr")))
	require.NoError(t, v.BindPFlag("log.level", flags.Lookup("log-level")))

	cfg, err := LoadWith(v, filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":9200", cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Log.Level, "unset flags fall through")
}

func TestWriteYAMLRedacted(t *testing.T) {
	cfg := Default()
	cfg.Telegram.Token = "123:abc"

	var buf bytes.Buffer
	require.NoError(t, cfg.Redacted().WriteYAML(&buf))

	assert.NotContains(t, buf.String(), "123:abc")
	assert.Contains(t, buf.String(), "***")
	assert.Contains(t, buf.String(), "interval: 12h0m0s")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		secrets bool
		want    string
	}{
		{name: "missing token", content: "", want: "Token"},
		{name: "unknown key", content: "telegram:\n  tokn: x\n", secrets: true, want: "failed to parse"},
		{name: "bad driver", content: "store:\n  driver: postgres\n", secrets: true, want: "Driver"},
		{name: "sqlite without path", content: "store:\n  path: \"\"\n", secrets: true, want: "Path"},
		{name: "zero page size", content: "catalog:\n  page_size: 0\n", secrets: true, want: "PageSize"},
		{name: "bad duration", content: "notifier:\n  interval: soon\n", secrets: true, want: "failed to parse"},
		{name: "bad level", content: "log:\n  level: loud\n", secrets: true, want: "Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvTelegramToken, "")
			t.Setenv(EnvCatalogAPIKey, "")
			if tt.secrets {
				withSecrets(t)
			}
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "info", Format: "json"}.NewLogger(&buf)

	logger.Debug("hidden")
	logger.Info("shown", slog.String("component", "test"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"component":"test"`)
}
