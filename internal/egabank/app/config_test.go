package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "egabank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAMLConfig(t *testing.T) {
	t.Parallel()

	t.Run("empty path keeps defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadYAMLConfig("", DefaultConfig())
		require.NoError(t, err)
		require.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("missing file keeps defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadYAMLConfig(filepath.Join(t.TempDir(), "nope.yaml"), DefaultConfig())
		require.NoError(t, err)
		require.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "api_url: https://bank.example/api\nhttp_timeout: 5s\nrate_limit_rps: 0\nephemeral: true\n")

		cfg, err := LoadYAMLConfig(path, DefaultConfig())
		require.NoError(t, err)
		require.Equal(t, "https://bank.example/api", cfg.APIURL)
		require.Equal(t, 5*time.Second, cfg.HTTPTimeout)
		require.Zero(t, cfg.RateLimitRPS)
		require.True(t, cfg.Ephemeral)
		require.Equal(t, DefaultConfig().DashboardTimeout, cfg.DashboardTimeout)
	})

	t.Run("bad yaml", func(t *testing.T) {
		t.Parallel()
		_, err := LoadYAMLConfig(writeConfig(t, "api_url: [unterminated\n"), DefaultConfig())
		require.Error(t, err)
	})
}

// Not parallel: t.Setenv.
func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "api_url: https://file.example/api\nlog_level: debug\n")
	t.Setenv("EGABANK_CONFIG", path)
	t.Setenv("EGABANK_API_URL", "https://env.example/api")
	t.Setenv("EGABANK_PROACTIVE_REFRESH", "true")
	t.Setenv("EGABANK_DASHBOARD_TIMEOUT", "3")
	t.Setenv("EGABANK_RATE_LIMIT_BURST", "not a number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https://env.example/api", cfg.APIURL)
	require.Equal(t, "debug", cfg.LogLevel)
	require.True(t, cfg.ProactiveRefresh)
	require.Equal(t, 3*time.Second, cfg.DashboardTimeout)
	require.Equal(t, DefaultConfig().RateLimitBurst, cfg.RateLimitBurst)
}

func TestBindFlags(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("egabank", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--api-url", "http://flag/api", "--ephemeral", "--timeout", "2s", "accounts"}))

	require.Equal(t, "http://flag/api", cfg.APIURL)
	require.True(t, cfg.Ephemeral)
	require.Equal(t, 2*time.Second, cfg.HTTPTimeout)
	require.Equal(t, []string{"accounts"}, fs.Args())
}

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	args, err := splitArgs(`deposit FR76 10 -d "rent paid"` + "\n")
	require.NoError(t, err)
	require.Equal(t, []string{"deposit", "FR76", "10", "-d", "rent paid"}, args)

	args, err = splitArgs("   \n")
	require.NoError(t, err)
	require.Empty(t, args)

	_, err = splitArgs(`transfer "a`)
	require.ErrorIs(t, err, ErrUsage)
}

func TestLogFormat(t *testing.T) {
	t.Parallel()
	require.Equal(t, "text", logFormat("text", nil))
	require.Equal(t, "json", logFormat("", &bytes.Buffer{}))
}
