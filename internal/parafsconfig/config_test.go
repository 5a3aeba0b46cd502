package parafsconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadAppliesYamlOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parafs.yaml")
	content := `
core:
  parallelCheckoutThreshold: 5
  writers: 2
fsmonitor:
  ipcThreads: 16
  combineLimit: 8
  truncateDelay: 30s
  cookiePrefix: "cookie/"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.ParallelCheckoutThreshold)
	assert.Equal(t, 2, cfg.Writers)
	assert.Equal(t, 16, cfg.IPCThreads)
	assert.Equal(t, 8, cfg.CombineLimit)
	assert.Equal(t, 30*time.Second, cfg.TruncateDelay)
	assert.Equal(t, "cookie/", cfg.CookiePrefix)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestEnvOverridesApplyOnTopOfDefaults(t *testing.T) {
	t.Setenv("GIT_TEST_FSMONITOR_TOKEN", "forced-token")
	t.Setenv("GIT_TEST_FSMONITOR_CLIENT_DELAY", "50")
	t.Setenv("GIT_TEST_CHECKOUT_HELPER_VERBOSE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "forced-token", cfg.ForcedToken)
	assert.Equal(t, 50*time.Millisecond, cfg.ClientDelay)
	assert.True(t, cfg.HelperVerbose)
}
