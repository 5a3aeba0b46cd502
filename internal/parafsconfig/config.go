// Package parafsconfig loads the tunables for the checkout coordinator and
// the fsmonitor daemon from a YAML file via viper, with environment
// variables layered on top for test determinism.
package parafsconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds the coordinator and daemon tunables, plus the test-only
// environment overrides.
type Config struct {
	// ParallelCheckoutThreshold is the count of updatable regular files that
	// must be exceeded before the foreground coordinator spawns helpers at all.
	ParallelCheckoutThreshold int

	// IPCThreads sizes the daemon's worker pool.
	IPCThreads int

	PreloadLimit  int
	Writers       int
	CombineLimit  int
	TruncateDelay time.Duration
	CookiePrefix  string
	DotGitName    string

	// ClientDelay, when non-zero, is injected into every query response
	// for deterministic testing (GIT_TEST_FSMONITOR_CLIENT_DELAY).
	ClientDelay time.Duration

	// ForcedToken, when set, is used verbatim as the daemon's session id
	// instead of a generated one (GIT_TEST_FSMONITOR_TOKEN).
	ForcedToken string

	// HelperVerbose turns on per-item tracing in the checkout helper
	// (GIT_TEST_CHECKOUT_HELPER_VERBOSE).
	HelperVerbose bool
}

// Defaults returns the built-in tunable values used when no config file
// overrides them.
func Defaults() Config {
	return Config{
		ParallelCheckoutThreshold: 100,
		IPCThreads:                8,
		PreloadLimit:              100,
		Writers:                   4,
		CombineLimit:              64,
		TruncateDelay:             5 * time.Minute,
		CookiePrefix:              "fsmonitor-cookie/",
		DotGitName:                ".git",
	}
}

// Load reads path (if it exists) over the defaults, then applies the
// GIT_TEST_* environment overrides. path == "" skips the file and returns
// defaults-plus-env.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v := viper.New()
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return cfg, fmt.Errorf("failed to read config: %w", err)
			}
			applyViper(&cfg, v)
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyViper(cfg *Config, v *viper.Viper) {
	if v.IsSet("core.parallelCheckoutThreshold") {
		cfg.ParallelCheckoutThreshold = v.GetInt("core.parallelCheckoutThreshold")
	}
	if v.IsSet("fsmonitor.ipcThreads") {
		cfg.IPCThreads = v.GetInt("fsmonitor.ipcThreads")
	}
	if v.IsSet("core.preloadLimit") {
		cfg.PreloadLimit = v.GetInt("core.preloadLimit")
	}
	if v.IsSet("core.writers") {
		cfg.Writers = v.GetInt("core.writers")
	}
	if v.IsSet("fsmonitor.combineLimit") {
		cfg.CombineLimit = v.GetInt("fsmonitor.combineLimit")
	}
	if v.IsSet("fsmonitor.truncateDelay") {
		cfg.TruncateDelay = v.GetDuration("fsmonitor.truncateDelay")
	}
	if v.IsSet("fsmonitor.cookiePrefix") {
		cfg.CookiePrefix = v.GetString("fsmonitor.cookiePrefix")
	}
	if v.IsSet("core.dotGitName") {
		cfg.DotGitName = v.GetString("core.dotGitName")
	}
}

func applyEnv(cfg *Config) {
	if s := os.Getenv("GIT_TEST_FSMONITOR_TOKEN"); s != "" {
		cfg.ForcedToken = s
	}
	if s := os.Getenv("GIT_TEST_FSMONITOR_CLIENT_DELAY"); s != "" {
		if ms, err := strconv.Atoi(s); err == nil {
			cfg.ClientDelay = time.Duration(ms) * time.Millisecond
		}
	}
	if s := os.Getenv("GIT_TEST_CHECKOUT_HELPER_VERBOSE"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			cfg.HelperVerbose = b
		}
	}
}
