package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketship-ai/uiprobe/internal/driver"
)

func runFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.Bool("headless", false, "")
	flags.String("base-url", "http://localhost:5173", "")
	flags.String("browser", "chromium", "")
	flags.Duration("timeout", 30*time.Second, "")
	flags.Duration("slow-mo", 0, "")
	flags.Int("parallel", 1, "")
	flags.String("screenshot-dir", "", "")
	flags.StringToString("var", nil, "")
	require.NoError(t, flags.Parse(args))
	return flags
}

// inDir runs the test from an empty directory so no stray uiprobe.yaml is found.
func inDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inDir(t)
	cfg, err := Load(runFlags(t), "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5173", cfg.BaseURL)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "chromium", cfg.Browser)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, driver.Viewport{Width: 1920, Height: 1080}, cfg.Viewport)
	assert.Equal(t, 1, cfg.Parallel)
}

func TestLoadPrecedence(t *testing.T) {
	dir := inDir(t)
	yaml := `base_url: http://from-file:5173
timeout: 10s
browser: firefox
viewport:
  width: 1280
  height: 720
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uiprobe.yaml"), []byte(yaml), 0644))

	t.Run("config file over defaults", func(t *testing.T) {
		cfg, err := Load(runFlags(t), "")
		require.NoError(t, err)
		assert.Equal(t, "http://from-file:5173", cfg.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
		assert.Equal(t, "firefox", cfg.Browser)
		assert.Equal(t, driver.Viewport{Width: 1280, Height: 720}, cfg.Viewport)
	})

	t.Run("env over config file", func(t *testing.T) {
		t.Setenv("UIPROBE_BASE_URL", "http://from-env:5173")
		t.Setenv("UIPROBE_VIEWPORT_WIDTH", "1024")
		t.Setenv("UIPROBE_HEADLESS", "true")
		cfg, err := Load(runFlags(t), "")
		require.NoError(t, err)
		assert.Equal(t, "http://from-env:5173", cfg.BaseURL)
		assert.Equal(t, 1024, cfg.Viewport.Width)
		assert.True(t, cfg.Headless)
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("UIPROBE_BASE_URL", "http://from-env:5173")
		cfg, err := Load(runFlags(t, "--base-url", "http://from-flag:5173", "--slow-mo", "250ms"), "")
		require.NoError(t, err)
		assert.Equal(t, "http://from-flag:5173", cfg.BaseURL)
		assert.Equal(t, 250*time.Millisecond, cfg.SlowMo)
		assert.Equal(t, "firefox", cfg.Browser, "unchanged flags do not override the file")
	})
}

func TestLoadExplicitFile(t *testing.T) {
	inDir(t)

	_, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(t.TempDir(), "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte("headless: true\nparallel: 3\n"), 0644))
	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 3, cfg.Parallel)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Browser: "chromium", Timeout: time.Second, Parallel: 1, Viewport: driver.Viewport{Width: 1, Height: 1}}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "browser", mutate: func(c *Config) { c.Browser = "safari" }, wantErr: "unsupported browser"},
		{name: "timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout must be positive"},
		{name: "slow mo", mutate: func(c *Config) { c.SlowMo = -time.Second }, wantErr: "slow_mo"},
		{name: "parallel", mutate: func(c *Config) { c.Parallel = 0 }, wantErr: "parallel"},
		{name: "viewport", mutate: func(c *Config) { c.Viewport.Height = 0 }, wantErr: "viewport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLaunchOptions(t *testing.T) {
	cfg := Config{Browser: "webkit", Headless: true, SlowMo: time.Second, Timeout: 5 * time.Second, Viewport: driver.Viewport{Width: 800, Height: 600}, Install: true}
	assert.Equal(t, driver.LaunchOptions{
		Browser:        "webkit",
		Headless:       true,
		SlowMo:         time.Second,
		Viewport:       driver.Viewport{Width: 800, Height: 600},
		DefaultTimeout: 5 * time.Second,
		Install:        true,
	}, cfg.LaunchOptions())
}
