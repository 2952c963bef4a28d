// Package config resolves run settings from flags, UIPROBE_* environment
// variables, an optional uiprobe.yaml and built-in defaults, in that order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rocketship-ai/uiprobe/internal/driver"
)

const (
	EnvPrefix = "UIPROBE"
	// FileName is looked up in the working directory when no --config is given.
	FileName = "uiprobe"
)

// Config is the resolved run configuration.
type Config struct {
	BaseURL       string          `mapstructure:"base_url"`
	Headless      bool            `mapstructure:"headless"`
	Browser       string          `mapstructure:"browser"`
	SlowMo        time.Duration   `mapstructure:"slow_mo"`
	Timeout       time.Duration   `mapstructure:"timeout"`
	Viewport      driver.Viewport `mapstructure:"viewport"`
	ScreenshotDir string          `mapstructure:"screenshot_dir"`
	ArtifactsDir  string          `mapstructure:"artifacts_dir"`
	Parallel      int             `mapstructure:"parallel"`
	Install       bool            `mapstructure:"install"`
	HistoryDB     string          `mapstructure:"history_db"`
	TraceFile     string          `mapstructure:"trace_file"`
}

var defaults = map[string]interface{}{
	"base_url":        "http://localhost:5173",
	"headless":        false,
	"browser":         "chromium",
	"slow_mo":         time.Duration(0),
	"timeout":         30 * time.Second,
	"viewport.width":  1920,
	"viewport.height": 1080,
	"screenshot_dir":  "",
	"artifacts_dir":   "",
	"parallel":        1,
	"install":         false,
	"history_db":      "",
	"trace_file":      "",
}

// Load resolves the configuration. Flags are bound by name with dashes
// mapped to underscores, so --base-url sets base_url; only flags the user
// changed override lower layers. configFile may be empty, in which case a
// missing uiprobe.yaml is not an error.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := defaults[key]; !known || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	switch c.Browser {
	case "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("unsupported browser %q (want chromium, firefox or webkit)", c.Browser)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.SlowMo < 0 {
		return fmt.Errorf("slow_mo must not be negative, got %s", c.SlowMo)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", c.Parallel)
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Viewport.Width, c.Viewport.Height)
	}
	return nil
}

// LaunchOptions converts the configuration into driver launch options.
func (c *Config) LaunchOptions() driver.LaunchOptions {
	return driver.LaunchOptions{
		Browser:        c.Browser,
		Headless:       c.Headless,
		SlowMo:         c.SlowMo,
		Viewport:       c.Viewport,
		DefaultTimeout: c.Timeout,
		Install:        c.Install,
	}
}
