// Package config loads lodestar's settings from an optional
// .lodestar.yaml in the project root, overridable through LODESTAR_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultStateDir is where the persisted index and logs live, relative
// to the project root.
const DefaultStateDir = ".lodestar"

// Config holds all lodestar configuration.
type Config struct {
	// StateDir is resolved relative to the project root unless absolute.
	StateDir string `mapstructure:"state_dir"`

	// Languages restricts indexing to these language names. Empty means
	// every supported language.
	Languages []string `mapstructure:"languages"`

	// Ignore holds gitignore-style patterns applied on top of the
	// project's own .gitignore.
	Ignore []string `mapstructure:"ignore"`

	// Workers caps the parallel parse phase. Zero means one per CPU.
	Workers int `mapstructure:"workers"`

	Watch WatchConfig `mapstructure:"watch"`
	Log   LogConfig   `mapstructure:"log"`
}

// WatchConfig controls the filesystem watcher.
type WatchConfig struct {
	// Debounce is how long to wait after the last event before an
	// incremental update runs.
	Debounce time.Duration `mapstructure:"debounce"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		StateDir: DefaultStateDir,
		Workers:  0,
		Watch:    WatchConfig{Debounce: 200 * time.Millisecond},
		Log:      LogConfig{Level: "warn"},
	}
}

// Load reads .lodestar.yaml from the project root, if present, and
// applies LODESTAR_* environment overrides. A missing file is not an
// error; a malformed one is.
func Load(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".lodestar")
	v.SetConfigType("yaml")
	v.AddConfigPath(root)
	v.SetEnvPrefix("LODESTAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("state_dir", def.StateDir)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("watch.debounce", def.Watch.Debounce)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	for _, warning := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	return &cfg, nil
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string
	if c.Workers < 0 {
		warnings = append(warnings, fmt.Sprintf("workers %d is negative, using one per CPU", c.Workers))
		c.Workers = 0
	}
	if c.Watch.Debounce < 0 {
		warnings = append(warnings, "watch.debounce is negative, using default")
		c.Watch.Debounce = Default().Watch.Debounce
	}
	return warnings
}

// ResolveStateDir returns the absolute state directory for a project.
func (c *Config) ResolveStateDir(root string) string {
	if filepath.IsAbs(c.StateDir) {
		return c.StateDir
	}
	return filepath.Join(root, c.StateDir)
}

// EffectiveWorkers returns the worker count to use for the parallel
// parse phase.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
