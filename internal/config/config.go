// Package config loads the car, dispatcher, and safety-monitor process
// configuration: the dispatcher address, a door delay, metrics, and
// logging settings, layered as LIFTGRID_-prefixed environment variables
// over an optional YAML file over defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is shared process configuration for the car, dispatcher, and
// safety-monitor binaries. Not every field applies to every process;
// each cmd reads only the fields it needs.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// DispatcherAddr is the TCP address the car's network agent dials
	// and the dispatcher listens on.
	DispatcherAddr string `mapstructure:"dispatcher_addr"`

	// DoorDelay is a per-state door/motion duration setting. No process
	// reads it: the car takes its timing from its delay_ms argument.
	DoorDelay time.Duration `mapstructure:"door_delay"`

	// Metrics contains the dispatcher's Prometheus exporter settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior, per internal/logx.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the dispatcher's metrics HTTP exporter.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Default values applied when neither a config file nor an environment
// variable supplies one.
const (
	DefaultDispatcherAddr = "127.0.0.1:3000"
	DefaultDoorDelay      = 2 * time.Second
	DefaultMetricsAddr    = "127.0.0.1:9090"
	DefaultLogLevel       = "INFO"
	DefaultLogFormat      = "text"
)

// Load reads configuration from configPath (YAML; empty uses no file),
// LIFTGRID_-prefixed environment variables, and defaults. Environment
// variables override the file, and the file overrides defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)
	applyDefaults(v)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("LIFTGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("dispatcher_addr", DefaultDispatcherAddr)
	v.SetDefault("door_delay", DefaultDoorDelay)
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", DefaultMetricsAddr)
}

// FileExists reports whether configPath names a regular file; an empty
// path reports false.
func FileExists(configPath string) bool {
	if configPath == "" {
		return false
	}
	st, err := os.Stat(configPath)
	return err == nil && !st.IsDir()
}
