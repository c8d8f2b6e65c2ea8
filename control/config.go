// control/config.go
// Author: momentics <momentics@gmail.com>
//
// File/env configuration for the shared-memory bridge, loaded with viper.
// Every key can be overridden through the HIOLOAD_SHM_ env prefix, e.g.
// HIOLOAD_SHM_LISTENER_WORKERS=4.

package control

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Listener  ListenerConfig  `mapstructure:"listener"`
	Transport TransportConfig `mapstructure:"transport"`
	History   HistoryConfig   `mapstructure:"history"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Log       LogConfig       `mapstructure:"log"`
}

// ListenerConfig tunes the event listener.
type ListenerConfig struct {
	Workers    int `mapstructure:"workers"`
	MaxSources int `mapstructure:"max_sources"`
}

// TransportConfig sets the reference transport's chunk geometry.
type TransportConfig struct {
	ChunkCount   int `mapstructure:"chunk_count"`
	ChunkPayload int `mapstructure:"chunk_payload"`
	QueueDepth   int `mapstructure:"queue_depth"`
}

// HistoryConfig tunes the reference history cache.
type HistoryConfig struct {
	Depth int `mapstructure:"depth"`
}

// MonitorConfig tunes monitor teardown.
type MonitorConfig struct {
	QuiesceTimeout time.Duration `mapstructure:"quiesce_timeout"`
}

// LogConfig selects the diagnostic level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from path (optional; defaults and environment
// only when empty) and validates it.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HIOLOAD_SHM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listener.workers", 1)
	v.SetDefault("listener.max_sources", 128)
	v.SetDefault("transport.chunk_count", 1024)
	v.SetDefault("transport.chunk_payload", 4096)
	v.SetDefault("transport.queue_depth", 256)
	v.SetDefault("history.depth", 16)
	v.SetDefault("monitor.quiesce_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
}

// Validate rejects unusable values.
func (c Config) Validate() error {
	if c.Listener.Workers < 1 {
		return fmt.Errorf("listener.workers must be >= 1")
	}
	if c.Listener.MaxSources < 2 {
		return fmt.Errorf("listener.max_sources must be >= 2 (one slot is reserved for the wake trigger)")
	}
	if c.Transport.ChunkCount < 1 || c.Transport.ChunkPayload < 1 {
		return fmt.Errorf("transport chunk geometry must be positive")
	}
	if c.Transport.QueueDepth < 1 {
		return fmt.Errorf("transport.queue_depth must be >= 1")
	}
	if c.History.Depth < 1 {
		return fmt.Errorf("history.depth must be >= 1")
	}
	if c.Monitor.QuiesceTimeout <= 0 {
		return fmt.Errorf("monitor.quiesce_timeout must be positive")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured level name onto slog.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q is not one of debug/info/warn/error", l.Level)
}
