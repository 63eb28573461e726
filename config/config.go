// Package config loads the service configuration with viper. Every key
// has an in-code default so the binary runs with no file at all; a YAML
// file and MATCHFABRIC_* environment variables override.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// SymbolConfig declares one tradable symbol and its book discipline.
type SymbolConfig struct {
	Name         string  `mapstructure:"name"`
	Algorithm    string  `mapstructure:"algorithm"`
	FIFOFraction float64 `mapstructure:"fifo_fraction"`
}

// Config is the full service configuration.
type Config struct {
	// Server configuration
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	// Engine configuration
	Engine struct {
		IngressWorkers int  `mapstructure:"ingress_workers"`
		IngressBuffer  int  `mapstructure:"ingress_buffer"`
		ShardQueueSize int  `mapstructure:"shard_queue_size"`
		PinCPUs        bool `mapstructure:"pin_cpus"`
	} `mapstructure:"engine"`

	// Trade feed configuration
	Feed struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"feed"`

	Symbols []SymbolConfig `mapstructure:"symbols"`

	LogLevel string `mapstructure:"log_level"`
}

// SymbolNames returns the whitelist in configuration order.
func (c *Config) SymbolNames() []string {
	names := make([]string, len(c.Symbols))
	for i, s := range c.Symbols {
		names[i] = s.Name
	}
	return names
}

// Load reads the configuration from path (optional; empty means
// defaults and environment only).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("engine.ingress_workers", 2)
	v.SetDefault("engine.ingress_buffer", 4096)
	v.SetDefault("engine.shard_queue_size", 1024)
	v.SetDefault("engine.pin_cpus", true)
	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.path", "/feed")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("MATCHFABRIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if len(cfg.Symbols) == 0 {
		cfg.Symbols = DefaultSymbols()
	}
	for i := range cfg.Symbols {
		if cfg.Symbols[i].Algorithm == "" {
			cfg.Symbols[i].Algorithm = "fifo"
		}
	}

	return &cfg, nil
}

// DefaultSymbols is the compile-time whitelist used when no symbols are
// configured: one symbol per discipline.
func DefaultSymbols() []SymbolConfig {
	return []SymbolConfig{
		{Name: "BTCUSDT", Algorithm: "fifo"},
		{Name: "ETHUSDT", Algorithm: "prorata"},
		{Name: "SOLUSDT", Algorithm: "hybrid", FIFOFraction: 0.5},
	}
}
