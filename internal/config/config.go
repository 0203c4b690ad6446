// Package config loads relay settings from defaults, an optional file and RELAY_* env vars.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server  ServerConfig
	Journal JournalConfig
	Device  DeviceConfig
}

// ServerConfig holds listener and connection settings.
type ServerConfig struct {
	Port           int
	Path           string
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// JournalConfig holds command journal settings. An empty Path disables the journal.
type JournalConfig struct {
	Path    string
	History int
}

// DeviceConfig holds the controlled device endpoint. An empty URL disables forwarding.
type DeviceConfig struct {
	URL     string
	Timeout time.Duration
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads configuration from file and env. Env var overrides use prefix RELAY_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.path", "/ws")
	v.SetDefault("server.max_message_size", 1<<20)
	v.SetDefault("server.send_buffer", 256)
	v.SetDefault("server.idle_timeout", "0s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("journal.path", "data/commands.db")
	v.SetDefault("journal.history", 50)
	v.SetDefault("device.url", "")
	v.SetDefault("device.timeout", "5s")

	if cfgPath := os.Getenv("RELAY_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short aliases for the port and path.
	_ = v.BindEnv("server.port", "RELAY_SERVER_PORT", "RELAY_PORT", "PORT")
	_ = v.BindEnv("server.path", "RELAY_SERVER_PATH", "RELAY_PATH")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path must start with /: %q", c.Server.Path)
	}
	if c.Server.SendBuffer <= 0 {
		return fmt.Errorf("server.send_buffer must be positive")
	}
	if c.Server.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must not be negative")
	}
	return nil
}
