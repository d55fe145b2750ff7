// Package config loads server configuration from an optional YAML file and
// COUP_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. COUP_SERVER_GRPC_ADDRESS.
const EnvPrefix = "COUP"

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     rules.Settings `mapstructure:"game"`
	Replay   ReplayConfig   `mapstructure:"replay"`
}

// ServerConfig holds listener and match timing settings.
type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	// DecisionWindow is how long players have to challenge or block before
	// the open action or block resolves on its own.
	DecisionWindow  time.Duration `mapstructure:"decision_window"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WebSocketConfig configures the client-facing WebSocket listener.
type WebSocketConfig struct {
	Address        string   `mapstructure:"address"`
	Path           string   `mapstructure:"path"`
	ReadLimit      int64    `mapstructure:"read_limit"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GRPCConfig configures the gRPC health listener.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// DatabaseConfig configures the Postgres pool. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig selects the log level and the json or console encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReplayConfig controls saving replays of finished matches.
type ReplayConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.read_limit", 4096)
	v.SetDefault("server.websocket.allowed_origins", []string{})
	v.SetDefault("server.grpc.address", ":17171")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.decision_window", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("game.starting_coins", rules.DefaultStartingCoins)
	v.SetDefault("game.max_players", rules.DefaultMaxPlayers)
	v.SetDefault("game.expansions.reformation", false)
	v.SetDefault("game.expansions.inquisitor", false)
	v.SetDefault("game.expansions.anarchy", false)

	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.directory", "replays")
}

// Load reads path if it exists, applies environment overrides and validates
// the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.WebSocket.Address == "" {
		return fmt.Errorf("server.websocket.address is required")
	}
	if c.Server.GRPC.Address == "" {
		return fmt.Errorf("server.grpc.address is required")
	}
	if c.Server.DecisionWindow <= 0 {
		return fmt.Errorf("server.decision_window must be positive, got %s", c.Server.DecisionWindow)
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database.max_conns (%d) is below database.min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Game.StartingCoins < 0 {
		return fmt.Errorf("game.starting_coins must not be negative")
	}
	if c.Game.MaxPlayers < rules.MinPlayers {
		return fmt.Errorf("game.max_players must be at least %d", rules.MinPlayers)
	}
	if c.Replay.Enabled && c.Replay.Directory == "" {
		return fmt.Errorf("replay.directory is required when replays are enabled")
	}
	return nil
}
