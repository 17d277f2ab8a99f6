// ABOUTME: Configuration loading and management for the rpcline server
// ABOUTME: Supports YAML files, defaults and RPCLINE_* environment overrides

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/harper/rpcline/internal/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RPCLINE_SERVER_PORT.
const EnvPrefix = "RPCLINE"

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket" yaml:"websocket" json:"websocket"`
	Management ManagementConfig `mapstructure:"management" yaml:"management" json:"management"`
	RPC        RPCConfig        `mapstructure:"rpc" yaml:"rpc" json:"rpc"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database" json:"database"`
	Log        LogConfig        `mapstructure:"log" yaml:"log" json:"log"`
}

type ServerConfig struct {
	Host           string `mapstructure:"host" yaml:"host" json:"host"`
	Port           int    `mapstructure:"port" yaml:"port" json:"port"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections" json:"max_connections"` // 0 = unlimited
	MaxLineBytes   int    `mapstructure:"max_line_bytes" yaml:"max_line_bytes" json:"max_line_bytes"`
}

type WebSocketConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Host      string `mapstructure:"host" yaml:"host" json:"host"`
	Port      int    `mapstructure:"port" yaml:"port" json:"port"`
	Path      string `mapstructure:"path" yaml:"path" json:"path"`
	AllowPost bool   `mapstructure:"allow_post" yaml:"allow_post" json:"allow_post"` // plain HTTP POST on Path

	// Browser origins allowed besides same-origin; "*" allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`
}

type ManagementConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Host    string `mapstructure:"host" yaml:"host" json:"host"`
	Port    int    `mapstructure:"port" yaml:"port" json:"port"`
}

type RPCConfig struct {
	MaxDepth     int  `mapstructure:"max_depth" yaml:"max_depth" json:"max_depth"`
	ErrorDetails bool `mapstructure:"error_details" yaml:"error_details" json:"error_details"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" json:"path"`
}

type LogConfig struct {
	Verbose bool `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
}

// ValidationError names the offending key.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7878)
	v.SetDefault("server.max_connections", 0)
	v.SetDefault("server.max_line_bytes", 1<<20)

	v.SetDefault("websocket.enabled", false)
	v.SetDefault("websocket.host", "127.0.0.1")
	v.SetDefault("websocket.port", 7879)
	v.SetDefault("websocket.path", "/rpc")
	v.SetDefault("websocket.allow_post", true)
	v.SetDefault("websocket.allowed_origins", []string{})

	v.SetDefault("management.enabled", false)
	v.SetDefault("management.host", "127.0.0.1")
	v.SetDefault("management.port", 7880)

	v.SetDefault("rpc.max_depth", 512)
	v.SetDefault("rpc.error_details", false)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", "$XDG_DATA_HOME/rpcline/messages.db")

	v.SetDefault("log.verbose", false)
}

// Default returns the configuration used when no file or environment is set.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults are static; this only fires if they stop validating.
		panic(err)
	}
	return cfg
}

// Load reads path (YAML) on top of the defaults and applies RPCLINE_*
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Database.Path = xdg.ExpandPath(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault loads path when set, otherwise the XDG config file if it exists,
// otherwise defaults and environment only.
func LoadDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	candidate := xdg.DefaultConfigFile()
	if _, err := os.Stat(candidate); err == nil {
		return Load(candidate)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", candidate, err)
	}
	return Load("")
}

func (c *Config) Validate() error {
	if err := validPort("server.port", c.Server.Port); err != nil {
		return err
	}
	if c.Server.MaxConnections < 0 {
		return &ValidationError{Field: "server.max_connections", Reason: "must not be negative"}
	}
	if c.Server.MaxLineBytes < 64 {
		return &ValidationError{Field: "server.max_line_bytes", Reason: "must be at least 64"}
	}
	if c.WebSocket.Enabled {
		if err := validPort("websocket.port", c.WebSocket.Port); err != nil {
			return err
		}
		if !strings.HasPrefix(c.WebSocket.Path, "/") {
			return &ValidationError{Field: "websocket.path", Reason: fmt.Sprintf("%q must start with /", c.WebSocket.Path)}
		}
	}
	if c.Management.Enabled {
		if err := validPort("management.port", c.Management.Port); err != nil {
			return err
		}
	}
	if c.RPC.MaxDepth < 1 {
		return &ValidationError{Field: "rpc.max_depth", Reason: "must be at least 1"}
	}
	if c.Database.Enabled && c.Database.Path == "" {
		return &ValidationError{Field: "database.path", Reason: "required when database.enabled is true"}
	}
	return nil
}

// Port 0 asks the OS for a free port.
func validPort(field string, port int) error {
	if port < 0 || port > 65535 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%d is out of range 0-65535", port)}
	}
	return nil
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) WebSocketAddr() string {
	return fmt.Sprintf("%s:%d", c.WebSocket.Host, c.WebSocket.Port)
}

func (c *Config) ManagementAddr() string {
	return fmt.Sprintf("%s:%d", c.Management.Host, c.Management.Port)
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
