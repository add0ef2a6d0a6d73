package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix     = "MOVIEDB_"
	ConfigPathEnv = "MOVIEDB_CONFIG"
)

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Search   SearchConfig   `koanf:"search"`
	Stats    StatsConfig    `koanf:"stats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type DatabaseConfig struct {
	Path           string        `koanf:"path"`
	ReadPoolSize   int           `koanf:"read_pool_size"`
	AcquireTimeout time.Duration `koanf:"acquire_timeout"`
	BusyTimeout    time.Duration `koanf:"busy_timeout"`
	WriteAttempts  int           `koanf:"write_attempts"`
}

type ServerConfig struct {
	HTTPAddr string `koanf:"http_addr"`
	GRPCAddr string `koanf:"grpc_addr"`
	// EventsAddr enables the plain TCP event stream when set.
	EventsAddr string `koanf:"events_addr"`
}

type AuthConfig struct {
	TokenSecret       string        `koanf:"token_secret"`
	TokenIssuer       string        `koanf:"token_issuer"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	BcryptCost        int           `koanf:"bcrypt_cost"`
	BootstrapAdmin    string        `koanf:"bootstrap_admin"`
	BootstrapPassword string        `koanf:"bootstrap_password"`
}

type SearchConfig struct {
	// MaxResults caps search output; 0 means unbounded.
	MaxResults int `koanf:"max_results"`
}

type StatsConfig struct {
	TopUsers        int `koanf:"top_users"`
	TopProfitMovies int `koanf:"top_profit_movies"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return &Config{
		Database: DatabaseConfig{
			Path:           filepath.Join(home, ".moviedb", "data.db"),
			ReadPoolSize:   4,
			AcquireTimeout: 5 * time.Second,
			BusyTimeout:    2 * time.Second,
			WriteAttempts:  3,
		},
		Server: ServerConfig{
			HTTPAddr: ":8080",
			GRPCAddr: ":9090",
		},
		Auth: AuthConfig{
			// dev default (change for production)
			TokenSecret:    "dev-secret-change-me",
			TokenIssuer:    "moviedb",
			TokenTTL:       24 * time.Hour,
			BcryptCost:     10,
			BootstrapAdmin: "admin",
		},
		Search: SearchConfig{MaxResults: 100},
		Stats:  StatsConfig{TopUsers: 5, TopProfitMovies: 5},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig layers struct defaults, an optional YAML file and MOVIEDB_*
// environment variables, in that order.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps MOVIEDB_DATABASE_READ_POOL_SIZE to database.read_pool_size:
// the first segment names the section, the rest is the key.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.ReadPoolSize < 1 {
		return fmt.Errorf("database.read_pool_size must be >= 1")
	}
	if c.Database.AcquireTimeout <= 0 {
		return fmt.Errorf("database.acquire_timeout must be positive")
	}
	if c.Database.WriteAttempts < 1 {
		return fmt.Errorf("database.write_attempts must be >= 1")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth.token_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be within 4..31")
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be >= 0")
	}
	if c.Stats.TopUsers < 1 || c.Stats.TopProfitMovies < 1 {
		return fmt.Errorf("stats leaderboard sizes must be >= 1")
	}
	return nil
}
