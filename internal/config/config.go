package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config path is given; it may be absent.
const DefaultFile = "spyagency.yml"

// EnvPrefix namespaces environment overrides, e.g. SPYAGENCY_DATABASE_DSN.
const EnvPrefix = "SPYAGENCY"

const DefaultCatAPIURL = "https://api.thecatapi.com/v1/breeds"

// Config models spyagency.yml. Precedence: defaults < file < environment.
type Config struct {
	Server   Server   `mapstructure:"server" yaml:"server"`
	Database Database `mapstructure:"database" yaml:"database"`
	Breeds   Breeds   `mapstructure:"breeds" yaml:"breeds"`
	Logging  Logging  `mapstructure:"logging" yaml:"logging"`
}

type Server struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type Database struct {
	Driver       string `mapstructure:"driver" yaml:"driver"` // sqlite | postgres
	DSN          string `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
}

type Breeds struct {
	URL             string        `mapstructure:"url" yaml:"url"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	BreakerFailures int           `mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout" yaml:"breaker_timeout"`
	// Static replaces the remote vocabulary when non-empty.
	Static []string `mapstructure:"static" yaml:"static,omitempty"`
}

type Logging struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"` // json | text
	Service string `mapstructure:"service" yaml:"service"`
}

// Default returns the configuration used for local development.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:              "127.0.0.1:8000",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Database: Database{
			Driver:       "sqlite",
			DSN:          "spyagency.db",
			MaxOpenConns: 10,
		},
		Breeds: Breeds{
			URL:             DefaultCatAPIURL,
			Timeout:         10 * time.Second,
			CacheTTL:        time.Hour,
			BreakerFailures: 3,
			BreakerTimeout:  30 * time.Second,
		},
		Logging: Logging{
			Level:   "info",
			Format:  "json",
			Service: "spyagency",
		},
	}
}

// NewViper returns a viper instance seeded with defaults and env bindings.
// The CLI binds its flags onto the same instance.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("breeds.url", d.Breeds.URL)
	v.SetDefault("breeds.api_key", d.Breeds.APIKey)
	v.SetDefault("breeds.timeout", d.Breeds.Timeout)
	v.SetDefault("breeds.cache_ttl", d.Breeds.CacheTTL)
	v.SetDefault("breeds.breaker_failures", d.Breeds.BreakerFailures)
	v.SetDefault("breeds.breaker_timeout", d.Breeds.BreakerTimeout)
	v.SetDefault("breeds.static", []string{})
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.service", d.Logging.Service)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config from path (or DefaultFile when path is empty) on top of
// defaults, then applies environment overrides. A missing DefaultFile is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(NewViper(), path)
}

// LoadWith is Load on a caller-provided viper instance.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid config yaml: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Breeds.Static = compact(cfg.Breeds.Static)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config.database.driver must be 'sqlite' or 'postgres', got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config.database.dsn is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("config.database.max_open_conns must be >= 1")
	}
	if len(c.Breeds.Static) == 0 && c.Breeds.URL == "" {
		return fmt.Errorf("config.breeds.url is required unless breeds.static is set")
	}
	if c.Breeds.Timeout <= 0 {
		return fmt.Errorf("config.breeds.timeout must be positive")
	}
	if c.Breeds.BreakerFailures < 1 {
		return fmt.Errorf("config.breeds.breaker_failures must be >= 1")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("config.logging.format must be 'json' or 'text'")
	}
	return nil
}

// YAML renders the effective configuration, API key redacted.
func (c *Config) YAML() (string, error) {
	redacted := *c
	if redacted.Breeds.APIKey != "" {
		redacted.Breeds.APIKey = "***"
	}
	out, err := yaml.Marshal(redacted)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
