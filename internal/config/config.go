package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Logger        Logger        `yaml:"logger"`
	Storage       Storage       `yaml:"storage"`
	Redis         Redis         `yaml:"redis"`
	Auth          Auth          `yaml:"auth"`
	Listen        string        `yaml:"listen"`
	Admin         Admin         `yaml:"admin"`
	CORS          CORS          `yaml:"cors"`
	Ranking       Ranking       `yaml:"ranking"`
	Participation Participation `yaml:"participation"`
}

type Logger struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Storage selects the database backend. Driver is either "sqlite" or "postgres".
type Storage struct {
	Driver   string `yaml:"driver"`
	Database string `yaml:"database"`
}

// Redis is optional; an empty Addr disables the ranking cache.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Auth struct {
	JWT JWT `yaml:"jwt"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type Admin struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type Ranking struct {
	// Timezone is used to place contests on calendar days.
	Timezone string        `yaml:"timezone"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type Participation struct {
	Retry Retry `yaml:"retry"`
}

// Retry tunes the virtual participation allocation loop.
// MaxAttempts == 0 means the loop only stops on success or cancellation.
type Retry struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MaxAttempts     uint64        `yaml:"max_attempts"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "data/csrank.db"
	}
	if c.Ranking.Timezone == "" {
		c.Ranking.Timezone = "UTC"
	}
	if c.Ranking.CacheTTL == 0 {
		c.Ranking.CacheTTL = 30 * time.Second
	}
	if c.Participation.Retry.InitialInterval == 0 {
		c.Participation.Retry.InitialInterval = 10 * time.Millisecond
	}
	if c.Participation.Retry.MaxInterval == 0 {
		c.Participation.Retry.MaxInterval = time.Second
	}
	if c.Auth.JWT.ExpireHours == 0 {
		c.Auth.JWT.ExpireHours = 24
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if _, err := time.LoadLocation(c.Ranking.Timezone); err != nil {
		return fmt.Errorf("invalid ranking timezone %q: %w", c.Ranking.Timezone, err)
	}
	if c.Participation.Retry.MaxInterval < c.Participation.Retry.InitialInterval {
		return fmt.Errorf("participation.retry.max_interval must not be below initial_interval")
	}
	return nil
}

// Location returns the configured ranking timezone. Validate has already
// checked that it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ranking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
