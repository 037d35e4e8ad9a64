package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/store/redis"
)

// Config holds all aigov configuration.
type Config struct {
	Listen     string           `yaml:"listen"`
	LogLevel   string           `yaml:"log_level"`
	Store      StoreConfig      `yaml:"store"`
	Policy     PolicyConfig     `yaml:"policy"`
	Governance GovernanceConfig `yaml:"governance"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// StoreConfig selects and configures the ledger backend.
// Driver is "sqlite" (default), "redis" or "memory".
type StoreConfig struct {
	Driver          string       `yaml:"driver"`
	Path            string       `yaml:"path"`
	RetentionDays   int          `yaml:"retention_days"`
	MaxInteractions int          `yaml:"max_interactions"`
	Redis           redis.Config `yaml:"redis"`
}

// PolicyConfig points at the plan/pricing table file. An empty path uses the
// built-in defaults.
type PolicyConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// GovernanceConfig controls engine behaviour.
type GovernanceConfig struct {
	StrictReservations bool            `yaml:"strict_reservations"`
	ReservationTTL     time.Duration   `yaml:"reservation_ttl"`
	DefaultPlan        models.PlanTier `yaml:"default_plan"`
	MaxRetries         int             `yaml:"max_retries"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		Store: StoreConfig{
			Driver:        DriverSQLite,
			Path:          "aigov.db",
			RetentionDays: 90,
			Redis: redis.Config{
				Addr:      "localhost:6379",
				KeyPrefix: "aigov:",
			},
		},
		Governance: GovernanceConfig{
			ReservationTTL: 10 * time.Minute,
			DefaultPlan:    models.PlanFree,
			MaxRetries:     5,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		return fmt.Errorf("config: store.path is required for sqlite")
	}
	if c.Store.Driver == DriverRedis && c.Store.Redis.Addr == "" {
		return fmt.Errorf("config: store.redis.addr is required for redis")
	}
	if c.Governance.DefaultPlan != "" && !c.Governance.DefaultPlan.Valid() {
		return fmt.Errorf("config: unknown default plan %q", c.Governance.DefaultPlan)
	}
	if c.Governance.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must not be negative")
	}
	return nil
}

// Retention returns the interaction retention as a duration, zero meaning
// keep forever.
func (s StoreConfig) Retention() time.Duration {
	if s.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}
