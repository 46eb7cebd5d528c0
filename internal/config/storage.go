package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// StorageConfig selects where the product snapshot is persisted.
type StorageConfig struct {
	Driver       string         `koanf:"driver"`
	Key          string         `koanf:"key"`
	WriteTimeout time.Duration  `koanf:"writeTimeout"`
	Database     DatabaseConfig `koanf:"database"`
	Breaker      BreakerConfig  `koanf:"breaker"`
}

func (c *StorageConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("storage key is not configured")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("storage write timeout must be greater than 0")
	}
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
		return c.Breaker.Validate()
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Driver)
	}
}

type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if !isValidPostgresURL(c.URL) {
		return fmt.Errorf("database URL must start with 'postgres://': %s", maskURL(c.URL))
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database connect timeout must be greater than 0")
	}
	return nil
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}

// BreakerConfig configures the circuit breaker in front of the database.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutiveFailures"`
	OpenTimeout         time.Duration `koanf:"openTimeout"`
}

func (c *BreakerConfig) Validate() error {
	if c.ConsecutiveFailures == 0 {
		return fmt.Errorf("breaker.consecutiveFailures must be greater than 0")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("breaker.openTimeout must be greater than 0")
	}
	return nil
}
