// Package config holds the inventory service configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/inventory/internal/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer HTTPConfig       `koanf:"server"`
	GRPC       GrpcServerConfig `koanf:"grpc"`
	Log        LogConfig        `koanf:"log"`
	PProf      PProfConfig      `koanf:"pprof"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Shutdown   ShutdownConfig   `koanf:"shutdown"`
	Storage    StorageConfig    `koanf:"storage"`
	NATS       NATSConfig       `koanf:"nats"`
	Seed       SeedConfig       `koanf:"seed"`
}

// SeedConfig controls the sample data added to an empty inventory at startup.
type SeedConfig struct {
	Samples bool `koanf:"samples"`
}

// Defaults returns the values used for keys absent from every configuration source.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":               8080,
		"server.maxHeaderBytes":     1 << 20,
		"server.timeout.read":       "5s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "60s",
		"server.timeout.readHeader": "2s",

		"grpc.port":       "50051",
		"grpc.reflection": false,

		"log.level":        "info",
		"pprof.enabled":    false,
		"pprof.addr":       "localhost:6060",
		"metrics.enabled":  true,
		"metrics.path":     "/metrics",
		"shutdown.timeout": "10s",

		"storage.driver":                      DriverMemory,
		"storage.key":                         "inventory_products",
		"storage.writeTimeout":                "5s",
		"storage.database.timeout":            "10s",
		"storage.breaker.consecutiveFailures": 5,
		"storage.breaker.openTimeout":         "30s",

		"nats.enabled": false,
		"nats.timeout": "5s",
		"nats.stream":  "INVENTORY",

		"seed.samples": false,
	}
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))

	b.WriteString("\n--- gRPC Configuration ---\n")
	b.WriteString(fmt.Sprintf("  grpc.port: %s\n", c.GRPC.Port))
	b.WriteString(fmt.Sprintf("  grpc.reflection: %t\n", c.GRPC.ReflectionEnabled))

	b.WriteString("\n--- Storage Configuration ---\n")
	b.WriteString(fmt.Sprintf("  storage.driver: %s\n", c.Storage.Driver))
	b.WriteString(fmt.Sprintf("  storage.key: %s\n", c.Storage.Key))
	b.WriteString(fmt.Sprintf("  storage.writeTimeout: %s\n", c.Storage.WriteTimeout))
	if c.Storage.Driver == DriverPostgres {
		b.WriteString(fmt.Sprintf("  storage.database.url: %s\n", maskURL(c.Storage.Database.URL)))
		b.WriteString(fmt.Sprintf("  storage.database.timeout: %s\n", c.Storage.Database.Timeout))
		b.WriteString(fmt.Sprintf("  storage.breaker.consecutiveFailures: %d\n", c.Storage.Breaker.ConsecutiveFailures))
		b.WriteString(fmt.Sprintf("  storage.breaker.openTimeout: %s\n", c.Storage.Breaker.OpenTimeout))
	}

	b.WriteString("\n--- Messaging ---\n")
	b.WriteString(fmt.Sprintf("  nats.enabled: %t\n", c.NATS.Enabled))
	if c.NATS.Enabled {
		b.WriteString(fmt.Sprintf("  nats.url: %s\n", c.NATS.Url))
		b.WriteString(fmt.Sprintf("  nats.timeout: %s\n", c.NATS.Timeout))
		b.WriteString(fmt.Sprintf("  nats.stream: %s\n", c.NATS.Stream))
	}

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.addr: %s\n", c.PProf.Addr))
	b.WriteString(fmt.Sprintf("  metrics.enabled: %t\n", c.Metrics.Enabled))
	b.WriteString(fmt.Sprintf("  metrics.path: %s\n", c.Metrics.Path))

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))
	b.WriteString(fmt.Sprintf("  seed.samples: %t\n", c.Seed.Samples))

	return b.String()
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.HTTPServer,
		&c.GRPC,
		&c.Log,
		&c.PProf,
		&c.Metrics,
		&c.Shutdown,
		&c.Storage,
		&c.NATS,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
