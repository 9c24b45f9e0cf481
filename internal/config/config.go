// Package config provides engine configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds command-engine configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"command-engine"`

	// Subject overrides (empty = package defaults in commsutil)
	CommandSubject    string `envconfig:"COMMAND_SUBJECT"`
	ErrorEventSubject string `envconfig:"ERROR_EVENT_SUBJECT"`

	// DispatchTimeout bounds the per-message context handed to Dispatch.
	// Cancellation is cooperative; handlers that ignore it still block.
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"10s"`

	// Audit sink. Empty DATABASE_URL or AUDIT_ENABLED=false disables it;
	// the engine itself never persists dispatch state.
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	AuditEnabled  bool   `envconfig:"AUDIT_ENABLED" default:"true"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP introspection endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// AuditConfigured reports whether the audit sink should be wired.
func (c *Config) AuditConfigured() bool {
	return c.AuditEnabled && c.DatabaseURL != ""
}

// ValidateForServe checks required config when running the engine.
func (c *Config) ValidateForServe() error {
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("%s - DISPATCH_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands
// (migrate, clear, ensure-db).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
