// Package config loads and validates the service configuration from a YAML
// file, a .env file, and AUTHD_* environment variables.
package config

import (
	"fmt"

	"github.com/greenfield-shield/authd/logger"
	"github.com/greenfield-shield/authd/observability"
	"github.com/greenfield-shield/authd/password"
	"github.com/greenfield-shield/authd/server"
	"github.com/greenfield-shield/authd/store"
	"github.com/greenfield-shield/authd/token"
)

// BaseConfig contains essential fields every service needs.
type BaseConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
}

// ApplyDefaults applies default values to base configuration.
func (c *BaseConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "authd"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Version == "" {
		c.Version = "dev"
	}
}

// Validate validates base configuration.
func (c *BaseConfig) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	for _, v := range validEnvs {
		if c.Environment == v {
			return nil
		}
	}
	return fmt.Errorf("base.environment must be one of %v (got: %s)", validEnvs, c.Environment)
}

// Config is the full service configuration.
type Config struct {
	Base     BaseConfig           `mapstructure:"base"`
	Server   server.Config        `mapstructure:"server"`
	Database store.Config         `mapstructure:"database"`
	Token    token.Config         `mapstructure:"token"`
	Hasher   password.Config      `mapstructure:"hasher"`
	Logging  logger.Config        `mapstructure:"logging"`
	Tracing  observability.Config `mapstructure:"tracing"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.Base.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Token.ApplyDefaults()
	c.Hasher.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Tracing.ApplyDefaults(c.Base.Name)
}

// Validate validates every section. The token secret is required: there is
// no default signing key.
func (c *Config) Validate() error {
	if err := c.Base.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Token.Validate(); err != nil {
		return err
	}
	if err := c.Hasher.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
