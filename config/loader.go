package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoaderOptions control where the loader looks for files. Zero values mean
// "search the standard locations".
type LoaderOptions struct {
	// ConfigFile is an explicit YAML config path.
	ConfigFile string
	// EnvFile is an explicit .env path.
	EnvFile string
}

// Load reads configuration in precedence order: defaults, then the YAML
// config file, then the .env file, then AUTHD_* environment variables.
// The result is defaulted and validated.
func Load(opts LoaderOptions) (*Config, error) {
	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = findFile([]string{
			"./config.yml",
			"./config/config.yml",
			"./cmd/authd/config.yml",
		})
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = findFile([]string{".env", "./cmd/authd/.env"})
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("AUTHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	// AutomaticEnv only resolves keys viper has seen; bind the ones that
	// commonly arrive via environment only.
	for _, key := range []string{
		"base.environment",
		"server.host",
		"server.port",
		"database.driver",
		"database.dsn",
		"token.secret",
		"token.access_token_ttl",
		"token.refresh_token_ttl",
		"logging.level",
		"logging.format",
		"tracing.enabled",
		"tracing.endpoint",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// findFile returns the first path that exists, or "".
func findFile(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
