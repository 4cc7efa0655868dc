package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
base:
  name: authd
  environment: production
server:
  port: 9090
database:
  driver: sqlite
  dsn: ":memory:"
token:
  secret: file-secret
  access_token_ttl: 15m
`)

	cfg, err := Load(LoaderOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Base.Environment != "production" {
		t.Errorf("expected production environment, got %q", cfg.Base.Environment)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Token.Secret != "file-secret" {
		t.Errorf("expected file secret, got %q", cfg.Token.Secret)
	}
	if cfg.Token.AccessTokenTTL != 15*time.Minute {
		t.Errorf("expected 15m access TTL, got %s", cfg.Token.AccessTokenTTL)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  driver: sqlite
  dsn: ":memory:"
token:
  secret: minimal-secret
`)

	cfg, err := Load(LoaderOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Token.AccessTokenTTL != 30*time.Minute {
		t.Errorf("expected default 30m access TTL, got %s", cfg.Token.AccessTokenTTL)
	}
	if cfg.Token.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("expected default 168h refresh TTL, got %s", cfg.Token.RefreshTokenTTL)
	}
	if cfg.Logging.Level == "" {
		t.Error("expected a default logging level")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
database:
  driver: sqlite
  dsn: ":memory:"
token:
  secret: file-secret
`)

	t.Setenv("AUTHD_TOKEN_SECRET", "env-secret")
	t.Setenv("AUTHD_SERVER_PORT", "7070")

	cfg, err := Load(LoaderOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Token.Secret != "env-secret" {
		t.Errorf("env secret should override file, got %q", cfg.Token.Secret)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("env port should override default, got %d", cfg.Server.Port)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	path := writeConfigFile(t, `
database:
  driver: sqlite
  dsn: ":memory:"
`)

	if _, err := Load(LoaderOptions{ConfigFile: path}); err == nil {
		t.Fatal("expected an error for missing token secret")
	}
}
