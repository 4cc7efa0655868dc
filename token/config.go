package token

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines supported JWT signing algorithms.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// Config configures the token service. The secret key and algorithm are
// process-wide: rotating the key invalidates every previously issued token.
type Config struct {
	// Secret is the HMAC signing key. Required, no default.
	Secret string `mapstructure:"secret"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `mapstructure:"method"`

	// AccessTokenTTL is the lifetime of access tokens (default: 30m).
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`

	// RefreshTokenTTL is the lifetime of refresh tokens (default: 168h).
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 30 * time.Minute
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = 7 * 24 * time.Hour
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	switch c.Method {
	case HS256, HS384, HS512:
	default:
		return fmt.Errorf("token: unsupported signing method: %s", c.Method)
	}
	if c.Secret == "" {
		return errors.New("token: secret is required")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("token: access_token_ttl must be positive")
	}
	if c.RefreshTokenTTL <= 0 {
		return errors.New("token: refresh_token_ttl must be positive")
	}
	return nil
}

// signingMethod returns the golang-jwt SigningMethod instance.
func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return gojwt.SigningMethodHS256
	}
}
