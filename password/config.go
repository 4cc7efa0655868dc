package password

import "fmt"

// Config configures password hashing behavior.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Argon2Time is the number of iterations for argon2id (default: 1).
	Argon2Time uint32 `mapstructure:"argon2_time"`

	// Argon2Memory is the memory usage in KiB for argon2id (default: 65536 = 64MB).
	Argon2Memory uint32 `mapstructure:"argon2_memory"`

	// Argon2Threads is the parallelism for argon2id (default: 4).
	Argon2Threads uint8 `mapstructure:"argon2_threads"`

	// MinLength is the minimum password length (default: 8).
	MinLength int `mapstructure:"min_length"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Argon2Time == 0 {
		c.Argon2Time = 1
	}
	if c.Argon2Memory == 0 {
		c.Argon2Memory = 64 * 1024
	}
	if c.Argon2Threads == 0 {
		c.Argon2Threads = 4
	}
	if c.MinLength == 0 {
		c.MinLength = 8
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Argon2Memory < 8*1024 {
		return fmt.Errorf("argon2_memory must be >= 8192 KiB (got: %d)", c.Argon2Memory)
	}
	if c.MinLength < 1 {
		return fmt.Errorf("min_length must be >= 1 (got: %d)", c.MinLength)
	}
	return nil
}
