// Package password provides password hashing and verification with
// backward-compatible algorithm migration.
//
// New hashes are always argon2id, encoded in the self-describing PHC format.
// Verification inspects the stored hash's prefix to pick the algorithm:
// hashes in the bcrypt "$2..." family still verify, so credentials issued
// before the argon2id migration keep working. A legacy match is reported to
// the caller so the record can eventually be rehashed; this package never
// rehashes implicitly.
//
// Verify never returns an error for a mismatched password. Mismatch,
// malformed hashes, and unknown formats all yield false.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// format identifies the algorithm family a stored hash belongs to.
type format int

const (
	formatUnknown format = iota
	formatLegacy         // bcrypt, "$2a$"/"$2b$"/"$2y$" prefix
	formatCurrent        // argon2id PHC encoding
)

// classify inspects a stored hash's self-describing prefix.
func classify(hash string) format {
	switch {
	case strings.HasPrefix(hash, "$2"):
		return formatLegacy
	case strings.HasPrefix(hash, "$argon2id$"):
		return formatCurrent
	default:
		return formatUnknown
	}
}

// Hasher hashes and verifies passwords. New hashes always use argon2id;
// verification additionally accepts legacy bcrypt hashes.
// A Hasher is immutable after construction and safe for concurrent use.
type Hasher struct {
	time      uint32
	memory    uint32
	threads   uint8
	keyLen    uint32
	saltLen   uint32
	minLength int
}

// New creates a Hasher from configuration.
func New(cfg Config) *Hasher {
	cfg.ApplyDefaults()
	return &Hasher{
		time:      cfg.Argon2Time,
		memory:    cfg.Argon2Memory,
		threads:   cfg.Argon2Threads,
		keyLen:    32,
		saltLen:   16,
		minLength: cfg.MinLength,
	}
}

// Hash returns an argon2id PHC-encoded hash of the password.
// It never produces a legacy-format hash.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < h.minLength {
		return "", fmt.Errorf("password: minimum length is %d characters", h.minLength)
	}

	salt, err := generateRandomBytes(h.saltLen)
	if err != nil {
		return "", fmt.Errorf("password: generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)

	// Encode as: $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$HASH
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// Verify reports whether the password matches the stored hash.
// needsRehash is true when the match succeeded against a legacy-format
// hash; the caller should rehash the password under the current algorithm.
func (h *Hasher) Verify(password, encodedHash string) (match bool, needsRehash bool) {
	switch classify(encodedHash) {
	case formatLegacy:
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		return err == nil, err == nil
	case formatCurrent:
		return h.verifyArgon2(password, encodedHash), false
	default:
		return false, false
	}
}

// verifyArgon2 checks a password against an argon2id PHC hash. The stored
// parameters drive the comparison so hashes produced under older settings
// keep verifying.
func (h *Hasher) verifyArgon2(password, encodedHash string) bool {
	params, err := parseArgon2(encodedHash)
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), params.salt, params.time, params.memory, params.threads, uint32(len(params.hash)))

	return subtle.ConstantTimeCompare(hash, params.hash) == 1
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	hash    []byte
}

// parseArgon2 decodes a $argon2id$v=V$m=M,t=T,p=P$SALT$HASH string.
func parseArgon2(encodedHash string) (*argon2Params, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errors.New("password: invalid argon2id hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("password: parse argon2id version: %w", err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("password: unsupported argon2id version %d", version)
	}

	p := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, fmt.Errorf("password: parse argon2id params: %w", err)
	}

	var err error
	p.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("password: decode salt: %w", err)
	}
	p.hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("password: decode hash: %w", err)
	}
	if len(p.hash) == 0 {
		return nil, errors.New("password: empty hash")
	}
	return p, nil
}

// generateRandomBytes returns cryptographically secure random bytes.
func generateRandomBytes(n uint32) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
