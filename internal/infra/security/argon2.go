package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2Variant = "argon2id"
	argon2Version = "v=19"
)

var (
	// ErrInvalidHash indicates a stored hash is neither a parseable argon2id nor bcrypt encoding.
	ErrInvalidHash   = errors.New("argon2: invalid encoded hash format")
	errInvalidConfig = errors.New("argon2: invalid configuration")
)

// Argon2Config defines tunable parameters for Argon2id password hashing.
type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config returns 64 MiB, 3 passes, 4 lanes, 16-byte salt, 32-byte key.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Argon2Config) validate() error {
	switch {
	case c.Memory < 8*1024:
		return fmt.Errorf("%w: memory must be at least 8192", errInvalidConfig)
	case c.Iterations == 0:
		return fmt.Errorf("%w: iterations must be greater than zero", errInvalidConfig)
	case c.Parallelism == 0:
		return fmt.Errorf("%w: parallelism must be greater than zero", errInvalidConfig)
	case c.SaltLength < 8:
		return fmt.Errorf("%w: salt length must be at least 8 bytes", errInvalidConfig)
	case c.KeyLength < 16:
		return fmt.Errorf("%w: key length must be at least 16 bytes", errInvalidConfig)
	}
	return nil
}

// PasswordHasher produces and checks self-describing argon2id hashes.
// Verification always uses the parameters embedded in the stored hash.
type PasswordHasher struct {
	cfg Argon2Config
}

func NewPasswordHasher(cfg Argon2Config) (*PasswordHasher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &PasswordHasher{cfg: cfg}, nil
}

// Hash returns argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<key>.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.cfg.Iterations, h.cfg.Memory, h.cfg.Parallelism, h.cfg.KeyLength)

	return strings.Join([]string{
		argon2Variant,
		argon2Version,
		fmt.Sprintf("m=%d,t=%d,p=%d", h.cfg.Memory, h.cfg.Iterations, h.cfg.Parallelism),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, "$"), nil
}

// Verify reports whether password matches encoded using a constant-time comparison.
// bcrypt hashes written by earlier deployments are accepted as well.
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	if encoded == "" {
		return false, ErrInvalidHash
	}
	if IsBcryptHash(encoded) {
		return verifyBcrypt(password, encoded)
	}

	params, salt, expected, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// NeedsRehash reports whether encoded should be replaced by a fresh Hash: it is a
// bcrypt hash or an argon2id hash with parameters other than the configured ones.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	if IsBcryptHash(encoded) {
		return true
	}
	params, _, _, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	return params.Memory != h.cfg.Memory || params.Iterations != h.cfg.Iterations || params.Parallelism != h.cfg.Parallelism
}

// IsBcryptHash reports whether encoded carries a bcrypt prefix.
func IsBcryptHash(encoded string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, prefix) {
			return true
		}
	}
	return false
}

func verifyBcrypt(password, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: bcrypt: %v", ErrInvalidHash, err)
	}
}

func decodeHash(encoded string) (Argon2Config, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return Argon2Config{}, nil, nil, ErrInvalidHash
	}
	if parts[0] != argon2Variant {
		return Argon2Config{}, nil, nil, fmt.Errorf("%w: unexpected variant %q", ErrInvalidHash, parts[0])
	}
	if parts[1] != argon2Version {
		return Argon2Config{}, nil, nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[1])
	}

	cfg, err := parseParams(parts[2])
	if err != nil {
		return Argon2Config{}, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return Argon2Config{}, nil, nil, fmt.Errorf("%w: decode salt: %v", ErrInvalidHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Config{}, nil, nil, fmt.Errorf("%w: decode key: %v", ErrInvalidHash, err)
	}

	cfg.SaltLength = uint32(len(salt))
	cfg.KeyLength = uint32(len(key))
	if err := cfg.validate(); err != nil {
		return Argon2Config{}, nil, nil, err
	}
	return cfg, salt, key, nil
}

func parseParams(segment string) (Argon2Config, error) {
	var cfg Argon2Config
	seen := 0
	for _, entry := range strings.Split(segment, ",") {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return Argon2Config{}, ErrInvalidHash
		}

		var bits int
		switch key {
		case "m", "t":
			bits = 32
		case "p":
			bits = 8
		default:
			return Argon2Config{}, fmt.Errorf("%w: unknown parameter %q", ErrInvalidHash, key)
		}

		n, err := strconv.ParseUint(value, 10, bits)
		if err != nil {
			return Argon2Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidHash, key, err)
		}
		switch key {
		case "m":
			cfg.Memory = uint32(n)
		case "t":
			cfg.Iterations = uint32(n)
		case "p":
			cfg.Parallelism = uint8(n)
		}
		seen++
	}
	if seen != 3 {
		return Argon2Config{}, ErrInvalidHash
	}
	return cfg, nil
}
