// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const saltLength = 16

var ErrCorruptHash = errors.New("corrupt password hash")

// argonParams are the cost settings stored in the PHC string next to the
// salt, so older hashes stay verifiable after the defaults change.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

// Upper bounds for parameters read back from storage. argon2.IDKey panics
// on zero time or threads and allocates memory KiB up front.
const (
	maxMemoryKiB = 1 << 20
	maxTime      = 16
)

func (p argonParams) check() error {
	switch {
	case p.threads == 0:
		return errors.New("parallelism must be at least 1")
	case p.time == 0 || p.time > maxTime:
		return fmt.Errorf("time cost %d out of range", p.time)
	case p.memory < 8*uint32(p.threads) || p.memory > maxMemoryKiB:
		return fmt.Errorf("memory cost %d out of range", p.memory)
	}
	return nil
}

var currentParams = argonParams{
	memory:  64 * 1024,
	time:    1,
	threads: 4,
	keyLen:  32,
}

func (p argonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

type phcHash struct {
	params argonParams
	salt   []byte
	key    []byte
}

func (h phcHash) String() string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.memory,
		h.params.time,
		h.params.threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

// HashPassword returns an argon2id PHC string. The plaintext is never part
// of the output.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	h := phcHash{
		params: currentParams,
		salt:   salt,
		key:    currentParams.derive(password, salt),
	}
	return h.String(), nil
}

// VerifyPassword reports whether password matches encoded. An unparseable
// encoded value yields ErrCorruptHash rather than a plain mismatch.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parseHash(encoded)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrCorruptHash, err)
	}

	candidate := h.params.derive(password, h.salt)
	return subtle.ConstantTimeCompare(h.key, candidate) == 1, nil
}

// VerifyPasswordWithRehash also returns a fresh hash when encoded was made
// with outdated parameters. newHash is empty when no upgrade is due.
func VerifyPasswordWithRehash(password, encoded string) (ok bool, newHash string, err error) {
	ok, err = VerifyPassword(password, encoded)
	if err != nil || !ok {
		return false, "", err
	}

	if !needsRehash(encoded) {
		return true, "", nil
	}

	newHash, hashErr := HashPassword(password)
	if hashErr != nil {
		//nolint:nilerr // the password matched; the upgrade is retried next login
		return true, "", nil
	}
	return true, newHash, nil
}

var dummyHash = sync.OnceValue(func() string {
	h, err := HashPassword("timing-equaliser")
	if err != nil {
		panic(fmt.Sprintf("security: dummy hash: %v", err))
	}
	return h
})

// VerifyPasswordTimingSafe burns the same argon2 work whether or not a
// stored hash exists, so unknown usernames cost as much as wrong passwords.
func VerifyPasswordTimingSafe(password string, encoded *string) (bool, string, error) {
	if encoded == nil || *encoded == "" {
		//nolint:errcheck // result discarded, only the work matters
		_, _ = VerifyPassword(password, dummyHash())
		return false, "", nil
	}

	return VerifyPasswordWithRehash(password, *encoded)
}

func parseHash(encoded string) (phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return phcHash{}, errors.New("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return phcHash{}, fmt.Errorf("unsupported algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return phcHash{}, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return phcHash{}, fmt.Errorf("incompatible version %d", version)
	}

	var h phcHash
	if _, err := fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&h.params.memory,
		&h.params.time,
		&h.params.threads,
	); err != nil {
		return phcHash{}, fmt.Errorf("invalid params: %w", err)
	}
	if err := h.params.check(); err != nil {
		return phcHash{}, err
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return phcHash{}, fmt.Errorf("decode salt: %w", err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return phcHash{}, fmt.Errorf("decode key: %w", err)
	}
	if len(h.key) == 0 {
		return phcHash{}, errors.New("empty key")
	}

	//nolint:gosec // G115: argon2id keys are 32 bytes
	h.params.keyLen = uint32(len(h.key))

	return h, nil
}

func needsRehash(encoded string) bool {
	h, err := parseHash(encoded)
	if err != nil {
		return true
	}
	return h.params != currentParams
}

// GenerateSecureToken returns length random bytes as unpadded URL-safe
// base64.
func GenerateSecureToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
