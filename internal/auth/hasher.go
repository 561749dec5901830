// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters.
const (
	DefaultPBKDF2Iterations = 250_000
	pbkdf2SaltLen           = 16
	pbkdf2KeyLen            = 32

	// MaxPBKDF2Iterations bounds the work a stored hash can demand of Verify.
	MaxPBKDF2Iterations = 10_000_000
	maxPBKDF2KeyLen     = 1024

	hashPrefix = "pbkdf2$sha256$"
)

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a self-describing encoded hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches the encoded hash.
	// Malformed hashes never match.
	Verify(password, encoded string) bool

	// NeedsUpgrade reports whether the hash was produced with weaker
	// parameters than the hasher currently uses.
	NeedsUpgrade(encoded string) bool
}

// PBKDF2Hasher implements PasswordHasher using PBKDF2-HMAC-SHA256.
//
// Encoded form: pbkdf2$sha256$<iterations>$<salt>$<key>, with salt and key in
// unpadded URL-safe base64.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher creates a hasher producing hashes with the given iteration count.
func NewPBKDF2Hasher(iterations int) (*PBKDF2Hasher, error) {
	if iterations < 1 || iterations > MaxPBKDF2Iterations {
		return nil, oops.Code("AUTH_INVALID_ITERATIONS").
			With("iterations", iterations).
			Errorf("iterations must be between 1 and %d", MaxPBKDF2Iterations)
	}
	return &PBKDF2Hasher{iterations: iterations}, nil
}

// Iterations returns the iteration count used for new hashes.
func (h *PBKDF2Hasher) Iterations() int {
	return h.iterations
}

// Hash produces an encoded PBKDF2 hash with a fresh random salt.
func (h *PBKDF2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	key := pbkdf2.Key([]byte(password), salt, h.iterations, pbkdf2KeyLen, sha256.New)
	return encodePBKDF2(h.iterations, salt, key), nil
}

// Verify recomputes the key using the parameters embedded in encoded and
// compares in constant time.
func (h *PBKDF2Hasher) Verify(password, encoded string) bool {
	p, err := parsePBKDF2(encoded)
	if err != nil {
		return false
	}
	computed := pbkdf2.Key([]byte(password), p.salt, p.iterations, len(p.key), sha256.New)
	return subtle.ConstantTimeCompare(computed, p.key) == 1
}

// NeedsUpgrade reports whether encoded uses fewer iterations than h.
// Unparseable hashes are left alone; they can never verify.
func (h *PBKDF2Hasher) NeedsUpgrade(encoded string) bool {
	p, err := parsePBKDF2(encoded)
	if err != nil {
		return false
	}
	return p.iterations < h.iterations
}

// DummyPasswordHash returns a well-formed hash that no password verifies
// against, for spending the same effort on unknown accounts.
func DummyPasswordHash(iterations int) string {
	salt := make([]byte, pbkdf2SaltLen)
	key := make([]byte, pbkdf2KeyLen)
	for i := range key {
		key[i] = 0xff
	}
	return encodePBKDF2(iterations, salt, key)
}

type pbkdf2Params struct {
	iterations int
	salt       []byte
	key        []byte
}

func encodePBKDF2(iterations int, salt, key []byte) string {
	return hashPrefix + strconv.Itoa(iterations) + "$" +
		base64.RawURLEncoding.EncodeToString(salt) + "$" +
		base64.RawURLEncoding.EncodeToString(key)
}

func parsePBKDF2(encoded string) (pbkdf2Params, error) {
	var p pbkdf2Params
	if !strings.HasPrefix(encoded, hashPrefix) {
		return p, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash scheme")
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return p, oops.Code("AUTH_INVALID_HASH").Errorf("expected 5 segments, got %d", len(parts))
	}

	iterations, err := strconv.Atoi(parts[2])
	if err != nil {
		return p, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if iterations < 1 || iterations > MaxPBKDF2Iterations {
		return p, oops.Code("AUTH_INVALID_HASH").Errorf("iterations %d out of range", iterations)
	}

	salt, err := base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil {
		return p, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	key, err := base64.RawURLEncoding.DecodeString(parts[4])
	if err != nil {
		return p, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(key) == 0 || len(key) > maxPBKDF2KeyLen {
		return p, oops.Code("AUTH_INVALID_HASH").Errorf("invalid key length: %d", len(key))
	}

	p.iterations = iterations
	p.salt = salt
	p.key = key
	return p, nil
}
