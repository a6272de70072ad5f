// Package password implements password hashing and the directory's
// password-ageing and complexity policy.
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Scheme prefixes recognised on a stored password hash, RFC 3112 style.
const (
	SchemeBcrypt  = "{BCRYPT}"
	SchemeSSHA512 = "{SSHA512}"
	SchemeArgon2  = "{ARGON2}"
)

// argon2 tuning, deliberately modest since Bind is on the hot path for
// every connecting client and argon2 is CPU- and memory-hard by design.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

var (
	// ErrUnsupportedScheme is returned by Verify for a prefix it does not recognise.
	ErrUnsupportedScheme = errors.New("password: unsupported hash scheme")
	// ErrMismatch is returned by Verify when the password does not match.
	ErrMismatch = errors.New("password: mismatch")
)

// Hash produces a new stored hash for plaintext using the default scheme
// (bcrypt). Callers needing the legacy salted-SHA512 form for migrated
// records use HashSSHA512 directly.
func Hash(plaintext string) (string, error) {
	sum, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return SchemeBcrypt + string(sum), nil
}

// HashArgon2 produces a stored hash using Argon2id, the scheme new records
// from directories that opt into it use in place of bcrypt.
func HashArgon2(plaintext string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(plaintext), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	encoded := fmt.Sprintf("%d$%d$%d$%s$%s",
		argon2Time, argon2Memory, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum))
	return SchemeArgon2 + encoded, nil
}

// HashSSHA512 produces a salted-SHA512 hash, matching directories migrated
// from the original schema's storage convention.
func HashSSHA512(plaintext string, salt []byte) string {
	h := sha512.New()
	h.Write([]byte(plaintext))
	h.Write(salt)
	sum := h.Sum(nil)
	data := append(sum, salt...)
	return SchemeSSHA512 + base64.StdEncoding.EncodeToString(data)
}

// Verify checks plaintext against a stored hash, dispatching on its scheme
// prefix. An absent or unrecognised prefix is an unsupported scheme, never
// treated as cleartext.
func Verify(plaintext, stored string) error {
	switch {
	case strings.HasPrefix(stored, SchemeBcrypt):
		sum := stored[len(SchemeBcrypt):]
		if err := bcrypt.CompareHashAndPassword([]byte(sum), []byte(plaintext)); err != nil {
			return ErrMismatch
		}
		return nil

	case strings.HasPrefix(stored, SchemeSSHA512):
		return verifySSHA512(plaintext, stored[len(SchemeSSHA512):])

	case strings.HasPrefix(stored, SchemeArgon2):
		return verifyArgon2(plaintext, stored[len(SchemeArgon2):])

	default:
		return ErrUnsupportedScheme
	}
}

func verifyArgon2(plaintext, encoded string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return ErrMismatch
	}
	t, err1 := strconv.ParseUint(parts[0], 10, 32)
	m, err2 := strconv.ParseUint(parts[1], 10, 32)
	p, err3 := strconv.ParseUint(parts[2], 10, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return ErrMismatch
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return ErrMismatch
	}
	storedSum, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrMismatch
	}
	computed := argon2.IDKey([]byte(plaintext), salt, uint32(t), uint32(m), uint8(p), uint32(len(storedSum)))
	if subtle.ConstantTimeCompare(computed, storedSum) == 1 {
		return nil
	}
	return ErrMismatch
}

func verifySSHA512(plaintext, encoded string) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(data) <= sha512.Size {
		return ErrMismatch
	}
	storedSum, salt := data[:sha512.Size], data[sha512.Size:]

	h := sha512.New()
	h.Write([]byte(plaintext))
	h.Write(salt)
	computed := h.Sum(nil)

	if subtle.ConstantTimeCompare(computed, storedSum) == 1 {
		return nil
	}
	return ErrMismatch
}
