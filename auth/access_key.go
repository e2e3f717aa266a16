package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"mailbox/errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Access keys are stored as a salted, keyed BLAKE2b-256 digest.
const (
	Algorithm    = "blake2b-256"
	MinKeyLength = 24
	SaltLength   = 16
)

// HashAccessKey derives the encoded digest stored in ACCESS_KEY_HASH.
func HashAccessKey(key string) (string, error) {
	if len(key) < MinKeyLength {
		return "", fmt.Errorf("%w: at least %d characters", errors.ErrWeakAccessKey, MinKeyLength)
	}
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	digest, err := keyedDigest(salt, key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("$%s$%s$%s", Algorithm,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest)), nil
}

// EncodedHash is a parsed access key digest, checked once at startup.
type EncodedHash struct {
	salt   []byte
	digest []byte
}

func ParseAccessKeyHash(encoded string) (EncodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != "" || parts[1] != Algorithm {
		return EncodedHash{}, errors.ErrInvalidAccessKeyHashFormat
	}

	var parsed EncodedHash
	var err error
	if parsed.salt, err = base64.RawStdEncoding.DecodeString(parts[2]); err != nil {
		return EncodedHash{}, fmt.Errorf("%w: salt: %v", errors.ErrInvalidAccessKeyHashFormat, err)
	}
	if len(parsed.salt) == 0 || len(parsed.salt) > blake2b.Size {
		return EncodedHash{}, fmt.Errorf("%w: salt length", errors.ErrInvalidAccessKeyHashFormat)
	}
	if parsed.digest, err = base64.RawStdEncoding.DecodeString(parts[3]); err != nil {
		return EncodedHash{}, fmt.Errorf("%w: digest: %v", errors.ErrInvalidAccessKeyHashFormat, err)
	}
	if len(parsed.digest) != blake2b.Size256 {
		return EncodedHash{}, fmt.Errorf("%w: digest length", errors.ErrInvalidAccessKeyHashFormat)
	}
	return parsed, nil
}

// Matches digests the presented key with the stored salt and compares in constant time.
func (h EncodedHash) Matches(key string) bool {
	if key == "" {
		return false
	}
	candidate, err := keyedDigest(h.salt, key)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(h.digest, candidate) == 1
}

// CompareAccessKey parses the encoded hash and checks the key against it.
func CompareAccessKey(key, encoded string) (bool, error) {
	parsed, err := ParseAccessKeyHash(encoded)
	if err != nil {
		return false, err
	}
	return parsed.Matches(key), nil
}

func keyedDigest(salt []byte, key string) ([]byte, error) {
	mac, err := blake2b.New256(salt)
	if err != nil {
		return nil, err
	}
	mac.Write([]byte(key))
	return mac.Sum(nil), nil
}
