// Package auth issues and verifies API keys. A key has the form
// "<prefix>.<secret>"; only the prefix and a bcrypt hash of the secret are stored.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrMalformedKey is returned for keys without a prefix and secret.
var ErrMalformedKey = errors.New("malformed api key")

const (
	prefixBytes = 6
	secretBytes = 24
)

// GenerateAPIKey returns a new key and its lookup prefix.
func GenerateAPIKey() (key, prefix string, err error) {
	p := make([]byte, prefixBytes)
	s := make([]byte, secretBytes)
	if _, err := rand.Read(p); err != nil {
		return "", "", err
	}
	if _, err := rand.Read(s); err != nil {
		return "", "", err
	}
	prefix = hex.EncodeToString(p)
	return prefix + "." + hex.EncodeToString(s), prefix, nil
}

// SplitAPIKey separates a key into its prefix and secret.
func SplitAPIKey(key string) (prefix, secret string, err error) {
	prefix, secret, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || prefix == "" || secret == "" {
		return "", "", ErrMalformedKey
	}
	return prefix, secret, nil
}

// HashSecret generates a bcrypt hash of an API key secret.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret compares a plaintext secret with a stored bcrypt hash.
func CheckSecret(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

// KeyStore persists issued keys.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, userID int64, prefix, keyHash string) error
}

// IssueAPIKey creates and stores a new key for userID. The plaintext key is
// only ever returned here.
func IssueAPIKey(ctx context.Context, ks KeyStore, userID int64) (string, error) {
	key, prefix, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}
	_, secret, err := SplitAPIKey(key)
	if err != nil {
		return "", err
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return "", err
	}
	if err := ks.CreateAPIKey(ctx, userID, prefix, hash); err != nil {
		return "", err
	}
	return key, nil
}
