// Package token issues and verifies the signed pickup payloads that staff
// scan to release an order. A payload is three pipe-delimited fields:
//
//	orderID|secret|hmac_sha256_hex
//
// where secret is a per-order random value stored on the order row and the
// signature covers "orderID|secret" under a server-held key.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
)

const (
	// secretBytes is the entropy of a pickup secret (256 bits).
	secretBytes = 32

	delimiter = "|"
)

// ErrMissingSigningKey is returned by New when the server key is absent. It
// is a startup-time fatal condition for any code path that issues or
// verifies tokens.
var ErrMissingSigningKey = errors.New("pickup signing key is not configured")

// Signer issues and verifies pickup payloads. It is pure given its inputs
// and the server key.
type Signer struct {
	key []byte
}

// New creates a Signer. An empty key is a configuration error, never a
// per-request soft failure.
func New(signingKey string) (*Signer, error) {
	if signingKey == "" {
		return nil, ErrMissingSigningKey
	}
	return &Signer{key: []byte(signingKey)}, nil
}

// GenerateSecret returns a fresh 256-bit random secret as a 64-character hex
// string. Called exactly once per order, before the row is committed.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Sign computes the hex HMAC-SHA256 over "orderID|secret".
func (s *Signer) Sign(orderID, secret string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(orderID + delimiter + secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildPayload returns the full scannable payload for an order.
func (s *Signer) BuildPayload(orderID, secret string) string {
	return orderID + delimiter + secret + delimiter + s.Sign(orderID, secret)
}

// Parse splits a scanned payload into its three parts. A part count other
// than three fails with ErrMalformedPayload before any signature work.
func Parse(payload string) (orderID, secret, signature string, err error) {
	parts := strings.Split(payload, delimiter)
	if len(parts) != 3 {
		return "", "", "", apperrors.ErrMalformedPayload
	}
	if parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", apperrors.ErrMalformedPayload
	}
	return parts[0], parts[1], parts[2], nil
}

// Verify recomputes the signature and compares it in constant time.
func (s *Signer) Verify(orderID, secret, signature string) error {
	expected := s.Sign(orderID, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperrors.ErrInvalidSignature
	}
	return nil
}
