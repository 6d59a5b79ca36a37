package token

import (
	"errors"
	"strings"
	"testing"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
)

func TestNew_MissingKey(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("New(\"\") error = %v, want ErrMissingSigningKey", err)
	}
}

func TestGenerateSecret(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		secret, err := GenerateSecret()
		if err != nil {
			t.Fatalf("GenerateSecret() error = %v", err)
		}
		if len(secret) != 64 {
			t.Fatalf("secret length = %d, want 64", len(secret))
		}
		if seen[secret] {
			t.Fatalf("duplicate secret generated: %s", secret)
		}
		seen[secret] = true
	}
}

func TestRoundTrip(t *testing.T) {
	s, err := New("test-signing-key")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}

	payload := s.BuildPayload("ord-123", secret)

	orderID, parsedSecret, sig, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if orderID != "ord-123" || parsedSecret != secret {
		t.Fatalf("Parse() = (%s, %s), want (ord-123, %s)", orderID, parsedSecret, secret)
	}

	if err := s.Verify(orderID, parsedSecret, sig); err != nil {
		t.Fatalf("Verify() error = %v, want nil", err)
	}
}

func TestVerify_TamperedFields(t *testing.T) {
	s, _ := New("test-signing-key")
	secret := strings.Repeat("ab", 32)
	sig := s.Sign("ord-123", secret)

	flip := func(v string) string {
		b := []byte(v)
		if b[0] == 'x' {
			b[0] = 'y'
		} else {
			b[0] = 'x'
		}
		return string(b)
	}

	tests := []struct {
		name                       string
		orderID, secret, signature string
	}{
		{"tampered order id", flip("ord-123"), secret, sig},
		{"tampered secret", "ord-123", flip(secret), sig},
		{"tampered signature", "ord-123", secret, flip(sig)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Verify(tt.orderID, tt.secret, tt.signature); !errors.Is(err, apperrors.ErrInvalidSignature) {
				t.Errorf("Verify() error = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestVerify_DifferentKeys(t *testing.T) {
	s1, _ := New("key-one")
	s2, _ := New("key-two")

	sig := s1.Sign("ord-123", "secret")
	if err := s2.Verify("ord-123", "secret", sig); !errors.Is(err, apperrors.ErrInvalidSignature) {
		t.Fatalf("Verify() with different key error = %v, want ErrInvalidSignature", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"one part", "ord-123"},
		{"two parts", "ord-123|secret"},
		{"four parts", "ord-123|secret|sig|extra"},
		{"empty segment", "ord-123||sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := Parse(tt.payload); !errors.Is(err, apperrors.ErrMalformedPayload) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedPayload", tt.payload, err)
			}
		})
	}
}
