// ABOUTME: Unit tests for the token codec
// ABOUTME: Covers round-trips, tampered signatures, expiry, and malformed input

package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New([]byte("test-secret-key-for-signing"), time.Hour)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	tok, err := codec.Issue("user1", "admin", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := codec.Verify(tok)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "user1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "user1")
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want %q", claims.Role, "admin")
	}
	if remaining := time.Until(claims.ExpiresAt); remaining < 55*time.Minute || remaining > time.Hour {
		t.Errorf("ExpiresAt %v not within expected window", claims.ExpiresAt)
	}
}

func TestCodec_IssueDefault(t *testing.T) {
	codec := newTestCodec(t)

	tok, err := codec.IssueDefault("user2", "user")
	if err != nil {
		t.Fatalf("IssueDefault() error = %v", err)
	}

	claims, err := codec.Verify(tok)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "user2" || claims.Role != "user" {
		t.Errorf("claims = %+v, want user2/user", claims)
	}
}

func TestCodec_Expired(t *testing.T) {
	codec := newTestCodec(t)

	tok, err := codec.Issue("user1", "user", -time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = codec.Verify(tok)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("Verify() error = %v, want ErrExpired", err)
	}
}

func TestCodec_TamperedSignature(t *testing.T) {
	codec := newTestCodec(t)

	tok, err := codec.Issue("user1", "user", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Flip a character in the signature segment.
	i := strings.LastIndex(tok, ".") + 1
	sig := []byte(tok[i:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := tok[:i] + string(sig)

	claims, err := codec.Verify(tampered)
	if claims != nil {
		t.Fatal("Verify() returned claims for a tampered token")
	}
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("Verify() error = %v, want ErrBadSignature", err)
	}
}

func TestCodec_WrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := New([]byte("a-completely-different-secret"), time.Hour)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tok, err := other.Issue("user1", "user", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = codec.Verify(tok)
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("Verify() error = %v, want ErrBadSignature", err)
	}
}

func TestCodec_Malformed(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "two segments", token: "abc.def"},
		{name: "non-base64 segments", token: "!!.!!.!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Verify(%q) error = %v, want ErrMalformed", tt.token, err)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, time.Hour); err == nil {
		t.Error("New() with empty secret should fail")
	}
	if _, err := New([]byte("secret"), 0); err == nil {
		t.Error("New() with zero ttl should fail")
	}
}
