// ABOUTME: Tests for the delegated verifier's two-path decision
// ABOUTME: Covers bearer extraction edge cases and path selection

package resource

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyward/keyward/internal/token"
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := token.New([]byte(testSecret), time.Hour)
	require.NoError(t, err)
	// Points at nothing; only reached on the credential path.
	client := NewAuthorityClient("https://127.0.0.1:1", true, logger)
	return NewVerifier(codec, client, logger)
}

func TestVerifier_TokenPathNoNetwork(t *testing.T) {
	v := newTestVerifier(t)

	tok := issueTestToken(t, "user1", "user", time.Hour)
	user, err := v.Authenticate(context.Background(), "Bearer "+tok, Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "user1", user)
}

func TestVerifier_EmptyBearerToken(t *testing.T) {
	v := newTestVerifier(t)

	_, err := v.Authenticate(context.Background(), "Bearer ", Credentials{})
	assert.ErrorIs(t, err, token.ErrMalformed)
}

func TestVerifier_NonBearerSchemeFallsBack(t *testing.T) {
	v := newTestVerifier(t)

	// A Basic header is not a bearer token; with no credentials either,
	// the request is simply unauthenticated.
	_, err := v.Authenticate(context.Background(), "Basic dXNlcjpwYXNz", Credentials{})
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
}

func TestVerifier_CredentialPathUnreachableAuthority(t *testing.T) {
	v := newTestVerifier(t)

	_, err := v.Authenticate(context.Background(), "", Credentials{Username: "user1", Password: "password1"})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.False(t, errors.Is(err, ErrAuthenticationFailed))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		token   string
		present bool
	}{
		{header: "", token: "", present: false},
		{header: "Bearer abc", token: "abc", present: true},
		{header: "Bearer ", token: "", present: true},
		{header: "bearer abc", token: "", present: false},
		{header: "Basic abc", token: "", present: false},
	}

	for _, tt := range tests {
		tok, ok := bearerToken(tt.header)
		assert.Equal(t, tt.present, ok, "header %q", tt.header)
		assert.Equal(t, tt.token, tok, "header %q", tt.header)
	}
}
