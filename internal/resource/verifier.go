// ABOUTME: Delegated verifier deciding between local token verification
// ABOUTME: and forwarding raw credentials to the upstream authority

package resource

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/keyward/keyward/internal/token"
)

// ErrAuthenticationRequired is returned when a request carries neither a
// bearer token nor a credential pair.
var ErrAuthenticationRequired = errors.New("authentication required")

// Verifier is the resource service's authentication front door. A request
// carrying a bearer token is verified locally with the shared secret; one
// carrying raw credentials is forwarded to the authority. Exactly one path
// runs per request.
type Verifier struct {
	codec     *token.Codec
	authority *AuthorityClient
	logger    *slog.Logger
}

// NewVerifier creates a delegated verifier.
func NewVerifier(codec *token.Codec, authority *AuthorityClient, logger *slog.Logger) *Verifier {
	return &Verifier{
		codec:     codec,
		authority: authority,
		logger:    logger.With("component", "verifier"),
	}
}

// Credentials is a transient username/secret pair from a request body.
// It is never stored.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticate resolves a request to an authenticated username.
// authHeader is the raw Authorization header value; creds the decoded
// request body. Failure errors are token.ErrMalformed, token.ErrBadSignature,
// token.ErrExpired, ErrAuthenticationRequired, ErrAuthenticationFailed, or
// ErrUpstreamUnavailable.
func (v *Verifier) Authenticate(ctx context.Context, authHeader string, creds Credentials) (string, error) {
	if tok, ok := bearerToken(authHeader); ok {
		claims, err := v.codec.Verify(tok)
		if err != nil {
			v.logger.Warn("token verification failed", "error", err)
			return "", err
		}
		v.logger.Info("authenticated via token", "user", claims.Subject, "role", claims.Role)
		return claims.Subject, nil
	}

	if creds.Username == "" || creds.Password == "" {
		return "", ErrAuthenticationRequired
	}

	v.logger.Info("forwarding credentials to auth service", "user", creds.Username)
	user, err := v.authority.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return "", err
	}
	v.logger.Info("authenticated via auth service", "user", user)
	return user, nil
}

// bearerToken extracts the token from an Authorization header. A missing
// header or a non-Bearer scheme means the token path does not apply and
// the credential path is tried instead.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}
