// ABOUTME: Signed token codec shared by the authority and resource services
// ABOUTME: Issues and verifies HS256 JWTs carrying a subject and role claim

package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors. Verify always returns one of these (possibly
// wrapped) so callers can map failures to distinct responses.
var (
	ErrMalformed    = errors.New("malformed token")
	ErrBadSignature = errors.New("bad token signature")
	ErrExpired      = errors.New("token expired")
)

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// jwtClaims is the wire shape of the claims set.
type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and verifies tokens under a single shared HS256 secret.
// Both services must be configured with the same secret for tokens issued
// by one to verify on the other.
type Codec struct {
	secret     []byte
	defaultTTL time.Duration
}

// New creates a codec. defaultTTL is used by IssueDefault.
func New(secret []byte, defaultTTL time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if defaultTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %v", defaultTTL)
	}
	return &Codec{secret: secret, defaultTTL: defaultTTL}, nil
}

// Issue creates a signed token for subject with the given role, expiring
// after ttl.
func (c *Codec) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwtClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// IssueDefault creates a token with the configured default TTL.
func (c *Codec) IssueDefault(subject, role string) (string, error) {
	return c.Issue(subject, role, c.defaultTTL)
}

// Verify parses and validates a token string. The signature is checked
// before any claim content is trusted; an unparseable structure, a
// signature mismatch, and an expired token each map to a distinct error.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, ErrBadSignature
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrMalformed)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &Claims{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: expiresAt,
	}, nil
}
