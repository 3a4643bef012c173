// ABOUTME: In-memory principal and resource directories built from config
// ABOUTME: Verifies presented secrets and resolves per-user resource records

package directory

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown username or a secret
// mismatch. Callers must not distinguish the two cases in responses.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Role is the single authorization claim carried in issued tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role string from configuration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q (want user or admin)", s)
	}
}

// Principal is a credentialed identity known to the authority.
type Principal struct {
	Username string
	secret   string
	Role     Role
}

// Principals is an immutable username-keyed credential table. It is built
// once at startup and never mutated at request time.
type Principals struct {
	byName map[string]*Principal
}

// Entry describes one principal as it appears in configuration. A Secret
// beginning with "$2" is treated as a bcrypt hash; anything else compares
// as literal content.
type Entry struct {
	Secret string
	Role   Role
}

// NewPrincipals builds the credential table.
func NewPrincipals(entries map[string]Entry) (*Principals, error) {
	byName := make(map[string]*Principal, len(entries))
	for username, e := range entries {
		if username == "" {
			return nil, errors.New("principal with empty username")
		}
		if e.Secret == "" {
			return nil, fmt.Errorf("principal %q has an empty secret", username)
		}
		if _, err := ParseRole(string(e.Role)); err != nil {
			return nil, fmt.Errorf("principal %q: %w", username, err)
		}
		byName[username] = &Principal{Username: username, secret: e.Secret, Role: e.Role}
	}
	return &Principals{byName: byName}, nil
}

// Verify checks a presented username/secret pair against the table.
func (p *Principals) Verify(username, secret string) (*Principal, error) {
	principal, ok := p.byName[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if strings.HasPrefix(principal.secret, "$2") {
		if bcrypt.CompareHashAndPassword([]byte(principal.secret), []byte(secret)) != nil {
			return nil, ErrInvalidCredentials
		}
		return principal, nil
	}
	if subtle.ConstantTimeCompare([]byte(principal.secret), []byte(secret)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return principal, nil
}

// Len reports the number of principals in the table.
func (p *Principals) Len() int {
	return len(p.byName)
}

// Resources is an immutable username-keyed table of protected records.
// The record payload is opaque to this package.
type Resources struct {
	byOwner map[string]map[string]any
}

// NewResources builds the resource table.
func NewResources(records map[string]map[string]any) *Resources {
	byOwner := make(map[string]map[string]any, len(records))
	for owner, payload := range records {
		byOwner[owner] = payload
	}
	return &Resources{byOwner: byOwner}
}

// Lookup returns the record owned by username, if any.
func (r *Resources) Lookup(username string) (map[string]any, bool) {
	payload, ok := r.byOwner[username]
	return payload, ok
}

// Len reports the number of resource records.
func (r *Resources) Len() int {
	return len(r.byOwner)
}
