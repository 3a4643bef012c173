// ABOUTME: Unit tests for the principal and resource directories
// ABOUTME: Covers credential verification, bcrypt secrets, and record lookup

package directory

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestPrincipals(t *testing.T) *Principals {
	t.Helper()
	p, err := NewPrincipals(map[string]Entry{
		"user1": {Secret: "password1", Role: RoleUser},
		"user2": {Secret: "password2", Role: RoleAdmin},
	})
	if err != nil {
		t.Fatalf("NewPrincipals() error = %v", err)
	}
	return p
}

func TestPrincipals_Verify(t *testing.T) {
	p := newTestPrincipals(t)

	principal, err := p.Verify("user1", "password1")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if principal.Username != "user1" || principal.Role != RoleUser {
		t.Errorf("principal = %+v, want user1/user", principal)
	}
}

func TestPrincipals_Verify_WrongSecret(t *testing.T) {
	p := newTestPrincipals(t)

	if _, err := p.Verify("user1", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Verify() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestPrincipals_Verify_UnknownUser(t *testing.T) {
	p := newTestPrincipals(t)

	if _, err := p.Verify("nobody", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Verify() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestPrincipals_Verify_BcryptSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}

	p, err := NewPrincipals(map[string]Entry{
		"hashed": {Secret: string(hash), Role: RoleUser},
	})
	if err != nil {
		t.Fatalf("NewPrincipals() error = %v", err)
	}

	if _, err := p.Verify("hashed", "hunter2"); err != nil {
		t.Errorf("Verify() with correct password against bcrypt hash: %v", err)
	}
	if _, err := p.Verify("hashed", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Verify() error = %v, want ErrInvalidCredentials", err)
	}
	// Presenting the stored hash itself must not authenticate.
	if _, err := p.Verify("hashed", string(hash)); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Verify() with hash as password: error = %v, want ErrInvalidCredentials", err)
	}
}

func TestNewPrincipals_Validation(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]Entry
	}{
		{
			name:    "empty username",
			entries: map[string]Entry{"": {Secret: "x", Role: RoleUser}},
		},
		{
			name:    "empty secret",
			entries: map[string]Entry{"user1": {Secret: "", Role: RoleUser}},
		},
		{
			name:    "bad role",
			entries: map[string]Entry{"user1": {Secret: "x", Role: "superuser"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPrincipals(tt.entries); err == nil {
				t.Error("NewPrincipals() should have failed")
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if _, err := ParseRole("user"); err != nil {
		t.Errorf("ParseRole(user) error = %v", err)
	}
	if _, err := ParseRole("admin"); err != nil {
		t.Errorf("ParseRole(admin) error = %v", err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Error("ParseRole(root) should fail")
	}
}

func TestResources_Lookup(t *testing.T) {
	r := NewResources(map[string]map[string]any{
		"user1": {"id": 1, "name": "User One", "email": "user1@example.com"},
	})

	payload, ok := r.Lookup("user1")
	if !ok {
		t.Fatal("Lookup(user1) = false, want record")
	}
	if payload["name"] != "User One" {
		t.Errorf("payload name = %v, want User One", payload["name"])
	}

	if _, ok := r.Lookup("user2"); ok {
		t.Error("Lookup(user2) should report no record")
	}
}
