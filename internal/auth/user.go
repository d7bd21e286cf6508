// server/internal/auth/user.go

// Package auth resolves Supabase access tokens to users and checks pharmacy API keys.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidToken reports an empty, expired or rejected access token.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrNotConfigured reports that Supabase credentials are missing.
	ErrNotConfigured = errors.New("auth: supabase is not configured")
)

// User is the subset of a Supabase Auth user the service reads.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// ContactEmail falls back to user_metadata.email when the account has no primary email.
func (u *User) ContactEmail() string {
	if u.Email != "" {
		return u.Email
	}
	if e, ok := u.UserMetadata["email"].(string); ok {
		return e
	}
	return ""
}

// Resolver turns a bearer token into a user.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*User, error)
}

// RoleSet holds normalized role names.
type RoleSet map[string]struct{}

func (s RoleSet) Has(role string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

// HasAll reports whether every non-empty required role is present.
func (s RoleSet) HasAll(required []string) bool {
	for _, r := range required {
		if strings.TrimSpace(r) == "" {
			continue
		}
		if !s.Has(r) {
			return false
		}
	}
	return true
}

func roleValues(source any) []any {
	switch v := source.(type) {
	case nil:
		return nil
	case string:
		parts := strings.Split(v, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, p := range v {
			out[i] = p
		}
		return out
	case map[string]any:
		out := make([]any, 0, len(v))
		for _, p := range v {
			out = append(out, p)
		}
		return out
	}
	return nil
}

// Roles collects roles from the user's role field and the role/roles keys of both metadata maps.
func Roles(u *User) RoleSet {
	set := RoleSet{}
	if u == nil {
		return set
	}
	sources := []any{
		u.Role,
		u.AppMetadata["role"],
		u.AppMetadata["roles"],
		u.UserMetadata["role"],
		u.UserMetadata["roles"],
	}
	for _, src := range sources {
		for _, v := range roleValues(src) {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				set[s] = struct{}{}
			}
		}
	}
	return set
}
