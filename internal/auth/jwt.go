// server/internal/auth/jwt.go
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SupabaseClaims mirrors the claims Supabase puts in an access token.
type SupabaseClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 access tokens locally with the project's JWT secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Resolve(_ context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &SupabaseClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &User{
		ID:           claims.Subject,
		Email:        claims.Email,
		Role:         claims.Role,
		AppMetadata:  claims.AppMetadata,
		UserMetadata: claims.UserMetadata,
	}, nil
}

// IssueToken signs a Supabase-shaped access token for u. Used for local development.
func IssueToken(secret string, u *User, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("auth: jwt secret is empty")
	}
	role := u.Role
	if role == "" {
		role = "authenticated"
	}
	now := time.Now()
	claims := &SupabaseClaims{
		Email:        u.Email,
		Role:         role,
		AppMetadata:  u.AppMetadata,
		UserMetadata: u.UserMetadata,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// NewResolver verifies tokens locally when a JWT secret is configured and otherwise asks Supabase.
func NewResolver(jwtSecret string, client *SupabaseClient) Resolver {
	if jwtSecret != "" {
		return NewJWTVerifier(jwtSecret)
	}
	return client
}
