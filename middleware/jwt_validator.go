package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthNotConfigured is returned by the reject-all validator
var ErrAuthNotConfigured = errors.New("authentication not configured")

// tokenClaims is the JWT payload issued by the student-success auth service
type tokenClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTValidator validates HS256 tokens signed with a shared secret
type JWTValidator struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTValidator creates a validator for the given secret. When issuer is
// non-empty the iss claim must match it.
func NewJWTValidator(secret, issuer string) *JWTValidator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &JWTValidator{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}
}

// ValidateToken implements TokenValidator
func (v *JWTValidator) ValidateToken(_ context.Context, token string) (*Claims, error) {
	var tc tokenClaims
	if _, err := v.parser.ParseWithClaims(token, &tc, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if tc.Subject == "" {
		return nil, errors.New("invalid token: missing subject")
	}

	claims := &Claims{
		Sub:   tc.Subject,
		Email: tc.Email,
		Roles: tc.Roles,
		Iss:   tc.Issuer,
	}
	if tc.ExpiresAt != nil {
		claims.Exp = tc.ExpiresAt.Unix()
	}
	return claims, nil
}

// RejectAllValidator rejects all tokens (used when no JWT secret is configured)
type RejectAllValidator struct{}

// ValidateToken implements TokenValidator
func (RejectAllValidator) ValidateToken(context.Context, string) (*Claims, error) {
	return nil, ErrAuthNotConfigured
}
