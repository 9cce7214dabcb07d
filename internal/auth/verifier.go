package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// KeySource supplies the key set used to verify token signatures
type KeySource interface {
	KeySet(ctx context.Context) (jwk.Set, error)
}

// Verifier verifies bearer JWTs against a JWKS and an expected issuer
type Verifier struct {
	keys   KeySource
	issuer string
}

// NewVerifier creates a new JWT verifier
func NewVerifier(keys KeySource, issuer string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer}
}

// Verify verifies a JWT token and extracts claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.TokenClaims, error) {
	keys, err := v.keys.KeySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{jwt.WithKeySet(keys), jwt.WithValidate(true)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	if token.Subject() == "" {
		return nil, errors.New("token missing subject claim")
	}

	claims := &models.TokenClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
	}
	private := token.PrivateClaims()
	if email, ok := private["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := private["name"].(string); ok {
		claims.Name = name
	}

	return claims, nil
}
