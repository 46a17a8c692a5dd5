package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken is returned for any credential that fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// KeySource supplies key sets for JWT verification.
type KeySource interface {
	GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error)
}

// Verifier verifies OIDC ID and access tokens issued by one issuer.
type Verifier struct {
	jwks    KeySource
	issuer  string
	jwksURL string
}

// NewVerifier creates a verifier for tokens from issuer signed by keys at jwksURL.
func NewVerifier(jwks KeySource, issuer, jwksURL string) *Verifier {
	return &Verifier{jwks: jwks, issuer: issuer, jwksURL: jwksURL}
}

// Verify checks the signature, expiry and issuer of raw and returns its claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (*models.Identity, error) {
	keys, err := v.jwks.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse([]byte(raw),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if token.Subject() == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claimsFromToken(token), nil
}

func claimsFromToken(token jwt.Token) *models.Identity {
	id := &models.Identity{
		Subject:   token.Subject(),
		Issuer:    token.Issuer(),
		Audience:  token.Audience(),
		ExpiresAt: token.Expiration(),
		IssuedAt:  token.IssuedAt(),
	}
	id.Email, _ = stringClaim(token, "email")
	id.Name, _ = stringClaim(token, "name")
	if v, ok := token.Get("email_verified"); ok {
		switch verified := v.(type) {
		case bool:
			id.EmailVerified = verified
		case string:
			id.EmailVerified = verified == "true"
		}
	}
	return id
}

func stringClaim(token jwt.Token, key string) (string, bool) {
	v, ok := token.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
