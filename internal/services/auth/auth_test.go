package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/request"
	"github.com/benvon/smart-notes/internal/testutil"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testIssuer = "https://issuer.example.com"

type staticKeys struct {
	set jwk.Set
}

func (s staticKeys) GetJWKS(context.Context, string) (jwk.Set, error) { return s.set, nil }

type configSourceFunc func(ctx context.Context, provider string) (*models.OIDCConfig, error)

func (f configSourceFunc) GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error) {
	return f(ctx, provider)
}

func newSigningKey(t *testing.T) (jwk.Key, jwk.Set) {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))
	pub, err := key.PublicKey()
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	return key, set
}

func signToken(t *testing.T, key jwk.Key, issuer, sub string, exp time.Time, extra map[string]any) string {
	t.Helper()
	b := jwt.NewBuilder().Issuer(issuer).Subject(sub).IssuedAt(time.Now()).Expiration(exp)
	for k, v := range extra {
		b = b.Claim(k, v)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, key))
	require.NoError(t, err)
	return string(signed)
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	key, set := newSigningKey(t)
	verifier := NewVerifier(staticKeys{set: set}, testIssuer, "https://issuer.example.com/jwks")

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{
			name:  "valid token",
			token: signToken(t, key, testIssuer, "user-1", time.Now().Add(time.Hour), map[string]any{"email": "a@example.com", "name": "Ada", "email_verified": true}),
		},
		{
			name:    "expired token",
			token:   signToken(t, key, testIssuer, "user-1", time.Now().Add(-time.Hour), nil),
			wantErr: true,
		},
		{
			name:    "wrong issuer",
			token:   signToken(t, key, "https://evil.example.com", "user-1", time.Now().Add(time.Hour), nil),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not-a-jwt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := verifier.Verify(context.Background(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidToken))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.Subject)
			assert.Equal(t, "a@example.com", claims.Email)
			assert.True(t, claims.EmailVerified)
			assert.Equal(t, "Ada", claims.Name)
			assert.Equal(t, testIssuer, claims.Issuer)
			assert.True(t, claims.ExpiresAt.After(time.Now()))
		})
	}
}

func TestParseToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw        string
		wantPrefix string
		wantSecret string
		wantOK     bool
	}{
		{raw: "snt_abc123_secretvalue", wantPrefix: "abc123", wantSecret: "secretvalue", wantOK: true},
		{raw: "snt_abc123_sec_ret", wantPrefix: "abc123", wantSecret: "sec_ret", wantOK: true},
		{raw: "snt_abc123", wantOK: false},
		{raw: "snt__secret", wantOK: false},
		{raw: "eyJhbGciOi.x.y", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			prefix, secret, ok := ParseToken(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPrefix, prefix)
			assert.Equal(t, tt.wantSecret, secret)
		})
	}
}

func newTokenService(t *testing.T) (*TokenService, *database.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewTokenService(database.NewAPITokenRepository(db))
	svc.cost = bcrypt.MinCost
	return svc, db
}

func TestTokenService_IssueAuthenticateRevoke(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db := newTokenService(t)
	user := testutil.CreateUser(t, db)

	plain, token, err := svc.Issue(ctx, user.ID, "  laptop ")
	require.NoError(t, err)
	assert.True(t, IsAPIToken(plain))
	assert.Equal(t, "laptop", token.Name)
	assert.NotContains(t, token.Hash, plain)

	got, err := svc.Authenticate(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	_, err = svc.Authenticate(ctx, plain+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Authenticate(ctx, "snt_000000000000_nope")
	assert.ErrorIs(t, err, ErrInvalidToken)

	tokens, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.NotNil(t, tokens[0].LastUsedAt)

	require.NoError(t, svc.Revoke(ctx, plain))
	_, err = svc.Authenticate(ctx, plain)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_APIToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, db := newTokenService(t)
	user := testutil.CreateUser(t, db)
	plain, _, err := svc.Issue(ctx, user.ID, "cli")
	require.NoError(t, err)

	a := NewAuthenticator(database.NewUserRepository(db), svc, nil, nil, "cognito", nil)

	got, method, err := a.Authenticate(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, request.AuthMethodAPIToken, method)

	_, _, err = a.Authenticate(ctx, "some.jwt.value")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestAuthenticator_OIDC(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutil.NewDB(t)
	key, set := newSigningKey(t)
	jwksURL := "https://issuer.example.com/jwks"
	provider := NewProvider(configSourceFunc(func(_ context.Context, name string) (*models.OIDCConfig, error) {
		if name != "cognito" {
			return nil, database.ErrNotFound
		}
		return &models.OIDCConfig{Provider: name, Issuer: testIssuer, JWKSUrl: &jwksURL}, nil
	}))
	users := database.NewUserRepository(db)
	a := NewAuthenticator(users, nil, provider, staticKeys{set: set}, "cognito", nil)

	raw := signToken(t, key, testIssuer, "sub-42", time.Now().Add(time.Hour), map[string]any{"email": "New@Example.com", "name": "New", "email_verified": true})
	first, method, err := a.Authenticate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, request.AuthMethodOIDC, method)
	assert.Equal(t, "new@example.com", first.Email)
	assert.True(t, first.EmailVerified)

	renamed := signToken(t, key, testIssuer, "sub-42", time.Now().Add(time.Hour), map[string]any{"email": "new@example.com", "name": "Renamed"})
	second, _, err := a.Authenticate(ctx, renamed)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	stored, err := users.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Name)
	assert.Equal(t, "Renamed", *stored.Name)

	// An existing account with the same email is linked rather than duplicated.
	existing := &models.User{Email: "linked@example.com"}
	require.NoError(t, users.Create(ctx, existing))
	linked, _, err := a.Authenticate(ctx, signToken(t, key, testIssuer, "sub-77", time.Now().Add(time.Hour), map[string]any{"email": "linked@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)

	_, _, err = a.Authenticate(ctx, signToken(t, key, "https://other.example.com", "sub-42", time.Now().Add(time.Hour), nil))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
