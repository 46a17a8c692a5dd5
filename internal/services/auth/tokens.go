package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenPrefix marks personal API tokens so they can be told apart from JWTs.
const TokenPrefix = "snt_"

const (
	prefixBytes = 6
	secretBytes = 24
)

// TokenStore is the persistence TokenService needs.
type TokenStore interface {
	Create(ctx context.Context, t *models.APIToken) error
	GetByPrefix(ctx context.Context, prefix string) (*models.APIToken, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIToken, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, prefix string) error
}

// TokenService issues and checks personal API tokens of the form
// snt_<prefix>_<secret>. Only a bcrypt hash of the secret is stored.
type TokenService struct {
	store TokenStore
	cost  int
	now   func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(store TokenStore) *TokenService {
	return &TokenService{store: store, cost: bcrypt.DefaultCost, now: time.Now}
}

// IsAPIToken reports whether raw looks like a personal API token.
func IsAPIToken(raw string) bool {
	return strings.HasPrefix(raw, TokenPrefix)
}

// ParseToken splits raw into its lookup prefix and secret.
func ParseToken(raw string) (prefix, secret string, ok bool) {
	rest, found := strings.CutPrefix(raw, TokenPrefix)
	if !found {
		return "", "", false
	}
	prefix, secret, found = strings.Cut(rest, "_")
	if !found || prefix == "" || secret == "" {
		return "", "", false
	}
	return prefix, secret, true
}

// Issue creates a token named name for userID and returns the plaintext,
// which is never retrievable again.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, name string) (string, *models.APIToken, error) {
	prefixRaw := make([]byte, prefixBytes)
	secretRaw := make([]byte, secretBytes)
	if _, err := rand.Read(prefixRaw); err != nil {
		return "", nil, fmt.Errorf("failed to generate token prefix: %w", err)
	}
	if _, err := rand.Read(secretRaw); err != nil {
		return "", nil, fmt.Errorf("failed to generate token secret: %w", err)
	}
	prefix := hex.EncodeToString(prefixRaw)
	secret := base64.RawURLEncoding.EncodeToString(secretRaw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash token: %w", err)
	}

	token := &models.APIToken{
		UserID: userID,
		Name:   strings.TrimSpace(name),
		Prefix: prefix,
		Hash:   string(hash),
	}
	if err := s.store.Create(ctx, token); err != nil {
		return "", nil, err
	}
	return TokenPrefix + prefix + "_" + secret, token, nil
}

// Authenticate checks raw against the stored hash and returns the token record.
func (s *TokenService) Authenticate(ctx context.Context, raw string) (*models.APIToken, error) {
	prefix, secret, ok := ParseToken(raw)
	if !ok {
		return nil, ErrInvalidToken
	}
	token, err := s.store.GetByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(token.Hash), []byte(secret)); err != nil {
		return nil, ErrInvalidToken
	}
	// Best effort; a failed touch must not reject a valid token.
	_ = s.store.TouchLastUsed(ctx, token.ID, s.now())
	return token, nil
}

// List returns the tokens owned by userID.
func (s *TokenService) List(ctx context.Context, userID uuid.UUID) ([]*models.APIToken, error) {
	return s.store.ListByUser(ctx, userID)
}

// Revoke deletes the token with prefix. The full token is accepted as well.
func (s *TokenService) Revoke(ctx context.Context, prefixOrToken string) error {
	if p, _, ok := ParseToken(prefixOrToken); ok {
		prefixOrToken = p
	}
	return s.store.Delete(ctx, prefixOrToken)
}
