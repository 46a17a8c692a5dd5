package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/logger"
	"github.com/benvon/smart-notes/internal/models"
	"github.com/benvon/smart-notes/internal/request"
	"go.uber.org/zap"
)

// ErrProviderNotConfigured is returned when a JWT arrives but no OIDC provider
// with a JWKS URL has been configured.
var ErrProviderNotConfigured = errors.New("OIDC provider not configured")

// Authenticator resolves bearer credentials to users. Personal API tokens are
// checked against their bcrypt hash; anything else is treated as an OIDC JWT
// and its subject is mapped to a user, creating one on first sight.
type Authenticator struct {
	users        database.UserRepositoryInterface
	tokens       *TokenService
	provider     *Provider
	jwks         KeySource
	providerName string
	log          *zap.Logger
}

// NewAuthenticator creates an authenticator. provider and jwks may be nil, in
// which case only API tokens are accepted.
func NewAuthenticator(users database.UserRepositoryInterface, tokens *TokenService, provider *Provider, jwks KeySource, providerName string, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{
		users:        users,
		tokens:       tokens,
		provider:     provider,
		jwks:         jwks,
		providerName: providerName,
		log:          log,
	}
}

// Authenticate returns the user the bearer credential belongs to.
func (a *Authenticator) Authenticate(ctx context.Context, bearer string) (*models.User, request.AuthMethod, error) {
	if IsAPIToken(bearer) {
		if a.tokens == nil {
			return nil, "", ErrInvalidToken
		}
		token, err := a.tokens.Authenticate(ctx, bearer)
		if err != nil {
			return nil, "", err
		}
		user, err := a.users.GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, "", ErrInvalidToken
			}
			return nil, "", err
		}
		return user, request.AuthMethodAPIToken, nil
	}

	claims, err := a.verifyJWT(ctx, bearer)
	if err != nil {
		return nil, "", err
	}
	user, err := a.resolveUser(ctx, claims)
	if err != nil {
		return nil, "", err
	}
	return user, request.AuthMethodOIDC, nil
}

func (a *Authenticator) verifyJWT(ctx context.Context, raw string) (*models.Identity, error) {
	if a.provider == nil || a.jwks == nil {
		return nil, ErrProviderNotConfigured
	}
	cfg, err := a.provider.GetConfig(ctx, a.providerName)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrProviderNotConfigured
		}
		return nil, err
	}
	jwksURL := cfg.KeySetURL()
	if jwksURL == "" {
		return nil, ErrProviderNotConfigured
	}

	claims, err := NewVerifier(a.jwks, cfg.Issuer, jwksURL).Verify(ctx, raw)
	if err != nil {
		a.log.Debug("token_verification_failed",
			zap.String("issuer", cfg.Issuer),
			zap.String("error", logger.SanitizeError(err)),
		)
		return nil, err
	}
	return claims, nil
}

// resolveUser maps verified claims to a stored user, creating or refreshing it.
func (a *Authenticator) resolveUser(ctx context.Context, claims *models.Identity) (*models.User, error) {
	user, err := a.users.GetByProviderID(ctx, claims.Subject)
	if err == nil {
		a.syncClaims(ctx, user, claims)
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	sub := claims.Subject
	user = &models.User{
		Email:         claims.NormalizedEmail(),
		ProviderID:    &sub,
		EmailVerified: claims.EmailVerified,
	}
	if claims.Name != "" {
		name := claims.Name
		user.Name = &name
	}
	err = a.users.Create(ctx, user)
	if err == nil {
		a.log.Info("user_created", zap.String("user_id", user.ID.String()))
		return user, nil
	}
	if !errors.Is(err, database.ErrConflict) || user.Email == "" {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// An account with this email exists from another login; link it.
	existing, lookupErr := a.users.GetByEmail(ctx, user.Email)
	if lookupErr != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	existing.ProviderID = &sub
	if err := a.users.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to link user: %w", err)
	}
	return existing, nil
}

func (a *Authenticator) syncClaims(ctx context.Context, user *models.User, claims *models.Identity) {
	changed := false
	if email := claims.NormalizedEmail(); email != "" && user.Email != email {
		user.Email = email
		user.EmailVerified = claims.EmailVerified
		changed = true
	}
	if claims.Name != "" && (user.Name == nil || *user.Name != claims.Name) {
		name := claims.Name
		user.Name = &name
		changed = true
	}
	if !changed {
		return
	}
	if err := a.users.Update(ctx, user); err != nil {
		a.log.Warn("user_claims_sync_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}
}
