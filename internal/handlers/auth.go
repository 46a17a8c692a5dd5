package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/services/auth"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AuthHandler serves the login bootstrap and current-user endpoints
type AuthHandler struct {
	provider     *auth.Provider
	providerName string
	log          *zap.Logger
}

// NewAuthHandler creates a new auth handler for the named OIDC provider
func NewAuthHandler(provider *auth.Provider, providerName string, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{provider: provider, providerName: providerName, log: log}
}

// OIDCLoginResponse is what a client needs to start an authorization-code
// flow with PKCE. The client keeps CodeVerifier and State until the callback.
type OIDCLoginResponse struct {
	*auth.LoginConfig
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
	CodeVerifier     string `json:"code_verifier"`
}

// RegisterPublicRoutes registers routes that must not require a bearer token.
// The router should already have the /api/auth prefix.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods(http.MethodGet)
}

// RegisterRoutes registers authenticated routes under /api/auth.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods(http.MethodGet)
}

// GetOIDCLogin returns the provider endpoints plus a ready-made authorization URL.
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "OIDC is not configured")
		return
	}
	ctx := r.Context()
	cfg, err := h.provider.GetConfig(ctx, h.providerName)
	if err != nil {
		h.respondProviderError(w, err)
		return
	}
	login, err := h.provider.GetLoginConfig(ctx, h.providerName)
	if err != nil {
		h.respondProviderError(w, err)
		return
	}

	state := uuid.NewString()
	verifier := auth.NewVerifierString()
	respondJSON(w, http.StatusOK, OIDCLoginResponse{
		LoginConfig:      login,
		AuthorizationURL: auth.NewClient(cfg, login).AuthCodeURL(state, verifier),
		State:            state,
		CodeVerifier:     verifier,
	})
}

func (h *AuthHandler) respondProviderError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "OIDC is not configured")
		return
	}
	h.log.Error("oidc_login_config_failed",
		zap.String("provider", h.providerName),
		zap.Error(err),
	)
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get OIDC configuration")
}

// GetMe returns the authenticated user.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user)
}
