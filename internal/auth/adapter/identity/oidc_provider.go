package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"gym-assistant/internal/auth/config"
	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/auth/domain/repository"
	"gym-assistant/internal/shared/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCProvider signs users in against an external OpenID Connect issuer
// with the resource owner password grant. Accounts are managed by the
// issuer, so registration and resets are not available here. A verified
// sign-in is answered with a local session token, the same kind the local
// provider issues, so API requests are checked the same way in both modes.
type OIDCProvider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	sessions repository.TokenService
	logger   logger.Logger

	mu           sync.RWMutex
	current      *model.Account
	token        *oauth2.Token
	sessionToken string

	listeners *listeners
}

type idTokenClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// DiscoverOIDCProvider loads the issuer's discovery document and builds a
// provider for cfg's client. sessions issues the local session tokens.
func DiscoverOIDCProvider(ctx context.Context, cfg *config.Config, sessions repository.TokenService, log logger.Logger) (*OIDCProvider, error) {
	issuer, err := oidc.NewProvider(ctx, cfg.OIDCIssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", cfg.OIDCIssuerURL, err)
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		Endpoint:     issuer.Endpoint(),
		Scopes:       cfg.OIDCScopes,
	}
	verifier := issuer.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})
	return NewOIDCProvider(oauthCfg, verifier, sessions, log), nil
}

// NewOIDCProvider creates a provider from an explicit client config and
// token verifier.
func NewOIDCProvider(oauthCfg *oauth2.Config, verifier *oidc.IDTokenVerifier, sessions repository.TokenService, log logger.Logger) *OIDCProvider {
	return &OIDCProvider{
		oauth:     oauthCfg,
		verifier:  verifier,
		sessions:  sessions,
		logger:    logger.OrNop(log).WithComponent("identity.oidc"),
		listeners: newListeners(),
	}
}

func (p *OIDCProvider) currentAccount() *model.Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *OIDCProvider) setCurrent(account *model.Account, token *oauth2.Token, sessionToken string) {
	p.mu.Lock()
	p.current = copyAccount(account)
	p.token = token
	p.sessionToken = sessionToken
	p.mu.Unlock()
	p.listeners.notify(p.currentAccount)
}

// SessionToken returns the local session token of the signed-in account,
// or "".
func (p *OIDCProvider) SessionToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessionToken
}

// CreateAccount is not offered by the issuer.
func (p *OIDCProvider) CreateAccount(ctx context.Context, email, password string) (*model.Account, error) {
	return nil, notAllowed("Accounts are managed by the identity provider.")
}

// SetDisplayName is not offered by the issuer.
func (p *OIDCProvider) SetDisplayName(ctx context.Context, account *model.Account, name string) error {
	return notAllowed("Profiles are managed by the identity provider.")
}

// SendPasswordReset is not offered by the issuer.
func (p *OIDCProvider) SendPasswordReset(ctx context.Context, email string) error {
	return notAllowed("Password resets are handled by the identity provider.")
}

// SignIn exchanges the credentials for tokens and verifies the ID token.
func (p *OIDCProvider) SignIn(ctx context.Context, email, password string) (*model.Account, error) {
	token, err := p.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, model.NewProviderError(model.ProviderCodeInternal, "The identity provider returned no ID token.")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		p.logger.Warnf("id token rejected: %v", err)
		return nil, &model.ProviderError{Code: model.ProviderCodeInvalidCredential, Message: "The identity token could not be verified.", Err: err}
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, internalError("parse id token claims", err)
	}
	account := &model.Account{
		ID:            claims.Subject,
		Email:         claims.Email,
		DisplayName:   claims.Name,
		PhotoURL:      claims.Picture,
		EmailVerified: claims.EmailVerified,
	}
	sessionToken, err := p.sessions.GenerateToken(ctx, account.ID, account.Email, repository.PurposeSession)
	if err != nil {
		return nil, internalError("issue session token", err)
	}
	p.setCurrent(account, token, sessionToken)
	return copyAccount(account), nil
}

// SignOut forgets the tokens.
func (p *OIDCProvider) SignOut(ctx context.Context) error {
	p.setCurrent(nil, nil, "")
	return nil
}

// OnAuthStateChanged registers fn and calls it with the current account.
func (p *OIDCProvider) OnAuthStateChanged(fn func(*model.Account)) func() {
	return p.listeners.add(fn, p.currentAccount)
}

func classifyTokenError(err error) *model.ProviderError {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return internalError("request token", err)
	}
	if re.Response != nil && re.Response.StatusCode == http.StatusTooManyRequests {
		return &model.ProviderError{Code: model.ProviderCodeTooManyRequests, Message: re.ErrorDescription, Err: err}
	}
	switch re.ErrorCode {
	case "invalid_grant":
		return &model.ProviderError{Code: model.ProviderCodeInvalidCredential, Message: re.ErrorDescription, Err: err}
	case "unauthorized_client", "unsupported_grant_type":
		return &model.ProviderError{Code: model.ProviderCodeOperationNotAllowed, Message: re.ErrorDescription, Err: err}
	case "slow_down", "temporarily_unavailable":
		return &model.ProviderError{Code: model.ProviderCodeTooManyRequests, Message: re.ErrorDescription, Err: err}
	case "access_denied":
		return &model.ProviderError{Code: model.ProviderCodeUserDisabled, Message: re.ErrorDescription, Err: err}
	default:
		return &model.ProviderError{Code: "auth/" + re.ErrorCode, Message: re.ErrorDescription, Err: err}
	}
}

func notAllowed(message string) *model.ProviderError {
	return model.NewProviderError(model.ProviderCodeOperationNotAllowed, message)
}

var _ repository.IdentityProvider = (*OIDCProvider)(nil)
