package auth

import (
	"context"
	"fmt"

	authhttp "gym-assistant/internal/auth/adapter/http"
	"gym-assistant/internal/auth/adapter/identity"
	"gym-assistant/internal/auth/adapter/persistence/memory"
	"gym-assistant/internal/auth/adapter/persistence/mongodb"
	"gym-assistant/internal/auth/adapter/security"
	"gym-assistant/internal/auth/config"
	"gym-assistant/internal/auth/domain/repository"
	"gym-assistant/internal/auth/usecase"
	"gym-assistant/internal/shared/eventbus"
	"gym-assistant/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuthModule represents the complete authentication module
type AuthModule struct {
	provider   repository.IdentityProvider
	tokenSvc   repository.TokenService
	session    *usecase.SessionStore
	handler    *authhttp.AuthHTTPHandler
	middleware *authhttp.AuthMiddleware
	config     *config.Config
}

// NewAuthModule creates a new authentication module instance. db is only
// used when accounts are stored in MongoDB.
func NewAuthModule(ctx context.Context, cfg *config.Config, db *mongo.Database, bus eventbus.Bus, log logger.Logger) (*AuthModule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)

	module := &AuthModule{config: cfg}
	var (
		sessionTokens authhttp.SessionTokenSource
		resets        authhttp.ResetConfirmer
	)

	// Both identity providers answer a sign-in with a local session token,
	// which Protect requires on every guarded request.
	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	module.tokenSvc = tokenSvc

	switch cfg.IdentityProvider {
	case config.IdentityOIDC:
		provider, err := identity.DiscoverOIDCProvider(ctx, cfg, tokenSvc, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create oidc provider: %w", err)
		}
		module.provider = provider
		sessionTokens = provider
	default:
		accounts, err := newAccountRepository(ctx, cfg, db)
		if err != nil {
			return nil, err
		}
		provider := identity.NewLocalProvider(accounts, tokenSvc, cfg, log)
		module.provider = provider
		sessionTokens, resets = provider, provider
	}

	opts := []usecase.SessionOption{usecase.WithSessionLogger(log)}
	if bus != nil {
		opts = append(opts, usecase.WithEventBus(bus))
	}
	session, err := usecase.NewSessionStore(module.provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	module.session = session
	module.handler = authhttp.NewAuthHTTPHandler(session, sessionTokens, resets, cookieSettings(cfg))
	module.middleware = authhttp.NewAuthMiddleware(session, module.tokenSvc, cfg.CookieName)
	return module, nil
}

func newAccountRepository(ctx context.Context, cfg *config.Config, db *mongo.Database) (repository.AccountRepository, error) {
	if cfg.AccountStore != config.AccountStoreMongoDB {
		return memory.NewAccountRepository(), nil
	}
	if db == nil {
		return nil, fmt.Errorf("account store %q requires a database", cfg.AccountStore)
	}
	repo, err := mongodb.NewMongoAccountRepository(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create account repository: %w", err)
	}
	return repo, nil
}

func cookieSettings(cfg *config.Config) authhttp.CookieSettings {
	return authhttp.CookieSettings{
		Name:     cfg.CookieName,
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		MaxAge:   int(cfg.SessionTokenTTL.Seconds()),
		Secure:   cfg.CookieSecure,
		HTTPOnly: cfg.CookieHTTPOnly,
		SameSite: cfg.CookieSameSite,
	}
}

// RegisterRoutes registers authentication routes with the provided router
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	am.handler.SetupAuthRoutesWithMiddleware(router, am.middleware)
}

// Session returns the session store shared by the rest of the application.
func (am *AuthModule) Session() *usecase.SessionStore {
	return am.session
}

// Provider returns the identity provider behind the session.
func (am *AuthModule) Provider() repository.IdentityProvider {
	return am.provider
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return am.middleware
}

// Stop detaches the session from its provider.
func (am *AuthModule) Stop() error {
	am.session.Close()
	return nil
}
