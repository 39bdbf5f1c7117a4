package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/eduhub/authbroker/config"
	"github.com/eduhub/authbroker/internal/adapters/authroles"
	"github.com/eduhub/authbroker/internal/adapters/oauthprov"
	redisadapter "github.com/eduhub/authbroker/internal/adapters/redis"
	"github.com/eduhub/authbroker/internal/data"
	"github.com/eduhub/authbroker/internal/ports"
	"github.com/eduhub/authbroker/internal/service"
)

// AuthContainer holds the wired authentication services.
type AuthContainer struct {
	Logins    *service.LoginService
	Tokens    *service.TokenService
	Providers *oauthprov.Registry
}

// BuildAuth wires stores, providers, and services from configuration.
func BuildAuth(ctx context.Context, cfg *config.AppConfig, db *sql.DB, redisClient goredis.UniversalClient, logger *slog.Logger) (*AuthContainer, error) {
	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, errors.New("no OAuth providers configured")
	}

	registry := oauthprov.NewRegistry(providers...)
	logger.InfoContext(ctx, "oauth providers registered", "providers", registry.Names())

	users := data.NewUserRepo(db)
	pending := redisadapter.NewPendingLoginStoreWithTTL(redisClient, cfg.Auth.PendingTTL)
	revocations := redisadapter.NewRevocationStore(redisClient, cfg.Auth.Token.RefreshTTL)
	resolver := authroles.StaticResolver{}

	tokens, err := service.NewTokenService(service.TokenServiceOptions{
		AccessSecret:  []byte(cfg.Auth.Token.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.Token.RefreshSecret),
		Issuer:        cfg.Auth.Token.Issuer,
		AccessTTL:     cfg.Auth.Token.AccessTTL,
		RefreshTTL:    cfg.Auth.Token.RefreshTTL,
		Users:         users,
		Revocations:   revocations,
		Permissions:   resolver,
	})
	if err != nil {
		return nil, fmt.Errorf("build token service: %w", err)
	}

	logins, err := service.NewLoginService(service.LoginServiceOptions{
		Providers: registry,
		Pending:   pending,
		Users:     users,
		Tokens:    tokens,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build login service: %w", err)
	}

	return &AuthContainer{
		Logins:    logins,
		Tokens:    tokens,
		Providers: registry,
	}, nil
}

func buildProviders(ctx context.Context, cfg *config.AppConfig) ([]ports.OAuthProvider, error) {
	var providers []ports.OAuthProvider

	if cfg.Auth.GitHub.Enabled() {
		p, err := oauthprov.NewGitHubProvider(oauthprov.GitHubConfig{
			ClientID:     cfg.Auth.GitHub.ClientID,
			ClientSecret: cfg.Auth.GitHub.ClientSecret,
			RedirectURL:  redirectURL(cfg, cfg.Auth.GitHub.RedirectURL, oauthprov.ProviderGitHub),
		})
		if err != nil {
			return nil, fmt.Errorf("build github provider: %w", err)
		}
		providers = append(providers, p)
	}

	if cfg.Auth.Yandex.Enabled() {
		p, err := oauthprov.NewYandexProvider(oauthprov.YandexConfig{
			ClientID:     cfg.Auth.Yandex.ClientID,
			ClientSecret: cfg.Auth.Yandex.ClientSecret,
			RedirectURL:  redirectURL(cfg, cfg.Auth.Yandex.RedirectURL, oauthprov.ProviderYandex),
		})
		if err != nil {
			return nil, fmt.Errorf("build yandex provider: %w", err)
		}
		providers = append(providers, p)
	}

	if cfg.Auth.OIDC.Enabled() {
		p, err := oauthprov.NewOIDCProvider(ctx, oauthprov.OIDCConfig{
			Name:         cfg.Auth.OIDC.Name,
			ClientID:     cfg.Auth.OIDC.ClientID,
			ClientSecret: cfg.Auth.OIDC.ClientSecret,
			RedirectURL:  redirectURL(cfg, cfg.Auth.OIDC.RedirectURL, cfg.Auth.OIDC.Name),
			DiscoveryURL: cfg.Auth.OIDC.DiscoveryURL,
			Scope:        cfg.Auth.OIDC.Scope,
		})
		if err != nil {
			return nil, fmt.Errorf("build oidc provider: %w", err)
		}
		providers = append(providers, p)
	}

	return providers, nil
}

// redirectURL returns the explicit redirect URL or derives the callback route
// from the broker's base URL.
func redirectURL(cfg *config.AppConfig, explicit, providerName string) string {
	if explicit != "" {
		return explicit
	}
	return cfg.HTTP.BaseURL + "/oauth/" + providerName
}
