package config

import "time"

// TokenConfig contains JWT signing configuration. Access and refresh tokens
// are signed with separate secrets so one can never stand in for the other.
type TokenConfig struct {
	AccessSecret  string        `env:"ACCESS_SECRET,required"`
	RefreshSecret string        `env:"REFRESH_SECRET,required"`
	Issuer        string        `env:"ISSUER"      envDefault:"authbroker"`
	AccessTTL     time.Duration `env:"ACCESS_TTL"  envDefault:"15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TTL" envDefault:"168h"` // 7 days
}

// OAuthProviderConfig contains per-provider OAuth application credentials.
// A provider with an empty client ID is not registered.
type OAuthProviderConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:""`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:""`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:""`
}

// Enabled reports whether the provider was configured at all.
func (c OAuthProviderConfig) Enabled() bool {
	return c.ClientID != ""
}

// OIDCProviderConfig configures the optional generic OIDC provider, e.g. an
// institutional SSO reachable through standard discovery.
type OIDCProviderConfig struct {
	Name         string `env:"NAME"          envDefault:"sso"`
	ClientID     string `env:"CLIENT_ID"     envDefault:""`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:""`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:""`
	DiscoveryURL string `env:"DISCOVERY_URL" envDefault:""`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
}

// Enabled reports whether the OIDC provider was configured.
func (c OIDCProviderConfig) Enabled() bool {
	return c.ClientID != "" && c.DiscoveryURL != ""
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Token signing configuration.
	Token TokenConfig `envPrefix:"TOKEN_"`

	// PendingTTL is how long an unconsumed login handshake survives.
	PendingTTL time.Duration `env:"AUTH_PENDING_TTL" envDefault:"10m"`

	// Provider credentials.
	GitHub OAuthProviderConfig `envPrefix:"GITHUB_"`
	Yandex OAuthProviderConfig `envPrefix:"YANDEX_"`
	OIDC   OIDCProviderConfig  `envPrefix:"OIDC_"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Token.AccessTTL <= 0 {
		a.Token.AccessTTL = 15 * time.Minute
	}
	if a.Token.RefreshTTL <= a.Token.AccessTTL {
		a.Token.RefreshTTL = 168 * time.Hour
	}
	if a.PendingTTL < time.Minute {
		a.PendingTTL = time.Minute
	}
}
