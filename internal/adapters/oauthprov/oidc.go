package oauthprov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
)

// oidcMapping maps standard OIDC claims onto the broker identity.
var oidcMapping = profileMapping{
	ExternalID:  "sub",
	Login:       "preferred_username || email",
	Email:       "email",
	DisplayName: "name",
}

// OIDCProvider completes logins against any discovery-capable OIDC IdP, e.g.
// an institutional SSO. The ID token is verified against the issuer's JWKS
// before any claim is trusted.
type OIDCProvider struct {
	name     string
	config   *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

// OIDCConfig holds configuration for a generic OIDC provider.
type OIDCConfig struct {
	// Name is the request key the provider registers under (e.g. "sso").
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// DiscoveryURL is the issuer URL or its .well-known configuration URL.
	DiscoveryURL string
	Scope        string
	HTTPClient   *http.Client
}

// NewOIDCProvider creates an OIDC provider, performing a single discovery
// fetch up front.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	if cfg.Name == "" {
		return nil, errors.New("provider name is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	ctx = gooidc.ClientContext(ctx, httpClient)
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "openid profile email"
	}

	return &OIDCProvider{
		name: cfg.Name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
		verifier: op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (p *OIDCProvider) Name() string { return p.name }

// AuthURL builds the authorization URL with the correlation token as state.
func (p *OIDCProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades the code for a verified ID token and maps its claims.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (domainauth.Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrapf(err, apperrors.ErrCodeUpstream,
			"exchange %s code", p.name)
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return domainauth.Identity{}, apperrors.Upstream(
			fmt.Sprintf("%s token response carries no id_token", p.name))
	}

	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrapf(err, apperrors.ErrCodeUpstream,
			"verify %s id_token", p.name)
	}

	var claims json.RawMessage
	if err := idTok.Claims(&claims); err != nil {
		return domainauth.Identity{}, apperrors.Wrapf(err, apperrors.ErrCodeUpstream,
			"decode %s claims", p.name)
	}

	return extractIdentity(p.name, claims, oidcMapping)
}
