package oauthprov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
)

const (
	// ProviderGitHub is the request key for the GitHub provider.
	ProviderGitHub = "github"

	githubProfileURL = "https://api.github.com/user"
	githubEmailsURL  = "https://api.github.com/user/emails"
)

// githubMapping maps the api.github.com/user payload. The numeric id is the
// stable identifier; login backs the synthesized email when the profile email
// is private.
var githubMapping = profileMapping{
	ExternalID:  "id",
	Login:       "login",
	Email:       "email",
	DisplayName: "name",
}

// GitHubProvider completes GitHub OAuth logins.
type GitHubProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// GitHubConfig holds configuration for the GitHub provider.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// NewGitHubProvider creates a GitHub provider.
func NewGitHubProvider(cfg GitHubConfig) (*GitHubProvider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		httpClient: httpClient,
	}, nil
}

func (p *GitHubProvider) Name() string { return ProviderGitHub }

// AuthURL builds the GitHub authorization URL carrying the correlation token
// as the OAuth state parameter.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades the authorization code for the GitHub profile. Private
// profile emails are recovered from /user/emails when the scope permits;
// failure there is not fatal because the broker synthesizes an address.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (domainauth.Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUpstream,
			"exchange github code")
	}

	client := p.config.Client(ctx, token)
	raw, err := fetchJSON(ctx, client, githubProfileURL)
	if err != nil {
		return domainauth.Identity{}, err
	}

	identity, err := extractIdentity(ProviderGitHub, raw, githubMapping)
	if err != nil {
		return domainauth.Identity{}, err
	}

	// The /user email field is null for users who hide their address. The
	// dedicated emails endpoint still lists it for the user:email scope.
	if identity.Email == identity.Login+"@"+ProviderGitHub {
		if email := p.primaryEmail(ctx, client); email != "" {
			identity.Email = email
		}
	}

	return identity, nil
}

func (p *GitHubProvider) primaryEmail(ctx context.Context, client *http.Client) string {
	raw, err := fetchJSON(ctx, client, githubEmailsURL)
	if err != nil {
		return ""
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(raw, &emails); err != nil {
		return ""
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

// fetchJSON performs an authenticated GET and returns the body, mapping
// transport failures and non-200 statuses to Upstream errors.
func fetchJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "build profile request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "fetch profile")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Upstream(fmt.Sprintf("profile endpoint returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "read profile body")
	}
	return body, nil
}
