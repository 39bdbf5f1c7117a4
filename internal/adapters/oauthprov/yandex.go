package oauthprov

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/yandex"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
)

const (
	// ProviderYandex is the request key for the Yandex ID provider.
	ProviderYandex = "yandex"

	yandexProfileURL = "https://login.yandex.ru/info?format=json"
)

var yandexMapping = profileMapping{
	ExternalID:  "id",
	Login:       "login",
	Email:       "default_email",
	DisplayName: "real_name || display_name",
}

// YandexProvider completes Yandex ID OAuth logins.
type YandexProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// YandexConfig holds configuration for the Yandex provider.
type YandexConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client
}

// NewYandexProvider creates a Yandex provider.
func NewYandexProvider(cfg YandexConfig) (*YandexProvider, error) {
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

	return &YandexProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"login:email", "login:info"},
			Endpoint:     yandex.Endpoint,
		},
		httpClient: httpClient,
	}, nil
}

func (p *YandexProvider) Name() string { return ProviderYandex }

// AuthURL builds the Yandex authorization URL with the correlation token as
// the state parameter.
func (p *YandexProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades the authorization code for the Yandex ID profile.
func (p *YandexProvider) Exchange(ctx context.Context, code string) (domainauth.Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUpstream,
			"exchange yandex code")
	}

	raw, err := fetchJSON(ctx, p.config.Client(ctx, token), yandexProfileURL)
	if err != nil {
		return domainauth.Identity{}, err
	}

	return extractIdentity(ProviderYandex, raw, yandexMapping)
}
