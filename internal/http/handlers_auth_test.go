package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduhub/authbroker/internal/adapters/authroles"
	"github.com/eduhub/authbroker/internal/adapters/oauthprov"
	apperrors "github.com/eduhub/authbroker/internal/errors"
	mockauth "github.com/eduhub/authbroker/internal/mocks/auth"
	"github.com/eduhub/authbroker/internal/service"
)

type handlerFixture struct {
	router   http.Handler
	provider *mockauth.FakeProvider
	users    *mockauth.MemoryUserStore
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	provider := mockauth.NewFakeProvider()
	provider.ProviderName = "github"
	users := mockauth.NewMemoryUserStore()

	tokens, err := service.NewTokenService(service.TokenServiceOptions{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		Issuer:        "authbroker-test",
		Users:         users,
		Revocations:   mockauth.NewMemoryRevocationStore(),
		Permissions:   authroles.StaticResolver{},
	})
	require.NoError(t, err)

	logins, err := service.NewLoginService(service.LoginServiceOptions{
		Providers: oauthprov.NewRegistry(provider),
		Pending:   mockauth.NewMemoryPendingStore(),
		Users:     users,
		Tokens:    tokens,
	})
	require.NoError(t, err)

	router := NewRouter(RouterOptions{
		Auth: NewAuthHandlers(logins, tokens, nil),
		Health: NewHealthHandlers("test", map[string]Pinger{
			"stub": stubPinger{},
		}),
	})

	return &handlerFixture{router: router, provider: provider, users: users}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func (f *handlerFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

// completeLogin runs the whole handshake and returns the token bundle.
func (f *handlerFixture) completeLogin(t *testing.T, state string) map[string]any {
	t.Helper()

	rec := f.do(t, http.MethodGet, "/login_request?type=github&state="+state, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/oauth/github?code=the-code&state="+state, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/check_state?state="+state, "")
	require.Equal(t, http.StatusOK, rec.Code)
	return decodeBody(t, rec)
}

func TestLoginRequest(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/login_request?type=github&state=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	payload := decodeBody(t, rec)
	assert.Equal(t, "https://fake-idp/authorize?state=abc123", payload["url"])
}

func TestLoginRequestUnknownType(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/login_request?type=myspace&state=abc123", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decodeBody(t, rec)["code"])
}

func TestLoginRequestMissingState(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/login_request?type=github", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckStatePendingAndDelivery(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/login_request?type=github&state=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Before the callback: 202.
	rec = f.do(t, http.MethodGet, "/check_state?state=abc123", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "pending", decodeBody(t, rec)["status"])

	// Callback lands.
	rec = f.do(t, http.MethodGet, "/oauth/github?code=the-code&state=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Login successful")

	// Bundle delivered once.
	rec = f.do(t, http.MethodGet, "/check_state?state=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	assert.NotEmpty(t, payload["access_token"])
	assert.NotEmpty(t, payload["refresh_token"])
	assert.Equal(t, "tester@example.com", payload["email"])
	assert.Equal(t, "Test User", payload["username"])
	assert.Equal(t, "Student", payload["role"])

	// Then the correlation token is spent.
	rec = f.do(t, http.MethodGet, "/check_state?state=abc123", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckStateUnknown(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/check_state?state=never-started", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuthCallbackProviderDenied(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/login_request?type=github&state=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/oauth/github?error=access_denied&state=abc123", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed")

	// The handshake is gone.
	rec = f.do(t, http.MethodGet, "/check_state?state=abc123", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuthCallbackExchangeFailure(t *testing.T) {
	f := newHandlerFixture(t)
	f.provider.ExchangeErr = apperrors.Upstream("provider down")

	rec := f.do(t, http.MethodGet, "/login_request?type=github&state=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/oauth/github?code=bad&state=abc123", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed")
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newHandlerFixture(t)
	bundle := f.completeLogin(t, "abc123")

	body := `{"refresh_token": "` + bundle["refresh_token"].(string) + `"}`
	rec := f.do(t, http.MethodPost, "/refresh", body)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.NotEmpty(t, payload["access_token"])
	assert.NotEqual(t, bundle["refresh_token"], payload["refresh_token"])

	// The old refresh token is dead.
	rec = f.do(t, http.MethodPost, "/refresh", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_invalid", decodeBody(t, rec)["code"])
}

func TestRefreshRejectsMalformedBody(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/refresh", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/refresh", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout(t *testing.T) {
	f := newHandlerFixture(t)
	bundle := f.completeLogin(t, "abc123")

	body := `{"refresh_token": "` + bundle["refresh_token"].(string) + `"}`
	rec := f.do(t, http.MethodPost, "/logout", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logged out", decodeBody(t, rec)["message"])

	// Refresh with the logged-out token fails.
	rec = f.do(t, http.MethodPost, "/refresh", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout is idempotent, even for garbage tokens.
	rec = f.do(t, http.MethodPost, "/logout", `{"refresh_token": "garbage"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateToken(t *testing.T) {
	f := newHandlerFixture(t)
	bundle := f.completeLogin(t, "abc123")

	req := httptest.NewRequest(http.MethodGet, "/validate_token", nil)
	req.Header.Set("Authorization", "Bearer "+bundle["access_token"].(string))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	assert.Equal(t, "tester@example.com", payload["email"])
	assert.Equal(t, "Test User", payload["username"])
	assert.NotNil(t, payload["permissions"])
}

func TestValidateTokenRejections(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/validate_token", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "test", payload["version"])
}

func TestHealthDegraded(t *testing.T) {
	router := NewRouter(RouterOptions{
		Auth: &AuthHandlers{},
		Health: NewHealthHandlers("test", map[string]Pinger{
			"up":   stubPinger{},
			"down": stubPinger{err: errors.New("unreachable")},
		}),
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "degraded", payload["status"])
	backends, ok := payload["backends"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "up", backends["up"])
	assert.Equal(t, "down", backends["down"])
}
