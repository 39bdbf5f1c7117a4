package httpx

import (
	"html/template"
	"log/slog"
	"net/http"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
	"github.com/eduhub/authbroker/internal/service"
)

// AuthHandlers serves the login handshake and token lifecycle endpoints.
type AuthHandlers struct {
	logins *service.LoginService
	tokens *service.TokenService
	logger *slog.Logger
}

// NewAuthHandlers constructs the auth handler set.
func NewAuthHandlers(logins *service.LoginService, tokens *service.TokenService, logger *slog.Logger) *AuthHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandlers{logins: logins, tokens: tokens, logger: logger}
}

// landingTmpl is the page shown in the popup browser window after the
// provider redirects back. The human closes it; the application learns the
// outcome by polling.
var landingTmpl = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Login</title></head>
<body>
<h2>{{.Heading}}</h2>
<p>{{.Detail}}</p>
<p>You can close this window.</p>
</body>
</html>
`))

type landingData struct {
	Heading string
	Detail  string
}

func writeLanding(w http.ResponseWriter, status int, data landingData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = landingTmpl.Execute(w, data)
}

// LoginRequest handles GET /login_request?type=<provider>&state=<token>.
// It registers the handshake and returns the provider URL to open.
func (h *AuthHandlers) LoginRequest(w http.ResponseWriter, r *http.Request) {
	providerName := r.URL.Query().Get("type")
	state := r.URL.Query().Get("state")

	url, err := h.logins.Begin(r.Context(), providerName, state)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

// OAuthCallback handles GET /oauth/{provider}?code=...&state=... where the
// provider redirects the browser. The response is a human-facing page; the
// handshake outcome travels to the client through CheckState.
func (h *AuthHandlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		// Provider-side denial (user clicked cancel, consent revoked).
		if err := h.logins.Abort(r.Context(), state); err != nil {
			h.logger.WarnContext(r.Context(), "failed to abort denied login",
				"provider", providerName, "error", err)
		}
		writeLanding(w, http.StatusBadRequest, landingData{
			Heading: "Login failed",
			Detail:  "The provider reported: " + errMsg + ". Return to the application and try again.",
		})
		return
	}

	err := h.logins.Complete(r.Context(), providerName, code, state)
	if err != nil {
		h.logger.WarnContext(r.Context(), "oauth callback failed",
			"provider", providerName, "error", err)
		status := statusForCode(apperrors.GetCode(err))
		writeLanding(w, status, landingData{
			Heading: "Login failed",
			Detail:  "The login could not be completed. Return to the application and try again.",
		})
		return
	}

	writeLanding(w, http.StatusOK, landingData{
		Heading: "Login successful",
		Detail:  "Return to the application; it will pick up your session automatically.",
	})
}

// CheckState handles GET /check_state?state=<token>, the polling endpoint.
// 202 while the handshake is in flight, 200 with the bundle exactly once on
// completion, 404 for unknown, expired, or already-consumed tokens.
func (h *AuthHandlers) CheckState(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")

	entry, err := h.logins.Poll(r.Context(), state)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if entry.Status == domainauth.StatusPending || entry.Bundle == nil {
		WriteJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
		return
	}

	WriteJSON(w, http.StatusOK, entry.Bundle)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /refresh. A valid, current, unrevoked refresh token is
// exchanged for a fresh pair; the presented token is dead afterwards.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, r, apperrors.Validation("refresh_token is required"))
		return
	}

	bundle, err := h.tokens.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, bundle)
}

// Logout handles POST /logout. Always idempotent: revoking an unknown or
// already-dead token still returns 200.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, r, apperrors.Validation("refresh_token is required"))
		return
	}

	if err := h.tokens.Logout(r.Context(), req.RefreshToken); err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ValidateToken handles GET /validate_token with a Bearer access token. Used
// by resource services to authorize requests without sharing signing keys.
func (h *AuthHandlers) ValidateToken(w http.ResponseWriter, r *http.Request) {
	token, err := BearerToken(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	claims, err := h.tokens.VerifyAccess(token)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"email":       claims.Subject,
		"username":    claims.Username,
		"permissions": claims.Permissions,
		"expires_at":  claims.ExpiresAt.Unix(),
	})
}
