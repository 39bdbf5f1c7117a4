package httpx

import (
	"log/slog"
	"net/http"
)

// RouterOptions wires handlers and middleware into the mux.
type RouterOptions struct {
	Auth   *AuthHandlers
	Health *HealthHandlers
	Logger *slog.Logger
}

// NewRouter builds the broker's HTTP routes on the standard mux with method
// and path-value patterns.
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /login_request", opts.Auth.LoginRequest)
	mux.HandleFunc("GET /oauth/{provider}", opts.Auth.OAuthCallback)
	mux.HandleFunc("GET /check_state", opts.Auth.CheckState)
	mux.HandleFunc("POST /refresh", opts.Auth.Refresh)
	mux.HandleFunc("POST /logout", opts.Auth.Logout)
	mux.HandleFunc("GET /validate_token", opts.Auth.ValidateToken)
	mux.HandleFunc("GET /health", opts.Health.Health)

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
