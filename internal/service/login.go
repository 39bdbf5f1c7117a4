package service

import (
	"context"
	"errors"
	"log/slog"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
	"github.com/eduhub/authbroker/internal/ports"
)

// LoginServiceOptions groups dependencies for LoginService.
type LoginServiceOptions struct {
	Providers ports.ProviderRegistry
	Pending   ports.PendingLoginStore
	Users     ports.UserStore
	Tokens    *TokenService
	Logger    *slog.Logger
}

// LoginService orchestrates the polling login handshake: Begin hands the
// browser off to the provider, Complete lands the provider callback, and Poll
// delivers the result to the waiting client exactly once.
type LoginService struct {
	providers ports.ProviderRegistry
	pending   ports.PendingLoginStore
	users     ports.UserStore
	tokens    *TokenService
	logger    *slog.Logger
}

// NewLoginService constructs a LoginService.
func NewLoginService(opts LoginServiceOptions) (*LoginService, error) {
	if opts.Providers == nil || opts.Pending == nil || opts.Users == nil || opts.Tokens == nil {
		return nil, errors.New("providers, pending, users, and tokens are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginService{
		providers: opts.Providers,
		pending:   opts.Pending,
		users:     opts.Users,
		tokens:    opts.Tokens,
		logger:    logger,
	}, nil
}

// Begin starts a login attempt: it registers a pending entry under the
// caller's correlation token and returns the provider authorization URL the
// browser should be sent to. Reusing a token replaces the previous attempt.
func (s *LoginService) Begin(ctx context.Context, providerName, state string) (string, error) {
	if state == "" {
		return "", apperrors.Validation("state is required")
	}
	provider, ok := s.providers.Lookup(providerName)
	if !ok {
		return "", apperrors.Validationf("unknown login type %q", providerName)
	}

	if err := s.pending.Begin(ctx, state, providerName); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "login started",
		"provider", providerName)
	return provider.AuthURL(state), nil
}

// Complete lands the provider callback: it exchanges the code, upserts the
// user, mints a token pair, and parks the bundle for the poller. The provider
// exchange runs with no store state held, so a slow upstream never blocks
// other handshakes. Only the first completion for a token wins.
func (s *LoginService) Complete(ctx context.Context, providerName, code, state string) error {
	if code == "" {
		return apperrors.Validation("code is required")
	}
	if state == "" {
		return apperrors.Validation("state is required")
	}
	provider, ok := s.providers.Lookup(providerName)
	if !ok {
		return apperrors.Validationf("unknown login type %q", providerName)
	}

	identity, err := provider.Exchange(ctx, code)
	if err != nil {
		// The poller sees the entry disappear and reports the attempt unknown.
		if abandonErr := s.pending.Abandon(ctx, state); abandonErr != nil {
			s.logger.WarnContext(ctx, "failed to abandon login after exchange error",
				"provider", providerName, "error", abandonErr)
		}
		s.logger.WarnContext(ctx, "provider exchange failed",
			"provider", providerName, "error", err)
		return err
	}

	bundle, err := s.establishSession(ctx, identity)
	if err != nil {
		if abandonErr := s.pending.Abandon(ctx, state); abandonErr != nil {
			s.logger.WarnContext(ctx, "failed to abandon login after session error",
				"provider", providerName, "error", abandonErr)
		}
		return err
	}

	ok, err = s.pending.Complete(ctx, state, bundle)
	if err != nil {
		return err
	}
	if !ok {
		// A losing duplicate has minted tokens but never persisted them, so
		// the winner's stored refresh token stays intact.
		s.logger.WarnContext(ctx, "login completion lost the race",
			"provider", providerName, "email", bundle.Email)
		return apperrors.Conflict("login attempt already completed or expired")
	}

	// Only the winner stores its refresh token as the user's current one.
	if err := s.users.SetRefreshToken(ctx, bundle.Email, bundle.RefreshToken); err != nil {
		s.logger.ErrorContext(ctx, "failed to store refresh token after completion",
			"provider", providerName, "email", bundle.Email, "error", err)
		return err
	}

	s.logger.InfoContext(ctx, "login completed",
		"provider", providerName, "email", bundle.Email)
	return nil
}

// Abort discards the handshake for the correlation token, e.g. when the
// provider redirected back with an error instead of a code. The poller then
// sees the attempt as unknown.
func (s *LoginService) Abort(ctx context.Context, state string) error {
	if state == "" {
		return apperrors.Validation("state is required")
	}
	return s.pending.Abandon(ctx, state)
}

// Poll checks the handshake state for the correlation token. A completed
// attempt yields its bundle exactly once and removes the entry; a pending
// attempt is reported without side effects; an unknown or expired token is a
// NotFound AppError.
func (s *LoginService) Poll(ctx context.Context, state string) (domainauth.PendingLogin, error) {
	if state == "" {
		return domainauth.PendingLogin{}, apperrors.Validation("state is required")
	}
	return s.pending.Consume(ctx, state)
}

// establishSession upserts the user for the identity and mints the token
// pair. New users start with the Student role. The refresh token is not yet
// persisted here: that is left to the completion winner, so a duplicate
// callback cannot clobber the token belonging to the delivered bundle.
func (s *LoginService) establishSession(ctx context.Context, identity domainauth.Identity) (domainauth.TokenBundle, error) {
	user, err := s.users.CreateIfAbsent(ctx, domainauth.User{
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Roles:       []domainauth.Role{domainauth.RoleStudent},
	})
	if err != nil {
		return domainauth.TokenBundle{}, err
	}
	return s.tokens.MintPair(user)
}
