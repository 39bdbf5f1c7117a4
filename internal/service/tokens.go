package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
	"github.com/eduhub/authbroker/internal/ports"
)

const (
	// DefaultAccessTTL bounds how long an access token is honored.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL bounds how long a refresh token is honored.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// AccessClaims are the decoded claims of an access token.
type AccessClaims struct {
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// RefreshClaims are the decoded claims of a refresh token.
type RefreshClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenServiceOptions groups dependencies for TokenService. AccessSecret and
// RefreshSecret must differ: key separation keeps a leaked refresh token from
// ever verifying as an access token.
type TokenServiceOptions struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	Users       ports.UserStore
	Revocations ports.RevocationStore
	Permissions ports.PermissionResolver

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// TokenService mints, verifies, rotates, and revokes the broker's JWT pair.
// Access tokens are stateless; refresh tokens are additionally checked against
// the user's stored token and the revocation set.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration

	users       ports.UserStore
	revocations ports.RevocationStore
	permissions ports.PermissionResolver

	now func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(opts TokenServiceOptions) (*TokenService, error) {
	if len(opts.AccessSecret) == 0 || len(opts.RefreshSecret) == 0 {
		return nil, errors.New("token secrets are required")
	}
	if string(opts.AccessSecret) == string(opts.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if opts.Users == nil || opts.Revocations == nil || opts.Permissions == nil {
		return nil, errors.New("users, revocations, and permissions are required")
	}

	svc := &TokenService{
		accessSecret:  opts.AccessSecret,
		refreshSecret: opts.RefreshSecret,
		issuer:        opts.Issuer,
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		users:         opts.Users,
		revocations:   opts.Revocations,
		permissions:   opts.Permissions,
		now:           opts.Now,
	}
	if svc.accessTTL <= 0 {
		svc.accessTTL = DefaultAccessTTL
	}
	if svc.refreshTTL <= 0 {
		svc.refreshTTL = DefaultRefreshTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// errInvalidToken is the single failure surfaced for any verification
// problem. Bad signature, wrong issuer, expiry, and revocation are
// indistinguishable to the caller.
func errInvalidToken() error {
	return apperrors.Token("invalid token")
}

// IssueAccess mints a signed access token for the user with the resolved
// permission set embedded.
func (s *TokenService) IssueAccess(user domainauth.User) (string, error) {
	now := s.now().UTC()
	claims := AccessClaims{
		Username:    user.DisplayName,
		Permissions: s.permissions.Resolve(user.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh mints a signed refresh token for the user.
func (s *TokenService) IssueRefresh(user domainauth.User) (string, error) {
	now := s.now().UTC()
	claims := RefreshClaims{
		Username: user.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccess checks signature, issuer, and expiry of an access token.
func (s *TokenService) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims, s.accessSecret); err != nil {
		return nil, errInvalidToken()
	}
	return claims, nil
}

// VerifyRefresh checks signature, issuer, and expiry of a refresh token. It
// does not consult the revocation set; Rotate and Logout do.
func (s *TokenService) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims, s.refreshSecret); err != nil {
		return nil, errInvalidToken()
	}
	return claims, nil
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("token is not valid")
	}
	return nil
}

// Revoke adds the refresh token to the revocation set. Idempotent; revoking
// an unknown or already-revoked token is not an error.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	return s.revocations.Revoke(ctx, refreshToken)
}

// MintPair mints an access+refresh pair for the user without touching any
// store. Callers that need the refresh token honored later must persist it,
// typically via IssuePair.
func (s *TokenService) MintPair(user domainauth.User) (domainauth.TokenBundle, error) {
	access, err := s.IssueAccess(user)
	if err != nil {
		return domainauth.TokenBundle{}, err
	}
	refresh, err := s.IssueRefresh(user)
	if err != nil {
		return domainauth.TokenBundle{}, err
	}
	return domainauth.TokenBundle{
		AccessToken:  access,
		RefreshToken: refresh,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PrimaryRole:  domainauth.PrimaryRole(user.Roles),
	}, nil
}

// IssuePair mints an access+refresh pair and stores the refresh token as the
// user's current one. Returns the bundle handed to clients.
func (s *TokenService) IssuePair(ctx context.Context, user domainauth.User) (domainauth.TokenBundle, error) {
	bundle, err := s.MintPair(user)
	if err != nil {
		return domainauth.TokenBundle{}, err
	}
	if err := s.users.SetRefreshToken(ctx, user.Email, bundle.RefreshToken); err != nil {
		return domainauth.TokenBundle{}, err
	}
	return bundle, nil
}

// Rotate exchanges a valid refresh token for a fresh pair. The presented
// token must match the user's stored token; claiming it into the revocation
// set is the atomic rotation step, so of any concurrent refreshes presenting
// the same token exactly one succeeds and the rest fail closed. This bounds
// replay of a stolen token to a single use.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (domainauth.TokenBundle, error) {
	claims, err := s.VerifyRefresh(refreshToken)
	if err != nil {
		return domainauth.TokenBundle{}, err
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return domainauth.TokenBundle{}, err
	}
	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		// Rotated out by a newer login or refresh.
		return domainauth.TokenBundle{}, errInvalidToken()
	}

	claimed, err := s.revocations.Claim(ctx, refreshToken)
	if err != nil {
		return domainauth.TokenBundle{}, err
	}
	if !claimed {
		// Already revoked, or a concurrent rotation got here first.
		return domainauth.TokenBundle{}, errInvalidToken()
	}

	return s.IssuePair(ctx, user)
}

// Logout revokes the refresh token and clears it from the user record when it
// is still the current one. Invalid or unknown tokens are not an error.
func (s *TokenService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.Revoke(ctx, refreshToken); err != nil {
		return err
	}

	claims, err := s.VerifyRefresh(refreshToken)
	if err != nil {
		// Forged or expired token: revocation already recorded, nothing to clear.
		return nil
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if user.RefreshToken != refreshToken {
		return nil
	}
	return s.users.SetRefreshToken(ctx, user.Email, "")
}
