package ports

// Package ports defines interfaces (hexagonal ports) for the login broker.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.

import (
	"context"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
)

// OAuthProvider abstracts one third-party identity provider. AuthURL is pure;
// Exchange performs the blocking code-for-token and profile calls and must be
// invoked with no store locks held.
type OAuthProvider interface {
	// Name returns the provider key used in requests (e.g. "github").
	Name() string

	// AuthURL builds the provider authorization URL embedding the caller's
	// correlation token as the OAuth state parameter.
	AuthURL(state string) string

	// Exchange trades the authorization code for a normalized identity.
	Exchange(ctx context.Context, code string) (domainauth.Identity, error)
}

// ProviderRegistry resolves providers by name.
type ProviderRegistry interface {
	// Lookup returns the provider registered under name, or false.
	Lookup(name string) (OAuthProvider, bool)
}

// UserStore persists and retrieves user records. Implementations own the User
// records and must hand out value snapshots, never shared references.
type UserStore interface {
	// FindByEmail returns the user or a NotFound AppError.
	FindByEmail(ctx context.Context, email string) (domainauth.User, error)

	// CreateIfAbsent creates the user when no record exists for the email and
	// returns the stored record either way. Concurrent calls for the same
	// email must converge on exactly one record.
	CreateIfAbsent(ctx context.Context, user domainauth.User) (domainauth.User, error)

	// SetRefreshToken atomically replaces the user's current refresh token.
	// Returns a NotFound AppError when the user does not exist.
	SetRefreshToken(ctx context.Context, email, token string) error
}

// PendingLoginStore tracks in-flight login handshakes keyed by correlation
// token. Entries expire after the store's TTL regardless of poll activity.
type PendingLoginStore interface {
	// Begin registers a fresh pending entry, replacing any previous entry for
	// the same token.
	Begin(ctx context.Context, token, provider string) error

	// Complete transitions the entry from pending to completed holding the
	// bundle. Only the first completion wins: if the entry is absent or
	// already completed, Complete reports ok=false and changes nothing.
	Complete(ctx context.Context, token string, bundle domainauth.TokenBundle) (ok bool, err error)

	// Consume retrieves and resolves the entry: a completed entry is deleted
	// and its bundle returned exactly once; a pending entry is left in place.
	// An absent entry returns a NotFound AppError.
	Consume(ctx context.Context, token string) (domainauth.PendingLogin, error)

	// Abandon removes the entry while it is still pending, e.g. after a failed
	// provider exchange. A completed entry is left in place so a late duplicate
	// failure cannot destroy the winner's bundle before the client polls it.
	Abandon(ctx context.Context, token string) error
}

// RevocationStore remembers refresh tokens that must never be accepted again,
// for at least the lifetime of the token.
type RevocationStore interface {
	// Revoke adds the token to the set. Revoking an already-revoked token is
	// not an error.
	Revoke(ctx context.Context, token string) error

	// IsRevoked reports whether the token is in the set.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// Claim atomically adds the token to the set and reports whether this call
	// added it. Concurrent claims for the same token serialize so exactly one
	// caller observes true.
	Claim(ctx context.Context, token string) (bool, error)
}

// PermissionResolver maps a role set to the permission strings it grants.
type PermissionResolver interface {
	// Resolve returns the deduplicated union of permissions across roles.
	// Unknown roles contribute nothing.
	Resolve(roles []domainauth.Role) []string
}
