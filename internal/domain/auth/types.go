package auth

// Package auth contains domain-level types for the login broker.
// It is pure and free of framework/adapter concerns.

// Role represents an application authorization role.
// Kept in string form for easy persistence and token claims.
type Role string

const (
	RoleStudent Role = "Student"
	RoleTeacher Role = "Teacher"
	RoleAdmin   Role = "Admin"
)

// rolePrecedence orders roles from least to most privileged. Roles outside the
// table rank below Student.
var rolePrecedence = map[Role]int{
	RoleStudent: 1,
	RoleTeacher: 2,
	RoleAdmin:   3,
}

// PrimaryRole returns the most privileged role in the set, or RoleStudent when
// the set is empty.
func PrimaryRole(roles []Role) Role {
	primary := RoleStudent
	best := 0
	for _, r := range roles {
		if rank := rolePrecedence[r]; rank > best {
			best = rank
			primary = r
		}
	}
	return primary
}

// User is the locally stored account record. Instances are value snapshots:
// mutating one never affects the backing store.
type User struct {
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	Roles        []Role `json:"roles"`
	RefreshToken string `json:"refresh_token"`
}

// Identity is the normalized profile returned by an OAuth provider after a
// successful code exchange. Adapters map provider-specific payloads into this
// shape; NormalizeIdentity fills the gaps providers leave.
type Identity struct {
	Provider    string
	ExternalID  string
	Login       string
	Email       string
	DisplayName string
}

// fallbackDisplayName is used when a provider returns neither a name nor a login.
const fallbackDisplayName = "Unknown user"

// NormalizeIdentity applies the broker's profile fallbacks: a missing email is
// synthesized as <login>@<provider>, and the display name falls back to the
// provider login, then to a generic placeholder.
func NormalizeIdentity(id Identity) Identity {
	if id.Login == "" {
		id.Login = id.ExternalID
	}
	if id.Email == "" {
		id.Email = id.Login + "@" + id.Provider
	}
	if id.DisplayName == "" {
		id.DisplayName = id.Login
	}
	if id.DisplayName == "" {
		id.DisplayName = fallbackDisplayName
	}
	return id
}

// TokenBundle is the result of a completed login or refresh: the signed token
// pair plus the profile fields the client renders.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Email        string `json:"email"`
	DisplayName  string `json:"username"`
	PrimaryRole  Role   `json:"role"`
}

// PendingStatus tracks a login handshake while the browser completes the
// provider flow out of band.
type PendingStatus string

const (
	// StatusPending means the login was started and no callback has landed yet.
	StatusPending PendingStatus = "pending"
	// StatusCompleted means the callback succeeded and a bundle awaits one poll.
	StatusCompleted PendingStatus = "completed"
)

// PendingLogin is the correlation entry for one login attempt, keyed by the
// caller-supplied state token. Entries are deleted on first successful poll
// and garbage-collected by store TTL otherwise.
type PendingLogin struct {
	Status   PendingStatus `json:"status"`
	Provider string        `json:"provider"`
	Bundle   *TokenBundle  `json:"bundle,omitempty"`
}
