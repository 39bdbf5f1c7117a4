package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/eduhub/authbroker/internal/errors"
)

// RevocationStore remembers revoked refresh tokens for the lifetime of the
// token class. Tokens are stored as SHA-256 digests so the raw credential
// never lands in Redis.
type RevocationStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRevocationStore creates a revocation store. ttl should be at least the
// refresh-token lifetime; a revocation only needs to outlive the token it
// blocks.
func NewRevocationStore(client redis.UniversalClient, ttl time.Duration) *RevocationStore {
	return &RevocationStore{
		client: client,
		prefix: "revoked:",
		ttl:    ttl,
	}
}

func (s *RevocationStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + hex.EncodeToString(sum[:])
}

// Revoke adds the token to the revoked set. Idempotent: revoking an
// already-revoked token resets its TTL, which is harmless.
func (s *RevocationStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Set(ctx, s.key(token), "1", s.ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "store revocation")
	}
	return nil
}

// Claim atomically revokes the token and reports whether this call did the
// revoking. SETNX serializes concurrent claims, so of several refreshes
// presenting the same token exactly one observes true.
func (s *RevocationStore) Claim(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	claimed, err := s.client.SetNX(ctx, s.key(token), "1", s.ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeStorage, "claim revocation")
	}
	return claimed, nil
}

// IsRevoked reports whether the token has been revoked.
func (s *RevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeStorage, "check revocation")
	}
	return n > 0, nil
}
