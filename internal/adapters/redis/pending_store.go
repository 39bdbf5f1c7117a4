package redis

// Package redis provides Redis-based adapters for the login broker. Redis key
// TTLs double as the garbage collector for abandoned handshakes and expired
// revocations.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
)

// DefaultPendingTTL bounds how long an unfinished or unclaimed handshake is
// kept before the entry is purged.
const DefaultPendingTTL = 10 * time.Minute

// completeScript flips a pending entry to completed, preserving the entry's
// remaining TTL. It returns 1 only for the first completion; absent or
// already-completed entries are left untouched. Running as a script keeps the
// read-check-write atomic, so concurrent duplicate callbacks serialize and
// exactly one wins.
var completeScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
	return 0
end
local entry = cjson.decode(cur)
if entry.status ~= "pending" then
	return 0
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// consumeScript reads an entry and deletes it when completed, so two
// concurrent polls cannot both walk away with the bundle.
var consumeScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
	return false
end
local entry = cjson.decode(cur)
if entry.status == "completed" then
	redis.call("DEL", KEYS[1])
end
return cur
`)

// abandonScript deletes the entry only while it is still pending. A completed
// entry stays put: a duplicate callback that fails late must not destroy a
// bundle the winner already parked for the poller.
var abandonScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
	return 0
end
local entry = cjson.decode(cur)
if entry.status ~= "pending" then
	return 0
end
redis.call("DEL", KEYS[1])
return 1
`)

// PendingLoginStore tracks in-flight login handshakes in Redis.
type PendingLoginStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewPendingLoginStore creates a pending-login store with the default TTL.
func NewPendingLoginStore(client redis.UniversalClient) *PendingLoginStore {
	return NewPendingLoginStoreWithTTL(client, DefaultPendingTTL)
}

// NewPendingLoginStoreWithTTL creates a pending-login store with a custom TTL.
func NewPendingLoginStoreWithTTL(client redis.UniversalClient, ttl time.Duration) *PendingLoginStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &PendingLoginStore{
		client: client,
		prefix: "login:",
		ttl:    ttl,
	}
}

func (s *PendingLoginStore) key(token string) string {
	return s.prefix + token
}

// Begin registers a fresh pending entry for the correlation token. A repeated
// begin for the same token restarts the handshake and its TTL clock.
func (s *PendingLoginStore) Begin(ctx context.Context, token, provider string) error {
	if token == "" {
		return apperrors.Validation("correlation token cannot be empty")
	}

	data, err := json.Marshal(domainauth.PendingLogin{
		Status:   domainauth.StatusPending,
		Provider: provider,
	})
	if err != nil {
		return fmt.Errorf("marshal pending login: %w", err)
	}

	if err := s.client.Set(ctx, s.key(token), data, s.ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "store pending login")
	}
	return nil
}

// Complete transitions the entry to completed holding the bundle. Reports
// ok=false when the entry is absent, expired, or already completed.
func (s *PendingLoginStore) Complete(ctx context.Context, token string, bundle domainauth.TokenBundle) (bool, error) {
	if token == "" {
		return false, apperrors.Validation("correlation token cannot be empty")
	}

	entry := domainauth.PendingLogin{
		Status: domainauth.StatusCompleted,
		Bundle: &bundle,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("marshal completed login: %w", err)
	}

	won, err := completeScript.Run(ctx, s.client, []string{s.key(token)}, string(data)).Int()
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeStorage, "complete pending login")
	}
	return won == 1, nil
}

// Consume resolves the entry: a pending entry is returned as-is, a completed
// entry is deleted and returned exactly once, and an absent entry yields a
// NotFound AppError.
func (s *PendingLoginStore) Consume(ctx context.Context, token string) (domainauth.PendingLogin, error) {
	if token == "" {
		return domainauth.PendingLogin{}, apperrors.NotFound("login not found")
	}

	raw, err := consumeScript.Run(ctx, s.client, []string{s.key(token)}).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.PendingLogin{}, apperrors.NotFound("login not found")
		}
		return domainauth.PendingLogin{}, apperrors.Wrap(err, apperrors.ErrCodeStorage, "consume pending login")
	}

	var entry domainauth.PendingLogin
	if unmarshalErr := json.Unmarshal([]byte(raw), &entry); unmarshalErr != nil {
		return domainauth.PendingLogin{}, fmt.Errorf("unmarshal pending login: %w", unmarshalErr)
	}
	return entry, nil
}

// Abandon removes the entry while it is still pending. A completed entry is
// left for the poller; removing an absent entry is not an error.
func (s *PendingLoginStore) Abandon(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := abandonScript.Run(ctx, s.client, []string{s.key(token)}).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "abandon pending login")
	}
	return nil
}
