package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduhub/authbroker/internal/testutil"
)

func TestRevocationStore(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewRevocationStore(client, time.Hour)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "some-token")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "some-token"))

	revoked, err = store.IsRevoked(ctx, "some-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Revoking again is idempotent.
	require.NoError(t, store.Revoke(ctx, "some-token"))

	// Other tokens are unaffected.
	revoked, err = store.IsRevoked(ctx, "other-token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationStoreClaim(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewRevocationStore(client, time.Hour)
	ctx := context.Background()

	claimed, err := store.Claim(ctx, "rotating-token")
	require.NoError(t, err)
	assert.True(t, claimed)

	// Exactly one claim wins; later claims lose.
	claimed, err = store.Claim(ctx, "rotating-token")
	require.NoError(t, err)
	assert.False(t, claimed)

	revoked, err := store.IsRevoked(ctx, "rotating-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	// A previously revoked token cannot be claimed either.
	require.NoError(t, store.Revoke(ctx, "logged-out-token"))
	claimed, err = store.Claim(ctx, "logged-out-token")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestRevocationStoreEntriesExpire(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewRevocationStore(client, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "short-lived"))
	time.Sleep(100 * time.Millisecond)

	revoked, err := store.IsRevoked(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationStoreTokensAreHashedInKeys(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewRevocationStore(client, time.Hour)
	ctx := context.Background()

	secret := "eyJhbGciOiJIUzI1NiJ9.secret-refresh-token"
	require.NoError(t, store.Revoke(ctx, secret))

	keys, err := client.Keys(ctx, "revoked:*").Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], secret, "raw token must never appear in redis keys")
}
