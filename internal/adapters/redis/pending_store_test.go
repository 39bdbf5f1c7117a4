package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
	"github.com/eduhub/authbroker/internal/testutil"
)

func testBundle() domainauth.TokenBundle {
	return domainauth.TokenBundle{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		Email:        "octo@example.com",
		DisplayName:  "Octo Cat",
		PrimaryRole:  domainauth.RoleStudent,
	}
}

func TestPendingStoreHandshake(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingLoginStore(client)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "abc123", "github"))

	// Pending poll leaves the entry in place.
	entry, err := store.Consume(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, domainauth.StatusPending, entry.Status)
	assert.Equal(t, "github", entry.Provider)
	assert.Nil(t, entry.Bundle)

	entry, err = store.Consume(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, domainauth.StatusPending, entry.Status)

	// First completion wins.
	ok, err := store.Complete(ctx, "abc123", testBundle())
	require.NoError(t, err)
	assert.True(t, ok)

	// Second completion loses.
	ok, err = store.Complete(ctx, "abc123", domainauth.TokenBundle{AccessToken: "other"})
	require.NoError(t, err)
	assert.False(t, ok)

	// Completed entry is delivered exactly once.
	entry, err = store.Consume(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, domainauth.StatusCompleted, entry.Status)
	require.NotNil(t, entry.Bundle)
	assert.Equal(t, "access-token", entry.Bundle.AccessToken)
	assert.Equal(t, "octo@example.com", entry.Bundle.Email)

	_, err = store.Consume(ctx, "abc123")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPendingStoreCompleteUnknownToken(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingLoginStore(client)

	ok, err := store.Complete(context.Background(), "never-begun", testBundle())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingStoreConsumeUnknownToken(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingLoginStore(client)

	_, err := store.Consume(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPendingStoreAbandon(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingLoginStore(client)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "abc123", "github"))
	require.NoError(t, store.Abandon(ctx, "abc123"))

	_, err := store.Consume(ctx, "abc123")
	assert.True(t, apperrors.IsNotFound(err))

	// Abandoning an absent entry is not an error.
	assert.NoError(t, store.Abandon(ctx, "abc123"))
}

func TestPendingStoreAbandonLeavesCompletedEntry(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingLoginStore(client)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "abc123", "github"))
	ok, err := store.Complete(ctx, "abc123", testBundle())
	require.NoError(t, err)
	require.True(t, ok)

	// A late duplicate failure abandons, but the parked bundle survives for
	// the poller.
	require.NoError(t, store.Abandon(ctx, "abc123"))

	entry, err := store.Consume(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, domainauth.StatusCompleted, entry.Status)
	require.NotNil(t, entry.Bundle)
	assert.Equal(t, "access-token", entry.Bundle.AccessToken)
}

func TestPendingStoreBeginReplacesEntry(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingLoginStore(client)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "abc123", "github"))
	ok, err := store.Complete(ctx, "abc123", testBundle())
	require.NoError(t, err)
	require.True(t, ok)

	// A fresh begin for the same token restarts the handshake.
	require.NoError(t, store.Begin(ctx, "abc123", "yandex"))

	entry, err := store.Consume(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, domainauth.StatusPending, entry.Status)
	assert.Equal(t, "yandex", entry.Provider)
}

func TestPendingStoreEntriesExpire(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingLoginStoreWithTTL(client, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "abc123", "github"))
	time.Sleep(100 * time.Millisecond)

	_, err := store.Consume(ctx, "abc123")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPendingStoreRejectsEmptyToken(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingLoginStore(client)
	ctx := context.Background()

	assert.True(t, apperrors.IsValidation(store.Begin(ctx, "", "github")))

	_, err := store.Complete(ctx, "", testBundle())
	assert.True(t, apperrors.IsValidation(err))

	_, err = store.Consume(ctx, "")
	assert.True(t, apperrors.IsNotFound(err))
}
