package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
	"github.com/eduhub/authbroker/internal/testutil"
)

func TestUserRepoCreateAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewUserRepo(db)
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, domainauth.User{
		Email:       "octo@example.com",
		DisplayName: "Octo Cat",
		Roles:       []domainauth.Role{domainauth.RoleStudent},
	})
	require.NoError(t, err)
	assert.Equal(t, "octo@example.com", created.Email)
	assert.Equal(t, "Octo Cat", created.DisplayName)
	assert.Equal(t, []domainauth.Role{domainauth.RoleStudent}, created.Roles)
	assert.Empty(t, created.RefreshToken)

	found, err := repo.FindByEmail(ctx, "octo@example.com")
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestUserRepoFindUnknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewUserRepo(db)

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserRepoCreateIfAbsentKeepsExistingRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewUserRepo(db)
	ctx := context.Background()

	first, err := repo.CreateIfAbsent(ctx, domainauth.User{
		Email:       "octo@example.com",
		DisplayName: "Octo Cat",
		Roles:       []domainauth.Role{domainauth.RoleAdmin},
	})
	require.NoError(t, err)

	// A later login with a different display name converges on the stored row.
	second, err := repo.CreateIfAbsent(ctx, domainauth.User{
		Email:       "octo@example.com",
		DisplayName: "Renamed Cat",
		Roles:       []domainauth.Role{domainauth.RoleStudent},
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin}, second.Roles)
}

func TestUserRepoCreateIfAbsentDefaultsRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewUserRepo(db)

	created, err := repo.CreateIfAbsent(context.Background(), domainauth.User{
		Email:       "fresh@example.com",
		DisplayName: "Fresh",
	})
	require.NoError(t, err)
	assert.Equal(t, []domainauth.Role{domainauth.RoleStudent}, created.Roles)
}

func TestUserRepoSetRefreshToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewUserRepo(db)
	ctx := context.Background()

	_, err := repo.CreateIfAbsent(ctx, domainauth.User{
		Email:       "octo@example.com",
		DisplayName: "Octo Cat",
	})
	require.NoError(t, err)

	require.NoError(t, repo.SetRefreshToken(ctx, "octo@example.com", "token-1"))

	user, err := repo.FindByEmail(ctx, "octo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "token-1", user.RefreshToken)

	// Replacing and clearing both work.
	require.NoError(t, repo.SetRefreshToken(ctx, "octo@example.com", "token-2"))
	require.NoError(t, repo.SetRefreshToken(ctx, "octo@example.com", ""))

	user, err = repo.FindByEmail(ctx, "octo@example.com")
	require.NoError(t, err)
	assert.Empty(t, user.RefreshToken)
}

func TestUserRepoSetRefreshTokenUnknownUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewUserRepo(db)

	err := repo.SetRefreshToken(context.Background(), "nobody@example.com", "token")
	assert.True(t, apperrors.IsNotFound(err))
}
