package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduhub/authbroker/internal/migrate"
	"github.com/eduhub/authbroker/internal/testutil"
)

func TestRunIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	ctx := context.Background()

	// SetupTestDB already ran the migrations once; a second run applies
	// nothing and succeeds.
	require.NoError(t, migrate.Run(ctx, db))

	var applied bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = '0001_users')`).Scan(&applied)
	require.NoError(t, err)
	assert.True(t, applied)

	// Each migration is recorded exactly once.
	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = '0001_users'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
