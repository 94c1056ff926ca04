package migrate_test

import (
	"context"
	"testing"

	"github.com/meetscribe/meetscribe/pkg/dbtest"
	"github.com/meetscribe/meetscribe/pkg/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_FreshDatabaseSeedsVersionZeroAndRunsAll(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, migrate.Migrate(ctx, db))

	var version int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT version FROM _schema_version WHERE id = 1`).Scan(&version))
	assert.Equal(t, migrate.Migrations[len(migrate.Migrations)-1].Version, version)

	for _, table := range []string{"meetings", "transcripts", "segments", "jobs"} {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "expected table %s to exist", table)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, migrate.Migrate(ctx, db))
	require.NoError(t, migrate.Migrate(ctx, db))

	var version int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT version FROM _schema_version WHERE id = 1`).Scan(&version))
	assert.Equal(t, migrate.Migrations[len(migrate.Migrations)-1].Version, version)
}

func TestMigrate_ResumesFromExistingVersion(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	// Simulate a database that already ran the base schema and migration 1,
	// but never got migration 2.
	require.NoError(t, migrate.Migrate(ctx, db))
	_, err := db.ExecContext(ctx, `UPDATE _schema_version SET version = 1 WHERE id = 1`)
	require.NoError(t, err)

	require.NoError(t, migrate.Migrate(ctx, db))

	var version int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT version FROM _schema_version WHERE id = 1`).Scan(&version))
	assert.Equal(t, 2, version)

	var errorColExists bool
	err = db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'jobs' AND column_name = 'error')`,
	).Scan(&errorColExists)
	require.NoError(t, err)
	assert.True(t, errorColExists)
}
