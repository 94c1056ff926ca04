// Package dbtest provides a shared PostgreSQL testcontainer for integration
// tests across the storage packages (migrate, jobstore, meetingstore).
package dbtest

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// Open starts (once per test binary) a shared PostgreSQL container, creates
// a uniquely-named schema for this test, and returns a *sql.DB scoped to
// that schema. The schema is dropped via t.Cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	connStr := sharedContainer(t)
	schema := schemaName(t)

	bootstrap, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	_, err = bootstrap.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema))
	require.NoError(t, err)
	_ = bootstrap.Close()

	db, err := sql.Open("pgx", withSearchPath(connStr, schema))
	require.NoError(t, err)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	t.Cleanup(func() {
		cleanup, err := sql.Open("pgx", connStr)
		if err == nil {
			_, _ = cleanup.ExecContext(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
			_ = cleanup.Close()
		}
		_ = db.Close()
	})

	return db
}

func sharedContainer(t *testing.T) string {
	t.Helper()
	containerOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx,
			"postgres:17-alpine",
			postgres.WithDatabase("meetscribe_test"),
			postgres.WithUsername("meetscribe_test"),
			postgres.WithPassword("meetscribe_test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("failed to start postgres container: %w", err)
			return
		}
		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = fmt.Errorf("failed to get connection string: %w", err)
			return
		}
		sharedConnStr = connStr
	})
	require.NoError(t, containerErr, "failed to start shared postgres test container")
	return sharedConnStr
}

func schemaName(t *testing.T) string {
	t.Helper()
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	buf := make([]byte, 4)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(buf))
}

func withSearchPath(connStr, schema string) string {
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssearch_path=%s", connStr, sep, schema)
}
