package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableNames(t *testing.T, conn *sql.DB) []string {
	t.Helper()
	rows, err := conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestNew_MigratesPlannerSchema(t *testing.T) {
	for _, driver := range []string{DriverModernc, DriverMattn} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "planner.db")

			db, err := New(Config{Path: path, Name: "planner", Driver: driver})
			require.NoError(t, err)
			defer db.Close()

			require.NoError(t, db.Migrate())
			// Applying twice is harmless
			require.NoError(t, db.Migrate())

			assert.Equal(t, []string{"best_result", "evaluations", "planner_settings", "sequences"}, tableNames(t, db.Conn()))
			assert.Equal(t, driver, db.Driver())
			assert.NoError(t, db.HealthCheck(context.Background()))
		})
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"})
	assert.Error(t, err)
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "other.db"), Name: "other"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	assert.Empty(t, tableNames(t, db.Conn()))
}

func TestApplySchema_InMemory(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	require.NoError(t, ApplySchema(conn, "planner"))
	assert.Contains(t, tableNames(t, conn), "sequences")

	assert.Error(t, ApplySchema(conn, "missing"))
}

func TestWithTransaction(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	_, err = conn.Exec(`CREATE TABLE t (v INTEGER)`)
	require.NoError(t, err)

	t.Run("commits on success", func(t *testing.T) {
		err := WithTransaction(conn, func(tx *sql.Tx) error {
			_, err := tx.Exec(`INSERT INTO t (v) VALUES (1)`)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		err := WithTransaction(conn, func(tx *sql.Tx) error {
			if _, err := tx.Exec(`INSERT INTO t (v) VALUES (2)`); err != nil {
				return err
			}
			return assert.AnError
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		err := WithTransaction(conn, func(tx *sql.Tx) error {
			_, _ = tx.Exec(`INSERT INTO t (v) VALUES (3)`)
			panic("boom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
	})

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&count))
	assert.Equal(t, 1, count)

	assert.Error(t, WithTransaction(nil, func(tx *sql.Tx) error { return nil }))
}

func TestVacuumInto(t *testing.T) {
	dir := t.TempDir()
	db, err := New(Config{Path: filepath.Join(dir, "planner.db"), Name: "planner"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	dest := filepath.Join(dir, "snapshot.db")
	require.NoError(t, db.VacuumInto(context.Background(), dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	require.NoError(t, db.WALCheckpoint(""))
}
