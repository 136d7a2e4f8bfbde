package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x", nil)
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n))
	assert.Zero(t, n)
}

func TestTimestampsDefaultOnInsert(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))

	_, err := db.ExecContext(ctx,
		`INSERT INTO registrations (email, first_name, last_name, status) VALUES ($1, $2, $3, $4)`,
		"ada@example.org", "Ada", "Lovelace", "ACCEPTED")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO participants (email, first_name, last_name) VALUES ($1, $2, $3)`,
		"ada@example.org", "Ada", "Lovelace")
	require.NoError(t, err)

	for _, table := range []string{"registrations", "participants"} {
		var created, updated sql.NullString
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT created_at, updated_at FROM `+table+` WHERE email = $1`, "ada@example.org").Scan(&created, &updated))
		assert.True(t, created.Valid && created.String != "", table)
		assert.True(t, updated.Valid && updated.String != "", table)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTx(ctx, db.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv (k) VALUES ($1)`, "a"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, WithTx(ctx, db.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO kv (k) VALUES ($1)`, "b")
		return err
	}))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestIsUniqueViolation(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `CREATE TABLE kv (k TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO kv (k) VALUES ($1)`, "a")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO kv (k) VALUES ($1)`, "a")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}
