package database

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed migrations/sqlite3/*.sql migrations/pgx/*.sql
var migrationsFS embed.FS

// Migrate runs the embedded SQL migrations for db's driver in order (001_schema.sql, 002_..., etc.).
// Every migration is idempotent so it is safe to run on each start.
func Migrate(ctx context.Context, db *DB) error {
	dir := "migrations/" + db.Driver
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrationsFS.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err = db.ExecContext(ctx, string(sql)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
	}
	return nil
}
