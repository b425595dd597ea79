package game

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gamecircle-core/internal/infrastructure/database"
	_ "github.com/nerrad567/gamecircle-core/migrations" // registers the schema
)

// testDB opens a temporary SQLite database with the full schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "game-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// seedUser inserts a bare user row and returns its ID.
func seedUser(t *testing.T, db *sql.DB, id, name string) string {
	t.Helper()

	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, 'x', '2026-03-01T12:00:00Z', '2026-03-01T12:00:00Z')`,
		id, name, id+"@example.com",
	)
	if err != nil {
		t.Fatalf("seeding user %s: %v", id, err)
	}
	return id
}

func strPtr(s string) *string { return &s }
