package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gamecircle-core/internal/infrastructure/database"
	_ "github.com/nerrad567/gamecircle-core/migrations" // registers the schema
)

const testSecret = "test-secret-key-for-jwt-signing-32b"

// testDB opens a temporary SQLite database with the full schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
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

// fakeClock is a settable time source for token tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTokens(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()

	tokens, err := NewTokenService(testSecret, time.Hour, opts...)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return tokens
}

// newTestDirectory wires a Directory against a fresh database.
// bcrypt runs at minimum cost to keep tests fast.
func newTestDirectory(t *testing.T) (*Directory, *SQLiteUserRepository) {
	t.Helper()

	repo := NewUserRepository(testDB(t))
	return NewDirectory(repo, NewHasher(4), newTestTokens(t)), repo
}

// seedTestUser inserts a user with password "test-password" and returns it.
func seedTestUser(t *testing.T, repo *SQLiteUserRepository, name, email string) *User {
	t.Helper()

	hash, err := NewHasher(4).Hash("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &User{Name: name, Email: email, PasswordHash: hash}
	if err := repo.Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}
