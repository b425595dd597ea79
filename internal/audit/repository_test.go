package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gamecircle-core/internal/infrastructure/database"
	_ "github.com/nerrad567/gamecircle-core/migrations" // registers the schema
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "audit-test.db"),
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
	return NewSQLiteRepository(db.DB)
}

func TestRepository_CreateAndList(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: ActionSignup, EntityType: EntityUser, EntityID: "usr-ann", UserID: "usr-ann", Source: "api", CreatedAt: base},
		{Action: ActionCreate, EntityType: EntityGame, EntityID: "gam-1", UserID: "usr-ann", Source: "api", CreatedAt: base.Add(time.Minute)},
		{Action: ActionToggle, EntityType: EntityGame, EntityID: "gam-1", UserID: "usr-bob", Source: "api",
			Details: map[string]any{"action": "added"}, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Fatal("Create() should generate an ID")
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || len(all.Logs) != 3 {
		t.Fatalf("List() total=%d len=%d, want 3/3", all.Total, len(all.Logs))
	}
	if all.Logs[0].Action != ActionToggle {
		t.Errorf("newest first: got %s", all.Logs[0].Action)
	}
	if all.Logs[0].Details["action"] != "added" {
		t.Errorf("Details = %v", all.Logs[0].Details)
	}
	if all.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", all.Limit, DefaultLimit)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by action", Filter{Action: ActionSignup}, 1},
		{"by entity type", Filter{EntityType: EntityGame}, 2},
		{"by entity id", Filter{EntityType: EntityGame, EntityID: "gam-1"}, 2},
		{"by user", Filter{UserID: "usr-bob"}, 1},
		{"no match", Filter{Action: ActionDelete}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.want || len(res.Logs) != tt.want {
				t.Errorf("total=%d len=%d, want %d", res.Total, len(res.Logs), tt.want)
			}
		})
	}
}

func TestRepository_Pagination(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for i := range 5 {
		e := &Entry{Action: ActionLogin, EntityType: EntityUser, Source: "api", CreatedAt: time.Unix(int64(1772366400+i), 0)}
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 5 || len(page.Logs) != 1 {
		t.Errorf("total=%d len=%d, want 5/1", page.Total, len(page.Logs))
	}

	clamped, err := repo.List(ctx, Filter{Limit: 10_000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if clamped.Limit != MaxLimit || clamped.Offset != 0 {
		t.Errorf("clamped limit/offset = %d/%d, want %d/0", clamped.Limit, clamped.Offset, MaxLimit)
	}
}

// ─── Recorder ───────────────────────────────────────────────────────

func TestRecorder_WritesOnClose(t *testing.T) {
	repo := testRepo(t)
	rec := NewRecorder(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), 16, "api")

	rec.Record(ActionSignup, EntityUser, "usr-ann", "usr-ann", nil)
	rec.Record(ActionDelete, EntityGame, "gam-1", "usr-ann", map[string]any{"name": "Chess"})
	rec.Close()

	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("Total = %d, want 2", res.Total)
	}
	for _, e := range res.Logs {
		if e.Source != "api" {
			t.Errorf("Source = %q, want api", e.Source)
		}
	}
}

type failingRepo struct {
	mu    sync.Mutex
	calls int
}

func (f *failingRepo) Create(context.Context, *Entry) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errors.New("database is locked")
}

func (f *failingRepo) List(context.Context, Filter) (*ListResult, error) {
	return nil, errors.New("not implemented")
}

func TestRecorder_WriteFailureIsLogged(t *testing.T) {
	repo := &failingRepo{}
	rec := NewRecorder(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), 4, "api")

	rec.Record(ActionLogin, EntityUser, "usr-ann", "usr-ann", nil)
	rec.Close()

	if repo.calls != 1 {
		t.Errorf("Create calls = %d, want 1", repo.calls)
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	tests := []struct {
		name     string
		before   int
		after    int
		parallel bool
	}{
		{name: "sequential", before: 1, after: 3},
		{name: "concurrent with close", before: 2, after: 50, parallel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testRepo(t)
			rec := NewRecorder(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), 64, "api")

			for i := 0; i < tt.before; i++ {
				rec.Record(ActionLogin, EntityUser, "usr-ann", "usr-ann", nil)
			}

			var wg sync.WaitGroup
			if tt.parallel {
				for i := 0; i < tt.after; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						rec.Record(ActionUpdate, EntityUser, "usr-ann", "usr-ann", nil)
					}()
				}
				rec.Close()
			} else {
				rec.Close()
				for i := 0; i < tt.after; i++ {
					rec.Record(ActionUpdate, EntityUser, "usr-ann", "usr-ann", nil)
				}
			}
			wg.Wait()
			rec.Close()

			res, err := repo.List(context.Background(), Filter{Action: ActionLogin})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.before {
				t.Errorf("login entries = %d, want %d", res.Total, tt.before)
			}
			if !tt.parallel {
				res, err = repo.List(context.Background(), Filter{Action: ActionUpdate})
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if res.Total != 0 {
					t.Errorf("entries recorded after Close = %d, want 0", res.Total)
				}
			}
		})
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var rec *Recorder
	rec.Record(ActionLogin, EntityUser, "", "", nil)
	rec.Close()
}
