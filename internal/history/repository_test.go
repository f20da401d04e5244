package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/decenza/de1-sim-core/internal/infrastructure/database"
)

// openTestRepo creates a temporary database with the shots schema.
func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	tmpDir := t.TempDir()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(tmpDir, "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(context.Background(), `
		CREATE TABLE shots (
			id          TEXT PRIMARY KEY,
			state       TEXT NOT NULL,
			started_at  TEXT NOT NULL,
			ended_at    TEXT NOT NULL,
			duration_s  REAL NOT NULL,
			end_reason  TEXT NOT NULL,
			frames      INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("failed to create shots table: %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

// testShot returns a valid shot starting at the given offset from a fixed base.
func testShot(offset time.Duration) Shot {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC).Add(offset)
	return Shot{
		ID:        uuid.New().String(),
		State:     "espresso",
		StartedAt: base,
		EndedAt:   base.Add(34 * time.Second),
		EndReason: EndReasonFinished,
		Frames:    5,
	}
}

// ─── Record ──────────────────────────────────────────────────────────────────

func TestRecord(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	shot := testShot(0)
	if err := repo.Record(ctx, shot); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := repo.Get(ctx, shot.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.State != "espresso" {
		t.Errorf("State = %q, want %q", got.State, "espresso")
	}
	if got.EndReason != EndReasonFinished {
		t.Errorf("EndReason = %q, want %q", got.EndReason, EndReasonFinished)
	}
	if got.Frames != 5 {
		t.Errorf("Frames = %d, want 5", got.Frames)
	}
	if !got.StartedAt.Equal(shot.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, shot.StartedAt)
	}
	if got.Duration != 34 {
		t.Errorf("Duration = %v, want 34 (derived from timestamps)", got.Duration)
	}
}

func TestRecord_MissingID(t *testing.T) {
	repo := openTestRepo(t)

	shot := testShot(0)
	shot.ID = ""

	if err := repo.Record(context.Background(), shot); err == nil {
		t.Error("Record() expected error for missing ID")
	}
}

func TestRecord_MissingState(t *testing.T) {
	repo := openTestRepo(t)

	shot := testShot(0)
	shot.State = ""

	if err := repo.Record(context.Background(), shot); err == nil {
		t.Error("Record() expected error for missing state")
	}
}

func TestRecord_DefaultEndReason(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	shot := testShot(0)
	shot.EndReason = ""

	if err := repo.Record(ctx, shot); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := repo.Get(ctx, shot.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.EndReason != EndReasonFinished {
		t.Errorf("EndReason = %q, want %q", got.EndReason, EndReasonFinished)
	}
}

// ─── Recent ──────────────────────────────────────────────────────────────────

func TestRecent_NewestFirst(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	first := testShot(0)
	second := testShot(10 * time.Minute)
	third := testShot(20 * time.Minute)

	for _, s := range []Shot{first, second, third} {
		if err := repo.Record(ctx, s); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	shots, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}

	if len(shots) != 3 {
		t.Fatalf("Recent() returned %d shots, want 3", len(shots))
	}

	if shots[0].ID != third.ID {
		t.Errorf("first result = %s, want newest shot %s", shots[0].ID, third.ID)
	}
	if shots[2].ID != first.ID {
		t.Errorf("last result = %s, want oldest shot %s", shots[2].ID, first.ID)
	}
}

func TestRecent_LimitClamped(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, testShot(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	// Zero limit uses the default
	shots, err := repo.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(shots) != 5 {
		t.Errorf("Recent(0) returned %d shots, want 5", len(shots))
	}

	// Explicit small limit is honoured
	shots, err = repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(shots) != 2 {
		t.Errorf("Recent(2) returned %d shots, want 2", len(shots))
	}
}

func TestRecent_Empty(t *testing.T) {
	repo := openTestRepo(t)

	shots, err := repo.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(shots) != 0 {
		t.Errorf("Recent() returned %d shots, want 0", len(shots))
	}
}

// ─── Get ─────────────────────────────────────────────────────────────────────

func TestGet_NotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.Get(context.Background(), uuid.New().String())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestGet_EmptyID(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.Get(context.Background(), "")
	if err == nil {
		t.Error("Get() expected error for empty ID")
	}
}

// ─── Prune ───────────────────────────────────────────────────────────────────

func TestPrune(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	old := testShot(0)
	old.StartedAt = time.Now().UTC().Add(-48 * time.Hour)
	old.EndedAt = old.StartedAt.Add(30 * time.Second)

	recent := testShot(0)
	recent.StartedAt = time.Now().UTC().Add(-time.Hour)
	recent.EndedAt = recent.StartedAt.Add(30 * time.Second)

	for _, s := range []Shot{old, recent} {
		if err := repo.Record(ctx, s); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	deleted, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune() deleted %d rows, want 1", deleted)
	}

	if _, err := repo.Get(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("old shot should be pruned, Get() error = %v", err)
	}
	if _, err := repo.Get(ctx, recent.ID); err != nil {
		t.Errorf("recent shot should survive prune, Get() error = %v", err)
	}
}

func TestPrune_InvalidDuration(t *testing.T) {
	repo := openTestRepo(t)

	if _, err := repo.Prune(context.Background(), 0); err == nil {
		t.Error("Prune() expected error for zero duration")
	}
}
