package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// End reason values stored in the end_reason column.
const (
	EndReasonFinished = "finished"
	EndReasonStopped  = "stopped"
	EndReasonSleep    = "sleep"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// ErrNotFound is returned when a shot lookup matches no row.
var ErrNotFound = errors.New("history: shot not found")

// Shot represents a single completed operation record.
type Shot struct {
	// ID is the UUID assigned when the shot ended.
	ID string `json:"id"`

	// State is the operation name (espresso, steam, hot_water, flush).
	State string `json:"state"`

	// StartedAt is when the operation began (UTC).
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the operation ended (UTC).
	EndedAt time.Time `json:"ended_at"`

	// Duration is the elapsed operation time in seconds.
	Duration float64 `json:"duration_s"`

	// EndReason records how the operation ended (finished, stopped, sleep).
	EndReason string `json:"end_reason"`

	// Frames is the number of profile frames traversed during the shot.
	Frames int `json:"frames"`

	// CreatedAt is the row insertion timestamp (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves shot records.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record persists a completed shot.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - shot: The record to persist (ID and State are required)
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	Record(ctx context.Context, shot Shot) error

	// Recent returns the most recent shots, newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []Shot: Ordered newest-first records (may be empty)
	//   - error: nil on success, otherwise the underlying query error
	Recent(ctx context.Context, limit int) ([]Shot, error)

	// Get returns a single shot by ID.
	//
	// Returns:
	//   - Shot: The matching record
	//   - error: ErrNotFound if no row matches, otherwise the query error
	Get(ctx context.Context, id string) (Shot, error)
}

// SQLiteRepository implements Repository using SQLite.
//
// It stores one row per shot in the shots table created by the
// embedded migrations.
type SQLiteRepository struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a new SQLite shot repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a completed shot row.
func (r *SQLiteRepository) Record(ctx context.Context, shot Shot) error {
	if shot.ID == "" {
		return fmt.Errorf("history: shot id is required")
	}
	if shot.State == "" {
		return fmt.Errorf("history: shot state is required")
	}
	if shot.EndReason == "" {
		shot.EndReason = EndReasonFinished
	}
	if shot.Duration == 0 && shot.EndedAt.After(shot.StartedAt) {
		shot.Duration = shot.EndedAt.Sub(shot.StartedAt).Seconds()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shots (id, state, started_at, ended_at, duration_s, end_reason, frames, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		shot.ID,
		shot.State,
		shot.StartedAt.UTC().Format(time.RFC3339),
		shot.EndedAt.UTC().Format(time.RFC3339),
		shot.Duration,
		shot.EndReason,
		shot.Frames,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting shot: %w", err)
	}

	return nil
}

// Recent returns the most recent shots, newest first.
//
// The limit defaults to 50 and is clamped to 200.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Shot, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, state, started_at, ended_at, duration_s, end_reason, frames, created_at
		 FROM shots
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying shots: %w", err)
	}
	defer rows.Close()

	shots := make([]Shot, 0, limit)
	for rows.Next() {
		shot, err := scanShot(rows.Scan)
		if err != nil {
			return nil, err
		}
		shots = append(shots, shot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shots: %w", err)
	}

	return shots, nil
}

// Get returns a single shot by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (Shot, error) {
	if id == "" {
		return Shot{}, fmt.Errorf("history: shot id is required")
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT id, state, started_at, ended_at, duration_s, end_reason, frames, created_at
		 FROM shots
		 WHERE id = ?`,
		id,
	)

	shot, err := scanShot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Shot{}, ErrNotFound
	}
	if err != nil {
		return Shot{}, err
	}

	return shot, nil
}

// Prune deletes shot rows older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (rows older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("history: olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM shots WHERE started_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting shots: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// scanShot scans one shots row using the provided scan function.
func scanShot(scan func(dest ...any) error) (Shot, error) {
	var shot Shot
	var startedAt, endedAt, createdAt string

	if err := scan(&shot.ID, &shot.State, &startedAt, &endedAt, &shot.Duration, &shot.EndReason, &shot.Frames, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Shot{}, err
		}
		return Shot{}, fmt.Errorf("scanning shot: %w", err)
	}

	var err error
	if shot.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return Shot{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if shot.EndedAt, err = parseTimestamp(endedAt); err != nil {
		return Shot{}, fmt.Errorf("parsing ended_at: %w", err)
	}
	if shot.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return Shot{}, fmt.Errorf("parsing created_at: %w", err)
	}

	return shot, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	return time.Parse(time.RFC3339, value)
}
