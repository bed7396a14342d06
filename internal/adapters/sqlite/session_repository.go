package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/quentinrf/light-analyzer/internal/domain"
)

// SessionRepository implements domain.SessionRepository with SQLite
// Times are stored as epoch milliseconds; a NULL stopped_at marks a running session.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a SQLite-backed repository
func NewSessionRepository(dbPath string) (*SessionRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create table if not exists
	schema := `
	CREATE TABLE IF NOT EXISTS sampling_sessions (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		stopped_at INTEGER,
		reading_count INTEGER NOT NULL DEFAULT 0,
		write_failures INTEGER NOT NULL DEFAULT 0,
		log_path TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_started_at ON sampling_sessions(started_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SessionRepository{db: db}, nil
}

// SaveSession inserts or replaces a session record
func (r *SessionRepository) SaveSession(ctx context.Context, session *domain.SessionRecord) error {
	query := `
		INSERT INTO sampling_sessions (id, started_at, stopped_at, reading_count, write_failures, log_path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			stopped_at = excluded.stopped_at,
			reading_count = excluded.reading_count,
			write_failures = excluded.write_failures,
			log_path = excluded.log_path
	`

	var stoppedAt sql.NullInt64
	if !session.StoppedAt.IsZero() {
		stoppedAt = sql.NullInt64{Int64: session.StoppedAt.UnixMilli(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.StartedAt.UnixMilli(),
		stoppedAt,
		int64(session.ReadingCount),
		int64(session.WriteFailures),
		session.LogPath,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	query := `
		SELECT id, started_at, stopped_at, reading_count, write_failures, log_path
		FROM sampling_sessions
		WHERE id = ?
	`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

// GetSessionsInRange returns sessions started within [start, end)
func (r *SessionRepository) GetSessionsInRange(ctx context.Context, start, end time.Time) ([]*domain.SessionRecord, error) {
	query := `
		SELECT id, started_at, stopped_at, reading_count, write_failures, log_path
		FROM sampling_sessions
		WHERE started_at >= ? AND started_at < ?
		ORDER BY started_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.SessionRecord
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// GetLatestSession returns the most recently started session
func (r *SessionRepository) GetLatestSession(ctx context.Context) (*domain.SessionRecord, error) {
	query := `
		SELECT id, started_at, stopped_at, reading_count, write_failures, log_path
		FROM sampling_sessions
		ORDER BY started_at DESC
		LIMIT 1
	`

	session, err := scanSession(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest session: %w", err)
	}

	return session, nil
}

// Close closes the database connection
func (r *SessionRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.SessionRecord, error) {
	var (
		session       domain.SessionRecord
		startedAt     int64
		stoppedAt     sql.NullInt64
		readingCount  int64
		writeFailures int64
	)

	if err := row.Scan(&session.ID, &startedAt, &stoppedAt, &readingCount, &writeFailures, &session.LogPath); err != nil {
		return nil, err
	}

	session.StartedAt = time.UnixMilli(startedAt)
	if stoppedAt.Valid {
		session.StoppedAt = time.UnixMilli(stoppedAt.Int64)
	}
	session.ReadingCount = uint64(readingCount)
	session.WriteFailures = uint64(writeFailures)

	return &session, nil
}
