package domain

import (
	"context"
	"fmt"
	"math"
	"time"
)

// EndOfTime is the open upper bound for GetSessionsInRange.
var EndOfTime = time.UnixMilli(math.MaxInt64)

// SessionRecord is the journal entry for one sampling session.
// StoppedAt is zero while the session is still running.
type SessionRecord struct {
	ID            string
	StartedAt     time.Time
	StoppedAt     time.Time
	ReadingCount  uint64
	WriteFailures uint64
	LogPath       string
}

// Running reports whether the session has not been stopped yet.
func (s *SessionRecord) Running() bool {
	return s.StoppedAt.IsZero()
}

// SessionRepository defines operations for journaling sampling sessions
// This is a PORT - adapters (SQLite, Memory) will implement it
type SessionRepository interface {
	// SaveSession inserts the record, or replaces the one with the same ID
	SaveSession(ctx context.Context, session *SessionRecord) error

	// GetSession retrieves a specific session by ID
	GetSession(ctx context.Context, id string) (*SessionRecord, error)

	// GetLatestSession retrieves the most recently started session
	GetLatestSession(ctx context.Context) (*SessionRecord, error)

	// GetSessionsInRange retrieves sessions started within [start, end),
	// oldest first.
	GetSessionsInRange(ctx context.Context, start, end time.Time) ([]*SessionRecord, error)
}

// ParseRange parses optional RFC 3339 bounds for GetSessionsInRange.
// An empty from means the Unix epoch; an empty to means EndOfTime.
func ParseRange(from, to string) (time.Time, time.Time, error) {
	start, end := time.Unix(0, 0), EndOfTime

	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from: %v", ErrInvalidRange, err)
		}
		start = t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to: %v", ErrInvalidRange, err)
		}
		end = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from must be before to", ErrInvalidRange)
	}
	return start, end, nil
}
