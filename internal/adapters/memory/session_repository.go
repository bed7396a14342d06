package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quentinrf/light-analyzer/internal/domain"
)

// SessionRepository implements domain.SessionRepository with in-memory storage
// Records are copied in and out so callers can keep mutating their own.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionRecord
}

// NewSessionRepository creates an empty in-memory repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]domain.SessionRecord),
	}
}

// SaveSession stores a copy of the session
func (r *SessionRepository) SaveSession(ctx context.Context, session *domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = *session
	return nil
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	return &session, nil
}

// GetSessionsInRange returns sessions started within [start, end)
func (r *SessionRepository) GetSessionsInRange(ctx context.Context, start, end time.Time) ([]*domain.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*domain.SessionRecord
	for _, session := range r.sessions {
		if !session.StartedAt.Before(start) && session.StartedAt.Before(end) {
			s := session
			results = append(results, &s)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.Before(results[j].StartedAt)
	})

	return results, nil
}

// GetLatestSession returns the most recently started session
func (r *SessionRepository) GetLatestSession(ctx context.Context) (*domain.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sessions) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	var latest *domain.SessionRecord
	for _, session := range r.sessions {
		if latest == nil || session.StartedAt.After(latest.StartedAt) {
			s := session
			latest = &s
		}
	}

	return latest, nil
}
