package store

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"codeshare/internal/model"
)

// Store owns the authoritative in-memory view of every active session.
// All methods are safe for concurrent use; accessors return copies so
// callers never alias store-owned memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session

	defaultCode     string
	defaultLanguage model.Language

	now func() time.Time // stubbed in tests
}

// NewStore creates an empty store. Sessions created without an initial
// buffer or language receive the given defaults.
func NewStore(defaultCode string, defaultLanguage model.Language) *Store {
	return &Store{
		sessions:        make(map[string]*model.Session),
		defaultCode:     defaultCode,
		defaultLanguage: defaultLanguage,
		now:             time.Now,
	}
}

// Create allocates a fresh session. It never fails.
func (s *Store) Create(data model.SessionData) *model.Session {
	now := s.now()
	sess := &model.Session{
		ID:             uuid.NewString(),
		Code:           s.defaultCode,
		Language:       s.defaultLanguage,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if data.Code != nil {
		sess.Code = *data.Code
	}
	if data.Language != nil {
		sess.Language = *data.Language
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Printf("Session created: %s", sess.ID)
	copy := *sess
	return &copy
}

// Get returns the session with the given id, touching its last-accessed
// timestamp on a successful lookup.
func (s *Store) Get(id string) (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.LastAccessedAt = s.now()
	copy := *sess
	return &copy, true
}

// Update applies the non-nil fields of data to the session and touches
// its last-accessed timestamp.
func (s *Store) Update(id string, data model.SessionData) (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if data.Code != nil {
		sess.Code = *data.Code
	}
	if data.Language != nil {
		sess.Language = *data.Language
	}
	sess.LastAccessedAt = s.now()
	copy := *sess
	return &copy, true
}

// Delete removes the session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	log.Printf("Session deleted: %s", id)
	return true
}

// IncrementParticipants records one more connected participant. Missing
// sessions are a no-op, not an error: the room layer may race a sweep.
func (s *Store) IncrementParticipants(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.ParticipantCount++
	log.Printf("Session %s: %d participant(s)", id, sess.ParticipantCount)
}

// DecrementParticipants records one fewer connected participant. The
// count is clamped at zero to tolerate duplicate or out-of-order
// disconnect notifications.
func (s *Store) DecrementParticipants(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	if sess.ParticipantCount > 0 {
		sess.ParticipantCount--
	}
	log.Printf("Session %s: %d participant(s)", id, sess.ParticipantCount)
}

// SweepExpired removes every session whose last access is older than ttl
// relative to now and returns the number removed.
func (s *Store) SweepExpired(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastAccessedAt) > ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Stats reports the total session count and how many sessions currently
// have at least one connected participant.
func (s *Store) Stats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := model.Stats{TotalSessions: len(s.sessions)}
	for _, sess := range s.sessions {
		if sess.ParticipantCount > 0 {
			stats.ActiveSessions++
		}
	}
	return stats
}
