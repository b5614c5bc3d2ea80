// ABOUTME: In-memory upload session store with TTL cleanup and capacity limits.
// ABOUTME: Thread-safe map of uploadID to Session; abandoned sessions are reaped by a background goroutine.

package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds active upload sessions keyed by upload ID. When capacity is
// reached the session with the oldest LastAccess is evicted, and sessions
// idle past the TTL are removed by Cleanup. The OnEvict hook lets the owner
// reclaim spooled chunks for sessions the store drops on its own.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration

	// OnEvict runs in its own goroutine for every session the store removes
	// without an explicit Remove call (capacity eviction and TTL reaping).
	OnEvict func(*Session)
}

// NewStore creates a session store with the given capacity and idle TTL.
func NewStore(maxSessions int, ttl time.Duration) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
	}
}

// Create allocates a new session with a fresh upload ID.
func (s *Store) Create(filename string, size int64, mimeType string, totalChunks int, metadata map[string]any) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSessions {
		var oldestID string
		var oldestTime time.Time
		for id, sess := range s.sessions {
			if oldestTime.IsZero() || sess.LastAccess.Before(oldestTime) {
				oldestID = id
				oldestTime = sess.LastAccess
			}
		}
		s.evictLocked(oldestID)
	}

	now := time.Now()
	sess := &Session{
		UploadID:     uuid.New().String(),
		Filename:     filename,
		DeclaredSize: size,
		MIMEType:     mimeType,
		TotalChunks:  totalChunks,
		Metadata:     metadata,
		received:     make(map[int]bool),
		status:       StatusInitialized,
		CreatedAt:    now,
		LastAccess:   now,
	}

	s.sessions[sess.UploadID] = sess
	return sess
}

// Get retrieves a session by ID and updates its LastAccess time.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	sess.LastAccess = time.Now()
	return sess, true
}

// Remove deletes a session from the store, returning it if present. Used by
// complete and abort, which handle their own spool cleanup.
func (s *Store) Remove(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	delete(s.sessions, id)
	return sess, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup removes sessions idle longer than the TTL.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.LastAccess.Before(cutoff) {
			s.evictLocked(id)
		}
	}
}

// StartCleanup starts a background cleanup goroutine and returns a stop function.
func (s *Store) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}

func (s *Store) evictLocked(id string) {
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)
	if s.OnEvict != nil {
		go s.OnEvict(sess)
	}
}
