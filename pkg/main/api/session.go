package api

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/backend"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/notify"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/syncops"
)

// Session represents an operator session.
type Session struct {
	ID        string
	CreatedAt time.Time
	UserID    string
	CSRFToken string

	// Backend authenticates the REST calls of this operator.
	Backend *backend.Session
	// Toasts collects notifications until the next render.
	Toasts *notify.Queue

	mu    sync.Mutex
	lists map[string]entityList
}

// SessionStore holds active sessions.
type SessionStore struct {
	sessions *syncops.SyncMap[*Session]
	ttl      time.Duration
}

const (
	CSRFTokenLength = 16
	SessionIDLength = 32
	sessionCookie   = "session_id"
)

func newSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{sessions: syncops.NewSyncMap[*Session](16), ttl: ttl}
}

// generateSecureToken creates a cryptographically secure token of specified length
func generateSecureToken(length int) string {
	bytes := make([]byte, length)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// createSession creates a new session for the user
func (ss *SessionStore) createSession(userID string, bsess *backend.Session) *Session {
	session := &Session{
		ID:        generateSecureToken(SessionIDLength),
		CreatedAt: time.Now(),
		UserID:    userID,
		CSRFToken: generateSecureToken(CSRFTokenLength),
		Backend:   bsess,
		Toasts:    notify.NewQueue(0),
		lists:     make(map[string]entityList),
	}
	ss.sessions.Add(session.ID, session, ss.ttl)
	return session
}

// getSession retrieves a live session and extends its lifetime.
func (ss *SessionStore) getSession(sessionID string) (*Session, bool) {
	if sessionID == "" {
		return nil, false
	}
	session, ok := ss.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}
	ss.sessions.Touch(sessionID, ss.ttl)
	return session, true
}

// deleteSession removes a session
func (ss *SessionStore) deleteSession(sessionID string) {
	ss.sessions.Delete(sessionID)
}

// CleanupExpiredSessions removes expired sessions and returns how many were
// dropped.
func (ss *SessionStore) CleanupExpiredSessions() int {
	return ss.sessions.DeleteExpired(nil)
}

// Len returns the number of stored sessions, expired ones included until
// the next cleanup.
func (ss *SessionStore) Len() int {
	return ss.sessions.Len()
}

// list returns the cached list of entity, building it with create on first
// use.
func (s *Session) list(entity string, create func() (entityList, error)) (entityList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lists[entity]; ok {
		return l, nil
	}
	l, err := create()
	if err != nil {
		return nil, err
	}
	s.lists[entity] = l
	return l, nil
}

// resetLists drops the cached lists, e.g. after a config reload.
func (s *Session) resetLists() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.lists)
}

// cached returns the list of entity when it was already built.
func (s *Session) cached(entity string) (entityList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[entity]
	return l, ok
}
