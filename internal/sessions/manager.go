package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/michaelsproul/website/internal/users"
	"github.com/michaelsproul/website/pkg"
)

const (
	DefaultTTL = 24 * 7 * time.Hour

	// 32 bytes of entropy per token; a collision would silently hand one
	// user another user's session, so this stays far above 128 bits
	tokenBytes = 32
)

// Session is an ephemeral authentication record. Username is a copy taken
// at login time: it can go stale if the user is later renamed, which is
// accepted in exchange for lookup without a store round trip.
type Session struct {
	Token     string
	UserID    uuid.UUID
	Username  string
	CreatedAt time.Time
}

// Expired reports whether the session has outlived the given TTL.
func (s Session) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// Manager owns the token to session mapping for the lifetime of the
// process. Sessions are deliberately not durable: a restart logs everyone
// out. Lookups take the read lock so they never queue behind each other,
// only Create, Revoke and ScanAndClean take the write lock. Nothing here
// ever calls into a DataStore, so the write lock cannot be held across
// blocking I/O.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration

	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
	nowFunc        func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions:       make(map[string]Session),
		ttl:            ttl,
		RandStringFunc: pkg.GenerateRandomString,
		nowFunc:        time.Now,
	}
}

// Create generates a fresh unguessable token and registers a session for
// the user.
func (m *Manager) Create(user *users.User) (Session, error) {
	token, err := m.RandStringFunc(tokenBytes)
	if err != nil {
		return Session{}, err
	}

	session := Session{
		Token:     token,
		UserID:    user.UUID,
		Username:  user.Name,
		CreatedAt: m.nowFunc(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// with 256-bit tokens a collision should never happen; regenerate
	// rather than overwrite a live session if it somehow does
	for {
		if _, taken := m.sessions[session.Token]; !taken {
			break
		}
		if session.Token, err = m.RandStringFunc(tokenBytes); err != nil {
			return Session{}, err
		}
	}
	m.sessions[session.Token] = session

	return session, nil
}

// Lookup resolves a token to its session. Unknown and expired tokens are
// both a plain miss, not an error.
func (m *Manager) Lookup(token string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[token]
	if !ok || session.Expired(m.ttl, m.nowFunc()) {
		return Session{}, false
	}
	return session, true
}

// Revoke removes the session for the token, reporting whether one existed.
func (m *Manager) Revoke(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[token]
	delete(m.sessions, token)
	return ok
}

// ScanAndClean drops every expired session and returns how many it removed.
// Lookup already hides expired sessions, this reclaims their memory.
func (m *Manager) ScanAndClean() int {
	now := m.nowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, session := range m.sessions {
		if session.Expired(m.ttl, now) {
			delete(m.sessions, token)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("session scan and clean removed %d expired sessions", removed)
	}
	return removed
}

// Count returns the number of live (possibly expired, not yet swept)
// sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
