package server

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/michaelsproul/website/internal/sessions"
	"github.com/michaelsproul/website/internal/times"
	"github.com/michaelsproul/website/internal/users"
)

// Login validates the credentials and opens a session. The store lookup
// happens before any session lock is taken, so a slow backend never
// stalls concurrent session lookups.
func (s *Server) Login(ctx context.Context, username, password string) (sessions.Session, error) {
	user, err := s.users.Validate(ctx, username, password)
	if err != nil {
		s.metrics.CounterLoginsFailed.Inc()
		return sessions.Session{}, err
	}

	session, err := s.sessions.Create(user)
	if err != nil {
		return sessions.Session{}, err
	}

	s.metrics.CounterLogins.Inc()
	s.metrics.GaugeActiveSessions.Set(float64(s.sessions.Count()))

	log.Debugf("user %q logged in", user.Name)
	return session, nil
}

// Authenticate resolves an opaque request token to its session.
func (s *Server) Authenticate(token string) (sessions.Session, bool) {
	return s.sessions.Lookup(token)
}

// Logout revokes the session for the token, reporting whether one existed.
func (s *Server) Logout(token string) bool {
	revoked := s.sessions.Revoke(token)
	s.metrics.GaugeActiveSessions.Set(float64(s.sessions.Count()))
	return revoked
}

// CreateUser wraps the users service with telemetry.
func (s *Server) CreateUser(ctx context.Context, username, password string, admin bool) (*users.User, error) {
	user, err := s.users.CreateUser(ctx, username, password, admin)
	if err != nil {
		return nil, err
	}
	s.metrics.CounterUsersCreated.Inc()
	return user, nil
}

// SaveEntry wraps the timesheet service with telemetry.
func (s *Server) SaveEntry(ctx context.Context, entry times.Entry) (*times.Entry, error) {
	saved, err := s.times.Save(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.metrics.CounterEntriesSaved.Inc()
	return saved, nil
}
