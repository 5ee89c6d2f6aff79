package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"forumdata/internal/clock"
)

type session struct {
	userID  int
	expires time.Time
}

// sessions maps opaque cookie values to user ids. They live in memory only,
// so a restart logs everyone out.
type sessions struct {
	clock clock.Clock
	ttl   time.Duration

	mu sync.Mutex
	m  map[string]session
}

func newSessions(c clock.Clock, ttl time.Duration) *sessions {
	return &sessions{clock: c, ttl: ttl, m: make(map[string]session)}
}

func (s *sessions) create(userID int) (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid := uuid.NewString()
	expires := s.clock.Now().Add(s.ttl)
	s.m[sid] = session{userID: userID, expires: expires}
	return sid, expires
}

func (s *sessions) lookup(sid string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.m[sid]
	if !ok {
		return 0, false
	}
	if !s.clock.Now().Before(sess.expires) {
		delete(s.m, sid)
		return 0, false
	}
	return sess.userID, true
}

func (s *sessions) revoke(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, sid)
}
