// Package server exposes the forum data layer as a JSON HTTP API.
package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"forumdata/internal/auth"
	"forumdata/internal/clock"
	"forumdata/internal/models"
	"forumdata/internal/ratelimit"
	"forumdata/internal/search"
)

type Server struct {
	DB      *models.DB
	Auth    *auth.Engine
	Search  *search.Engine
	Limiter *ratelimit.Limiter

	CookieName string

	log      *slog.Logger
	clock    clock.Clock
	ttl      time.Duration
	sessions *sessions
	handler  http.Handler
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithClock(c clock.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithSession sets the session cookie name and lifetime.
func WithSession(cookieName string, ttl time.Duration) Option {
	return func(s *Server) {
		s.CookieName = cookieName
		s.ttl = ttl
	}
}

// New wires the API over db. The limiter may be nil to disable rate
// limiting.
func New(db *models.DB, authn *auth.Engine, limiter *ratelimit.Limiter, opts ...Option) *Server {
	s := &Server{
		DB:         db,
		Auth:       authn,
		Search:     search.New(db),
		Limiter:    limiter,
		CookieName: "session_id",
		log:        slog.Default(),
		clock:      clock.Real{},
		ttl:        24 * time.Hour,
	}
	for _, o := range opts {
		o(s)
	}
	s.sessions = newSessions(s.clock, s.ttl)
	s.handler = s.instrument(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/posts", s.handleListPosts)
	mux.HandleFunc("GET /api/posts/search", s.handleSearch)
	mux.HandleFunc("POST /api/posts", s.requireAuth(s.handleNewPost))
	mux.HandleFunc("GET /api/posts/{id}", s.handlePost)
	mux.HandleFunc("GET /api/posts/{id}/comments", s.handleListComments)
	mux.HandleFunc("POST /api/posts/{id}/comments", s.requireAuth(s.handleComment))
	mux.HandleFunc("POST /api/posts/{id}/like", s.requireAuth(s.handlePostLike))
	mux.HandleFunc("POST /api/posts/{id}/collect", s.requireAuth(s.handlePostCollect))
	mux.HandleFunc("POST /api/posts/{id}/vote", s.requireAuth(s.handleVote))
	mux.HandleFunc("POST /api/posts/{id}/reward", s.requireAuth(s.handleReward))
	mux.HandleFunc("POST /api/posts/{id}/report", s.requireAuth(s.handleReport))

	mux.HandleFunc("POST /api/users/{id}/follow", s.requireAuth(s.handleFollow))
	mux.HandleFunc("GET /api/notifications", s.requireAuth(s.handleNotifications))
	mux.HandleFunc("POST /api/notifications/read", s.requireAuth(s.handleReadNotifications))
	mux.HandleFunc("POST /api/messages", s.requireAuth(s.handleSendMessage))
	mux.HandleFunc("GET /api/messages/{userId}", s.requireAuth(s.handleConversation))

	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// middleware
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, *models.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := s.currentUser(r)
		if user == nil {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) currentUser(r *http.Request) *models.User {
	cookie, err := r.Cookie(s.CookieName)
	if err != nil {
		return nil
	}
	id, ok := s.sessions.lookup(cookie.Value)
	if !ok {
		return nil
	}
	u, err := s.DB.UserByID(id)
	if err != nil {
		s.log.Error("load session user", "user_id", id, "err", err)
		return nil
	}
	if u == nil || u.Banned() {
		return nil
	}
	return u
}

// allow applies the rate rule for action to the user. A rejection is
// written to w and reported as false.
func (s *Server) allow(w http.ResponseWriter, action string, userID int) bool {
	if s.Limiter == nil {
		return true
	}
	if err := s.Limiter.Allow(action, strconv.Itoa(userID)); err != nil {
		s.log.Warn("rate limited", "action", action, "user_id", userID)
		writeError(w, http.StatusTooManyRequests, err.Error())
		return false
	}
	return true
}

// helpers
func pathID(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	return n, err == nil && n > 0
}
