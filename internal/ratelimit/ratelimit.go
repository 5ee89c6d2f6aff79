// Package ratelimit implements a sliding-window request limiter keyed by
// arbitrary strings such as "login_alice".
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"forumdata/internal/clock"
)

// ErrLimited is returned by Allow when the window is full.
var ErrLimited = errors.New("rate limit exceeded")

var rejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "forum_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by action.",
	}, []string{"action"})

// Rule is a request budget: at most Max requests per Window.
type Rule struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

// Actions with a default rule.
const (
	ActionLogin    = "login"
	ActionRegister = "register"
	ActionPost     = "post"
	ActionComment  = "comment"
	ActionLike     = "like"
	ActionSearch   = "search"
	ActionMessage  = "message"
	ActionReport   = "report"
)

// DefaultRules returns a fresh copy of the built-in rules.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		ActionLogin:    {Max: 5, Window: time.Minute},
		ActionRegister: {Max: 3, Window: time.Hour},
		ActionPost:     {Max: 10, Window: time.Hour},
		ActionComment:  {Max: 30, Window: time.Hour},
		ActionLike:     {Max: 100, Window: time.Hour},
		ActionSearch:   {Max: 20, Window: time.Minute},
		ActionMessage:  {Max: 20, Window: time.Hour},
		ActionReport:   {Max: 5, Window: 24 * time.Hour},
	}
}

// Limiter tracks accepted request times per key. State lives only in
// memory and is lost on restart.
//
// Thread-safety: all methods are safe for concurrent use.
type Limiter struct {
	clock clock.Clock
	rules map[string]Rule

	mu   sync.Mutex
	hits map[string][]time.Time
}

// New returns a limiter using c for time and rules for Allow. Nil arguments
// select the real clock and DefaultRules.
func New(c clock.Clock, rules map[string]Rule) *Limiter {
	if c == nil {
		c = clock.Real{}
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Limiter{clock: c, rules: rules, hits: make(map[string][]time.Time)}
}

// Check reports whether a request under key is allowed and, if so, records
// it. Requests older than window no longer count. A limit of zero rejects
// everything.
func (l *Limiter) Check(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	live := l.prune(key, now, window)
	if len(live) >= limit {
		return false
	}
	l.hits[key] = append(live, now)
	return true
}

// Remaining reports how many more requests key may make in the current
// window. It does not record anything.
func (l *Limiter) Remaining(key string, limit int, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return max(0, limit-len(l.prune(key, l.clock.Now(), window)))
}

// ResetAt returns when the oldest counted request for key leaves the
// window, or now if nothing is counted.
func (l *Limiter) ResetAt(key string, window time.Duration) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	live := l.prune(key, now, window)
	if len(live) == 0 {
		return now
	}
	return live[0].Add(window)
}

// Clear forgets every request recorded under key.
func (l *Limiter) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, key)
}

func (l *Limiter) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.hits)
}

// Allow checks principal against the rule for action under the key
// "<action>_<principal>". Unknown actions are not limited.
func (l *Limiter) Allow(action, principal string) error {
	r, ok := l.rules[action]
	if !ok {
		return nil
	}
	if !l.Check(Key(action, principal), r.Max, r.Window) {
		rejected.WithLabelValues(action).Inc()
		return fmt.Errorf("%s: %w", action, ErrLimited)
	}
	return nil
}

// Rule returns the rule configured for action.
func (l *Limiter) Rule(action string) (Rule, bool) {
	r, ok := l.rules[action]
	return r, ok
}

// Key builds the limiter key for an action and principal.
func Key(action, principal string) string {
	return action + "_" + principal
}

// prune drops expired entries for key and returns what is left. Callers
// hold l.mu.
func (l *Limiter) prune(key string, now time.Time, window time.Duration) []time.Time {
	all := l.hits[key]
	live := all[:0]
	for _, t := range all {
		if now.Sub(t) < window {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		delete(l.hits, key)
		return nil
	}
	l.hits[key] = live
	return live
}
