package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"forumdata/internal/clock"
	"forumdata/internal/db"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrAlreadyFollowing   = errors.New("already following")
	ErrNotFollowing       = errors.New("not following")
	ErrInvalidAmount      = errors.New("reward amount must be positive")
	ErrInsufficientCoins  = errors.New("insufficient coins")
	ErrNoPoll             = errors.New("post has no poll")
	ErrOptionNotFound     = errors.New("poll option not found")
	ErrPollClosed         = errors.New("poll has ended")
)

// Storage keys. Each holds one JSON array, object or decimal counter.
const (
	KeyUsers               = "campus_forum_users"
	KeyPosts               = "campus_forum_posts"
	KeyComments            = "campus_forum_comments"
	KeyNotifications       = "campus_forum_notifications"
	KeyMessages            = "campus_forum_messages"
	KeyConversations       = "campus_forum_conversations"
	KeyCurrentUser         = "campus_forum_current_user"
	KeyPostCounter         = "campus_forum_post_counter"
	KeyUserCounter         = "campus_forum_user_counter"
	KeyMessageCounter      = "campus_forum_message_counter"
	KeyConversationCounter = "campus_forum_conversation_counter"
	KeyDrafts              = "campus_forum_drafts"
	KeyReports             = "campus_forum_reports"
	KeySearchHistoryPrefix = "campus_forum_search_history_"
	KeyHotSearches         = "campus_forum_hot_searches"
)

var allKeys = []string{
	KeyUsers, KeyPosts, KeyComments, KeyNotifications, KeyMessages,
	KeyConversations, KeyCurrentUser, KeyPostCounter, KeyUserCounter,
	KeyMessageCounter, KeyConversationCounter, KeyDrafts, KeyReports,
	KeyHotSearches,
}

func searchHistoryKey(userID int) string {
	return KeySearchHistoryPrefix + strconv.Itoa(userID)
}

// DB is the forum data layer. All repositories and relationship operations
// hang off it and share one Store.
//
// Mutating operations are serialised by an internal mutex and each commits
// its writes with a single Store.Apply, so a multi-record change such as a
// follow is all-or-nothing. Readers do not take the mutex.
type DB struct {
	store db.Store
	clock clock.Clock
	log   *slog.Logger

	mu sync.Mutex
}

type Option func(*DB)

// WithClock sets the time source for timestamps and wall-clock ids.
func WithClock(c clock.Clock) Option {
	return func(d *DB) { d.clock = c }
}

// WithLogger sets the logger used for storage warnings.
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) { d.log = l }
}

func New(store db.Store, opts ...Option) *DB {
	d := &DB{store: store, clock: clock.Real{}, log: slog.Default()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Now returns the DB clock's current time in UTC.
func (d *DB) Now() time.Time {
	return d.clock.Now().UTC()
}

// ClearAll removes every forum key from the store.
func (d *DB) ClearAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	for _, k := range allKeys {
		t.b.Remove(k)
	}
	history, err := d.store.Keys(KeySearchHistoryPrefix)
	if err != nil {
		return err
	}
	for _, k := range history {
		t.b.Remove(k)
	}
	return t.commit()
}

// tx stages writes for one operation. Reads through a tx see its own staged
// writes.
type tx struct {
	d *DB
	b *db.Batch
}

func (d *DB) begin() *tx {
	return &tx{d: d, b: db.NewBatch()}
}

func (t *tx) get(key string) (string, bool, error) {
	if v, ok := t.b.Pending(key); ok {
		return v, true, nil
	}
	return t.d.store.Get(key)
}

func (t *tx) commit() error {
	if t.b.Len() == 0 {
		return nil
	}
	return t.d.store.Apply(t.b)
}

// load decodes the JSON array under key. A missing key yields an empty
// slice; so does an undecodable value, which is logged and otherwise
// ignored.
func load[T any](t *tx, key string) ([]T, error) {
	raw, ok, err := t.get(key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.d.log.Warn("corrupt collection, using empty default", "key", key, "err", err)
		return []T{}, nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// loadObject decodes a JSON object under key into v, leaving v untouched
// when the key is missing or corrupt.
func loadObject(t *tx, key string, v any) (bool, error) {
	raw, ok, err := t.get(key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		t.d.log.Warn("corrupt value, using default", "key", key, "err", err)
		return false, nil
	}
	return true, nil
}

func stage(t *tx, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	t.b.Set(key, string(data))
	return nil
}

// next allocates an id from the named counter: it returns the stored value
// (1 when unset) and stages value+1.
func (t *tx) next(key string) (int, error) {
	raw, ok, err := t.get(key)
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", key, err)
	}
	n := 1
	if ok {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || v < 1 {
			t.d.log.Warn("corrupt counter, restarting at 1", "key", key, "value", raw)
		} else {
			n = v
		}
	}
	t.b.Set(key, strconv.Itoa(n+1))
	return n, nil
}

// read starts a tx that is never committed, for read-only operations.
func (d *DB) read() *tx {
	return d.begin()
}

func indexOf[T any](list []T, match func(*T) bool) int {
	for i := range list {
		if match(&list[i]) {
			return i
		}
	}
	return -1
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func without(list []int, v int) []int {
	out := make([]int, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func intPtr(v int) *int {
	return &v
}
