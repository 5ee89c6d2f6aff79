package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"forumdata/internal/auth"
	"forumdata/internal/clock"
	"forumdata/internal/db"
	"forumdata/internal/models"
	"forumdata/internal/ratelimit"
)

type testServer struct {
	*Server
	clock *clock.Manual
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	c := clock.NewManual(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	data := models.New(database, models.WithClock(c), models.WithLogger(logger))
	limiter := ratelimit.New(c, nil)
	authn := auth.New(data, limiter, auth.WithCost(bcrypt.MinCost), auth.WithLogger(logger))
	srv := New(data, authn, limiter, WithClock(c), WithLogger(logger))
	return &testServer{Server: srv, clock: c}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	return w
}

// register signs a user up and returns their session cookie.
func (ts *testServer) register(t *testing.T, username string) *http.Cookie {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": username, "email": username + "@campus.edu", "password": "Secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRegisterLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	w := ts.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "Secret123"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "session_id", cookies[0].Name)

	u := decodeBody[models.User](t, w)
	assert.Equal(t, "alice", u.Username)
	assert.Empty(t, u.Password)

	w = ts.do(t, http.MethodGet, "/api/me", nil, cookies[0])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, u.ID, decodeBody[models.User](t, w).ID)
}

func TestRegister_LeavesSessionPointerAlone(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")
	ts.register(t, "bobby")

	cur, err := ts.DB.CurrentUser()
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestLogin_Failures(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	w := ts.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid username or password")

	w = ts.do(t, http.MethodPost, "/api/register", map[string]string{"username": "alice", "password": "Secret123"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/register", map[string]string{"username": "bob", "password": "Secret123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "x", "content": "y"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bogus := &http.Cookie{Name: "session_id", Value: "not-a-session"}
	w = ts.do(t, http.MethodGet, "/api/notifications", nil, bogus)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionExpiryAndLogout(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice")

	w := ts.do(t, http.MethodPost, "/api/logout", nil, cookie)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "Secret123"}, nil)
	cookie = w.Result().Cookies()[0]
	ts.clock.Advance(25 * time.Hour)
	w = ts.do(t, http.MethodGet, "/api/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostCommentLike(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bobby")

	w := ts.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "hello", "content": "world", "topic": "general"}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decodeBody[models.Post](t, w)
	assert.Equal(t, 1, post.ID)

	w = ts.do(t, http.MethodPost, "/api/posts/1/comments", map[string]string{"content": "nice"}, bob)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/posts/1/like", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"liked": true}, decodeBody[map[string]bool](t, w))

	w = ts.do(t, http.MethodGet, "/api/posts/1", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[models.Post](t, w)
	assert.Equal(t, 1, got.Likes)
	assert.Equal(t, 1, got.Comments)
	assert.Equal(t, 1, got.Views)

	w = ts.do(t, http.MethodGet, "/api/notifications", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decodeBody[notificationsResponse](t, w)
	assert.Equal(t, 2, notes.Unread)
	require.Len(t, notes.Notifications, 2)

	w = ts.do(t, http.MethodPost, "/api/notifications/read", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int{"marked": 2}, decodeBody[map[string]int](t, w))

	w = ts.do(t, http.MethodPost, "/api/posts/99/like", nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	ts.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "Exam tips", "content": "sleep"}, alice)
	ts.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "Canteen", "content": "noodles"}, alice)
	_, err := ts.DB.CreatePost(models.NewPost{Title: "Exam leak", Content: "x", AuthorID: 1, Status: models.PostPending})
	require.NoError(t, err)

	w := ts.do(t, http.MethodGet, "/api/posts/search?q=EXAM", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	posts := decodeBody[[]models.Post](t, w)
	require.Len(t, posts, 1)
	assert.Equal(t, "Exam tips", posts[0].Title)

	history, err := ts.DB.SearchHistory(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"EXAM"}, history)

	w = ts.do(t, http.MethodGet, "/api/posts?sort=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/posts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]models.Post](t, w), 2)
}

func TestFollowVoteRewardReport(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bobby")

	w := ts.do(t, http.MethodPost, "/api/users/1/follow", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"following": true}, decodeBody[map[string]bool](t, w))
	w = ts.do(t, http.MethodPost, "/api/users/2/follow", nil, bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/posts", map[string]any{
		"title": "lunch", "content": "vote",
		"poll": map[string]any{"question": "where", "options": []string{"A", "B"}},
	}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/posts/1/vote", map[string]int{"optionId": 1}, bob)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, "/api/posts/1/vote", map[string]int{"optionId": 2}, bob)
	require.Equal(t, http.StatusOK, w.Code)
	poll := decodeBody[models.Poll](t, w)
	assert.Equal(t, 0, poll.Options[0].Votes)
	assert.Equal(t, 1, poll.Options[1].Votes)

	w = ts.do(t, http.MethodPost, "/api/posts/1/reward", map[string]int{"amount": 5}, bob)
	assert.Equal(t, http.StatusBadRequest, w.Code, "new users have no coins")

	coins := 10
	_, err := ts.DB.UpdateUser(2, models.UserUpdate{Coins: &coins})
	require.NoError(t, err)
	w = ts.do(t, http.MethodPost, "/api/posts/1/reward", map[string]int{"amount": 5}, bob)
	assert.Equal(t, http.StatusNoContent, w.Code)
	author, _ := ts.DB.UserByID(1)
	assert.Equal(t, 5, author.Coins)

	w = ts.do(t, http.MethodPost, "/api/posts/1/report", map[string]string{"reason": "spam", "type": "spam"}, bob)
	require.Equal(t, http.StatusCreated, w.Code)
	reports, err := ts.DB.Reports(1)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	stored, err := ts.DB.PostByID(1)
	require.NoError(t, err)
	require.Len(t, stored.Reports, 1)

	for _, path := range []string{"/api/posts/1", "/api/posts", "/api/posts/search?q=lunch"} {
		w = ts.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.NotContains(t, w.Body.String(), `"reports"`, path)
		assert.NotContains(t, w.Body.String(), `"reporterId"`, path)
	}
}

func TestMessages(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bobby")

	w := ts.do(t, http.MethodPost, "/api/messages", map[string]any{"receiverId": 1, "content": "hi"}, bob)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/messages/2", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decodeBody[[]models.Message](t, w)
	require.Len(t, msgs, 1)
	n, err := ts.DB.UnreadMessageCount(1)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, ts.DB.AddToBlacklist(1, 2))
	w = ts.do(t, http.MethodPost, "/api/messages", map[string]any{"receiverId": 1, "content": "again"}, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/api/messages", map[string]any{"receiverId": 42, "content": "?"}, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitedLike(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	ts.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "x", "content": "y"}, alice)

	for range 100 {
		w := ts.do(t, http.MethodPost, "/api/posts/1/like", nil, alice)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := ts.do(t, http.MethodPost, "/api/posts/1/like", nil, alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/posts", nil, nil)

	w := ts.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `forum_http_requests_total{code="200",route="GET /api/posts"}`)
}

func TestRequestValidation(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")

	tests := []struct {
		name string
		path string
		body any
		want string
	}{
		{"post without title", "/api/posts", map[string]any{"content": "y"}, "title is required"},
		{"poll with one option", "/api/posts", map[string]any{
			"title": "x", "content": "y", "poll": map[string]any{"options": []string{"A"}},
		}, "options needs at least 2 entries"},
		{"empty comment", "/api/posts/1/comments", map[string]any{"content": ""}, "content is required"},
		{"message without receiver", "/api/messages", map[string]any{"content": "hi"}, "receiverId is required"},
		{"unknown field", "/api/posts", map[string]any{"title": "x", "content": "y", "mood": "happy"}, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, tt.path, tt.body, alice)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decodeBody[errorBody](t, w).Error)
		})
	}

	w := ts.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": "bobby", "email": "not-an-email", "password": "Secret123",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email is invalid (email)", decodeBody[errorBody](t, w).Error)
}
