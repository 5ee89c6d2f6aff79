package models

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumdata/internal/clock"
	"forumdata/internal/db"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db    *DB
	store db.Store
	clock *clock.Manual
	logs  *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: db.NewMemory(),
		clock: clock.NewManual(epoch),
		logs:  &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, nil))
	f.db = New(f.store, WithClock(f.clock), WithLogger(logger))
	return f
}

func (f *fixture) user(t *testing.T, username string) *User {
	t.Helper()
	u, err := f.db.CreateUser(NewUser{Username: username, Password: "password1"})
	require.NoError(t, err)
	return u
}

func (f *fixture) post(t *testing.T, authorID int, title string) *Post {
	t.Helper()
	p, err := f.db.CreatePost(NewPost{Title: title, Content: title + " body", AuthorID: authorID, Topic: "general"})
	require.NoError(t, err)
	return p
}

func (f *fixture) raw(t *testing.T, key string) string {
	t.Helper()
	v, _, err := f.store.Get(key)
	require.NoError(t, err)
	return v
}

func TestCounters_StartAtOneAndPersistNext(t *testing.T) {
	f := newFixture(t)

	a := f.user(t, "alice")
	b := f.user(t, "bobby")
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)
	assert.Equal(t, "3", f.raw(t, KeyUserCounter))
}

func TestCounters_SurviveDeletion(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")

	p := f.post(t, a.ID, "one")
	ok, err := f.db.DeletePost(p.ID)
	require.NoError(t, err)
	require.True(t, ok)

	p2 := f.post(t, a.ID, "two")
	assert.Equal(t, 2, p2.ID)
}

func TestCounters_CorruptValueRestarts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(KeyPostCounter, "banana"))

	p := f.post(t, 1, "x")
	assert.Equal(t, 1, p.ID)
	assert.Contains(t, f.logs.String(), "corrupt counter")
}

func TestLoad_CorruptCollectionFallsBackToEmpty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(KeyUsers, "{not json"))

	users, err := f.db.Users()
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Contains(t, f.logs.String(), KeyUsers)

	u, err := f.db.UserByID(1)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestLoad_MissingCollectionIsEmpty(t *testing.T) {
	f := newFixture(t)

	posts, err := f.db.Posts()
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestClearAll(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	f.post(t, a.ID, "hello")
	require.NoError(t, f.db.AddSearchHistory(a.ID, "go"))
	require.NoError(t, f.db.SetCurrentUser(a.ID))

	require.NoError(t, f.db.ClearAll())

	keys, err := f.store.Keys("campus_forum_")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClosedStore_ReturnsError(t *testing.T) {
	mem := db.NewMemory()
	d := New(mem, WithClock(clock.NewManual(epoch)), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := d.CreateUser(NewUser{Username: "alice"})
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	_, err = d.CreateUser(NewUser{Username: "bobby"})
	assert.ErrorIs(t, err, db.ErrClosed)
}
