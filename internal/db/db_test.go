package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "forum.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": openSQLite(t),
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := s.Get("nope")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, v)
		})
	}
}

func TestStore_SetGetRemove(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set("a", `[1,2]`))
			v, ok, err := s.Get("a")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[1,2]`, v)

			require.NoError(t, s.Set("a", `[]`))
			v, _, _ = s.Get("a")
			assert.Equal(t, `[]`, v)

			require.NoError(t, s.Remove("a"))
			_, ok, err = s.Get("a")
			require.NoError(t, err)
			assert.False(t, ok)

			// removing a missing key is fine
			require.NoError(t, s.Remove("a"))
		})
	}
}

func TestStore_ApplyBatch(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set("gone", "x"))

			b := NewBatch()
			b.Set("one", "1")
			b.Set("two", "2")
			b.Set("one", "uno")
			b.Remove("gone")
			require.Equal(t, 4, b.Len())
			require.NoError(t, s.Apply(b))

			v, _, _ := s.Get("one")
			assert.Equal(t, "uno", v)
			v, _, _ = s.Get("two")
			assert.Equal(t, "2", v)
			_, ok, _ := s.Get("gone")
			assert.False(t, ok)
		})
	}
}

func TestStore_KeysByPrefix(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set("history_2", "[]"))
			require.NoError(t, s.Set("history_1", "[]"))
			require.NoError(t, s.Set("users", "[]"))

			keys, err := s.Keys("history_")
			require.NoError(t, err)
			assert.Equal(t, []string{"history_1", "history_2"}, keys)

			all, err := s.Keys("")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestBatch_Pending(t *testing.T) {
	b := NewBatch()
	_, ok := b.Pending("k")
	assert.False(t, ok)

	b.Set("k", "1")
	v, ok := b.Pending("k")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	b.Remove("k")
	_, ok = b.Pending("k")
	assert.False(t, ok)
}

func TestMemory_ClosedStoreErrors(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	_, _, err := m.Get("a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Set("a", "b"), ErrClosed)
	assert.ErrorIs(t, m.Apply(NewBatch()), ErrClosed)
}

func TestOpen_CreatesFileAndParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "forum.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forum.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set("campus_forum_post_counter", "7"))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get("campus_forum_post_counter")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", v)
}

func TestClose_NilConn(t *testing.T) {
	s := &SQLite{}
	assert.NoError(t, s.Close())
}
