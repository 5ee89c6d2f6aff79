package models

import (
	"cmp"
	"slices"
	"strings"
)

const (
	viewHistoryCap   = 100
	searchHistoryCap = 20

	defaultViewHistoryLimit = 20
	defaultHotSearchLimit   = 10
)

// AddToViewHistory moves postID to the front of the user's view history,
// keeping at most the hundred most recent posts.
func (d *DB) AddToViewHistory(userID, postID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.modifyUser(userID, func(u *User) {
		h := append([]int{postID}, without(u.ViewHistory, postID)...)
		if len(h) > viewHistoryCap {
			h = h[:viewHistoryCap]
		}
		u.ViewHistory = h
	})
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	return nil
}

// ViewHistory returns up to limit recently viewed posts, most recent first.
// Posts that no longer exist are skipped. A limit of zero or less means 20.
func (d *DB) ViewHistory(userID, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = defaultViewHistoryLimit
	}
	t := d.read()
	users, err := load[User](t, KeyUsers)
	if err != nil {
		return nil, err
	}
	i := indexOf(users, func(u *User) bool { return u.ID == userID })
	if i < 0 {
		return nil, nil
	}
	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return nil, err
	}
	var out []Post
	for _, id := range users[i].ViewHistory {
		if len(out) == limit {
			break
		}
		if j := indexOf(posts, func(p *Post) bool { return p.ID == id }); j >= 0 {
			out = append(out, posts[j])
		}
	}
	return out, nil
}

// ClearViewHistory empties the user's view history.
func (d *DB) ClearViewHistory(userID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.modifyUser(userID, func(u *User) { u.ViewHistory = nil })
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	return nil
}

// AddSearchHistory records keyword as the user's latest search and counts
// it towards the hot searches. Blank keywords are ignored.
func (d *DB) AddSearchHistory(userID int, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	key := searchHistoryKey(userID)
	history, err := load[string](t, key)
	if err != nil {
		return err
	}
	h := []string{keyword}
	for _, k := range history {
		if k != keyword {
			h = append(h, k)
		}
	}
	if len(h) > searchHistoryCap {
		h = h[:searchHistoryCap]
	}
	if err := stage(t, key, h); err != nil {
		return err
	}

	hot := map[string]int{}
	if _, err := loadObject(t, KeyHotSearches, &hot); err != nil {
		return err
	}
	hot[keyword]++
	if err := stage(t, KeyHotSearches, hot); err != nil {
		return err
	}
	return t.commit()
}

// SearchHistory returns the user's recent keywords, most recent first.
func (d *DB) SearchHistory(userID int) ([]string, error) {
	return load[string](d.read(), searchHistoryKey(userID))
}

func (d *DB) ClearSearchHistory(userID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	t.b.Remove(searchHistoryKey(userID))
	return t.commit()
}

// HotSearches returns the most searched keywords, highest count first and
// alphabetical among equals. A limit of zero or less means 10.
func (d *DB) HotSearches(limit int) ([]HotSearch, error) {
	if limit <= 0 {
		limit = defaultHotSearchLimit
	}
	hot := map[string]int{}
	if _, err := loadObject(d.read(), KeyHotSearches, &hot); err != nil {
		return nil, err
	}
	out := make([]HotSearch, 0, len(hot))
	for k, n := range hot {
		out = append(out, HotSearch{Keyword: k, Count: n})
	}
	slices.SortFunc(out, func(a, b HotSearch) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Keyword, b.Keyword)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
