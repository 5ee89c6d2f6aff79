// Package search filters and sorts the visible posts of the forum. It only
// reads posts; the one write it makes is to the searcher's history.
package search

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"forumdata/internal/models"
)

// Sort is a result ordering. Every ordering is descending and stable with
// respect to storage order.
type Sort string

const (
	SortLatest   Sort = "latest"
	SortLikes    Sort = "likes"
	SortComments Sort = "comments"
	SortViews    Sort = "views"
)

// ParseSort accepts "" as SortLatest.
func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case "", SortLatest:
		return SortLatest, nil
	case SortLikes, SortComments, SortViews:
		return Sort(s), nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// Filters narrow a search. Zero values do not filter.
type Filters struct {
	Topic     string
	AuthorID  int
	HasImages bool
	IsHot     bool
	SortBy    Sort
}

type Engine struct {
	db *models.DB
}

func New(db *models.DB) *Engine {
	return &Engine{db: db}
}

// Search returns approved or unmoderated posts whose title, content, topic
// or a tag contains query, ignoring case. A blank query matches every post.
func (e *Engine) Search(query string, f Filters) ([]models.Post, error) {
	posts, err := e.db.Posts()
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	needle := fold.String(norm.NFC.String(strings.TrimSpace(query)))

	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if !p.Visible() {
			continue
		}
		if needle != "" && !matches(fold, &p, needle) {
			continue
		}
		if f.Topic != "" && p.Topic != f.Topic {
			continue
		}
		if f.AuthorID != 0 && p.AuthorID != f.AuthorID {
			continue
		}
		if f.HasImages && len(p.Images) == 0 {
			continue
		}
		if f.IsHot && !p.IsHot {
			continue
		}
		out = append(out, p)
	}
	sortPosts(out, f.SortBy)
	return out, nil
}

// SearchAs runs Search and records a non-blank query in userID's search
// history.
func (e *Engine) SearchAs(userID int, query string, f Filters) ([]models.Post, error) {
	posts, err := e.Search(query, f)
	if err != nil {
		return nil, err
	}
	if err := e.db.AddSearchHistory(userID, query); err != nil {
		return nil, fmt.Errorf("record search: %w", err)
	}
	return posts, nil
}

func matches(fold cases.Caser, p *models.Post, needle string) bool {
	has := func(s string) bool {
		return strings.Contains(fold.String(norm.NFC.String(s)), needle)
	}
	if has(p.Title) || has(p.Content) || has(p.Topic) {
		return true
	}
	return slices.ContainsFunc(p.Tags, has)
}

func sortPosts(posts []models.Post, by Sort) {
	var key func(p models.Post) int64
	switch by {
	case SortLikes:
		key = func(p models.Post) int64 { return int64(p.Likes) }
	case SortComments:
		key = func(p models.Post) int64 { return int64(p.Comments) }
	case SortViews:
		key = func(p models.Post) int64 { return int64(p.Views) }
	default:
		key = func(p models.Post) int64 { return p.CreatedAt.UnixNano() }
	}
	slices.SortStableFunc(posts, func(a, b models.Post) int {
		return cmp.Compare(key(b), key(a))
	})
}
