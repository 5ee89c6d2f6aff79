package models

import (
	"cmp"
	"slices"
)

// Comments returns every comment in storage order.
func (d *DB) Comments() ([]Comment, error) {
	return load[Comment](d.read(), KeyComments)
}

// CommentsByPost returns the post's comments, newest first.
func (d *DB) CommentsByPost(postID int) ([]Comment, error) {
	all, err := load[Comment](d.read(), KeyComments)
	if err != nil {
		return nil, err
	}
	var out []Comment
	for _, c := range all {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	newestFirst(out, func(c Comment) int64 { return c.CreatedAt.UnixNano() })
	return out, nil
}

// CreateComment adds a comment to an existing post, bumps the post's comment
// count and notifies the post author unless they wrote the comment.
func (d *DB) CreateComment(in NewComment) (*Comment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return nil, err
	}
	pi := indexOf(posts, func(p *Post) bool { return p.ID == in.PostID })
	if pi < 0 {
		return nil, ErrPostNotFound
	}
	comments, err := load[Comment](t, KeyComments)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		parent := indexOf(comments, func(c *Comment) bool { return c.ID == *in.ParentID })
		if parent < 0 || comments[parent].PostID != in.PostID {
			return nil, ErrCommentNotFound
		}
	}

	now := d.Now()
	c := Comment{
		ID:        nextID(comments, func(c *Comment) int { return c.ID }),
		PostID:    in.PostID,
		AuthorID:  in.AuthorID,
		Content:   in.Content,
		CreatedAt: now,
		ParentID:  in.ParentID,
	}
	comments = append(comments, c)
	if err := stage(t, KeyComments, comments); err != nil {
		return nil, err
	}

	post := &posts[pi]
	post.Comments++
	post.UpdatedAt = now
	if err := stage(t, KeyPosts, posts); err != nil {
		return nil, err
	}

	if post.AuthorID != in.AuthorID {
		err := notify(t, Notification{
			UserID:     post.AuthorID,
			Type:       NotifyComment,
			FromUserID: intPtr(in.AuthorID),
			PostID:     intPtr(in.PostID),
			Content:    "commented on your post",
		})
		if err != nil {
			return nil, err
		}
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateComment applies upd. It returns nil if the id is unknown.
func (d *DB) UpdateComment(id int, upd CommentUpdate) (*Comment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	comments, err := load[Comment](t, KeyComments)
	if err != nil {
		return nil, err
	}
	i := indexOf(comments, func(c *Comment) bool { return c.ID == id })
	if i < 0 {
		return nil, nil
	}
	upd.apply(&comments[i])
	if err := stage(t, KeyComments, comments); err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	c := comments[i]
	return &c, nil
}

// DeleteComment removes the comment and decrements its post's comment
// count, floored at zero. Replies to it are kept.
func (d *DB) DeleteComment(id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	comments, err := load[Comment](t, KeyComments)
	if err != nil {
		return false, err
	}
	i := indexOf(comments, func(c *Comment) bool { return c.ID == id })
	if i < 0 {
		return false, nil
	}
	postID := comments[i].PostID
	comments = append(comments[:i], comments[i+1:]...)
	if err := stage(t, KeyComments, comments); err != nil {
		return false, err
	}

	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return false, err
	}
	if pi := indexOf(posts, func(p *Post) bool { return p.ID == postID }); pi >= 0 {
		posts[pi].Comments = max(0, posts[pi].Comments-1)
		posts[pi].UpdatedAt = d.Now()
		if err := stage(t, KeyPosts, posts); err != nil {
			return false, err
		}
	}
	return true, t.commit()
}

// nextID returns one more than the largest id in list.
func nextID[T any](list []T, id func(*T) int) int {
	top := 0
	for i := range list {
		top = max(top, id(&list[i]))
	}
	return top + 1
}

func newestFirst[T any](list []T, at func(T) int64) {
	slices.SortStableFunc(list, func(a, b T) int {
		return cmp.Compare(at(b), at(a))
	})
}

func oldestFirst[T any](list []T, at func(T) int64) {
	slices.SortStableFunc(list, func(a, b T) int {
		return cmp.Compare(at(a), at(b))
	})
}
