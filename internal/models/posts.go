package models

// Posts returns every post, newest first.
func (d *DB) Posts() ([]Post, error) {
	return load[Post](d.read(), KeyPosts)
}

// PostByID returns the post, or nil if there is none.
func (d *DB) PostByID(id int) (*Post, error) {
	posts, err := load[Post](d.read(), KeyPosts)
	if err != nil {
		return nil, err
	}
	if i := indexOf(posts, func(p *Post) bool { return p.ID == id }); i >= 0 {
		return &posts[i], nil
	}
	return nil, nil
}

// CreatePost prepends a new post and bumps the author's post count. The
// author is not required to exist.
func (d *DB) CreatePost(in NewPost) (*Post, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return nil, err
	}
	id, err := t.next(KeyPostCounter)
	if err != nil {
		return nil, err
	}

	now := d.Now()
	p := Post{
		ID:          id,
		Title:       in.Title,
		Content:     in.Content,
		AuthorID:    in.AuthorID,
		Topic:       in.Topic,
		Images:      in.Images,
		Tags:        in.Tags,
		IsHot:       in.IsHot,
		IsTop:       in.IsTop,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
		LikedBy:     []int{},
		CollectedBy: []int{},
	}
	if in.Poll != nil {
		p.Poll = &Poll{
			Question:      in.Poll.Question,
			EndTime:       in.Poll.EndTime,
			AllowMultiple: in.Poll.AllowMultiple,
			Options:       make([]PollOption, len(in.Poll.Options)),
		}
		for i, text := range in.Poll.Options {
			p.Poll.Options[i] = PollOption{ID: i + 1, Text: text, Voters: []int{}}
		}
	}

	posts = append([]Post{p}, posts...)
	if err := stage(t, KeyPosts, posts); err != nil {
		return nil, err
	}
	if err := adjustPostCount(t, in.AuthorID, 1); err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePost applies upd and stamps updatedAt. It returns nil if the id is
// unknown.
func (d *DB) UpdatePost(id int, upd PostUpdate) (*Post, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.modifyPost(id, func(p *Post) error {
		upd.apply(p)
		return nil
	})
}

// IncrementViews bumps the view counter without touching updatedAt.
func (d *DB) IncrementViews(id int) (*Post, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return nil, err
	}
	i := indexOf(posts, func(p *Post) bool { return p.ID == id })
	if i < 0 {
		return nil, nil
	}
	posts[i].Views++
	if err := stage(t, KeyPosts, posts); err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	p := posts[i]
	return &p, nil
}

// ApprovePost makes a post visible to search.
func (d *DB) ApprovePost(id int) (*Post, error) {
	status := PostApproved
	empty := ""
	return d.UpdatePost(id, PostUpdate{Status: &status, RejectionReason: &empty})
}

// RejectPost hides a post from search and records why.
func (d *DB) RejectPost(id int, reason string) (*Post, error) {
	status := PostRejected
	return d.UpdatePost(id, PostUpdate{Status: &status, RejectionReason: &reason})
}

// DeletePost removes the post and decrements the author's post count,
// floored at zero. Comments on the post are left in place.
func (d *DB) DeletePost(id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return false, err
	}
	i := indexOf(posts, func(p *Post) bool { return p.ID == id })
	if i < 0 {
		return false, nil
	}
	authorID := posts[i].AuthorID
	posts = append(posts[:i], posts[i+1:]...)
	if err := stage(t, KeyPosts, posts); err != nil {
		return false, err
	}
	if err := adjustPostCount(t, authorID, -1); err != nil {
		return false, err
	}
	return true, t.commit()
}

// modifyPost runs fn on the post inside one write and stamps updatedAt.
// fn may return an error to abandon the write.
func (d *DB) modifyPost(id int, fn func(*Post) error) (*Post, error) {
	t := d.begin()
	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return nil, err
	}
	i := indexOf(posts, func(p *Post) bool { return p.ID == id })
	if i < 0 {
		return nil, nil
	}
	if err := fn(&posts[i]); err != nil {
		return nil, err
	}
	posts[i].UpdatedAt = d.Now()
	if err := stage(t, KeyPosts, posts); err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	p := posts[i]
	return &p, nil
}

func adjustPostCount(t *tx, userID, delta int) error {
	users, err := load[User](t, KeyUsers)
	if err != nil {
		return err
	}
	i := indexOf(users, func(u *User) bool { return u.ID == userID })
	if i < 0 {
		return nil
	}
	users[i].Posts = max(0, users[i].Posts+delta)
	return stage(t, KeyUsers, users)
}
