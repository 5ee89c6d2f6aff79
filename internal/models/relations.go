package models

import "fmt"

// ToggleLike flips userID's like on the post and reports whether the post
// is now liked. Liking notifies the author; unliking does not.
func (d *DB) ToggleLike(postID, userID int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return false, err
	}
	i := indexOf(posts, func(p *Post) bool { return p.ID == postID })
	if i < 0 {
		return false, ErrPostNotFound
	}
	p := &posts[i]
	liked := !contains(p.LikedBy, userID)
	if liked {
		p.LikedBy = append(p.LikedBy, userID)
		p.Likes++
	} else {
		p.LikedBy = without(p.LikedBy, userID)
		p.Likes = max(0, p.Likes-1)
	}
	p.UpdatedAt = d.Now()
	if err := stage(t, KeyPosts, posts); err != nil {
		return false, err
	}
	if liked {
		err := notify(t, Notification{
			UserID:     p.AuthorID,
			Type:       NotifyLike,
			FromUserID: intPtr(userID),
			PostID:     intPtr(postID),
			Content:    "liked your post",
		})
		if err != nil {
			return false, err
		}
	}
	return liked, t.commit()
}

// ToggleCollect flips userID's bookmark on the post and reports whether the
// post is now collected.
func (d *DB) ToggleCollect(postID, userID int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var collected bool
	p, err := d.modifyPost(postID, func(p *Post) error {
		collected = !contains(p.CollectedBy, userID)
		if collected {
			p.CollectedBy = append(p.CollectedBy, userID)
		} else {
			p.CollectedBy = without(p.CollectedBy, userID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, ErrPostNotFound
	}
	return collected, nil
}

func (d *DB) IsPostLiked(postID, userID int) (bool, error) {
	p, err := d.PostByID(postID)
	if err != nil || p == nil {
		return false, err
	}
	return contains(p.LikedBy, userID), nil
}

func (d *DB) IsPostCollected(postID, userID int) (bool, error) {
	p, err := d.PostByID(postID)
	if err != nil || p == nil {
		return false, err
	}
	return contains(p.CollectedBy, userID), nil
}

// FollowUser records that followerID follows followeeID on both users and
// notifies the followee. Following twice is an error.
func (d *DB) FollowUser(followerID, followeeID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.follow(followerID, followeeID)
}

// UnfollowUser is the exact inverse of FollowUser.
func (d *DB) UnfollowUser(followerID, followeeID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.unfollow(followerID, followeeID)
}

// ToggleFollow follows or unfollows depending on the current state and
// reports whether followerID now follows followeeID.
func (d *DB) ToggleFollow(followerID, followeeID int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.UserByID(followerID)
	if err != nil {
		return false, err
	}
	if u != nil && contains(u.FollowingList, followeeID) {
		return false, d.unfollow(followerID, followeeID)
	}
	return true, d.follow(followerID, followeeID)
}

func (d *DB) follow(followerID, followeeID int) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}
	t := d.begin()
	users, err := load[User](t, KeyUsers)
	if err != nil {
		return err
	}
	fi := indexOf(users, func(u *User) bool { return u.ID == followerID })
	ti := indexOf(users, func(u *User) bool { return u.ID == followeeID })
	if fi < 0 || ti < 0 {
		return ErrUserNotFound
	}
	follower, followee := &users[fi], &users[ti]
	if contains(follower.FollowingList, followeeID) {
		return ErrAlreadyFollowing
	}

	follower.FollowingList = append(follower.FollowingList, followeeID)
	follower.Following++
	followee.FollowersList = append(followee.FollowersList, followerID)
	followee.Followers++
	if err := stage(t, KeyUsers, users); err != nil {
		return err
	}

	name := follower.Nickname
	if name == "" {
		name = follower.Username
	}
	err = notify(t, Notification{
		UserID:     followeeID,
		Type:       NotifyFollow,
		FromUserID: intPtr(followerID),
		Title:      "New follower",
		Content:    fmt.Sprintf("%s started following you", name),
	})
	if err != nil {
		return err
	}
	return t.commit()
}

func (d *DB) unfollow(followerID, followeeID int) error {
	t := d.begin()
	users, err := load[User](t, KeyUsers)
	if err != nil {
		return err
	}
	fi := indexOf(users, func(u *User) bool { return u.ID == followerID })
	if fi < 0 {
		return ErrUserNotFound
	}
	follower := &users[fi]
	if !contains(follower.FollowingList, followeeID) {
		if indexOf(users, func(u *User) bool { return u.ID == followeeID }) < 0 {
			return ErrUserNotFound
		}
		return ErrNotFollowing
	}

	follower.FollowingList = without(follower.FollowingList, followeeID)
	follower.Following = max(0, follower.Following-1)
	// A deleted followee only leaves the follower's side to clean up.
	if ti := indexOf(users, func(u *User) bool { return u.ID == followeeID }); ti >= 0 {
		followee := &users[ti]
		followee.FollowersList = without(followee.FollowersList, followerID)
		followee.Followers = max(0, followee.Followers-1)
	}
	if err := stage(t, KeyUsers, users); err != nil {
		return err
	}
	return t.commit()
}

func (d *DB) IsFollowing(followerID, followeeID int) (bool, error) {
	u, err := d.UserByID(followerID)
	if err != nil || u == nil {
		return false, err
	}
	return contains(u.FollowingList, followeeID), nil
}

// FollowingOf returns the users userID follows. Dangling ids are skipped.
func (d *DB) FollowingOf(userID int) ([]User, error) {
	return d.related(userID, func(u *User) []int { return u.FollowingList })
}

// FollowersOf returns the users following userID.
func (d *DB) FollowersOf(userID int) ([]User, error) {
	return d.related(userID, func(u *User) []int { return u.FollowersList })
}

// MutualFollows returns the users that userID follows and who follow back.
func (d *DB) MutualFollows(userID int) ([]User, error) {
	following, err := d.FollowingOf(userID)
	if err != nil {
		return nil, err
	}
	var out []User
	for _, u := range following {
		if contains(u.FollowingList, userID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *DB) related(userID int, ids func(*User) []int) ([]User, error) {
	users, err := load[User](d.read(), KeyUsers)
	if err != nil {
		return nil, err
	}
	i := indexOf(users, func(u *User) bool { return u.ID == userID })
	if i < 0 {
		return nil, nil
	}
	var out []User
	for _, id := range ids(&users[i]) {
		if j := indexOf(users, func(u *User) bool { return u.ID == id }); j >= 0 {
			out = append(out, users[j])
		}
	}
	return out, nil
}

// AddToBlacklist hides targetID from userID. Adding twice is harmless.
func (d *DB) AddToBlacklist(userID, targetID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.modifyUser(userID, func(u *User) {
		if !contains(u.Blacklist, targetID) {
			u.Blacklist = append(u.Blacklist, targetID)
		}
	})
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	return nil
}

// RemoveFromBlacklist reports whether the user exists and has a blacklist.
func (d *DB) RemoveFromBlacklist(userID, targetID int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.UserByID(userID)
	if err != nil || u == nil || u.Blacklist == nil {
		return false, err
	}
	u, err = d.modifyUser(userID, func(u *User) {
		u.Blacklist = without(u.Blacklist, targetID)
	})
	return u != nil, err
}

func (d *DB) IsBlacklisted(userID, targetID int) (bool, error) {
	u, err := d.UserByID(userID)
	if err != nil || u == nil {
		return false, err
	}
	return contains(u.Blacklist, targetID), nil
}
