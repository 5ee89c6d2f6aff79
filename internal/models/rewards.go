package models

import "fmt"

// RewardPost moves amount coins from userID to the post's author, records
// the reward on the post and notifies the author. Nothing is written unless
// every check passes.
func (d *DB) RewardPost(postID, userID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return err
	}
	pi := indexOf(posts, func(p *Post) bool { return p.ID == postID })
	if pi < 0 {
		return ErrPostNotFound
	}
	post := &posts[pi]

	users, err := load[User](t, KeyUsers)
	if err != nil {
		return err
	}
	si := indexOf(users, func(u *User) bool { return u.ID == userID })
	ai := indexOf(users, func(u *User) bool { return u.ID == post.AuthorID })
	if si < 0 || ai < 0 {
		return ErrUserNotFound
	}
	if users[si].Coins < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientCoins, users[si].Coins, amount)
	}
	users[si].Coins -= amount
	users[ai].Coins += amount
	if err := stage(t, KeyUsers, users); err != nil {
		return err
	}

	post.Rewards += amount
	if !contains(post.RewardedBy, userID) {
		post.RewardedBy = append(post.RewardedBy, userID)
	}
	post.UpdatedAt = d.Now()
	if err := stage(t, KeyPosts, posts); err != nil {
		return err
	}

	err = notify(t, Notification{
		UserID:     post.AuthorID,
		Type:       NotifySystem,
		FromUserID: intPtr(userID),
		PostID:     intPtr(postID),
		Content:    fmt.Sprintf("rewarded you %d coins", amount),
	})
	if err != nil {
		return err
	}
	return t.commit()
}
