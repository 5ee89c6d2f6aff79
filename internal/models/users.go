package models

// Users returns every user in storage order.
func (d *DB) Users() ([]User, error) {
	return load[User](d.read(), KeyUsers)
}

// UserByID returns the user, or nil if there is none.
func (d *DB) UserByID(id int) (*User, error) {
	users, err := load[User](d.read(), KeyUsers)
	if err != nil {
		return nil, err
	}
	if i := indexOf(users, func(u *User) bool { return u.ID == id }); i >= 0 {
		return &users[i], nil
	}
	return nil, nil
}

// UserByUsername returns the user with the exact username, or nil.
func (d *DB) UserByUsername(username string) (*User, error) {
	users, err := load[User](d.read(), KeyUsers)
	if err != nil {
		return nil, err
	}
	if i := indexOf(users, func(u *User) bool { return u.Username == username }); i >= 0 {
		return &users[i], nil
	}
	return nil, nil
}

// CreateUser appends a user with a fresh id and zeroed counters. The
// username must not be taken.
func (d *DB) CreateUser(in NewUser) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	users, err := load[User](t, KeyUsers)
	if err != nil {
		return nil, err
	}
	if indexOf(users, func(u *User) bool { return u.Username == in.Username }) >= 0 {
		return nil, ErrDuplicateUsername
	}
	id, err := t.next(KeyUserCounter)
	if err != nil {
		return nil, err
	}

	now := d.Now()
	u := User{
		ID:            id,
		Username:      in.Username,
		Nickname:      in.Nickname,
		Email:         in.Email,
		Password:      in.Password,
		Avatar:        in.Avatar,
		Level:         1,
		Bio:           in.Bio,
		Badges:        in.Badges,
		JoinDate:      now,
		FollowingList: []int{},
		FollowersList: []int{},
		Role:          in.Role,
		Status:        in.Status,
		LastLoginAt:   &now,
		Coins:         in.Coins,
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	users = append(users, u)
	if err := stage(t, KeyUsers, users); err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser applies upd to the user. It returns nil if the id is unknown.
func (d *DB) UpdateUser(id int, upd UserUpdate) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.modifyUser(id, func(u *User) { upd.apply(u) })
}

// CredentialSwap replaces a stored password only if it still equals Old.
type CredentialSwap struct {
	Old string
	New string
}

// RecordLogin stamps lastLoginAt and, when swap is non-nil, replaces the
// stored password in the same write. A swap whose Old value no longer
// matches is skipped, so a credential is upgraded at most once.
func (d *DB) RecordLogin(id int, swap *CredentialSwap) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.Now()
	return d.modifyUser(id, func(u *User) {
		if swap != nil && u.Password == swap.Old {
			u.Password = swap.New
		}
		u.LastLoginAt = &now
	})
}

func (d *DB) modifyUser(id int, fn func(*User)) (*User, error) {
	t := d.begin()
	users, err := load[User](t, KeyUsers)
	if err != nil {
		return nil, err
	}
	i := indexOf(users, func(u *User) bool { return u.ID == id })
	if i < 0 {
		return nil, nil
	}
	fn(&users[i])
	if err := stage(t, KeyUsers, users); err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	u := users[i]
	return &u, nil
}

// DeleteUser removes the user record only. Posts, comments and messages by
// the user are left in place.
func (d *DB) DeleteUser(id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	users, err := load[User](t, KeyUsers)
	if err != nil {
		return false, err
	}
	i := indexOf(users, func(u *User) bool { return u.ID == id })
	if i < 0 {
		return false, nil
	}
	users = append(users[:i], users[i+1:]...)
	if err := stage(t, KeyUsers, users); err != nil {
		return false, err
	}
	return true, t.commit()
}
