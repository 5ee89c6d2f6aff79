package models

type sessionPointer struct {
	ID int `json:"id"`
}

// CurrentUser resolves the stored session pointer. It returns nil when no
// one is logged in or the pointed-to user no longer exists.
func (d *DB) CurrentUser() (*User, error) {
	var s sessionPointer
	ok, err := loadObject(d.read(), KeyCurrentUser, &s)
	if err != nil || !ok {
		return nil, err
	}
	return d.UserByID(s.ID)
}

// SetCurrentUser points the session at id.
func (d *DB) SetCurrentUser(id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	if err := stage(t, KeyCurrentUser, sessionPointer{ID: id}); err != nil {
		return err
	}
	return t.commit()
}

func (d *DB) ClearCurrentUser() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	t.b.Remove(KeyCurrentUser)
	return t.commit()
}
