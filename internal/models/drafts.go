package models

// Drafts returns the user's drafts in save order.
func (d *DB) Drafts(userID int) ([]Draft, error) {
	all, err := load[Draft](d.read(), KeyDrafts)
	if err != nil {
		return nil, err
	}
	var out []Draft
	for _, x := range all {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	return out, nil
}

// SaveDraft stores a new draft. Its id is the current time in milliseconds,
// so two drafts saved within the same millisecond share an id.
func (d *DB) SaveDraft(in NewDraft) (*Draft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	all, err := load[Draft](t, KeyDrafts)
	if err != nil {
		return nil, err
	}
	now := d.Now()
	x := Draft{
		ID:        now.UnixMilli(),
		UserID:    in.UserID,
		Title:     in.Title,
		Content:   in.Content,
		Topic:     in.Topic,
		Images:    in.Images,
		CreatedAt: now,
		UpdatedAt: now,
	}
	all = append(all, x)
	if err := stage(t, KeyDrafts, all); err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	return &x, nil
}

// UpdateDraft edits a draft owned by ownerID. A draft owned by someone else
// is treated as missing.
func (d *DB) UpdateDraft(id int64, ownerID int, upd DraftUpdate) (*Draft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	all, err := load[Draft](t, KeyDrafts)
	if err != nil {
		return nil, err
	}
	i := indexOf(all, func(x *Draft) bool { return x.ID == id && x.UserID == ownerID })
	if i < 0 {
		return nil, nil
	}
	upd.apply(&all[i])
	all[i].UpdatedAt = d.Now()
	if err := stage(t, KeyDrafts, all); err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	x := all[i]
	return &x, nil
}

// DeleteDraft removes every draft with the id owned by ownerID.
func (d *DB) DeleteDraft(id int64, ownerID int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	all, err := load[Draft](t, KeyDrafts)
	if err != nil {
		return false, err
	}
	kept := all[:0]
	for _, x := range all {
		if x.ID == id && x.UserID == ownerID {
			continue
		}
		kept = append(kept, x)
	}
	if len(kept) == len(all) {
		return false, nil
	}
	if err := stage(t, KeyDrafts, kept); err != nil {
		return false, err
	}
	return true, t.commit()
}
