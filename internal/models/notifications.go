package models

// Notifications returns the user's notifications, newest first.
func (d *DB) Notifications(userID int) ([]Notification, error) {
	all, err := load[Notification](d.read(), KeyNotifications)
	if err != nil {
		return nil, err
	}
	var out []Notification
	for _, n := range all {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	newestFirst(out, func(n Notification) int64 { return n.CreatedAt.UnixNano() })
	return out, nil
}

// UnreadNotificationCount counts the user's unread notifications.
func (d *DB) UnreadNotificationCount(userID int) (int, error) {
	all, err := load[Notification](d.read(), KeyNotifications)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, x := range all {
		if x.UserID == userID && !x.Read {
			n++
		}
	}
	return n, nil
}

// MarkNotificationRead reports whether the notification existed.
func (d *DB) MarkNotificationRead(id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	all, err := load[Notification](t, KeyNotifications)
	if err != nil {
		return false, err
	}
	i := indexOf(all, func(n *Notification) bool { return n.ID == id })
	if i < 0 {
		return false, nil
	}
	all[i].Read = true
	if err := stage(t, KeyNotifications, all); err != nil {
		return false, err
	}
	return true, t.commit()
}

// MarkAllNotificationsRead returns how many notifications changed.
func (d *DB) MarkAllNotificationsRead(userID int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	all, err := load[Notification](t, KeyNotifications)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range all {
		if all[i].UserID == userID && !all[i].Read {
			all[i].Read = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := stage(t, KeyNotifications, all); err != nil {
		return 0, err
	}
	return changed, t.commit()
}

func (d *DB) DeleteNotification(id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	all, err := load[Notification](t, KeyNotifications)
	if err != nil {
		return false, err
	}
	i := indexOf(all, func(n *Notification) bool { return n.ID == id })
	if i < 0 {
		return false, nil
	}
	all = append(all[:i], all[i+1:]...)
	if err := stage(t, KeyNotifications, all); err != nil {
		return false, err
	}
	return true, t.commit()
}

// notify stages a new unread notification. Notifications are only created
// as side effects of likes, comments, follows and rewards.
func notify(t *tx, n Notification) error {
	all, err := load[Notification](t, KeyNotifications)
	if err != nil {
		return err
	}
	n.ID = nextID(all, func(x *Notification) int { return x.ID })
	n.Read = false
	n.CreatedAt = t.d.Now()
	all = append(all, n)
	return stage(t, KeyNotifications, all)
}
