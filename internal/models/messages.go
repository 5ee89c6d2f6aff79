package models

// SendMessage stores a message and creates or refreshes the conversation
// between sender and receiver in the same write.
func (d *DB) SendMessage(in OutgoingMessage) (*Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	messages, err := load[Message](t, KeyMessages)
	if err != nil {
		return nil, err
	}
	id, err := t.next(KeyMessageCounter)
	if err != nil {
		return nil, err
	}

	now := d.Now()
	m := Message{
		ID:         id,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		Type:       in.Type,
		CreatedAt:  now,
		UpdatedAt:  now,
		ReplyTo:    in.ReplyTo,
	}
	if m.Type == "" {
		m.Type = MessageText
	}
	for i, a := range in.Attachments {
		m.Attachments = append(m.Attachments, Attachment{
			ID:   id*100 + i,
			URL:  a.URL,
			Name: a.Name,
			Size: a.Size,
			Type: a.Type,
		})
	}
	messages = append(messages, m)
	if err := stage(t, KeyMessages, messages); err != nil {
		return nil, err
	}
	if err := touchConversation(t, m); err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	return &m, nil
}

func touchConversation(t *tx, m Message) error {
	convs, err := load[Conversation](t, KeyConversations)
	if err != nil {
		return err
	}
	last := m
	i := indexOf(convs, func(c *Conversation) bool { return c.involves(m.SenderID, m.ReceiverID) })
	if i >= 0 {
		convs[i].LastMessage = &last
		convs[i].UpdatedAt = m.CreatedAt
		convs[i].UnreadCount++
	} else {
		id, err := t.next(KeyConversationCounter)
		if err != nil {
			return err
		}
		convs = append(convs, Conversation{
			ID:           id,
			Participants: []int{m.SenderID, m.ReceiverID},
			LastMessage:  &last,
			UnreadCount:  1,
			CreatedAt:    m.CreatedAt,
			UpdatedAt:    m.CreatedAt,
		})
	}
	return stage(t, KeyConversations, convs)
}

// Messages returns every message in send order.
func (d *DB) Messages() ([]Message, error) {
	return load[Message](d.read(), KeyMessages)
}

// MessagesBetween returns the messages exchanged by two users, oldest first.
func (d *DB) MessagesBetween(a, b int) ([]Message, error) {
	all, err := load[Message](d.read(), KeyMessages)
	if err != nil {
		return nil, err
	}
	var out []Message
	for _, m := range all {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	oldestFirst(out, func(m Message) int64 { return m.CreatedAt.UnixNano() })
	return out, nil
}

// MarkMessageRead reports whether the message existed.
func (d *DB) MarkMessageRead(id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	all, err := load[Message](t, KeyMessages)
	if err != nil {
		return false, err
	}
	i := indexOf(all, func(m *Message) bool { return m.ID == id })
	if i < 0 {
		return false, nil
	}
	all[i].IsRead = true
	all[i].UpdatedAt = d.Now()
	if err := stage(t, KeyMessages, all); err != nil {
		return false, err
	}
	return true, t.commit()
}

// MarkConversationRead marks every message from otherID to userID as read
// and resets the pair's conversation unread count. It returns how many
// messages changed.
func (d *DB) MarkConversationRead(userID, otherID int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	all, err := load[Message](t, KeyMessages)
	if err != nil {
		return 0, err
	}
	now := d.Now()
	changed := 0
	for i := range all {
		m := &all[i]
		if m.SenderID == otherID && m.ReceiverID == userID && !m.IsRead {
			m.IsRead = true
			m.UpdatedAt = now
			changed++
		}
	}
	if changed > 0 {
		if err := stage(t, KeyMessages, all); err != nil {
			return 0, err
		}
	}

	convs, err := load[Conversation](t, KeyConversations)
	if err != nil {
		return 0, err
	}
	if i := indexOf(convs, func(c *Conversation) bool { return c.involves(userID, otherID) }); i >= 0 && convs[i].UnreadCount != 0 {
		convs[i].UnreadCount = 0
		if err := stage(t, KeyConversations, convs); err != nil {
			return 0, err
		}
	}
	return changed, t.commit()
}

// DeleteMessage removes the message. Conversations keep their lastMessage
// snapshot.
func (d *DB) DeleteMessage(id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	all, err := load[Message](t, KeyMessages)
	if err != nil {
		return false, err
	}
	i := indexOf(all, func(m *Message) bool { return m.ID == id })
	if i < 0 {
		return false, nil
	}
	all = append(all[:i], all[i+1:]...)
	if err := stage(t, KeyMessages, all); err != nil {
		return false, err
	}
	return true, t.commit()
}

// Conversations returns the user's conversations, most recently active
// first.
func (d *DB) Conversations(userID int) ([]Conversation, error) {
	all, err := load[Conversation](d.read(), KeyConversations)
	if err != nil {
		return nil, err
	}
	var out []Conversation
	for _, c := range all {
		if contains(c.Participants, userID) {
			out = append(out, c)
		}
	}
	newestFirst(out, func(c Conversation) int64 { return c.UpdatedAt.UnixNano() })
	return out, nil
}

// UnreadMessageCount counts unread messages addressed to the user.
func (d *DB) UnreadMessageCount(userID int) (int, error) {
	all, err := load[Message](d.read(), KeyMessages)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range all {
		if m.ReceiverID == userID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

// ClearConversationUnread reports whether the conversation existed.
func (d *DB) ClearConversationUnread(id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	convs, err := load[Conversation](t, KeyConversations)
	if err != nil {
		return false, err
	}
	i := indexOf(convs, func(c *Conversation) bool { return c.ID == id })
	if i < 0 {
		return false, nil
	}
	convs[i].UnreadCount = 0
	if err := stage(t, KeyConversations, convs); err != nil {
		return false, err
	}
	return true, t.commit()
}
