package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_CreatesOneConversationPerPair(t *testing.T) {
	f := newFixture(t)

	m1, err := f.db.SendMessage(OutgoingMessage{SenderID: 1, ReceiverID: 2, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, MessageText, m1.Type)
	f.clock.Advance(time.Second)
	m2, err := f.db.SendMessage(OutgoingMessage{SenderID: 2, ReceiverID: 1, Content: "hey"})
	require.NoError(t, err)
	assert.Equal(t, m1.ID+1, m2.ID)

	convs, err := f.db.Conversations(1)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	c := convs[0]
	assert.Equal(t, 1, c.ID)
	assert.ElementsMatch(t, []int{1, 2}, c.Participants)
	assert.Equal(t, 2, c.UnreadCount)
	require.NotNil(t, c.LastMessage)
	assert.Equal(t, "hey", c.LastMessage.Content)
	assert.Equal(t, epoch.Add(time.Second), c.UpdatedAt)

	between, err := f.db.MessagesBetween(2, 1)
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, "hi", between[0].Content)
}

func TestSendMessage_Attachments(t *testing.T) {
	f := newFixture(t)

	m, err := f.db.SendMessage(OutgoingMessage{
		SenderID:   1,
		ReceiverID: 2,
		Type:       MessageFile,
		Attachments: []NewAttachment{
			{URL: "/a.pdf", Name: "a.pdf", Size: 10, Type: "application/pdf"},
			{URL: "/b.pdf", Name: "b.pdf", Size: 20, Type: "application/pdf"},
		},
	})
	require.NoError(t, err)
	require.Len(t, m.Attachments, 2)
	assert.Equal(t, 100, m.Attachments[0].ID)
	assert.Equal(t, 101, m.Attachments[1].ID)
}

func TestMarkConversationRead(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"a", "b", "c"} {
		_, err := f.db.SendMessage(OutgoingMessage{SenderID: 2, ReceiverID: 1, Content: text})
		require.NoError(t, err)
	}
	_, err := f.db.SendMessage(OutgoingMessage{SenderID: 3, ReceiverID: 1, Content: "other"})
	require.NoError(t, err)

	n, err := f.db.UnreadMessageCount(1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	changed, err := f.db.MarkConversationRead(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, changed)

	n, err = f.db.UnreadMessageCount(1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	convs, err := f.db.Conversations(2)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Zero(t, convs[0].UnreadCount)
}

func TestMarkAndDeleteMessage(t *testing.T) {
	f := newFixture(t)
	m, err := f.db.SendMessage(OutgoingMessage{SenderID: 1, ReceiverID: 2, Content: "x"})
	require.NoError(t, err)

	ok, err := f.db.MarkMessageRead(m.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.db.MarkMessageRead(99)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.db.DeleteMessage(m.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	all, err := f.db.Messages()
	require.NoError(t, err)
	assert.Empty(t, all)

	// the conversation keeps its snapshot
	convs, err := f.db.Conversations(1)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "x", convs[0].LastMessage.Content)

	ok, err = f.db.ClearConversationUnread(convs[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotifications_ReadAndDelete(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	p := f.post(t, alice.ID, "x")
	for _, fan := range []int{2, 3} {
		_, err := f.db.ToggleLike(p.ID, fan)
		require.NoError(t, err)
	}

	n, err := f.db.UnreadNotificationCount(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := f.db.MarkNotificationRead(1)
	require.NoError(t, err)
	assert.True(t, ok)
	n, _ = f.db.UnreadNotificationCount(alice.ID)
	assert.Equal(t, 1, n)

	changed, err := f.db.MarkAllNotificationsRead(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	ok, err = f.db.DeleteNotification(2)
	require.NoError(t, err)
	assert.True(t, ok)
	notes, _ := f.db.Notifications(alice.ID)
	assert.Len(t, notes, 1)
}
