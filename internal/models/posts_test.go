package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost_PrependsAndCountsAuthorPosts(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")

	first := f.post(t, a.ID, "first")
	second := f.post(t, a.ID, "second")

	posts, err := f.db.Posts()
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)

	u, err := f.db.UserByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, u.Posts)
}

func TestCreatePost_PollOptionsNumberedFromOne(t *testing.T) {
	f := newFixture(t)

	p, err := f.db.CreatePost(NewPost{
		Title:    "lunch?",
		AuthorID: 1,
		Poll:     &NewPoll{Question: "where", Options: []string{"canteen", "cafe", "home"}},
	})
	require.NoError(t, err)
	require.NotNil(t, p.Poll)
	for i, o := range p.Poll.Options {
		assert.Equal(t, i+1, o.ID)
		assert.Zero(t, o.Votes)
		assert.Empty(t, o.Voters)
	}
}

func TestUpdatePost_StampsUpdatedAt(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, 1, "draft title")
	f.clock.Advance(time.Minute)

	title := "final title"
	got, err := f.db.UpdatePost(p.ID, PostUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "final title", got.Title)
	assert.Equal(t, "draft title body", got.Content)
	assert.Equal(t, epoch, got.CreatedAt)
	assert.Equal(t, epoch.Add(time.Minute), got.UpdatedAt)
}

func TestIncrementViews(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, 1, "x")
	f.clock.Advance(time.Minute)

	for range 3 {
		_, err := f.db.IncrementViews(p.ID)
		require.NoError(t, err)
	}
	got, err := f.db.PostByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Views)
	assert.Equal(t, epoch, got.UpdatedAt)
}

func TestModeration(t *testing.T) {
	f := newFixture(t)
	p, err := f.db.CreatePost(NewPost{Title: "x", AuthorID: 1, Status: PostPending})
	require.NoError(t, err)
	assert.False(t, p.Visible())

	got, err := f.db.RejectPost(p.ID, "off topic")
	require.NoError(t, err)
	assert.Equal(t, PostRejected, got.Status)
	assert.Equal(t, "off topic", got.RejectionReason)

	got, err = f.db.ApprovePost(p.ID)
	require.NoError(t, err)
	assert.True(t, got.Visible())
	assert.Empty(t, got.RejectionReason)
}

func TestDeletePost_FloorsAuthorCount(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")
	p := f.post(t, a.ID, "x")

	// post count already out of step with the posts collection
	require.NoError(t, f.store.Set(KeyUsers, `[{"id":1,"username":"alice","posts":0,"followingList":[],"followersList":[]}]`))

	ok, err := f.db.DeletePost(p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	u, err := f.db.UserByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Posts)
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bobby")
	p := f.post(t, alice.ID, "hello")

	c, err := f.db.CreateComment(NewComment{PostID: p.ID, AuthorID: bob.ID, Content: "nice"})
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)

	got, err := f.db.PostByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Comments)

	notes, err := f.db.Notifications(alice.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyComment, notes[0].Type)
	assert.Equal(t, bob.ID, *notes[0].FromUserID)
	assert.Equal(t, p.ID, *notes[0].PostID)
	assert.False(t, notes[0].Read)

	// replying to your own post does not notify
	f.clock.Advance(time.Second)
	reply, err := f.db.CreateComment(NewComment{PostID: p.ID, AuthorID: alice.ID, Content: "thanks", ParentID: &c.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, reply.ID)
	notes, err = f.db.Notifications(alice.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	list, err := f.db.CommentsByPost(p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, reply.ID, list[0].ID)
}

func TestCreateComment_Errors(t *testing.T) {
	f := newFixture(t)
	p1 := f.post(t, 1, "one")
	p2 := f.post(t, 1, "two")
	c, err := f.db.CreateComment(NewComment{PostID: p1.ID, AuthorID: 2, Content: "x"})
	require.NoError(t, err)

	_, err = f.db.CreateComment(NewComment{PostID: 99, AuthorID: 2, Content: "x"})
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = f.db.CreateComment(NewComment{PostID: p2.ID, AuthorID: 2, Content: "x", ParentID: &c.ID})
	assert.ErrorIs(t, err, ErrCommentNotFound)

	comments, err := f.db.Comments()
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestDeleteComment_FloorsPostCount(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, 1, "x")
	c, err := f.db.CreateComment(NewComment{PostID: p.ID, AuthorID: 1, Content: "x"})
	require.NoError(t, err)

	ok, err := f.db.DeleteComment(c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.db.PostByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Comments)
}
