package server

import (
	"cmp"
	"net/http"
	"strconv"
	"time"

	"forumdata/internal/auth"
	"forumdata/internal/models"
	"forumdata/internal/ratelimit"
	"forumdata/internal/search"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Nickname string `json:"nickname"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	res := s.Auth.CreateAccount(auth.Registration{
		Username: req.Username,
		Nickname: req.Nickname,
		Email:    req.Email,
		Password: req.Password,
	})
	if !res.Success {
		writeError(w, statusFor(res.Err), res.Message)
		return
	}
	s.startSession(w, res.User.ID)
	writeJSON(w, http.StatusCreated, public(res.User))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	res := s.Auth.Authenticate(req.Username, req.Password)
	if !res.Success {
		writeError(w, statusFor(res.Err), res.Message)
		return
	}
	s.startSession(w, res.User.ID)
	writeJSON(w, http.StatusOK, public(res.User))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(s.CookieName)
	if err == nil {
		s.sessions.revoke(cookie.Value)
		http.SetCookie(w, &http.Cookie{Name: s.CookieName, Path: "/", MaxAge: -1})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startSession(w http.ResponseWriter, userID int) {
	sid, expires := s.sessions.create(userID)
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    sid,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user *models.User) {
	writeJSON(w, http.StatusOK, public(user))
}

func filtersFrom(r *http.Request) (search.Filters, error) {
	q := r.URL.Query()
	sort, err := search.ParseSort(q.Get("sort"))
	if err != nil {
		return search.Filters{}, err
	}
	f := search.Filters{
		Topic:     q.Get("topic"),
		HasImages: q.Get("images") == "true",
		IsHot:     q.Get("hot") == "true",
		SortBy:    sort,
	}
	if a := q.Get("author"); a != "" {
		if f.AuthorID, err = strconv.Atoi(a); err != nil {
			return search.Filters{}, err
		}
	}
	return f, nil
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	f, err := filtersFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	posts, err := s.Search.Search("", f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicPosts(posts))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	f, err := filtersFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := r.URL.Query().Get("q")

	user := s.currentUser(r)
	var posts []models.Post
	if user != nil {
		if !s.allow(w, ratelimit.ActionSearch, user.ID) {
			return
		}
		posts, err = s.Search.SearchAs(user.ID, query, f)
	} else {
		posts, err = s.Search.Search(query, f)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicPosts(posts))
}

type pollRequest struct {
	Question      string     `json:"question"`
	Options       []string   `json:"options" validate:"min=2,dive,required"`
	EndTime       *time.Time `json:"endTime"`
	AllowMultiple bool       `json:"allowMultiple"`
}

type postRequest struct {
	Title   string         `json:"title" validate:"required"`
	Content string         `json:"content" validate:"required"`
	Topic   string         `json:"topic"`
	Tags    []string       `json:"tags"`
	Images  []models.Image `json:"images"`
	Poll    *pollRequest   `json:"poll"`
}

func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req postRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.allow(w, ratelimit.ActionPost, user.ID) {
		return
	}
	in := models.NewPost{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: user.ID,
		Topic:    req.Topic,
		Tags:     req.Tags,
		Images:   req.Images,
	}
	if req.Poll != nil {
		in.Poll = &models.NewPoll{
			Question:      req.Poll.Question,
			Options:       req.Poll.Options,
			EndTime:       req.Poll.EndTime,
			AllowMultiple: req.Poll.AllowMultiple,
		}
	}
	post, err := s.DB.CreatePost(in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, publicPost(post))
}

// handlePost returns a post and counts the view. Signed-in viewers also get
// it added to their view history.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	post, err := s.DB.PostByID(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if post == nil || !post.Visible() {
		writeError(w, http.StatusNotFound, models.ErrPostNotFound.Error())
		return
	}
	if post, err = s.DB.IncrementViews(id); err != nil || post == nil {
		s.fail(w, r, cmp.Or(err, models.ErrPostNotFound))
		return
	}
	if user := s.currentUser(r); user != nil {
		if err := s.DB.AddToViewHistory(user.ID, id); err != nil {
			s.log.Warn("record view", "user_id", user.ID, "post_id", id, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, publicPost(post))
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	comments, err := s.DB.CommentsByPost(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	Content  string `json:"content" validate:"required"`
	ParentID *int   `json:"parentId"`
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req commentRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.allow(w, ratelimit.ActionComment, user.ID) {
		return
	}
	c, err := s.DB.CreateComment(models.NewComment{PostID: id, AuthorID: user.ID, Content: req.Content, ParentID: req.ParentID})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handlePostLike(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !s.allow(w, ratelimit.ActionLike, user.ID) {
		return
	}
	liked, err := s.DB.ToggleLike(id, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (s *Server) handlePostCollect(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	collected, err := s.DB.ToggleCollect(id, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"collected": collected})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req struct {
		OptionID int `json:"optionId" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}
	poll, err := s.DB.Vote(id, user.ID, req.OptionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

func (s *Server) handleReward(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Amount int `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.DB.RewardPost(id, user.ID, req.Amount); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Reason string            `json:"reason" validate:"required"`
		Type   models.ReportType `json:"type"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !s.allow(w, ratelimit.ActionReport, user.ID) {
		return
	}
	rep, err := s.DB.ReportPost(models.NewReport{PostID: id, ReporterID: user.ID, Reason: req.Reason, Type: req.Type})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	following, err := s.DB.ToggleFollow(user.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": following})
}

type notificationsResponse struct {
	Unread        int                   `json:"unread"`
	Notifications []models.Notification `json:"notifications"`
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, user *models.User) {
	list, err := s.DB.Notifications(user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	unread, err := s.DB.UnreadNotificationCount(user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Unread: unread, Notifications: list})
}

func (s *Server) handleReadNotifications(w http.ResponseWriter, r *http.Request, user *models.User) {
	n, err := s.DB.MarkAllNotificationsRead(user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}

type messageRequest struct {
	ReceiverID int                `json:"receiverId" validate:"required"`
	Content    string             `json:"content" validate:"required"`
	Type       models.MessageType `json:"type"`
	ReplyTo    *int               `json:"replyTo"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	receiver, err := s.DB.UserByID(req.ReceiverID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if receiver == nil {
		s.fail(w, r, models.ErrUserNotFound)
		return
	}
	blocked, err := s.DB.IsBlacklisted(receiver.ID, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if blocked {
		writeError(w, http.StatusForbidden, "recipient does not accept your messages")
		return
	}
	if !s.allow(w, ratelimit.ActionMessage, user.ID) {
		return
	}
	m, err := s.DB.SendMessage(models.OutgoingMessage{
		SenderID:   user.ID,
		ReceiverID: receiver.ID,
		Content:    req.Content,
		Type:       req.Type,
		ReplyTo:    req.ReplyTo,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// handleConversation returns the messages with another user and marks the
// ones sent to the caller as read.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request, user *models.User) {
	other, ok := pathID(r, "userId")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, err := s.DB.MarkConversationRead(user.ID, other); err != nil {
		s.fail(w, r, err)
		return
	}
	msgs, err := s.DB.MessagesBetween(user.ID, other)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}
