package models

import "time"

// NewUser carries the caller-supplied fields of a user. Password is stored
// as given; hashing is the caller's concern.
type NewUser struct {
	Username string
	Nickname string
	Email    string
	Password string
	Avatar   string
	Bio      string
	Badges   []string
	Role     Role
	Status   UserStatus
	Coins    int
}

// UserUpdate lists the user fields that may be changed after creation.
// Nil fields are left untouched.
type UserUpdate struct {
	Nickname   *string
	Email      *string
	Password   *string
	Avatar     *string
	Bio        *string
	Badges     []string
	Role       *Role
	Status     *UserStatus
	IsVerified *bool
	Coins      *int
	Level      *int
	Exp        *int
}

func (u UserUpdate) apply(dst *User) {
	setIf(&dst.Nickname, u.Nickname)
	setIf(&dst.Email, u.Email)
	setIf(&dst.Password, u.Password)
	setIf(&dst.Avatar, u.Avatar)
	setIf(&dst.Bio, u.Bio)
	setIf(&dst.Role, u.Role)
	setIf(&dst.Status, u.Status)
	setIf(&dst.IsVerified, u.IsVerified)
	setIf(&dst.Coins, u.Coins)
	setIf(&dst.Level, u.Level)
	setIf(&dst.Exp, u.Exp)
	if u.Badges != nil {
		dst.Badges = append([]string(nil), u.Badges...)
	}
}

type NewPoll struct {
	Question      string
	Options       []string
	EndTime       *time.Time
	AllowMultiple bool
}

type NewPost struct {
	Title    string
	Content  string
	AuthorID int
	Topic    string
	Images   []Image
	Tags     []string
	IsHot    bool
	IsTop    bool
	Status   PostStatus
	Poll     *NewPoll
}

// PostUpdate lists the post fields that may be edited directly. Counters
// and relationship lists are only changed through their operations.
type PostUpdate struct {
	Title           *string
	Content         *string
	Topic           *string
	Images          []Image
	Tags            []string
	IsHot           *bool
	IsTop           *bool
	Status          *PostStatus
	RejectionReason *string
}

func (u PostUpdate) apply(dst *Post) {
	setIf(&dst.Title, u.Title)
	setIf(&dst.Content, u.Content)
	setIf(&dst.Topic, u.Topic)
	setIf(&dst.IsHot, u.IsHot)
	setIf(&dst.IsTop, u.IsTop)
	setIf(&dst.Status, u.Status)
	setIf(&dst.RejectionReason, u.RejectionReason)
	if u.Images != nil {
		dst.Images = append([]Image(nil), u.Images...)
	}
	if u.Tags != nil {
		dst.Tags = append([]string(nil), u.Tags...)
	}
}

type NewComment struct {
	PostID   int
	AuthorID int
	Content  string
	ParentID *int
}

type CommentUpdate struct {
	Content *string
	Likes   *int
}

func (u CommentUpdate) apply(dst *Comment) {
	setIf(&dst.Content, u.Content)
	setIf(&dst.Likes, u.Likes)
}

type NewAttachment struct {
	URL  string
	Name string
	Size int64
	Type string
}

type OutgoingMessage struct {
	SenderID    int
	ReceiverID  int
	Content     string
	Type        MessageType
	ReplyTo     *int
	Attachments []NewAttachment
}

type NewDraft struct {
	UserID  int
	Title   string
	Content string
	Topic   string
	Images  []Image
}

type DraftUpdate struct {
	Title   *string
	Content *string
	Topic   *string
	Images  []Image
}

func (u DraftUpdate) apply(dst *Draft) {
	setIf(&dst.Title, u.Title)
	setIf(&dst.Content, u.Content)
	setIf(&dst.Topic, u.Topic)
	if u.Images != nil {
		dst.Images = append([]Image(nil), u.Images...)
	}
}

type NewReport struct {
	PostID     int
	ReporterID int
	Reason     string
	Type       ReportType
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
