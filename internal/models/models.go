package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusBanned    UserStatus = "banned"
	StatusSuspended UserStatus = "suspended"
)

type PostStatus string

const (
	PostPending  PostStatus = "pending"
	PostApproved PostStatus = "approved"
	PostRejected PostStatus = "rejected"
)

type NotificationType string

const (
	NotifyLike    NotificationType = "like"
	NotifyComment NotificationType = "comment"
	NotifyFollow  NotificationType = "follow"
	NotifySystem  NotificationType = "system"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

type ReportType string

const (
	ReportSpam          ReportType = "spam"
	ReportInappropriate ReportType = "inappropriate"
	ReportHarassment    ReportType = "harassment"
	ReportOther         ReportType = "other"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportResolved ReportStatus = "resolved"
	ReportRejected ReportStatus = "rejected"
)

// User is a forum account. Password holds the stored credential, either a
// legacy value or a bcrypt hash.
type User struct {
	ID            int        `json:"id"`
	Username      string     `json:"username"`
	Nickname      string     `json:"nickname"`
	Email         string     `json:"email"`
	Password      string     `json:"password"`
	Avatar        string     `json:"avatar"`
	Level         int        `json:"level"`
	Exp           int        `json:"exp"`
	Followers     int        `json:"followers"`
	Following     int        `json:"following"`
	Posts         int        `json:"posts"`
	Bio           string     `json:"bio,omitempty"`
	Badges        []string   `json:"badges,omitempty"`
	JoinDate      time.Time  `json:"joinDate"`
	IsVerified    bool       `json:"isVerified,omitempty"`
	FollowingList []int      `json:"followingList"`
	FollowersList []int      `json:"followersList"`
	Role          Role       `json:"role,omitempty"`
	Status        UserStatus `json:"status,omitempty"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	Coins         int        `json:"coins"`
	Blacklist     []int      `json:"blacklist,omitempty"`
	ViewHistory   []int      `json:"viewHistory,omitempty"`
}

// Banned reports whether the account may not log in.
func (u *User) Banned() bool {
	return u.Status == StatusBanned
}

type Image struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Post struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	AuthorID        int        `json:"authorId"`
	Topic           string     `json:"topic"`
	Images          []Image    `json:"images,omitempty"`
	Likes           int        `json:"likes"`
	Comments        int        `json:"comments"`
	Shares          int        `json:"shares"`
	Views           int        `json:"views"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	IsHot           bool       `json:"isHot,omitempty"`
	IsTop           bool       `json:"isTop,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	LikedBy         []int      `json:"likedBy"`
	CollectedBy     []int      `json:"collectedBy"`
	Status          PostStatus `json:"status,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	Reports         []Report   `json:"reports,omitempty"`
	Rewards         int        `json:"rewards,omitempty"`
	RewardedBy      []int      `json:"rewardedBy,omitempty"`
	Poll            *Poll      `json:"poll,omitempty"`
}

// Visible reports whether the post has passed moderation. Posts without a
// status predate moderation and count as approved.
func (p *Post) Visible() bool {
	return p.Status == "" || p.Status == PostApproved
}

type Poll struct {
	Question      string       `json:"question"`
	Options       []PollOption `json:"options"`
	EndTime       *time.Time   `json:"endTime,omitempty"`
	AllowMultiple bool         `json:"allowMultiple,omitempty"`
}

type PollOption struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Votes  int    `json:"votes"`
	Voters []int  `json:"voters"`
}

type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"postId"`
	AuthorID  int       `json:"authorId"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	ParentID  *int      `json:"parentId,omitempty"`
}

type Attachment struct {
	ID   int    `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Message is immutable once sent apart from IsRead and UpdatedAt.
type Message struct {
	ID          int          `json:"id"`
	SenderID    int          `json:"senderId"`
	ReceiverID  int          `json:"receiverId"`
	Content     string       `json:"content"`
	Type        MessageType  `json:"type"`
	IsRead      bool         `json:"isRead"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	ReplyTo     *int         `json:"replyTo,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Conversation summarises the message stream between two users. There is at
// most one per unordered pair of participants.
type Conversation struct {
	ID           int       `json:"id"`
	Participants []int     `json:"participants"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UnreadCount  int       `json:"unreadCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (c *Conversation) involves(a, b int) bool {
	return contains(c.Participants, a) && contains(c.Participants, b)
}

type Notification struct {
	ID         int              `json:"id"`
	UserID     int              `json:"userId"`
	Type       NotificationType `json:"type"`
	FromUserID *int             `json:"fromUserId,omitempty"`
	PostID     *int             `json:"postId,omitempty"`
	Title      string           `json:"title,omitempty"`
	Content    string           `json:"content"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Draft ids are wall-clock milliseconds.
type Draft struct {
	ID        int64     `json:"id"`
	UserID    int       `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Topic     string    `json:"topic"`
	Images    []Image   `json:"images,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Report ids are wall-clock milliseconds.
type Report struct {
	ID         int64        `json:"id"`
	PostID     int          `json:"postId"`
	ReporterID int          `json:"reporterId"`
	Reason     string       `json:"reason"`
	Type       ReportType   `json:"type"`
	CreatedAt  time.Time    `json:"createdAt"`
	Status     ReportStatus `json:"status"`
}

// HotSearch is a search keyword and how often it was searched.
type HotSearch struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}
