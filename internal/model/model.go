package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	StatusNormal = "normal"
	StatusMember = "member"

	BadgeBronze = "Bronze"
	BadgeGold   = "Gold"
)

type User struct {
	ID        string    `json:"_id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Photo     string    `json:"photo,omitempty" bson:"photo,omitempty"`
	Role      string    `json:"role" bson:"role"`
	Status    string    `json:"status" bson:"status"`
	Badge     string    `json:"badge" bson:"badge"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Post struct {
	ID           string    `json:"_id" bson:"_id"`
	AuthorName   string    `json:"authorName" bson:"authorName"`
	AuthorEmail  string    `json:"authorEmail" bson:"authorEmail"`
	AuthorImage  string    `json:"authorImage,omitempty" bson:"authorImage,omitempty"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description" bson:"description"`
	Tag          string    `json:"tag" bson:"tag"`
	UpVote       int       `json:"upVote" bson:"upVote"`
	DownVote     int       `json:"downVote" bson:"downVote"`
	CommentCount int       `json:"commentCount" bson:"commentCount"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Popularity is the net vote score used by the "popular" sort.
func (p Post) Popularity() int {
	return p.UpVote - p.DownVote
}

type Comment struct {
	ID             string    `json:"_id" bson:"_id"`
	PostID         string    `json:"postId" bson:"postId"`
	PostTitle      string    `json:"postTitle,omitempty" bson:"postTitle,omitempty"`
	CommenterName  string    `json:"commenterName" bson:"commenterName"`
	CommenterEmail string    `json:"commenterEmail" bson:"commenterEmail"`
	Text           string    `json:"text" bson:"text"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}

type Tag struct {
	ID    string `json:"_id" bson:"_id"`
	Label string `json:"label" bson:"label"`
}

type Announcement struct {
	ID          string    `json:"_id" bson:"_id"`
	AuthorName  string    `json:"authorName" bson:"authorName"`
	AuthorImage string    `json:"authorImage,omitempty" bson:"authorImage,omitempty"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

type Payment struct {
	ID            string    `json:"_id" bson:"_id"`
	Email         string    `json:"email" bson:"email"`
	Name          string    `json:"name,omitempty" bson:"name,omitempty"`
	Price         float64   `json:"price" bson:"price"`
	TransactionID string    `json:"transactionId" bson:"transactionId"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// Membership is the (status, badge) pair written to a user when a payment lands.
type Membership struct {
	Status string
	Badge  string
}

// Report is a moderation report ("feedback") filed against a comment.
type Report struct {
	ID             string    `json:"_id" bson:"_id"`
	ReporterEmail  string    `json:"reporterEmail" bson:"reporterEmail"`
	CommentID      string    `json:"commentId" bson:"commentId"`
	CommenterEmail string    `json:"commenterEmail,omitempty" bson:"commenterEmail,omitempty"`
	Feedback       string    `json:"feedback" bson:"feedback"`
	Text           string    `json:"text,omitempty" bson:"text,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}

type Restriction struct {
	ID        string    `json:"_id" bson:"_id"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	Message   string    `json:"message" bson:"message"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type SiteStats struct {
	Users    int64 `json:"users"`
	Posts    int64 `json:"posts"`
	Comments int64 `json:"comments"`
}
