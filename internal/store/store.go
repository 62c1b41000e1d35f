package store

import (
	"context"
	"errors"

	"github.com/blogs-online/server/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

const (
	SortNew     = "new"
	SortPopular = "popular"
)

// ListOpts narrows a find-many. Search is a literal, case-insensitive
// substring matched against the collection's search field (user name, post
// tag); empty matches everything.
type ListOpts struct {
	Search string
	Sort   string
	Limit  int
	Skip   int
}

// InsertResult mirrors a document store insert-one acknowledgement.
// InsertedID is nil when nothing was written.
type InsertResult struct {
	Acknowledged bool    `json:"acknowledged"`
	InsertedID   *string `json:"insertedId"`
}

func Inserted(id string) InsertResult {
	return InsertResult{Acknowledged: true, InsertedID: &id}
}

type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// PaymentResult reports both writes of RecordPayment.
type PaymentResult struct {
	Payment InsertResult `json:"paymentResult"`
	User    UpdateResult `json:"userResult"`
}

// VotePatch overwrites whichever counters are non-nil. There is no
// compare-and-swap: concurrent patches resolve as last write wins.
type VotePatch struct {
	UpVote   *int `json:"upVote"`
	DownVote *int `json:"downVote"`
}

func (p VotePatch) Empty() bool {
	return p.UpVote == nil && p.DownVote == nil
}

type Store interface {
	UserStore
	PostStore
	CommentStore
	TagStore
	AnnouncementStore
	PaymentStore
	ReportStore
	RestrictionStore
	GetSiteStats(ctx context.Context) (model.SiteStats, error)
	Ping(ctx context.Context) error
	Close() error
}

type UserStore interface {
	// CreateUser returns ErrDuplicateEmail when the email is already registered.
	CreateUser(ctx context.Context, user *model.User) (InsertResult, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context, opts ListOpts) ([]model.User, error)
	SetUserRole(ctx context.Context, id, role string) (UpdateResult, error)
	DeleteUser(ctx context.Context, id string) (DeleteResult, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) (InsertResult, error)
	GetPost(ctx context.Context, id string) (model.Post, error)
	ListPosts(ctx context.Context, opts ListOpts) ([]model.Post, error)
	ListPostsByAuthor(ctx context.Context, email string) ([]model.Post, error)
	// CountPosts counts posts by authorEmail, or all posts when it is empty.
	CountPosts(ctx context.Context, authorEmail string) (int64, error)
	UpdatePostVotes(ctx context.Context, id string, patch VotePatch) (UpdateResult, error)
	DeletePost(ctx context.Context, id string) (DeleteResult, error)
}

type CommentStore interface {
	// AddComment inserts the comment and refreshes the parent post's
	// commentCount in one transaction. The post is not required to exist.
	AddComment(ctx context.Context, comment *model.Comment) (InsertResult, error)
	// ListComments lists the comments of postID, or every comment when it is empty.
	ListComments(ctx context.Context, postID string) ([]model.Comment, error)
}

type TagStore interface {
	CreateTag(ctx context.Context, tag *model.Tag) (InsertResult, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
}

type AnnouncementStore interface {
	CreateAnnouncement(ctx context.Context, a *model.Announcement) (InsertResult, error)
	ListAnnouncements(ctx context.Context) ([]model.Announcement, error)
	CountAnnouncements(ctx context.Context) (int64, error)
}

type PaymentStore interface {
	// RecordPayment inserts the payment and unconditionally applies the
	// membership to the user with the payment's email, in one transaction.
	RecordPayment(ctx context.Context, payment *model.Payment, membership model.Membership) (PaymentResult, error)
	ListPayments(ctx context.Context, email string) ([]model.Payment, error)
}

type ReportStore interface {
	CreateReport(ctx context.Context, report *model.Report) (InsertResult, error)
	// ListReports lists reports filed by reporterEmail, or all when it is empty.
	ListReports(ctx context.Context, reporterEmail string) ([]model.Report, error)
}

type RestrictionStore interface {
	CreateRestriction(ctx context.Context, r *model.Restriction) (InsertResult, error)
	ListRestrictions(ctx context.Context) ([]model.Restriction, error)
}
