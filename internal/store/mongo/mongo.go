// Package mongo is the document store backend. Multi-collection writes run
// inside a session transaction, so the deployment must be a replica set or
// a sharded cluster (Atlas clusters are).
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/blogs-online/server/internal/model"
	"github.com/blogs-online/server/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersColl         = "users"
	postsColl         = "posts"
	commentsColl      = "comments"
	tagsColl          = "tags"
	announcementsColl = "announcements"
	paymentsColl      = "payments"
	reportsColl       = "reports"
	restrictionsColl  = "restrictions"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// Open connects to uri, pings the primary and ensures indexes on dbName.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  string
		model mongo.IndexModel
	}{
		{usersColl, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{postsColl, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}}},
		{postsColl, mongo.IndexModel{Keys: bson.D{{Key: "authorEmail", Value: 1}}}},
		{commentsColl, mongo.IndexModel{Keys: bson.D{{Key: "postId", Value: 1}}}},
		{paymentsColl, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}}},
		{reportsColl, mongo.IndexModel{Keys: bson.D{{Key: "reporterEmail", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := s.db.Collection(idx.coll).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *model.User) (store.InsertResult, error) {
	user.ID = uuid.NewString()
	stamp(&user.CreatedAt)
	if _, err := s.coll(usersColl).InsertOne(ctx, user); err != nil {
		return store.InsertResult{}, userInsertError(err)
	}
	return store.Inserted(user.ID), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.coll(usersColl).FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&u)
	return u, notFound(err)
}

func (s *Store) ListUsers(ctx context.Context, opts store.ListOpts) ([]model.User, error) {
	find := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	page(find, opts)
	users := []model.User{}
	return users, findAll(ctx, s.coll(usersColl), contains("name", opts.Search), find, &users)
}

func (s *Store) SetUserRole(ctx context.Context, id, role string) (store.UpdateResult, error) {
	return set(ctx, s.coll(usersColl), bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "role", Value: role}})
}

func (s *Store) DeleteUser(ctx context.Context, id string) (store.DeleteResult, error) {
	return deleteByID(ctx, s.coll(usersColl), id)
}

// Posts

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (store.InsertResult, error) {
	post.ID = uuid.NewString()
	stamp(&post.CreatedAt)
	if _, err := s.coll(postsColl).InsertOne(ctx, post); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert post: %w", err)
	}
	return store.Inserted(post.ID), nil
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	var p model.Post
	err := s.coll(postsColl).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&p)
	return p, notFound(err)
}

func (s *Store) ListPosts(ctx context.Context, opts store.ListOpts) ([]model.Post, error) {
	posts := []model.Post{}
	filter := contains("tag", opts.Search)
	if opts.Sort != store.SortPopular {
		find := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
		page(find, opts)
		return posts, findAll(ctx, s.coll(postsColl), filter, find, &posts)
	}

	cur, err := s.coll(postsColl).Aggregate(ctx, popularPipeline(filter, opts))
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, email string) ([]model.Post, error) {
	find := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	posts := []model.Post{}
	return posts, findAll(ctx, s.coll(postsColl), bson.D{{Key: "authorEmail", Value: email}}, find, &posts)
}

func (s *Store) CountPosts(ctx context.Context, authorEmail string) (int64, error) {
	return s.coll(postsColl).CountDocuments(ctx, equalOrAll("authorEmail", authorEmail))
}

func (s *Store) UpdatePostVotes(ctx context.Context, id string, votes store.VotePatch) (store.UpdateResult, error) {
	fields := voteFields(votes)
	if len(fields) == 0 {
		return store.UpdateResult{}, errors.New("empty vote patch")
	}
	return set(ctx, s.coll(postsColl), bson.D{{Key: "_id", Value: id}}, fields)
}

func (s *Store) DeletePost(ctx context.Context, id string) (store.DeleteResult, error) {
	return deleteByID(ctx, s.coll(postsColl), id)
}

// Comments

func (s *Store) AddComment(ctx context.Context, comment *model.Comment) (store.InsertResult, error) {
	comment.ID = uuid.NewString()
	stamp(&comment.CreatedAt)

	err := s.inTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.coll(commentsColl).InsertOne(ctx, comment); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		n, err := s.coll(commentsColl).CountDocuments(ctx, bson.D{{Key: "postId", Value: comment.PostID}})
		if err != nil {
			return err
		}
		_, err = set(ctx, s.coll(postsColl), bson.D{{Key: "_id", Value: comment.PostID}}, bson.D{{Key: "commentCount", Value: n}})
		if err != nil {
			return fmt.Errorf("refresh comment count: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.InsertResult{}, err
	}
	return store.Inserted(comment.ID), nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	find := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	comments := []model.Comment{}
	return comments, findAll(ctx, s.coll(commentsColl), equalOrAll("postId", postID), find, &comments)
}

// Tags

func (s *Store) CreateTag(ctx context.Context, tag *model.Tag) (store.InsertResult, error) {
	tag.ID = uuid.NewString()
	if _, err := s.coll(tagsColl).InsertOne(ctx, tag); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert tag: %w", err)
	}
	return store.Inserted(tag.ID), nil
}

func (s *Store) ListTags(ctx context.Context) ([]model.Tag, error) {
	tags := []model.Tag{}
	return tags, findAll(ctx, s.coll(tagsColl), bson.D{}, options.Find(), &tags)
}

// Announcements

func (s *Store) CreateAnnouncement(ctx context.Context, a *model.Announcement) (store.InsertResult, error) {
	a.ID = uuid.NewString()
	stamp(&a.CreatedAt)
	if _, err := s.coll(announcementsColl).InsertOne(ctx, a); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert announcement: %w", err)
	}
	return store.Inserted(a.ID), nil
}

func (s *Store) ListAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	find := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	announcements := []model.Announcement{}
	return announcements, findAll(ctx, s.coll(announcementsColl), bson.D{}, find, &announcements)
}

func (s *Store) CountAnnouncements(ctx context.Context) (int64, error) {
	return s.coll(announcementsColl).CountDocuments(ctx, bson.D{})
}

// Payments

func (s *Store) RecordPayment(ctx context.Context, payment *model.Payment, membership model.Membership) (store.PaymentResult, error) {
	payment.ID = uuid.NewString()
	stamp(&payment.CreatedAt)

	var userResult store.UpdateResult
	err := s.inTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.coll(paymentsColl).InsertOne(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		var err error
		userResult, err = set(ctx, s.coll(usersColl), bson.D{{Key: "email", Value: payment.Email}}, membershipFields(membership))
		if err != nil {
			return fmt.Errorf("apply membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.PaymentResult{}, err
	}
	return store.PaymentResult{Payment: store.Inserted(payment.ID), User: userResult}, nil
}

func (s *Store) ListPayments(ctx context.Context, email string) ([]model.Payment, error) {
	find := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	payments := []model.Payment{}
	return payments, findAll(ctx, s.coll(paymentsColl), bson.D{{Key: "email", Value: email}}, find, &payments)
}

// Reports

func (s *Store) CreateReport(ctx context.Context, report *model.Report) (store.InsertResult, error) {
	report.ID = uuid.NewString()
	stamp(&report.CreatedAt)
	if _, err := s.coll(reportsColl).InsertOne(ctx, report); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert report: %w", err)
	}
	return store.Inserted(report.ID), nil
}

func (s *Store) ListReports(ctx context.Context, reporterEmail string) ([]model.Report, error) {
	find := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	reports := []model.Report{}
	return reports, findAll(ctx, s.coll(reportsColl), equalOrAll("reporterEmail", reporterEmail), find, &reports)
}

// Restrictions

func (s *Store) CreateRestriction(ctx context.Context, r *model.Restriction) (store.InsertResult, error) {
	r.ID = uuid.NewString()
	stamp(&r.CreatedAt)
	if _, err := s.coll(restrictionsColl).InsertOne(ctx, r); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert restriction: %w", err)
	}
	return store.Inserted(r.ID), nil
}

func (s *Store) ListRestrictions(ctx context.Context) ([]model.Restriction, error) {
	find := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	restrictions := []model.Restriction{}
	return restrictions, findAll(ctx, s.coll(restrictionsColl), bson.D{}, find, &restrictions)
}

func (s *Store) GetSiteStats(ctx context.Context) (model.SiteStats, error) {
	var stats model.SiteStats
	var err error
	if stats.Users, err = s.coll(usersColl).CountDocuments(ctx, bson.D{}); err != nil {
		return stats, err
	}
	if stats.Posts, err = s.coll(postsColl).CountDocuments(ctx, bson.D{}); err != nil {
		return stats, err
	}
	if stats.Comments, err = s.coll(commentsColl).CountDocuments(ctx, bson.D{}); err != nil {
		return stats, err
	}
	return stats, nil
}

// inTransaction runs fn in a session transaction. The driver retries fn on
// transient transaction errors, so fn must be safe to re-run.
func (s *Store) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func findAll(ctx context.Context, coll *mongo.Collection, filter any, find *options.FindOptionsBuilder, out any) error {
	cur, err := coll.Find(ctx, filter, find)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func set(ctx context.Context, coll *mongo.Collection, filter, fields bson.D) (store.UpdateResult, error) {
	res, err := coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return store.UpdateResult{}, err
	}
	return store.UpdateResult{
		Acknowledged:  res.Acknowledged,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}, nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) (store.DeleteResult, error) {
	res, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return store.DeleteResult{}, err
	}
	return store.DeleteResult{Acknowledged: res.Acknowledged, DeletedCount: res.DeletedCount}, nil
}

// popularPipeline orders posts matching filter by upVote minus downVote,
// newest first among ties, then applies paging.
func popularPipeline(filter bson.D, opts store.ListOpts) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.D{{Key: "popularity", Value: bson.D{
			{Key: "$subtract", Value: bson.A{"$upVote", "$downVote"}},
		}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "popularity", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
	}
	if opts.Skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(opts.Skip)}})
	}
	if opts.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(opts.Limit)}})
	}
	return pipeline
}

func voteFields(votes store.VotePatch) bson.D {
	fields := bson.D{}
	if votes.UpVote != nil {
		fields = append(fields, bson.E{Key: "upVote", Value: *votes.UpVote})
	}
	if votes.DownVote != nil {
		fields = append(fields, bson.E{Key: "downVote", Value: *votes.DownVote})
	}
	return fields
}

func membershipFields(m model.Membership) bson.D {
	return bson.D{{Key: "status", Value: m.Status}, {Key: "badge", Value: m.Badge}}
}

// equalOrAll filters field == value, or matches everything when value is empty.
func equalOrAll(field, value string) bson.D {
	if value == "" {
		return bson.D{}
	}
	return bson.D{{Key: field, Value: value}}
}

func userInsertError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateEmail
	}
	return fmt.Errorf("insert user: %w", err)
}

// contains matches field against a literal, case-insensitive substring.
func contains(field, search string) bson.D {
	if search == "" {
		return bson.D{}
	}
	return bson.D{{Key: field, Value: bson.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}}}
}

func page(find *options.FindOptionsBuilder, opts store.ListOpts) {
	if opts.Skip > 0 {
		find.SetSkip(int64(opts.Skip))
	}
	if opts.Limit > 0 {
		find.SetLimit(int64(opts.Limit))
	}
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}
