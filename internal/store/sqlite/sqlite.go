package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blogs-online/server/internal/model"
	"github.com/blogs-online/server/internal/store"

	"github.com/google/uuid"
	sqlitedriver "modernc.org/sqlite"
)

func init() {
	if err := sqlitedriver.RegisterDeterministicScalarFunction("fold", 1, fold); err != nil {
		panic(fmt.Sprintf("sqlite: register fold: %v", err))
	}
}

// fold lowercases with Unicode rules; the built-in lower() only folds ASCII.
func fold(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	case nil:
		return nil, nil
	default:
		return strings.ToLower(fmt.Sprint(v)), nil
	}
}

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers; sqlite would otherwise answer
	// concurrent writes with SQLITE_BUSY instead of queueing them.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE,
	photo TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	status TEXT NOT NULL,
	badge TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	author_name TEXT NOT NULL DEFAULT '',
	author_email TEXT NOT NULL DEFAULT '',
	author_image TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	tag TEXT NOT NULL DEFAULT '',
	up_vote INTEGER NOT NULL DEFAULT 0,
	down_vote INTEGER NOT NULL DEFAULT 0,
	comment_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_author_email ON posts(author_email);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL,
	post_title TEXT NOT NULL DEFAULT '',
	commenter_name TEXT NOT NULL DEFAULT '',
	commenter_email TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);

CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS announcements (
	id TEXT PRIMARY KEY,
	author_name TEXT NOT NULL DEFAULT '',
	author_image TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	price REAL NOT NULL DEFAULT 0,
	transaction_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payments_email ON payments(email);

CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	reporter_email TEXT NOT NULL DEFAULT '',
	comment_id TEXT NOT NULL DEFAULT '',
	commenter_email TEXT NOT NULL DEFAULT '',
	feedback TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_reporter_email ON reports(reporter_email);

CREATE TABLE IF NOT EXISTS restrictions (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

// Users

const userColumns = `id, name, email, photo, role, status, badge, created_at`

func (s *Store) CreateUser(ctx context.Context, user *model.User) (store.InsertResult, error) {
	user.ID = uuid.NewString()
	stamp(&user.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, user.ID, user.Name, user.Email, user.Photo, user.Role, user.Status, user.Badge, user.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return store.InsertResult{}, store.ErrDuplicateEmail
		}
		return store.InsertResult{}, fmt.Errorf("insert user: %w", err)
	}
	return store.Inserted(user.ID), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context, opts store.ListOpts) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE ? = '' OR instr(fold(name), fold(?)) > 0
ORDER BY created_at ASC, rowid ASC
LIMIT ? OFFSET ?
`, opts.Search, opts.Search, limitOrAll(opts.Limit), max(opts.Skip, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) SetUserRole(ctx context.Context, id, role string) (store.UpdateResult, error) {
	return patch(ctx, s.db, "users", "id = ?", []any{id}, []string{"role"}, []any{role})
}

func (s *Store) DeleteUser(ctx context.Context, id string) (store.DeleteResult, error) {
	return deleteByID(ctx, s.db, "users", id)
}

// Posts

const postColumns = `id, author_name, author_email, author_image, title, description, tag, up_vote, down_vote, comment_count, created_at`

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (store.InsertResult, error) {
	post.ID = uuid.NewString()
	stamp(&post.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO posts (`+postColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, post.ID, post.AuthorName, post.AuthorEmail, post.AuthorImage, post.Title, post.Description, post.Tag,
		post.UpVote, post.DownVote, post.CommentCount, post.CreatedAt.UnixMilli())
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("insert post: %w", err)
	}
	return store.Inserted(post.ID), nil
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ? LIMIT 1`, id)
	return scanPost(row)
}

func (s *Store) ListPosts(ctx context.Context, opts store.ListOpts) ([]model.Post, error) {
	order := "created_at DESC, rowid DESC"
	if opts.Sort == store.SortPopular {
		order = "(up_vote - down_vote) DESC, created_at DESC, rowid DESC"
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+postColumns+`
FROM posts
WHERE ? = '' OR instr(fold(tag), fold(?)) > 0
ORDER BY `+order+`
LIMIT ? OFFSET ?
`, opts.Search, opts.Search, limitOrAll(opts.Limit), max(opts.Skip, 0))
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

func (s *Store) ListPostsByAuthor(ctx context.Context, email string) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+postColumns+`
FROM posts
WHERE author_email = ?
ORDER BY created_at DESC, rowid DESC
`, email)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

func (s *Store) CountPosts(ctx context.Context, authorEmail string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM posts WHERE ? = '' OR author_email = ?
`, authorEmail, authorEmail).Scan(&count)
	return count, err
}

func (s *Store) UpdatePostVotes(ctx context.Context, id string, votes store.VotePatch) (store.UpdateResult, error) {
	var cols []string
	var vals []any
	if votes.UpVote != nil {
		cols = append(cols, "up_vote")
		vals = append(vals, *votes.UpVote)
	}
	if votes.DownVote != nil {
		cols = append(cols, "down_vote")
		vals = append(vals, *votes.DownVote)
	}
	if len(cols) == 0 {
		return store.UpdateResult{}, errors.New("empty vote patch")
	}
	return patch(ctx, s.db, "posts", "id = ?", []any{id}, cols, vals)
}

func (s *Store) DeletePost(ctx context.Context, id string) (store.DeleteResult, error) {
	return deleteByID(ctx, s.db, "posts", id)
}

// Comments

const commentColumns = `id, post_id, post_title, commenter_name, commenter_email, text, created_at`

func (s *Store) AddComment(ctx context.Context, comment *model.Comment) (store.InsertResult, error) {
	comment.ID = uuid.NewString()
	stamp(&comment.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.InsertResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
INSERT INTO comments (`+commentColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, comment.ID, comment.PostID, comment.PostTitle, comment.CommenterName, comment.CommenterEmail, comment.Text, comment.CreatedAt.UnixMilli()); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert comment: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
UPDATE posts SET comment_count = (SELECT COUNT(*) FROM comments WHERE post_id = ?) WHERE id = ?
`, comment.PostID, comment.PostID); err != nil {
		return store.InsertResult{}, fmt.Errorf("refresh comment count: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return store.InsertResult{}, err
	}
	return store.Inserted(comment.ID), nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+commentColumns+`
FROM comments
WHERE ? = '' OR post_id = ?
ORDER BY created_at ASC, rowid ASC
`, postID, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		var created int64
		if err := rows.Scan(&c.ID, &c.PostID, &c.PostTitle, &c.CommenterName, &c.CommenterEmail, &c.Text, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.UnixMilli(created).UTC()
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Tags

func (s *Store) CreateTag(ctx context.Context, tag *model.Tag) (store.InsertResult, error) {
	tag.ID = uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO tags (id, label) VALUES (?, ?)`, tag.ID, tag.Label); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert tag: %w", err)
	}
	return store.Inserted(tag.ID), nil
}

func (s *Store) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label FROM tags ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Label); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Announcements

func (s *Store) CreateAnnouncement(ctx context.Context, a *model.Announcement) (store.InsertResult, error) {
	a.ID = uuid.NewString()
	stamp(&a.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO announcements (id, author_name, author_image, title, description, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, a.ID, a.AuthorName, a.AuthorImage, a.Title, a.Description, a.CreatedAt.UnixMilli())
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("insert announcement: %w", err)
	}
	return store.Inserted(a.ID), nil
}

func (s *Store) ListAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, author_name, author_image, title, description, created_at
FROM announcements
ORDER BY created_at DESC, rowid DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	announcements := []model.Announcement{}
	for rows.Next() {
		var a model.Announcement
		var created int64
		if err := rows.Scan(&a.ID, &a.AuthorName, &a.AuthorImage, &a.Title, &a.Description, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = time.UnixMilli(created).UTC()
		announcements = append(announcements, a)
	}
	return announcements, rows.Err()
}

func (s *Store) CountAnnouncements(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements`).Scan(&count)
	return count, err
}

// Payments

func (s *Store) RecordPayment(ctx context.Context, payment *model.Payment, membership model.Membership) (store.PaymentResult, error) {
	payment.ID = uuid.NewString()
	stamp(&payment.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.PaymentResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
INSERT INTO payments (id, email, name, price, transaction_id, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, payment.ID, payment.Email, payment.Name, payment.Price, payment.TransactionID, payment.CreatedAt.UnixMilli()); err != nil {
		return store.PaymentResult{}, fmt.Errorf("insert payment: %w", err)
	}
	var userResult store.UpdateResult
	userResult, err = patch(ctx, tx, "users", "email = ?", []any{payment.Email},
		[]string{"status", "badge"}, []any{membership.Status, membership.Badge})
	if err != nil {
		return store.PaymentResult{}, fmt.Errorf("apply membership: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return store.PaymentResult{}, err
	}
	return store.PaymentResult{Payment: store.Inserted(payment.ID), User: userResult}, nil
}

func (s *Store) ListPayments(ctx context.Context, email string) ([]model.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, email, name, price, transaction_id, created_at
FROM payments
WHERE email = ?
ORDER BY created_at DESC, rowid DESC
`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		var created int64
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.Price, &p.TransactionID, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = time.UnixMilli(created).UTC()
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Reports

func (s *Store) CreateReport(ctx context.Context, report *model.Report) (store.InsertResult, error) {
	report.ID = uuid.NewString()
	stamp(&report.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO reports (id, reporter_email, comment_id, commenter_email, feedback, text, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, report.ID, report.ReporterEmail, report.CommentID, report.CommenterEmail, report.Feedback, report.Text, report.CreatedAt.UnixMilli())
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("insert report: %w", err)
	}
	return store.Inserted(report.ID), nil
}

func (s *Store) ListReports(ctx context.Context, reporterEmail string) ([]model.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, reporter_email, comment_id, commenter_email, feedback, text, created_at
FROM reports
WHERE ? = '' OR reporter_email = ?
ORDER BY created_at DESC, rowid DESC
`, reporterEmail, reporterEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []model.Report{}
	for rows.Next() {
		var r model.Report
		var created int64
		if err := rows.Scan(&r.ID, &r.ReporterEmail, &r.CommentID, &r.CommenterEmail, &r.Feedback, &r.Text, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Restrictions

func (s *Store) CreateRestriction(ctx context.Context, r *model.Restriction) (store.InsertResult, error) {
	r.ID = uuid.NewString()
	stamp(&r.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO restrictions (id, email, message, created_at)
VALUES (?, ?, ?, ?)
`, r.ID, r.Email, r.Message, r.CreatedAt.UnixMilli())
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("insert restriction: %w", err)
	}
	return store.Inserted(r.ID), nil
}

func (s *Store) ListRestrictions(ctx context.Context) ([]model.Restriction, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, email, message, created_at
FROM restrictions
ORDER BY created_at DESC, rowid DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	restrictions := []model.Restriction{}
	for rows.Next() {
		var r model.Restriction
		var created int64
		if err := rows.Scan(&r.ID, &r.Email, &r.Message, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		restrictions = append(restrictions, r)
	}
	return restrictions, rows.Err()
}

func (s *Store) GetSiteStats(ctx context.Context) (model.SiteStats, error) {
	var stats model.SiteStats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`)
	if err := row.Scan(&stats.Users); err != nil {
		return stats, err
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`)
	if err := row.Scan(&stats.Posts); err != nil {
		return stats, err
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`)
	if err := row.Scan(&stats.Comments); err != nil {
		return stats, err
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (model.User, error) {
	var u model.User
	var created int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role, &u.Status, &u.Badge, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}

func scanPost(row scanner) (model.Post, error) {
	var p model.Post
	var created int64
	if err := row.Scan(&p.ID, &p.AuthorName, &p.AuthorEmail, &p.AuthorImage, &p.Title, &p.Description, &p.Tag,
		&p.UpVote, &p.DownVote, &p.CommentCount, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	return p, nil
}

func collectPosts(rows *sql.Rows) ([]model.Post, error) {
	defer rows.Close()
	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// patch is a field-set update over the rows matching where. Matched and
// modified counts follow document store semantics: a row whose fields
// already hold the new values is matched but not modified.
func patch(ctx context.Context, q execer, table, where string, whereArgs []any, cols []string, vals []any) (store.UpdateResult, error) {
	var matched int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE "+where, whereArgs...).Scan(&matched); err != nil {
		return store.UpdateResult{}, err
	}

	sets := make([]string, len(cols))
	diffs := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
		diffs[i] = col + " IS NOT ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE (%s) AND (%s)",
		table, strings.Join(sets, ", "), where, strings.Join(diffs, " OR "))

	args := make([]any, 0, 2*len(vals)+len(whereArgs))
	args = append(args, vals...)
	args = append(args, whereArgs...)
	args = append(args, vals...)

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return store.UpdateResult{}, err
	}
	modified, err := res.RowsAffected()
	if err != nil {
		return store.UpdateResult{}, err
	}
	return store.UpdateResult{Acknowledged: true, MatchedCount: matched, ModifiedCount: modified}, nil
}

func deleteByID(ctx context.Context, q execer, table, id string) (store.DeleteResult, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return store.DeleteResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.DeleteResult{}, err
	}
	return store.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

// limitOrAll maps a non-positive limit to sqlite's "no limit".
func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
