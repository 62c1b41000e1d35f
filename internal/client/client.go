// Package client provides a Go client for the Blogs Online API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/blogs-online/server/internal/model"
	"github.com/blogs-online/server/internal/store"
)

// Client is a Blogs Online API client. Token, once set by Login, is sent as
// a bearer credential on every request.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("blogs online: %d %s", e.StatusCode, e.Message)
}

// New creates a new client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request, authenticated when a token is set.
func (c *Client) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

// call sends body and decodes the JSON answer into out (when non-nil).
func (c *Client) call(method, path string, body, out any) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &e) != nil || e.Message == "" {
			e.Message = string(raw)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login exchanges an email for a token and keeps it on the client.
func (c *Client) Login(email string) error {
	var res struct {
		Token string `json:"token"`
	}
	if err := c.call(http.MethodPost, "/jwt", map[string]string{"email": email}, &res); err != nil {
		return err
	}
	c.Token = res.Token
	return nil
}

// Register creates the user; InsertedID is nil when the email already exists.
func (c *Client) Register(name, email, photo string) (store.InsertResult, error) {
	var res store.InsertResult
	err := c.call(http.MethodPost, "/users", map[string]string{"name": name, "email": email, "photo": photo}, &res)
	return res, err
}

func (c *Client) GetUser(email string) (*model.User, error) {
	var u *model.User
	err := c.call(http.MethodGet, "/users/"+url.PathEscape(email), nil, &u)
	return u, err
}

func (c *Client) IsAdmin(email string) (bool, error) {
	var res struct {
		Admin bool `json:"admin"`
	}
	err := c.call(http.MethodGet, "/users/admin/"+url.PathEscape(email), nil, &res)
	return res.Admin, err
}

func (c *Client) ListUsers(search string, limit, skip int) ([]model.User, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	var users []model.User
	err := c.call(http.MethodGet, withQuery("/users", q), nil, &users)
	return users, err
}

func (c *Client) MakeAdmin(id string) (store.UpdateResult, error) {
	var res store.UpdateResult
	err := c.call(http.MethodPatch, "/users/admin/"+url.PathEscape(id), nil, &res)
	return res, err
}

func (c *Client) DeleteUser(id string) (store.DeleteResult, error) {
	var res store.DeleteResult
	err := c.call(http.MethodDelete, "/users/"+url.PathEscape(id), nil, &res)
	return res, err
}

func (c *Client) CreatePost(p model.Post) (store.InsertResult, error) {
	var res store.InsertResult
	err := c.call(http.MethodPost, "/addPost", map[string]string{
		"authorName":  p.AuthorName,
		"authorEmail": p.AuthorEmail,
		"authorImage": p.AuthorImage,
		"title":       p.Title,
		"description": p.Description,
		"tag":         p.Tag,
	}, &res)
	return res, err
}

// ListPosts lists posts filtered by tag substring. A size of 0 returns all.
func (c *Client) ListPosts(tag, sort string, page, size int) ([]model.Post, error) {
	q := url.Values{}
	if tag != "" {
		q.Set("tag", tag)
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	if size > 0 {
		q.Set("page", strconv.Itoa(page))
		q.Set("size", strconv.Itoa(size))
	}
	var posts []model.Post
	err := c.call(http.MethodGet, withQuery("/addPost", q), nil, &posts)
	return posts, err
}

// GetPost returns nil when the post does not exist.
func (c *Client) GetPost(id string) (*model.Post, error) {
	var p *model.Post
	err := c.call(http.MethodGet, "/addPost/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *Client) CountPosts() (int64, error) {
	return c.count("/postCount")
}

func (c *Client) CountPostsBy(email string) (int64, error) {
	return c.count("/emailLimit/" + url.PathEscape(email))
}

func (c *Client) PostsBy(email string) ([]model.Post, error) {
	var posts []model.Post
	err := c.call(http.MethodGet, "/addEmail/"+url.PathEscape(email), nil, &posts)
	return posts, err
}

func (c *Client) DeletePost(id string) (store.DeleteResult, error) {
	var res store.DeleteResult
	err := c.call(http.MethodDelete, "/addEmail/"+url.PathEscape(id), nil, &res)
	return res, err
}

// Vote overwrites the post's counters that are non-nil in patch.
func (c *Client) Vote(postID string, patch store.VotePatch) (store.UpdateResult, error) {
	var res store.UpdateResult
	err := c.call(http.MethodPatch, "/voteCount/"+url.PathEscape(postID), patch, &res)
	return res, err
}

func (c *Client) CreateTag(label string) (store.InsertResult, error) {
	var res store.InsertResult
	err := c.call(http.MethodPost, "/addTags", map[string]string{"label": label}, &res)
	return res, err
}

func (c *Client) ListTags() ([]model.Tag, error) {
	var tags []model.Tag
	err := c.call(http.MethodGet, "/addTags", nil, &tags)
	return tags, err
}

func (c *Client) AddComment(cm model.Comment) (store.InsertResult, error) {
	var res store.InsertResult
	err := c.call(http.MethodPost, "/allComment", map[string]string{
		"postId":         cm.PostID,
		"postTitle":      cm.PostTitle,
		"commenterName":  cm.CommenterName,
		"commenterEmail": cm.CommenterEmail,
		"text":           cm.Text,
	}, &res)
	return res, err
}

// ListComments lists the comments of postID, or all comments when it is empty.
func (c *Client) ListComments(postID string) ([]model.Comment, error) {
	path := "/allComment"
	if postID != "" {
		path += "/" + url.PathEscape(postID)
	}
	var comments []model.Comment
	err := c.call(http.MethodGet, path, nil, &comments)
	return comments, err
}

func (c *Client) Announce(a model.Announcement) (store.InsertResult, error) {
	var res store.InsertResult
	err := c.call(http.MethodPost, "/announcement", map[string]string{
		"authorName":  a.AuthorName,
		"authorImage": a.AuthorImage,
		"title":       a.Title,
		"description": a.Description,
	}, &res)
	return res, err
}

func (c *Client) ListAnnouncements() ([]model.Announcement, error) {
	var announcements []model.Announcement
	err := c.call(http.MethodGet, "/announcement", nil, &announcements)
	return announcements, err
}

func (c *Client) CountAnnouncements() (int64, error) {
	return c.count("/announcementCount")
}

// CreatePaymentIntent returns the processor's client secret for price dollars.
func (c *Client) CreatePaymentIntent(price float64) (string, error) {
	var res struct {
		ClientSecret string `json:"clientSecret"`
	}
	err := c.call(http.MethodPost, "/create-payment-intent", map[string]float64{"price": price}, &res)
	return res.ClientSecret, err
}

func (c *Client) RecordPayment(p model.Payment) (store.PaymentResult, error) {
	var res store.PaymentResult
	err := c.call(http.MethodPost, "/payments", map[string]any{
		"email":         p.Email,
		"name":          p.Name,
		"price":         p.Price,
		"transactionId": p.TransactionID,
	}, &res)
	return res, err
}

func (c *Client) ListPayments(email string) ([]model.Payment, error) {
	var payments []model.Payment
	err := c.call(http.MethodGet, "/payments/"+url.PathEscape(email), nil, &payments)
	return payments, err
}

func (c *Client) Report(r model.Report) (store.InsertResult, error) {
	var res store.InsertResult
	err := c.call(http.MethodPost, "/feedback", map[string]string{
		"reporterEmail":  r.ReporterEmail,
		"commentId":      r.CommentID,
		"commenterEmail": r.CommenterEmail,
		"feedback":       r.Feedback,
		"text":           r.Text,
	}, &res)
	return res, err
}

// ListReports lists reports filed by reporterEmail, or all when it is empty.
func (c *Client) ListReports(reporterEmail string) ([]model.Report, error) {
	path := "/feedback"
	if reporterEmail != "" {
		path = "/filter/" + url.PathEscape(reporterEmail)
	}
	var reports []model.Report
	err := c.call(http.MethodGet, path, nil, &reports)
	return reports, err
}

func (c *Client) Restrict(email, message string) (store.InsertResult, error) {
	var res store.InsertResult
	err := c.call(http.MethodPost, "/restrictionMessage", map[string]string{"email": email, "message": message}, &res)
	return res, err
}

func (c *Client) ListRestrictions() ([]model.Restriction, error) {
	var restrictions []model.Restriction
	err := c.call(http.MethodGet, "/restrictionMessage", nil, &restrictions)
	return restrictions, err
}

func (c *Client) Stats() (model.SiteStats, error) {
	var stats model.SiteStats
	err := c.call(http.MethodGet, "/stats", nil, &stats)
	return stats, err
}

func (c *Client) count(path string) (int64, error) {
	var res struct {
		Count int64 `json:"count"`
	}
	err := c.call(http.MethodGet, path, nil, &res)
	return res.Count, err
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
