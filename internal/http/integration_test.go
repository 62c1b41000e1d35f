package httpapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/blogs-online/server/internal/auth"
	"github.com/blogs-online/server/internal/config"
	"github.com/blogs-online/server/internal/model"
	"github.com/blogs-online/server/internal/payment"
	"github.com/blogs-online/server/internal/rate"
	"github.com/blogs-online/server/internal/store"
	"github.com/blogs-online/server/internal/store/sqlite"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayments struct {
	mu       sync.Mutex
	amounts  []int64
	currency string
	err      error
}

func (f *fakePayments) CreateIntent(_ context.Context, amountCents int64, currency string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.amounts = append(f.amounts, amountCents)
	f.currency = currency
	return fmt.Sprintf("pi_%d_secret", amountCents), nil
}

type testClient struct {
	server   *httptest.Server
	client   *http.Client
	store    *sqlite.Store
	payments *fakePayments
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	return newTestClientWithConfig(t, config.Config{RateLimits: config.RateLimits{WritePerMinute: 1000}})
}

func newTestClientWithConfig(t *testing.T, cfg config.Config) *testClient {
	t.Helper()
	if cfg.TokenSecret == "" {
		cfg.TokenSecret = "test-secret"
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	dsnName := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tokens, err := auth.NewService(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	payments := &fakePayments{}
	server := NewServer(st, tokens, rate.NewMemory(), payments, cfg, testLogger())
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		_ = st.Close()
	})
	return &testClient{server: ts, client: ts.Client(), store: st, payments: payments}
}

func (c *testClient) request(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *testClient) postJSON(t *testing.T, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	return c.request(t, http.MethodPost, path, body, headers)
}

func (c *testClient) get(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()
	return c.request(t, http.MethodGet, path, nil, headers)
}

func decodeJSON[T any](t *testing.T, resp *http.Response, out *T) {
	t.Helper()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("json decode: %v (body %s)", err, string(body))
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, string(b))
	}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// registerUser registers email through the API and returns a token for it.
func registerUser(t *testing.T, tc *testClient, email string) string {
	t.Helper()
	resp := tc.postJSON(t, "/users", map[string]string{"name": strings.Split(email, "@")[0], "email": email}, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	return login(t, tc, email)
}

func login(t *testing.T, tc *testClient, email string) string {
	t.Helper()
	resp := tc.postJSON(t, "/jwt", map[string]string{"email": email}, nil)
	expectStatus(t, resp, http.StatusOK)
	var out struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp, &out)
	if out.Token == "" {
		t.Fatalf("expected token")
	}
	return out.Token
}

// registerAdmin registers email and grants it the admin role directly in the store.
func registerAdmin(t *testing.T, tc *testClient, email string) string {
	t.Helper()
	token := registerUser(t, tc, email)
	user, err := tc.store.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	_, err = tc.store.SetUserRole(context.Background(), user.ID, model.RoleAdmin)
	require.NoError(t, err)
	return token
}

func createPost(t *testing.T, tc *testClient, token, title, tag string) string {
	t.Helper()
	resp := tc.postJSON(t, "/addPost", map[string]string{"title": title, "tag": tag}, bearer(token))
	expectStatus(t, resp, http.StatusOK)
	var res store.InsertResult
	decodeJSON(t, resp, &res)
	require.NotNil(t, res.InsertedID)
	return *res.InsertedID
}

func TestRegisterIsIdempotent(t *testing.T) {
	tc := newTestClient(t)
	body := map[string]string{"name": "Ada", "email": "ada@example.com", "photo": "https://img.example/ada.png"}

	resp := tc.postJSON(t, "/users", body, nil)
	expectStatus(t, resp, http.StatusOK)
	var first store.InsertResult
	decodeJSON(t, resp, &first)
	require.NotNil(t, first.InsertedID)

	resp = tc.postJSON(t, "/users", body, nil)
	expectStatus(t, resp, http.StatusOK)
	var second map[string]any
	decodeJSON(t, resp, &second)
	assert.Equal(t, "user already exists", second["message"])
	v, present := second["insertedId"]
	assert.True(t, present)
	assert.Nil(t, v)

	users, err := tc.store.ListUsers(context.Background(), store.ListOpts{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, model.RoleUser, users[0].Role)
	assert.Equal(t, model.StatusNormal, users[0].Status)
	assert.Equal(t, model.BadgeBronze, users[0].Badge)
}

func TestRegisterRequiresEmail(t *testing.T) {
	tc := newTestClient(t)
	resp := tc.postJSON(t, "/users", map[string]string{"name": "nobody"}, nil)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestAdminGate(t *testing.T) {
	tc := newTestClient(t)
	userToken := registerUser(t, tc, "user@example.com")
	adminToken := registerAdmin(t, tc, "admin@example.com")
	strangerToken := login(t, tc, "stranger@example.com")

	resp := tc.get(t, "/users", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	var msg map[string]string
	decodeJSON(t, resp, &msg)
	assert.Equal(t, "unauthorized access", msg["message"])

	resp = tc.get(t, "/users", bearer("not-a-token"))
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = tc.get(t, "/users", map[string]string{"Authorization": userToken})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = tc.get(t, "/users", bearer(userToken))
	expectStatus(t, resp, http.StatusForbidden)
	decodeJSON(t, resp, &msg)
	assert.Equal(t, "forbidden access", msg["message"])

	// A valid token for an email with no user record is not an admin.
	resp = tc.get(t, "/users", bearer(strangerToken))
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = tc.get(t, "/users", bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	var users []model.User
	decodeJSON(t, resp, &users)
	assert.Len(t, users, 2)
}

func TestListUsersSearch(t *testing.T) {
	tc := newTestClient(t)
	adminToken := registerAdmin(t, tc, "root@example.com")
	for _, name := range []string{"Grace Hopper", "Alan Turing"} {
		resp := tc.postJSON(t, "/users", map[string]string{"name": name, "email": strings.ReplaceAll(name, " ", "") + "@example.com"}, nil)
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := tc.get(t, "/users?search=hop", bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	var users []model.User
	decodeJSON(t, resp, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "Grace Hopper", users[0].Name)
}

func TestCheckAdminOwnEmailOnly(t *testing.T) {
	tc := newTestClient(t)
	adminToken := registerAdmin(t, tc, "admin@example.com")
	userToken := registerUser(t, tc, "user@example.com")

	// Even an admin cannot ask about someone else.
	resp := tc.get(t, "/users/admin/user@example.com", bearer(adminToken))
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = tc.get(t, "/users/admin/user@example.com", bearer(userToken))
	expectStatus(t, resp, http.StatusOK)
	var out map[string]bool
	decodeJSON(t, resp, &out)
	assert.False(t, out["admin"])

	resp = tc.get(t, "/users/admin/admin@example.com", bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &out)
	assert.True(t, out["admin"])
}

func TestPromoteAndDeleteUser(t *testing.T) {
	tc := newTestClient(t)
	adminToken := registerAdmin(t, tc, "admin@example.com")
	userToken := registerUser(t, tc, "user@example.com")
	user, err := tc.store.GetUserByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)

	resp := tc.request(t, http.MethodPatch, "/users/admin/"+user.ID, nil, bearer(userToken))
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = tc.request(t, http.MethodPatch, "/users/admin/"+user.ID, nil, bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	var upd store.UpdateResult
	decodeJSON(t, resp, &upd)
	assert.Equal(t, int64(1), upd.MatchedCount)
	assert.Equal(t, int64(1), upd.ModifiedCount)

	resp = tc.get(t, "/users/admin/user@example.com", bearer(userToken))
	var out map[string]bool
	decodeJSON(t, resp, &out)
	assert.True(t, out["admin"])

	resp = tc.request(t, http.MethodDelete, "/users/"+user.ID, nil, bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	var del store.DeleteResult
	decodeJSON(t, resp, &del)
	assert.Equal(t, int64(1), del.DeletedCount)

	resp = tc.get(t, "/users/user@example.com", bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "null", strings.TrimSpace(string(body)))
}

func TestPostTagFilter(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "writer@example.com")
	for _, tag := range []string{"Golang", "rust", "GoTips"} {
		createPost(t, tc, token, "about "+tag, tag)
	}

	resp := tc.get(t, "/addPost?tag=go", nil)
	expectStatus(t, resp, http.StatusOK)
	var posts []model.Post
	decodeJSON(t, resp, &posts)
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.Contains(t, strings.ToLower(p.Tag), "go")
		assert.Equal(t, 0, p.UpVote)
		assert.Equal(t, 0, p.CommentCount)
		assert.Equal(t, "writer@example.com", p.AuthorEmail)
	}

	resp = tc.get(t, "/addPost?tag=", nil)
	decodeJSON(t, resp, &posts)
	assert.Len(t, posts, 3)

	resp = tc.get(t, "/postCount", nil)
	var count map[string]int64
	decodeJSON(t, resp, &count)
	assert.Equal(t, int64(3), count["count"])
}

func TestPostTagFilterNonASCII(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "writer@example.com")
	createPost(t, tc, token, "rentrée", "ÉCOLE")
	createPost(t, tc, token, "wandern", "Straße")

	resp := tc.get(t, "/addPost?tag="+url.QueryEscape("école"), nil)
	expectStatus(t, resp, http.StatusOK)
	var posts []model.Post
	decodeJSON(t, resp, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, "ÉCOLE", posts[0].Tag)

	resp = tc.get(t, "/addPost?tag="+url.QueryEscape("STRAßE"), nil)
	decodeJSON(t, resp, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, "Straße", posts[0].Tag)
}

func TestPostPagingAndPopularity(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "writer@example.com")
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, createPost(t, tc, token, fmt.Sprintf("post %d", i), "misc"))
	}

	resp := tc.request(t, http.MethodPatch, "/voteCount/"+ids[1], map[string]int{"upVote": 7}, bearer(token))
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = tc.get(t, "/addPost?sort=popular&page=0&size=2", nil)
	var posts []model.Post
	decodeJSON(t, resp, &posts)
	require.Len(t, posts, 2)
	assert.Equal(t, ids[1], posts[0].ID)

	resp = tc.get(t, "/addPost?page=2&size=2", nil)
	decodeJSON(t, resp, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, ids[0], posts[0].ID, "oldest post on the last page")
}

func TestAuthorPosts(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "writer@example.com")
	other := registerUser(t, tc, "other@example.com")
	id := createPost(t, tc, token, "mine", "go")
	createPost(t, tc, other, "theirs", "go")

	resp := tc.get(t, "/emailLimit/writer@example.com", bearer(token))
	expectStatus(t, resp, http.StatusOK)
	var count map[string]int64
	decodeJSON(t, resp, &count)
	assert.Equal(t, int64(1), count["count"])

	resp = tc.get(t, "/addEmail/writer@example.com", bearer(token))
	var posts []model.Post
	decodeJSON(t, resp, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, "mine", posts[0].Title)

	resp = tc.request(t, http.MethodDelete, "/addEmail/"+id, nil, bearer(token))
	expectStatus(t, resp, http.StatusOK)
	var del store.DeleteResult
	decodeJSON(t, resp, &del)
	assert.Equal(t, int64(1), del.DeletedCount)

	resp = tc.get(t, "/addPost/"+id, nil)
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "null", strings.TrimSpace(string(body)))
}

func TestWritesRequireAuth(t *testing.T) {
	tc := newTestClient(t)
	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/addPost", map[string]string{"title": "anon"}},
		{http.MethodPost, "/allComment", map[string]string{"postId": "p", "text": "anon"}},
		{http.MethodPatch, "/voteCount/p", map[string]int{"upVote": 1}},
		{http.MethodPost, "/payments", map[string]any{"price": 1}},
		{http.MethodPost, "/feedback", map[string]string{"feedback": "spam"}},
		{http.MethodGet, "/addEmail/a@example.com", nil},
	}
	for _, c := range cases {
		resp := tc.request(t, c.method, c.path, c.body, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", c.method, c.path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestCommentsRefreshCount(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "reader@example.com")
	postID := createPost(t, tc, token, "discussed", "go")

	for _, text := range []string{"first", "second"} {
		resp := tc.postJSON(t, "/allComment", map[string]string{"postId": postID, "postTitle": "discussed", "text": text}, bearer(token))
		expectStatus(t, resp, http.StatusOK)
		var res store.InsertResult
		decodeJSON(t, resp, &res)
		require.NotNil(t, res.InsertedID)
	}

	resp := tc.get(t, "/addPost/"+postID, nil)
	var post model.Post
	decodeJSON(t, resp, &post)
	assert.Equal(t, 2, post.CommentCount)

	resp = tc.get(t, "/allComment/"+postID, nil)
	var comments []model.Comment
	decodeJSON(t, resp, &comments)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "reader@example.com", comments[0].CommenterEmail)

	resp = tc.get(t, "/allComment", nil)
	decodeJSON(t, resp, &comments)
	assert.Len(t, comments, 2)
}

func TestConcurrentVotesLastWriteWins(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "voter@example.com")
	postID := createPost(t, tc, token, "contested", "go")

	submitted := []int{3, 11, 42, 57, 90}
	var wg sync.WaitGroup
	for _, v := range submitted {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			resp := tc.request(t, http.MethodPatch, "/voteCount/"+postID, map[string]int{"upVote": v}, bearer(token))
			if resp.StatusCode != http.StatusOK {
				t.Errorf("vote %d: status %d", v, resp.StatusCode)
			}
			resp.Body.Close()
		}(v)
	}
	wg.Wait()

	post, err := tc.store.GetPost(context.Background(), postID)
	require.NoError(t, err)
	assert.Contains(t, submitted, post.UpVote)
	assert.Equal(t, 0, post.DownVote)
}

func TestVoteRequiresAField(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "voter@example.com")
	postID := createPost(t, tc, token, "p", "go")

	resp := tc.request(t, http.MethodPatch, "/voteCount/"+postID, map[string]int{}, bearer(token))
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = tc.request(t, http.MethodPatch, "/voteCount/"+postID, map[string]int{"downVote": 4}, bearer(token))
	expectStatus(t, resp, http.StatusOK)
	var res store.UpdateResult
	decodeJSON(t, resp, &res)
	assert.Equal(t, int64(1), res.ModifiedCount)
}

func TestPaymentUpgradesMembership(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "payer@example.com")
	other := registerUser(t, tc, "other@example.com")

	resp := tc.postJSON(t, "/create-payment-intent", map[string]float64{"price": 9.99}, bearer(token))
	expectStatus(t, resp, http.StatusOK)
	var intent map[string]string
	decodeJSON(t, resp, &intent)
	assert.Equal(t, "pi_999_secret", intent["clientSecret"])
	assert.Equal(t, []int64{999}, tc.payments.amounts)
	assert.Equal(t, payment.Currency, tc.payments.currency)

	resp = tc.postJSON(t, "/payments", map[string]any{
		"email":         "payer@example.com",
		"price":         9.99,
		"transactionId": "pi_999",
	}, bearer(token))
	expectStatus(t, resp, http.StatusOK)
	var res store.PaymentResult
	decodeJSON(t, resp, &res)
	require.NotNil(t, res.Payment.InsertedID)
	assert.Equal(t, int64(1), res.User.ModifiedCount)

	user, err := tc.store.GetUserByEmail(context.Background(), "payer@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.StatusMember, user.Status)
	assert.Equal(t, model.BadgeGold, user.Badge)

	resp = tc.get(t, "/payments/payer@example.com", bearer(token))
	expectStatus(t, resp, http.StatusOK)
	var payments []model.Payment
	decodeJSON(t, resp, &payments)
	require.Len(t, payments, 1)
	assert.Equal(t, "pi_999", payments[0].TransactionID)

	resp = tc.get(t, "/payments/payer@example.com", bearer(other))
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

func TestPaymentIntentValidation(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "payer@example.com")

	resp := tc.postJSON(t, "/create-payment-intent", map[string]float64{"price": -1}, bearer(token))
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	tc.payments.err = payment.ErrNotConfigured
	resp = tc.postJSON(t, "/create-payment-intent", map[string]float64{"price": 5}, bearer(token))
	expectStatus(t, resp, http.StatusServiceUnavailable)
	resp.Body.Close()
}

func TestModerationFlow(t *testing.T) {
	tc := newTestClient(t)
	adminToken := registerAdmin(t, tc, "mod@example.com")
	userToken := registerUser(t, tc, "reader@example.com")

	resp := tc.postJSON(t, "/feedback", map[string]string{"commentId": "c-1", "commenterEmail": "troll@example.com", "feedback": "spam"}, bearer(userToken))
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = tc.get(t, "/feedback", bearer(userToken))
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = tc.get(t, "/filter/reader@example.com", bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	var reports []model.Report
	decodeJSON(t, resp, &reports)
	require.Len(t, reports, 1)
	assert.Equal(t, "spam", reports[0].Feedback)
	assert.Equal(t, "reader@example.com", reports[0].ReporterEmail)

	resp = tc.postJSON(t, "/restrictionMessage", map[string]string{"email": "troll@example.com", "message": "please keep it civil"}, bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = tc.get(t, "/restrictionMessage", bearer(adminToken))
	var restrictions []model.Restriction
	decodeJSON(t, resp, &restrictions)
	require.Len(t, restrictions, 1)

	resp = tc.postJSON(t, "/announcement", map[string]string{"title": "Welcome"}, bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = tc.postJSON(t, "/announcement", map[string]string{"title": "Sneaky"}, bearer(userToken))
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = tc.get(t, "/announcementCount", nil)
	var count map[string]int64
	decodeJSON(t, resp, &count)
	assert.Equal(t, int64(1), count["count"])

	resp = tc.postJSON(t, "/addTags", map[string]string{"label": "go"}, bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = tc.get(t, "/addTags", nil)
	var tags []model.Tag
	decodeJSON(t, resp, &tags)
	require.Len(t, tags, 1)
	assert.Equal(t, "go", tags[0].Label)

	resp = tc.get(t, "/stats", bearer(adminToken))
	expectStatus(t, resp, http.StatusOK)
	var stats model.SiteStats
	decodeJSON(t, resp, &stats)
	assert.Equal(t, int64(2), stats.Users)
}

func TestMalformedJSON(t *testing.T) {
	tc := newTestClient(t)
	token := registerUser(t, tc, "writer@example.com")

	req, err := http.NewRequest(http.MethodPost, tc.server.URL+"/addPost", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := tc.client.Do(req)
	require.NoError(t, err)
	expectStatus(t, resp, http.StatusBadRequest)
	var msg map[string]string
	decodeJSON(t, resp, &msg)
	assert.NotEmpty(t, msg["message"])
}

func TestRateLimiting(t *testing.T) {
	tc := newTestClientWithConfig(t, config.Config{RateLimits: config.RateLimits{WritePerMinute: 1}})
	token := registerUser(t, tc, "fast@example.com")

	createPost(t, tc, token, "first", "go")

	resp := tc.postJSON(t, "/addPost", map[string]string{"title": "second"}, bearer(token))
	expectStatus(t, resp, http.StatusTooManyRequests)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	resp.Body.Close()

	// Reads are not limited.
	resp = tc.get(t, "/addPost", nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	tc := newTestClientWithConfig(t, config.Config{RateLimits: config.RateLimits{WritePerMinute: 1}})
	token := registerUser(t, tc, "fast@example.com")

	accepted := 0
	for i := 0; i < 20; i++ {
		resp := tc.postJSON(t, "/addPost", map[string]string{"title": fmt.Sprintf("post %d", i)}, map[string]string{
			"Authorization":   "Bearer " + token,
			"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i),
			"X-Real-IP":       fmt.Sprintf("10.0.1.%d", i),
		})
		if resp.StatusCode == http.StatusOK {
			accepted++
		}
		resp.Body.Close()
	}
	assert.Equal(t, 1, accepted)
}

func TestRateLimitTrustedProxy(t *testing.T) {
	tc := newTestClientWithConfig(t, config.Config{
		TrustProxy: true,
		RateLimits: config.RateLimits{WritePerMinute: 1},
	})
	token := registerUser(t, tc, "proxied@example.com")

	for _, ip := range []string{"203.0.113.7", "203.0.113.8"} {
		resp := tc.postJSON(t, "/addPost", map[string]string{"title": "from " + ip}, map[string]string{
			"Authorization":   "Bearer " + token,
			"X-Forwarded-For": ip,
		})
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := tc.postJSON(t, "/addPost", map[string]string{"title": "again"}, map[string]string{
		"Authorization":   "Bearer " + token,
		"X-Forwarded-For": "203.0.113.7",
	})
	expectStatus(t, resp, http.StatusTooManyRequests)
	resp.Body.Close()
}
