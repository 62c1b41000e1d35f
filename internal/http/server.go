package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/blogs-online/server/internal/auth"
	"github.com/blogs-online/server/internal/config"
	"github.com/blogs-online/server/internal/logging"
	"github.com/blogs-online/server/internal/metrics"
	"github.com/blogs-online/server/internal/payment"
	"github.com/blogs-online/server/internal/rate"
	"github.com/blogs-online/server/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const greeting = "Hello from Blog Online Server...."

type Server struct {
	store    store.Store
	tokens   *auth.Service
	limiter  rate.Limiter
	payments payment.IntentCreator
	cfg      config.Config
	log      logrus.FieldLogger
	router   chi.Router
}

func NewServer(st store.Store, tokens *auth.Service, limiter rate.Limiter, payments payment.IntentCreator, cfg config.Config, log logrus.FieldLogger) *Server {
	s := &Server{
		store:    st,
		tokens:   tokens,
		limiter:  limiter,
		payments: payments,
		cfg:      cfg,
		log:      log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(logging.Requests(s.log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(newCORSPolicy(s.cfg.CORSOrigins).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/jwt", s.handleIssueToken)
	r.Post("/users", s.handleRegister)
	r.Get("/announcement", s.handleListAnnouncements)
	r.Get("/announcementCount", s.handleCountAnnouncements)
	r.Get("/addPost", s.handleListPosts)
	r.Get("/addPost/{id}", s.handleGetPost)
	r.Get("/postCount", s.handleCountPosts)
	r.Get("/addTags", s.handleListTags)
	r.Get("/allComment", s.handleListComments)
	r.Get("/allComment/{postId}", s.handleListPostComments)

	r.Group(func(r chi.Router) {
		r.Use(s.RequireAuthenticated)

		r.Get("/users/admin/{email}", s.handleCheckAdmin)
		r.Get("/users/{email}", s.handleGetUser)
		r.Post("/addPost", s.handleCreatePost)
		r.Get("/emailLimit/{email}", s.handleCountAuthorPosts)
		r.Get("/addEmail/{email}", s.handleListAuthorPosts)
		r.Delete("/addEmail/{id}", s.handleDeletePost)
		r.Post("/allComment", s.handleAddComment)
		r.Patch("/voteCount/{id}", s.handleVote)
		r.Post("/create-payment-intent", s.handleCreatePaymentIntent)
		r.Post("/payments", s.handleRecordPayment)
		r.Get("/payments/{email}", s.handleListPayments)
		r.Post("/feedback", s.handleCreateReport)

		r.Group(func(r chi.Router) {
			r.Use(s.RequireAdmin)

			r.Get("/users", s.handleListUsers)
			r.Patch("/users/admin/{id}", s.handleMakeAdmin)
			r.Delete("/users/{id}", s.handleDeleteUser)
			r.Post("/announcement", s.handleCreateAnnouncement)
			r.Post("/addTags", s.handleCreateTag)
			r.Get("/feedback", s.handleListReports)
			r.Get("/filter/{email}", s.handleFilterReports)
			r.Post("/restrictionMessage", s.handleCreateRestriction)
			r.Get("/restrictionMessage", s.handleListRestrictions)
			r.Get("/stats", s.handleStats)
		})
	})

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, greeting)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.requestLog(r).WithError(err).Warn("store ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, action string) bool {
	limit := s.cfg.RateLimits.WritePerMinute
	if limit <= 0 {
		return true
	}
	key := fmt.Sprintf("%s:ip:%s", action, clientIP(r))
	if ok, retry := s.limiter.Allow(key, limit, time.Minute); !ok {
		metrics.RecordRateLimited(action)
		writeRateLimit(w, retry)
		return false
	}
	return true
}

// mustClaims returns the caller's claims. Only used behind RequireAuthenticated.
func mustClaims(r *http.Request) auth.Claims {
	c, _ := claimsFrom(r.Context())
	return c
}

func (s *Server) requestLog(r *http.Request) logrus.FieldLogger {
	return s.log.WithField("request_id", middleware.GetReqID(r.Context()))
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.requestLog(r).WithError(err).WithField("path", r.URL.Path).Error("request failed")
	writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
}

// clientIP is the peer address. Forwarding headers are honored only through
// middleware.RealIP, which is mounted when the proxy is trusted.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"message": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	seconds := int(math.Ceil(retry.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"message":    "rate limit exceeded",
		"retryAfter": seconds,
	})
}

func writeCount(w http.ResponseWriter, n int64) {
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return def
}
