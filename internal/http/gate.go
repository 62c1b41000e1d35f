package httpapp

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/blogs-online/server/internal/auth"
	"github.com/blogs-online/server/internal/metrics"
	"github.com/blogs-online/server/internal/store"
)

type claimsKey struct{}

var (
	errUnauthorized = errors.New("unauthorized access")
	errForbidden    = errors.New("forbidden access")
)

func withClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// claimsFrom returns the claims RequireAuthenticated attached to ctx.
func claimsFrom(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}

// RequireAuthenticated admits requests carrying a valid bearer token and
// attaches its claims to the request context.
func (s *Server) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.reject(w, r, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			s.reject(w, r, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// bearerToken extracts the credential from an Authorization header. The
// scheme name is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAdmin admits callers whose user record has the admin role. It is
// only mounted inside a group that already runs RequireAuthenticated.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok {
			s.reject(w, r, http.StatusUnauthorized, errors.New("admin check without claims"))
			return
		}
		user, err := s.store.GetUserByEmail(r.Context(), claims.Email)
		if errors.Is(err, store.ErrNotFound) {
			s.reject(w, r, http.StatusForbidden, errors.New("no user record"))
			return
		}
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		if !user.IsAdmin() {
			s.reject(w, r, http.StatusForbidden, errors.New("role is "+user.Role))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// reject answers with the gate's fixed message; cause is only logged.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, status int, cause error) {
	msg, reason := errUnauthorized, "unauthenticated"
	if status == http.StatusForbidden {
		msg, reason = errForbidden, "forbidden"
	}
	metrics.RecordGateRejection(reason)
	s.requestLog(r).WithError(cause).Debug("gate rejected request")
	writeError(w, status, msg)
}
