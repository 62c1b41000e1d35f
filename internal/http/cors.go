package httpapp

import (
	"net/http"
	"strings"
)

type corsPolicy struct {
	origins  []string
	allowAll bool
}

func newCORSPolicy(origins []string) *corsPolicy {
	p := &corsPolicy{origins: origins}
	for _, origin := range origins {
		if origin == "*" {
			p.allowAll = true
			break
		}
	}
	return p
}

func (p *corsPolicy) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (p.allowAll || p.allowed(origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			if !p.allowAll {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Expose-Headers", "Retry-After, X-Request-Id")
			h.Set("Access-Control-Max-Age", "3600")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowed matches an exact origin, or a subdomain of an entry written as ".example.com".
func (p *corsPolicy) allowed(origin string) bool {
	for _, o := range p.origins {
		if o == origin || (strings.HasPrefix(o, ".") && strings.HasSuffix(origin, o)) {
			return true
		}
	}
	return false
}
