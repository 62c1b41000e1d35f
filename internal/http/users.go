package httpapp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/blogs-online/server/internal/model"
	"github.com/blogs-online/server/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, errors.New("email is required"))
		return
	}
	token, err := s.tokens.Issue(email)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleRegister creates the user unless the email is already registered,
// in which case nothing is written and insertedId is null.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Photo string `json:"photo"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, errors.New("email is required"))
		return
	}

	_, err := s.store.GetUserByEmail(r.Context(), email)
	if err == nil {
		writeUserExists(w)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.internalError(w, r, err)
		return
	}

	user := model.User{
		Name:   strings.TrimSpace(req.Name),
		Email:  email,
		Photo:  req.Photo,
		Role:   model.RoleUser,
		Status: model.StatusNormal,
		Badge:  model.BadgeBronze,
	}
	res, err := s.store.CreateUser(r.Context(), &user)
	if errors.Is(err, store.ErrDuplicateEmail) {
		// Lost a race with a concurrent registration of the same email.
		writeUserExists(w)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.requestLog(r).WithField("user_id", user.ID).Info("user registered")
	writeJSON(w, http.StatusOK, res)
}

func writeUserExists(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "user already exists", "insertedId": nil})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := s.store.ListUsers(r.Context(), store.ListOpts{
		Search: q.Get("search"),
		Limit:  parseIntDefault(q.Get("limit"), 0),
		Skip:   parseIntDefault(q.Get("skip"), 0),
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleCheckAdmin answers only for the caller's own email.
func (s *Server) handleCheckAdmin(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email != mustClaims(r).Email {
		s.reject(w, r, http.StatusForbidden, errors.New("admin check for another email"))
		return
	}
	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"admin": err == nil && user.IsAdmin()})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUserByEmail(r.Context(), chi.URLParam(r, "email"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMakeAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.store.SetUserRole(r.Context(), id, model.RoleAdmin)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.requestLog(r).WithFields(logrus.Fields{"user_id": id, "by": mustClaims(r).Email}).Info("user promoted to admin")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.store.DeleteUser(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.requestLog(r).WithFields(logrus.Fields{"user_id": id, "by": mustClaims(r).Email}).Info("user deleted")
	writeJSON(w, http.StatusOK, res)
}
