package httpapp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/blogs-online/server/internal/model"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AuthorName  string `json:"authorName"`
		AuthorImage string `json:"authorImage"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}
	a := model.Announcement{
		AuthorName:  req.AuthorName,
		AuthorImage: req.AuthorImage,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
	}
	res, err := s.store.CreateAnnouncement(r.Context(), &a)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	announcements, err := s.store.ListAnnouncements(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, announcements)
}

func (s *Server) handleCountAnnouncements(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.CountAnnouncements(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeCount(w, n)
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "feedback") {
		return
	}
	var req struct {
		ReporterEmail  string `json:"reporterEmail"`
		CommentID      string `json:"commentId"`
		CommenterEmail string `json:"commenterEmail"`
		Feedback       string `json:"feedback"`
		Text           string `json:"text"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Feedback) == "" {
		writeError(w, http.StatusBadRequest, errors.New("feedback is required"))
		return
	}
	reporter := req.ReporterEmail
	if reporter == "" {
		reporter = mustClaims(r).Email
	}
	report := model.Report{
		ReporterEmail:  reporter,
		CommentID:      req.CommentID,
		CommenterEmail: req.CommenterEmail,
		Feedback:       req.Feedback,
		Text:           req.Text,
	}
	res, err := s.store.CreateReport(r.Context(), &report)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListReports(r.Context(), "")
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleFilterReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListReports(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleCreateRestriction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}
	res, err := s.store.CreateRestriction(r.Context(), &model.Restriction{Email: req.Email, Message: req.Message})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListRestrictions(w http.ResponseWriter, r *http.Request) {
	restrictions, err := s.store.ListRestrictions(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restrictions)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetSiteStats(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
