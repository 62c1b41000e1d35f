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

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "post") {
		return
	}
	var req struct {
		AuthorName  string `json:"authorName"`
		AuthorEmail string `json:"authorEmail"`
		AuthorImage string `json:"authorImage"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Tag         string `json:"tag"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}
	authorEmail := req.AuthorEmail
	if authorEmail == "" {
		authorEmail = mustClaims(r).Email
	}

	post := model.Post{
		AuthorName:  req.AuthorName,
		AuthorEmail: authorEmail,
		AuthorImage: req.AuthorImage,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Tag:         strings.TrimSpace(req.Tag),
	}
	res, err := s.store.CreatePost(r.Context(), &post)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListPosts pages with zero-based ?page and ?size; without a size every
// matching post is returned.
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOpts{Search: q.Get("tag"), Sort: store.SortNew}
	if q.Get("sort") == store.SortPopular {
		opts.Sort = store.SortPopular
	}
	if size := parseIntDefault(q.Get("size"), 0); size > 0 {
		opts.Limit = size
		if page := parseIntDefault(q.Get("page"), 0); page > 0 {
			opts.Skip = page * size
		}
	}

	posts, err := s.store.ListPosts(r.Context(), opts)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetPost(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleCountPosts(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.CountPosts(r.Context(), "")
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeCount(w, n)
}

func (s *Server) handleCountAuthorPosts(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.CountPosts(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeCount(w, n)
}

func (s *Server) handleListAuthorPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPostsByAuthor(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.store.DeletePost(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.requestLog(r).WithFields(logrus.Fields{"post_id": id, "by": mustClaims(r).Email}).Info("post deleted")
	writeJSON(w, http.StatusOK, res)
}

// handleVote overwrites the submitted counters. Concurrent votes are not
// merged; whichever write lands last is kept.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "vote") {
		return
	}
	var patch store.VotePatch
	if err := readJSON(r.Body, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, errors.New("upVote or downVote is required"))
		return
	}
	res, err := s.store.UpdatePostVotes(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		writeError(w, http.StatusBadRequest, errors.New("label is required"))
		return
	}
	res, err := s.store.CreateTag(r.Context(), &model.Tag{Label: label})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "comment") {
		return
	}
	var req struct {
		PostID         string `json:"postId"`
		PostTitle      string `json:"postTitle"`
		CommenterName  string `json:"commenterName"`
		CommenterEmail string `json:"commenterEmail"`
		Text           string `json:"text"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.PostID == "" {
		writeError(w, http.StatusBadRequest, errors.New("postId is required"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}
	commenter := req.CommenterEmail
	if commenter == "" {
		commenter = mustClaims(r).Email
	}

	comment := model.Comment{
		PostID:         req.PostID,
		PostTitle:      req.PostTitle,
		CommenterName:  req.CommenterName,
		CommenterEmail: commenter,
		Text:           req.Text,
	}
	res, err := s.store.AddComment(r.Context(), &comment)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.store.ListComments(r.Context(), "")
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleListPostComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.store.ListComments(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
