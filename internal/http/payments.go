package httpapp

import (
	"errors"
	"net/http"

	"github.com/blogs-online/server/internal/metrics"
	"github.com/blogs-online/server/internal/model"
	"github.com/blogs-online/server/internal/payment"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

func (s *Server) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price float64 `json:"price"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := payment.AmountCents(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	secret, err := s.payments.CreateIntent(r.Context(), amount, payment.Currency)
	if errors.Is(err, payment.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": secret})
}

// handleRecordPayment stores the payment and upgrades the payer to a Gold
// member. The amount is not checked against any plan.
func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "payment") {
		return
	}
	var req struct {
		Email         string  `json:"email"`
		Name          string  `json:"name"`
		Price         float64 `json:"price"`
		TransactionID string  `json:"transactionId"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	email := req.Email
	if email == "" {
		email = mustClaims(r).Email
	}

	p := model.Payment{
		Email:         email,
		Name:          req.Name,
		Price:         req.Price,
		TransactionID: req.TransactionID,
	}
	res, err := s.store.RecordPayment(r.Context(), &p, model.Membership{
		Status: model.StatusMember,
		Badge:  model.BadgeGold,
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	metrics.RecordPayment()
	s.requestLog(r).WithFields(logrus.Fields{
		"payment_id":     p.ID,
		"email":          email,
		"transaction_id": p.TransactionID,
	}).Info("payment recorded")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email != mustClaims(r).Email {
		s.reject(w, r, http.StatusForbidden, errors.New("payments of another email"))
		return
	}
	payments, err := s.store.ListPayments(r.Context(), email)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
