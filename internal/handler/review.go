package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zujuan/internal/model"
)

type reviewRequest struct {
	QuestionID string `json:"questionId"`
	Status     string `json:"status"`
	Comment    string `json:"comment"`
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil || req.QuestionID == "" {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	status := model.ReviewStatus(req.Status)
	switch status {
	case "", model.ReviewPending, model.ReviewApproved, model.ReviewRejected:
	default:
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}

	q, err := h.store.GetQuestion(req.QuestionID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if q == nil {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}

	review := model.Review{
		QuestionID: req.QuestionID,
		Status:     status,
		Comment:    req.Comment,
		ReviewerID: currentUserID(r),
	}
	created, err := h.store.CreateReview(review)
	if err != nil {
		slog.Error("create review", "question_id", req.QuestionID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListReviews(chi.URLParam(r, "questionID"))
	if err != nil {
		slog.Error("list reviews", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": reviews})
}
