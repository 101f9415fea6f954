package handler

import (
	"log/slog"
	"net/http"
	"strings"
)

type askRequest struct {
	Question string `json:"question"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Question) == "" {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}

	answer, err := h.rag.Ask(r.Context(), strings.TrimSpace(req.Question))
	if err != nil {
		slog.Error("student ask", "error", err)
		respondError(w, r, http.StatusBadGateway, "ErrInternal")
		return
	}
	respondJSON(w, http.StatusOK, answer)
}
