package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"zujuan/internal/i18n"
	"zujuan/internal/model"
	"zujuan/internal/task"
)

// readUploadedImage pulls the image file out of a multipart form. The
// field is named "file"; "image" is accepted as a fallback.
func (h *Handler) readUploadedImage(r *http.Request) ([]byte, string, string, error) {
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		return nil, "", "", err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
		if err != nil {
			return nil, "", "", err
		}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.config.MaxUploadBytes))
	if err != nil {
		return nil, "", "", err
	}
	return data, header.Header.Get("Content-Type"), header.Filename, nil
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	data, mimeType, fileName, err := h.readUploadedImage(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrMissingImage")
		return
	}

	result, err := h.ai.Analyze(r.Context(), data, mimeType, fileName)
	if err != nil {
		slog.Error("analyze image", "file", fileName, "error", err)
		respondError(w, r, http.StatusBadGateway, "ErrAnalyzeFailed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	data, mimeType, fileName, err := h.readUploadedImage(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrMissingImage")
		return
	}

	taskID := h.tasks.Create()
	go func() {
		h.tasks.SetProcessing(taskID, 10)
		// The request context dies with the handler; the analysis gets its own.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		result, err := h.ai.Analyze(ctx, data, mimeType, fileName)
		if err != nil {
			h.tasks.Fail(taskID, err.Error())
			return
		}
		h.tasks.Complete(taskID, result)
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"taskId": taskID,
		"status": string(task.StatusPending),
	})
}

func (h *Handler) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	t := h.tasks.Get(chi.URLParam(r, "taskID"))
	if t == nil {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// pagination reads page/limit query parameters with sane bounds.
func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	search := r.URL.Query().Get("search")

	items, total, err := h.store.ListQuestions(page, limit, search)
	if err != nil {
		slog.Error("list questions", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if err := decodeJSON(r, &q); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	if q.QuestionText == "" || q.Answer == "" {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	if q.QuestionType == "" {
		q.QuestionType = model.TypeSolve
	}
	if q.Difficulty == "" {
		q.Difficulty = model.DifficultyMedium
	}
	if user := model.UserFromContext(r.Context()); user != nil {
		q.CreatedBy = user.ID
	}

	id, err := h.store.InsertQuestion(q)
	if err != nil {
		slog.Error("create question", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	q.ID = id
	h.rag.IndexQuestion(r.Context(), q)
	respondJSON(w, http.StatusCreated, q)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.store.GetQuestion(chi.URLParam(r, "questionID"))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if q == nil {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if err := decodeJSON(r, &q); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	q.ID = chi.URLParam(r, "questionID")

	if err := h.store.UpdateQuestion(q); err != nil {
		if existing, getErr := h.store.GetQuestion(q.ID); getErr == nil && existing == nil {
			respondError(w, r, http.StatusNotFound, "ErrNotFound")
			return
		}
		slog.Error("update question", "id", q.ID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	h.rag.IndexQuestion(r.Context(), q)
	respondJSON(w, http.StatusOK, q)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "questionID")
	existing, err := h.store.GetQuestion(id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if existing == nil {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	if err := h.store.DeleteQuestion(id); err != nil {
		slog.Error("delete question", "id", id, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"deleted": true,
		"message": i18n.T(r.Context(), "MsgQuestionDeleted"),
	})
}
