package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zujuan/internal/i18n"
	"zujuan/internal/model"
	"zujuan/internal/queue"
)

func (h *Handler) handleQueueList(w http.ResponseWriter, r *http.Request) {
	items, err := h.queue.List()
	if err != nil {
		slog.Error("list queue", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if items == nil {
		items = []model.IngestItem{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleQueueAdd accepts a multipart form with one or more "files" parts
// and appends them to the queue in pending state.
func (h *Handler) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrMissingImage")
		return
	}
	var uploads []queue.FileUpload
	for _, field := range []string{"files", "file"} {
		for _, header := range r.MultipartForm.File[field] {
			f, err := header.Open()
			if err != nil {
				continue
			}
			data, err := io.ReadAll(io.LimitReader(f, h.config.MaxUploadBytes))
			f.Close()
			if err != nil {
				continue
			}
			uploads = append(uploads, queue.FileUpload{
				Name:     header.Filename,
				MimeType: header.Header.Get("Content-Type"),
				Data:     data,
			})
		}
	}
	if len(uploads) == 0 {
		respondError(w, r, http.StatusBadRequest, "ErrMissingImage")
		return
	}

	items, err := h.queue.AddFiles(uploads)
	if err != nil {
		slog.Error("add queue files", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"items": items})
}

func (h *Handler) handleQueuePreview(w http.ResponseWriter, r *http.Request) {
	item, err := h.queue.RunPreview(r.Context(), chi.URLParam(r, "itemID"))
	h.respondQueueItem(w, r, item, err)
}

func (h *Handler) handleQueueIngest(w http.ResponseWriter, r *http.Request) {
	item, err := h.queue.Ingest(r.Context(), chi.URLParam(r, "itemID"), currentUserID(r))
	h.respondQueueItem(w, r, item, err)
}

func (h *Handler) handleQueueSave(w http.ResponseWriter, r *http.Request) {
	var edited *model.AnalysisResult
	if r.ContentLength > 0 {
		edited = &model.AnalysisResult{}
		if err := decodeJSON(r, edited); err != nil {
			respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
			return
		}
	}
	item, err := h.queue.Save(r.Context(), chi.URLParam(r, "itemID"), currentUserID(r), edited)
	h.respondQueueItem(w, r, item, err)
}

func (h *Handler) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.Remove(chi.URLParam(r, "itemID")); err != nil {
		slog.Error("remove queue item", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleQueueRunAll(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.RunAll(r.Context()); err != nil {
		slog.Error("run queue", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	h.handleQueueList(w, r)
}

func (h *Handler) handleQueueIngestAll(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.IngestAll(r.Context(), currentUserID(r)); err != nil {
		slog.Error("ingest queue", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	h.handleQueueList(w, r)
}

func (h *Handler) respondQueueItem(w http.ResponseWriter, r *http.Request, item *model.IngestItem, err error) {
	switch {
	case err == nil && item.Status == model.IngestSaved:
		respondJSON(w, http.StatusOK, map[string]any{
			"message": i18n.T(r.Context(), "MsgQuestionSaved"),
			"item":    item,
		})
	case err == nil:
		respondJSON(w, http.StatusOK, item)
	case errors.Is(err, queue.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "ErrQueueItemNotFound")
	case errors.Is(err, queue.ErrNotRunnable), errors.Is(err, queue.ErrNotReady):
		respondError(w, r, http.StatusConflict, "ErrQueueItemNotReady")
	case errors.Is(err, model.ErrMissingQuestionText),
		errors.Is(err, model.ErrMissingAnswer),
		errors.Is(err, model.ErrMissingQuestionType),
		errors.Is(err, model.ErrMissingOptions):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		slog.Error("queue operation", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
	}
}

func currentUserID(r *http.Request) string {
	if user := model.UserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return ""
}
