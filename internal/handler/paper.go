package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"zujuan/internal/export"
	"zujuan/internal/model"
)

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, export.Templates())
}

func (h *Handler) handleCreatePaper(w http.ResponseWriter, r *http.Request) {
	var p model.Paper
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	if p.Title == "" || len(p.Questions) == 0 {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	if p.TemplateType != "" && p.TemplateType != export.TemplateCustom {
		if _, err := export.GetTemplate(p.TemplateType); err != nil {
			respondError(w, r, http.StatusBadRequest, "ErrUnknownTemplate")
			return
		}
	}

	// Every referenced question must exist before the paper is created.
	ids := make([]string, len(p.Questions))
	for i, pq := range p.Questions {
		ids[i] = pq.QuestionID
	}
	found, err := h.store.GetQuestions(ids)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	total := 0
	for _, pq := range p.Questions {
		if _, ok := found[pq.QuestionID]; !ok {
			respondError(w, r, http.StatusBadRequest, "ErrUnknownQuestion")
			return
		}
		total += pq.Score
	}
	// A client-supplied total wins; fall back to the sum of scores.
	if p.TotalScore == 0 {
		p.TotalScore = total
	}
	if user := model.UserFromContext(r.Context()); user != nil {
		p.CreatedBy = user.ID
	}

	id, err := h.store.CreatePaper(p)
	if err != nil {
		slog.Error("create paper", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	created, err := h.store.GetPaper(id)
	if err != nil || created == nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListPapers(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	items, total, err := h.store.ListPapers(page, limit)
	if err != nil {
		slog.Error("list papers", "error", err)
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

func (h *Handler) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetPaper(chi.URLParam(r, "paperID"))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if p == nil {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// handleExportPaper renders a paper as tex, pdf or docx. Answer and
// explanation blocks are toggled independently via include_answer and
// include_explanation, both on unless set to "false".
func (h *Handler) handleExportPaper(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetPaper(chi.URLParam(r, "paperID"))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if p == nil {
		respondError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}

	ids := make([]string, len(p.Questions))
	for i, pq := range p.Questions {
		ids[i] = pq.QuestionID
	}
	questions, err := h.store.GetQuestions(ids)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	opts := export.Options{
		IncludeAnswer:      r.URL.Query().Get("include_answer") != "false",
		IncludeExplanation: r.URL.Query().Get("include_explanation") != "false",
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}

	switch format {
	case "tex":
		latex := export.BuildLaTeX(p, questions, opts)
		serveAttachment(w, p.Title+".tex", "application/x-tex", []byte(latex))
	case "pdf":
		latex := export.BuildLaTeX(p, questions, opts)
		pdf, err := export.CompilePDF(r.Context(), latex)
		if err != nil {
			slog.Error("compile pdf", "paper", p.ID, "error", err)
			respondError(w, r, http.StatusInternalServerError, "ErrExportFailed")
			return
		}
		serveAttachment(w, p.Title+".pdf", "application/pdf", pdf)
	case "docx":
		docx, err := export.BuildDOCX(p, questions, opts)
		if err != nil {
			slog.Error("build docx", "paper", p.ID, "error", err)
			respondError(w, r, http.StatusInternalServerError, "ErrExportFailed")
			return
		}
		serveAttachment(w, p.Title+".docx",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document", docx)
	default:
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
	}
}

func serveAttachment(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
