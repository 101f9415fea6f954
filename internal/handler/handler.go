// Package handler wires the HTTP API: authentication, question analysis
// and CRUD, the batch ingestion queue, paper assembly and export, reviews
// and the student tutoring endpoint.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zujuan/internal/ai"
	"zujuan/internal/auth"
	"zujuan/internal/captcha"
	"zujuan/internal/i18n"
	"zujuan/internal/model"
	"zujuan/internal/queue"
	"zujuan/internal/rag"
	"zujuan/internal/store"
	"zujuan/internal/task"
)

// Config holds handler-level settings.
type Config struct {
	// InviteCode gates teacher registration; empty disables the check.
	InviteCode string
	// MaxUploadBytes bounds a single multipart upload.
	MaxUploadBytes int64
}

// CaptchaProvider issues and checks registration captchas.
type CaptchaProvider interface {
	Create() captcha.Challenge
	Verify(id, answer string) bool
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	ai      *ai.Client
	rag     *rag.Service
	queue   *queue.Service
	tasks   *task.Manager
	captcha CaptchaProvider
	auth    *auth.Service
	config  Config
}

// New creates a new Handler.
func New(s *store.Store, client *ai.Client, ragSvc *rag.Service, q *queue.Service,
	tasks *task.Manager, capt CaptchaProvider, authSvc *auth.Service, cfg Config) *Handler {
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 16 << 20
	}
	return &Handler{
		store: s, ai: client, rag: ragSvc, queue: q,
		tasks: tasks, captcha: capt, auth: authSvc, config: cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/captcha", h.handleCaptcha)
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
	})

	r.Route("/api/teacher", func(r chi.Router) {
		r.Use(h.auth.RequireAuth)
		r.Use(auth.RequireRole(model.UserRoleTeacher, model.UserRoleAdmin))

		r.Post("/questions/analyze", h.handleAnalyze)
		r.Post("/questions/analyze/async", h.handleAnalyzeAsync)
		r.Get("/tasks/{taskID}", h.handleTaskStatus)

		r.Get("/questions", h.handleListQuestions)
		r.Post("/questions", h.handleCreateQuestion)
		r.Get("/questions/{questionID}", h.handleGetQuestion)
		r.Put("/questions/{questionID}", h.handleUpdateQuestion)
		r.Delete("/questions/{questionID}", h.handleDeleteQuestion)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", h.handleQueueList)
			r.Post("/", h.handleQueueAdd)
			r.Post("/run-all", h.handleQueueRunAll)
			r.Post("/ingest-all", h.handleQueueIngestAll)
			r.Post("/{itemID}/preview", h.handleQueuePreview)
			r.Post("/{itemID}/ingest", h.handleQueueIngest)
			r.Post("/{itemID}/save", h.handleQueueSave)
			r.Delete("/{itemID}", h.handleQueueRemove)
		})

		r.Get("/templates", h.handleListTemplates)
		r.Get("/papers", h.handleListPapers)
		r.Post("/papers", h.handleCreatePaper)
		r.Get("/papers/{paperID}", h.handleGetPaper)
		r.Get("/papers/{paperID}/export", h.handleExportPaper)
	})

	r.Route("/api/reviews", func(r chi.Router) {
		r.Use(h.auth.RequireAuth)
		r.Post("/", h.handleCreateReview)
		r.Get("/{questionID}", h.handleListReviews)
	})

	r.Route("/api/student", func(r chi.Router) {
		r.Use(h.auth.RequireAuth)
		r.Post("/ask", h.handleAsk)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":       "ok",
		"aiConfigured": h.ai.Configured(),
	}
	if n, err := h.store.QuestionCount(); err == nil {
		status["questions"] = n
	}
	respondJSON(w, http.StatusOK, status)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError writes a localized error message for the given message id.
func respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"error": i18n.T(r.Context(), msgID)})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
