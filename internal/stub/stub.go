// Package stub implements a deterministic OpenAI-compatible API server
// for development and tests: chat completions answer with a canned
// question analysis, embeddings are derived from a hash of the input, and
// the models list advertises a single model.
package stub

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	openai "github.com/sashabaranov/go-openai"
)

const embeddingDims = 64

// Handler serves the stub API.
type Handler struct {
	model string
}

func New(model string) *Handler {
	if model == "" {
		model = "stub-vision-1"
	}
	return &Handler{model: model}
}

// Routes builds the router with the OpenAI-compatible surface under /v1.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Post("/v1/chat/completions", h.handleChatCompletions)
	r.Post("/v1/embeddings", h.handleEmbeddings)
	r.Get("/v1/models", h.handleModels)
	return r
}

func (h *Handler) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}

	content := analysisResponse(chatSeed(req))
	if !wantsImageAnalysis(req) {
		content = "This is a deterministic stub answer. Configure a real backend for actual tutoring."
	}

	resp := openai.ChatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-stub-%08x", chatSeed(req)),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   h.model,
		Choices: []openai.ChatCompletionChoice{
			{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			},
		},
	}
	writeJSON(w, resp)
}

func (h *Handler) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input any    `json:"input"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}

	var inputs []string
	switch v := req.Input.(type) {
	case string:
		inputs = []string{v}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				inputs = append(inputs, s)
			}
		}
	}

	type embeddingData struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	}
	data := make([]embeddingData, len(inputs))
	for i, text := range inputs {
		data[i] = embeddingData{Object: "embedding", Index: i, Embedding: Embed(text)}
	}
	writeJSON(w, map[string]any{
		"object": "list",
		"model":  req.Model,
		"data":   data,
	})
}

func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": h.model, "object": "model", "owned_by": "stub"},
		},
	})
}

// Embed maps a text to a fixed-length unit-free vector. Equal inputs give
// equal vectors; different inputs almost surely differ.
func Embed(text string) []float32 {
	vec := make([]float32, embeddingDims)
	for i := range vec {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%s", i, text)
		// map the hash into [-1, 1)
		vec[i] = float32(int32(h.Sum32())) / float32(1<<31)
	}
	return vec
}

// chatSeed derives a stable seed from the request's user content so the
// same upload always yields the same canned analysis.
func chatSeed(req openai.ChatCompletionRequest) uint32 {
	h := fnv.New32a()
	for _, msg := range req.Messages {
		h.Write([]byte(msg.Content))
		for _, part := range msg.MultiContent {
			h.Write([]byte(part.Text))
			if part.ImageURL != nil {
				h.Write([]byte(part.ImageURL.URL))
			}
		}
	}
	return h.Sum32()
}

// wantsImageAnalysis reports whether the request carries an image part,
// which is how the analysis prompt arrives.
func wantsImageAnalysis(req openai.ChatCompletionRequest) bool {
	for _, msg := range req.Messages {
		for _, part := range msg.MultiContent {
			if part.Type == openai.ChatMessagePartTypeImageURL {
				return true
			}
		}
	}
	return false
}

// analysisResponse is the canned structured transcription, wrapped in a
// code fence the way real vision models tend to answer.
func analysisResponse(seed uint32) string {
	a := 2 + int(seed%7)
	b := 3 + int(seed/7%11)
	analysis := map[string]any{
		"questionText":    fmt.Sprintf("(%08x) 已知 $f(x) = x^2 + %dx + %d$，求 $f(x)$ 的最小值。", seed, a, b),
		"options":         []string{},
		"answer":          fmt.Sprintf("$%d - \\frac{%d}{4}$", b, a*a),
		"explanation":     "配方后顶点处取得最小值。",
		"hasGeometry":     false,
		"geometrySvg":     "",
		"knowledgePoints": []string{"二次函数", "配方法"},
		"difficulty":      "medium",
		"questionType":    "solve",
		"confidence":      0.92,
	}
	data, _ := json.Marshal(analysis)
	return "```json\n" + string(data) + "\n```"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode stub response", "error", err)
	}
}
