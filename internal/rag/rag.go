// Package rag answers student questions by retrieving similar bank
// questions via embeddings and grounding a chat completion on them.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"zujuan/internal/ai"
	"zujuan/internal/model"
	"zujuan/internal/store"
)

const topK = 3

// Service wires the question bank to the embeddings and chat backends.
type Service struct {
	store *store.Store
	ai    *ai.Client
}

func New(st *store.Store, client *ai.Client) *Service {
	return &Service{store: st, ai: client}
}

// IndexQuestion embeds a question and stores the vector. Failures are
// logged and swallowed so indexing never blocks a save.
func (s *Service) IndexQuestion(ctx context.Context, q model.Question) {
	if !s.ai.Configured() {
		return
	}
	text := q.QuestionText
	if len(q.KnowledgePoints) > 0 {
		text += "\n" + strings.Join(q.KnowledgePoints, ", ")
	}
	vector, err := s.ai.Embed(ctx, text)
	if err != nil {
		slog.Warn("embed question", "question_id", q.ID, "error", err)
		return
	}
	if err := s.store.UpsertEmbedding(q.ID, vector); err != nil {
		slog.Warn("store embedding", "question_id", q.ID, "error", err)
	}
}

// Ask answers a free-form student question, citing up to three related
// bank questions. Without a configured backend it returns a canned answer
// so the endpoint stays testable.
func (s *Service) Ask(ctx context.Context, query string) (*model.AskResponse, error) {
	if !s.ai.Configured() {
		return &model.AskResponse{
			Answer: "The tutoring backend is not configured. Ask your teacher to set an API key.",
		}, nil
	}

	related, err := s.related(ctx, query)
	if err != nil {
		slog.Warn("retrieve related questions", "error", err)
		related = nil
	}

	answer, err := s.ai.Complete(ctx, tutorSystemPrompt, buildUserPrompt(query, related))
	if err != nil {
		return nil, fmt.Errorf("tutor completion: %w", err)
	}

	ids := make([]string, len(related))
	for i, rq := range related {
		ids[i] = rq.ID
	}
	return &model.AskResponse{Answer: answer, RelatedQuestions: related, Sources: ids}, nil
}

const tutorSystemPrompt = `You are a patient high-school math tutor.
Explain step by step, keep math in LaTeX $...$ notation, and when
reference questions are provided use them to ground your explanation.`

func buildUserPrompt(query string, related []model.RelatedQuestion) string {
	if len(related) == 0 {
		return query
	}
	var b strings.Builder
	b.WriteString("Reference questions from the question bank:\n")
	for i, rq := range related {
		fmt.Fprintf(&b, "%d. %s\n   Answer: %s\n", i+1, rq.QuestionText, rq.Answer)
	}
	b.WriteString("\nStudent question: ")
	b.WriteString(query)
	return b.String()
}

func (s *Service) related(ctx context.Context, query string) ([]model.RelatedQuestion, error) {
	queryVec, err := s.ai.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	embeddings, err := s.store.ListEmbeddings()
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(embeddings))
	for _, e := range embeddings {
		ranked = append(ranked, scored{e.QuestionID, cosine(queryVec, e.Vector)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.id
	}
	questions, err := s.store.GetQuestions(ids)
	if err != nil {
		return nil, err
	}

	related := make([]model.RelatedQuestion, 0, len(ranked))
	for _, r := range ranked {
		q, ok := questions[r.id]
		if !ok {
			continue
		}
		related = append(related, model.RelatedQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Answer:       q.Answer,
			Similarity:   r.score,
		})
	}
	return related, nil
}

// cosine returns the cosine similarity of two vectors, 0 when either is
// empty or the lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
