// Package ai wraps an OpenAI-compatible API for vision analysis of
// question photographs, text embeddings, and chat completions.
package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"zujuan/internal/model"
)

// Client wraps an OpenAI-compatible API client. With no API key configured
// it degrades to deterministic stub responses so the rest of the system
// stays usable in development.
type Client struct {
	api        *openai.Client
	model      string
	embedModel string
}

// New creates a new AI client. An empty apiKey yields an unconfigured
// client that serves stub responses.
func New(baseURL, apiKey, modelName, embedModel string) *Client {
	c := &Client{model: modelName, embedModel: embedModel}
	if apiKey == "" {
		return c
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c.api = openai.NewClientWithConfig(config)
	return c
}

// Configured reports whether a real backend is wired up.
func (c *Client) Configured() bool {
	return c.api != nil
}

// Ping verifies the API endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return nil
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Analyze sends a question photograph to the vision model and returns the
// structured transcription. Unconfigured clients return the stub result.
func (c *Client) Analyze(ctx context.Context, data []byte, mimeType, fileName string) (*model.AnalysisResult, error) {
	if !c.Configured() {
		return StubResult(fileName), nil
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: analysisPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
		MaxTokens:   2000,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("vision API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision model returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("vision response", "file", fileName, "raw", raw)
	return ExtractResult(raw), nil
}

// Embed returns the embedding vector for a text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("embeddings backend not configured")
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings API call: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embeddings API returned no data")
	}
	return resp.Data[0].Embedding, nil
}

// Complete runs a plain chat completion with a system and a user message.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("chat backend not configured")
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("chat API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// StubResult is the placeholder analysis served when no backend is
// configured. The teacher edits it before saving.
func StubResult(fileName string) *model.AnalysisResult {
	if fileName == "" {
		fileName = "question"
	}
	return &model.AnalysisResult{
		QuestionText: "Placeholder question text for " + fileName,
		Answer:       "Placeholder answer; review and edit before saving.",
		Difficulty:   string(model.DifficultyMedium),
		QuestionType: string(model.TypeSolve),
	}
}
