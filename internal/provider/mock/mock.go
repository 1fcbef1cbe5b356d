// Package mock implements a deterministic offline provider used for local
// development and as the backend of the axon-mock alias.
package mock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/axoninnova/axon-gateway/internal/domain"
)

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string {
	return "mock"
}

func (p *Provider) ChatCompletion(ctx context.Context, req domain.ChatRequest, internalModel string) (*domain.ChatResponse, error) {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	preview := lastUserMessage
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	content := fmt.Sprintf(
		"[Mock Response] You requested model '%s'. Your message: '%s'. This is a placeholder response.",
		req.Model, preview,
	)

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(strings.Fields(m.Content)) * 4
	}
	completionTokens := len(strings.Fields(content)) * 4

	return &domain.ChatResponse{
		ID:      "chatcmpl-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24],
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []domain.Choice{
			{
				Index:        0,
				Message:      domain.Message{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: domain.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}
