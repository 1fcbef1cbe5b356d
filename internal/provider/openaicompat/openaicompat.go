// Package openaicompat implements the provider adapter for upstreams that
// speak the OpenAI chat-completions wire format: OpenAI itself, NVIDIA,
// Groq, Mistral and OpenRouter.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/axoninnova/axon-gateway/internal/domain"
	"github.com/axoninnova/axon-gateway/internal/httputil"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	nvidiaBaseURL     = "https://integrate.api.nvidia.com/v1"
	groqBaseURL       = "https://api.groq.com/openai/v1"
	mistralBaseURL    = "https://api.mistral.ai/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

type Client struct {
	name    string
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(name, baseURL, apiKey string) *Client {
	return &Client{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   httputil.DefaultClient(),
	}
}

func NewOpenAI(apiKey string) *Client     { return New("openai", openAIBaseURL, apiKey) }
func NewNVIDIA(apiKey string) *Client     { return New("nvidia", nvidiaBaseURL, apiKey) }
func NewGroq(apiKey string) *Client       { return New("groq", groqBaseURL, apiKey) }
func NewMistral(apiKey string) *Client    { return New("mistral", mistralBaseURL, apiKey) }
func NewOpenRouter(apiKey string) *Client { return New("openrouter", openRouterBaseURL, apiKey) }

func (c *Client) Name() string {
	return c.name
}

type wireRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

func (c *Client) ChatCompletion(ctx context.Context, req domain.ChatRequest, internalModel string) (*domain.ChatResponse, error) {
	if c.apiKey == "" {
		return nil, domain.CredentialMissing(c.name)
	}

	body, err := json.Marshal(wireRequest{
		Model:       internalModel,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, domain.Upstream(c.name, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, domain.Upstream(c.name, fmt.Errorf("create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, domain.Upstream(c.name, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, domain.Upstream(c.name, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(bodyBytes)))
	}

	var chatResp domain.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, domain.Upstream(c.name, fmt.Errorf("decode response: %w", err))
	}

	if chatResp.Usage.TotalTokens == 0 {
		return nil, domain.Upstream(c.name, fmt.Errorf("response missing usage information"))
	}

	for i := range chatResp.Choices {
		choice := &chatResp.Choices[i]
		if choice.Message.Role == "" {
			choice.Message.Role = "assistant"
		}
		choice.Message.Content = stripCodeFence(choice.Message.Content)
		if choice.FinishReason == "" {
			choice.FinishReason = "stop"
		}
	}

	return &chatResp, nil
}

// stripCodeFence unwraps content the model returned as a single fenced
// block, e.g. ```json ... ```.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") || !strings.HasSuffix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= 2 {
		return content
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
