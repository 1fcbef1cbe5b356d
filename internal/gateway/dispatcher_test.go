package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/axoninnova/axon-gateway/internal/domain"
	"github.com/axoninnova/axon-gateway/internal/events"
	"github.com/axoninnova/axon-gateway/internal/identity"
	"github.com/axoninnova/axon-gateway/internal/notifications"
	"github.com/axoninnova/axon-gateway/internal/provider"
	"github.com/axoninnova/axon-gateway/internal/quota"
	"github.com/axoninnova/axon-gateway/internal/registry"
)

type stubAdapter struct {
	name string
	fn   func(ctx context.Context, req domain.ChatRequest, internalModel string) (*domain.ChatResponse, error)
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) ChatCompletion(ctx context.Context, req domain.ChatRequest, internalModel string) (*domain.ChatResponse, error) {
	return s.fn(ctx, req, internalModel)
}

func okResponse(tokens int) *domain.ChatResponse {
	return &domain.ChatResponse{
		ID:      "chatcmpl-test",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   "internal-should-be-rewritten",
		Choices: []domain.Choice{{
			Message:      domain.Message{Role: "assistant", Content: "hello"},
			FinishReason: "stop",
		}},
		Usage: domain.Usage{PromptTokens: tokens / 2, CompletionTokens: tokens - tokens/2, TotalTokens: tokens},
	}
}

func testEntries() []registry.Entry {
	return []registry.Entry{
		{Alias: "axon-gpt-4", Provider: "nvidia", InternalModel: "openai/gpt-oss-120b", Credential: "nvidia"},
		{Alias: "axon-mistral-large", Provider: "mistral", InternalModel: "mistral-large-latest", Credential: "mistral", Flags: []string{"premium"}},
		{Alias: "axon-claude", Provider: "bedrock", InternalModel: "anthropic.claude-3-haiku", Credential: "bedrock", Flags: []string{"large"}},
		{Alias: "axon-mock", Provider: "mock", InternalModel: "mock"},
	}
}

func newTestDispatcher(t *testing.T, adapter provider.Adapter) (*Dispatcher, *events.InMemoryPublisher, *notifications.InMemoryNotifier) {
	t.Helper()
	publisher := events.NewInMemoryPublisher()
	notifier := notifications.NewInMemoryNotifier()
	providers := map[string]provider.Adapter{}
	if adapter != nil {
		for _, e := range testEntries() {
			providers[e.Provider] = adapter
		}
	}
	d := New(Config{
		Identifier: identity.NewIdentifier("axn_test_123"),
		Quotas:     quota.NewManager(),
		Registry:   registry.New(testEntries(), []string{"nvidia", "mistral", "bedrock"}),
		Providers:  providers,
		Notifier:   notifier,
		Publisher:  publisher,
		Logger:     slog.New(slog.DiscardHandler),
	})
	return d, publisher, notifier
}

func chatReq(model, content string) *domain.ChatRequest {
	return &domain.ChatRequest{
		Model:    model,
		Messages: []domain.Message{{Role: "user", Content: content}},
	}
}

func TestDispatchSuccess(t *testing.T) {
	var gotInternal string
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, req domain.ChatRequest, internalModel string) (*domain.ChatResponse, error) {
		gotInternal = internalModel
		return okResponse(42), nil
	}}
	d, publisher, _ := newTestDispatcher(t, adapter)

	resp, err := d.Dispatch(context.Background(), "req-1", "sk-premium-caller", "10.0.0.1:1234", chatReq("axon-gpt-4", "hi"))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if gotInternal != "openai/gpt-oss-120b" {
		t.Errorf("internal model = %q, want %q", gotInternal, "openai/gpt-oss-120b")
	}
	if resp.Model != "axon-gpt-4" {
		t.Errorf("response model = %q, want public alias", resp.Model)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(publisher.Events()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	evts := publisher.Events()
	if len(evts) != 1 {
		t.Fatalf("usage events = %d, want 1", len(evts))
	}
	if evts[0].TotalTokens != 42 || evts[0].Model != "axon-gpt-4" {
		t.Errorf("usage event = %+v", evts[0])
	}
}

func TestDispatchNormalizesRequest(t *testing.T) {
	var got domain.ChatRequest
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, req domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
		got = req
		return okResponse(10), nil
	}}
	d, _, _ := newTestDispatcher(t, adapter)

	big := 5000
	temp := 1.9
	req := chatReq("axon-gpt-4", "hi")
	req.MaxTokens = &big
	req.Temperature = &temp

	if _, err := d.Dispatch(context.Background(), "req-1", "sk-key", "10.0.0.1:1", req); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got.MaxTokens == nil || *got.MaxTokens != 300 {
		t.Errorf("max_tokens not clamped to 300: %v", got.MaxTokens)
	}
	if got.Temperature == nil || *got.Temperature != 0.7 {
		t.Errorf("temperature not forced to 0.7: %v", got.Temperature)
	}
}

func TestDispatchKeepsSmallMaxTokens(t *testing.T) {
	var got domain.ChatRequest
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, req domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
		got = req
		return okResponse(10), nil
	}}
	d, _, _ := newTestDispatcher(t, adapter)

	small := 100
	req := chatReq("axon-gpt-4", "hi")
	req.MaxTokens = &small

	if _, err := d.Dispatch(context.Background(), "req-1", "sk-key", "10.0.0.1:1", req); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got.MaxTokens == nil || *got.MaxTokens != 100 {
		t.Errorf("max_tokens = %v, want 100 kept", got.MaxTokens)
	}
}

func TestDispatchDisclosureInjection(t *testing.T) {
	var got domain.ChatRequest
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, req domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
		got = req
		return okResponse(10), nil
	}}
	d, _, _ := newTestDispatcher(t, adapter)

	if _, err := d.Dispatch(context.Background(), "req-1", "sk-key", "10.0.0.1:1", chatReq("axon-gpt-4", "Who built this thing?")); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2 (disclosure prepended)", len(got.Messages))
	}
	first := got.Messages[0]
	if first.Role != "system" || !strings.Contains(first.Content, "AxonInnova") {
		t.Errorf("first message = %+v, want disclosure system message", first)
	}
}

func TestDispatchNoDisclosureWithoutTrigger(t *testing.T) {
	var got domain.ChatRequest
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, req domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
		got = req
		return okResponse(10), nil
	}}
	d, _, _ := newTestDispatcher(t, adapter)

	if _, err := d.Dispatch(context.Background(), "req-1", "sk-key", "10.0.0.1:1", chatReq("axon-gpt-4", "translate this sentence")); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(got.Messages) != 1 {
		t.Errorf("messages = %d, want 1 (no disclosure)", len(got.Messages))
	}
}

func TestDispatchAdoptsSuggestion(t *testing.T) {
	var gotInternal string
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, _ domain.ChatRequest, internalModel string) (*domain.ChatResponse, error) {
		gotInternal = internalModel
		return okResponse(10), nil
	}}
	d, _, _ := newTestDispatcher(t, adapter)

	resp, err := d.Dispatch(context.Background(), "req-1", "sk-key", "10.0.0.1:1", chatReq("axon-gpt4", "hi"))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if gotInternal != "openai/gpt-oss-120b" {
		t.Errorf("internal model = %q, suggestion not adopted", gotInternal)
	}
	if resp.Model != "axon-gpt-4" {
		t.Errorf("response model = %q, want adopted alias", resp.Model)
	}
}

func TestDispatchUnknownModel(t *testing.T) {
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, _ domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
		t.Fatal("adapter must not be called for unresolvable model")
		return nil, nil
	}}
	d, _, _ := newTestDispatcher(t, adapter)

	_, err := d.Dispatch(context.Background(), "req-1", "sk-key", "10.0.0.1:1", chatReq("zzzzzzzzzzzzzzzzzzzz", "hi"))
	if err == nil {
		t.Fatal("Dispatch() error = nil, want validation error")
	}
	if domain.KindOf(err) != domain.KindValidation {
		t.Errorf("kind = %v, want KindValidation", domain.KindOf(err))
	}
}

func TestDispatchTierGate(t *testing.T) {
	tests := []struct {
		name    string
		bearer  string
		model   string
		allowed bool
	}{
		{"guest denied restricted", "", "axon-claude", false},
		{"guest denied premium", "", "axon-mistral-large", false},
		{"test denied premium", "axn_test_123", "axon-mistral-large", false},
		{"test allowed large", "axn_test_123", "axon-claude", true},
		{"premium allowed premium", "sk-caller", "axon-mistral-large", true},
		{"guest allowed unrestricted", "", "axon-gpt-4", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			adapter := &stubAdapter{name: "any", fn: func(_ context.Context, _ domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
				called = true
				return okResponse(10), nil
			}}
			d, _, _ := newTestDispatcher(t, adapter)

			_, err := d.Dispatch(context.Background(), "req-1", tt.bearer, "10.0.0.1:1", chatReq(tt.model, "hi"))
			if tt.allowed {
				if err != nil {
					t.Fatalf("Dispatch() error = %v, want allowed", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Dispatch() error = nil, want access denial")
			}
			if domain.KindOf(err) != domain.KindValidation {
				t.Errorf("kind = %v, want KindValidation", domain.KindOf(err))
			}
			if called {
				t.Error("adapter called despite access denial")
			}
		})
	}
}

func TestDispatchRateLimit(t *testing.T) {
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, _ domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
		return okResponse(10), nil
	}}
	d, _, _ := newTestDispatcher(t, adapter)

	// Guest limit is 5 per window.
	for i := 0; i < 5; i++ {
		if _, err := d.Dispatch(context.Background(), "req", "", "10.0.0.9:1", chatReq("axon-gpt-4", "hi")); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	_, err := d.Dispatch(context.Background(), "req", "", "10.0.0.9:1", chatReq("axon-gpt-4", "hi"))
	if domain.KindOf(err) != domain.KindRateLimited {
		t.Fatalf("kind = %v, want KindRateLimited", domain.KindOf(err))
	}
}

func TestDispatchDailyQuota(t *testing.T) {
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, _ domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
		// Guest daily cap is 2000 tokens; one call exhausts it.
		return okResponse(2000), nil
	}}
	d, _, notifier := newTestDispatcher(t, adapter)

	if _, err := d.Dispatch(context.Background(), "req-1", "", "10.0.0.7:1", chatReq("axon-gpt-4", "hi")); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err := d.Dispatch(context.Background(), "req-2", "", "10.0.0.7:1", chatReq("axon-gpt-4", "hi"))
	if domain.KindOf(err) != domain.KindDailyQuota {
		t.Fatalf("kind = %v, want KindDailyQuota", domain.KindOf(err))
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(notifier.Alerts()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	alerts := notifier.Alerts()
	if len(alerts) != 1 || alerts[0].Type != notifications.AlertDailyCapReach {
		t.Errorf("alerts = %+v, want one daily cap alert", alerts)
	}
}

func TestDispatchUpstreamFailure(t *testing.T) {
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, _ domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
		return nil, errors.New("connection reset")
	}}
	d, publisher, _ := newTestDispatcher(t, adapter)

	_, err := d.Dispatch(context.Background(), "req-1", "sk-key", "10.0.0.1:1", chatReq("axon-gpt-4", "hi"))
	if domain.KindOf(err) != domain.KindUpstream {
		t.Fatalf("kind = %v, want KindUpstream", domain.KindOf(err))
	}
	if len(publisher.Events()) != 0 {
		t.Error("usage event published for failed dispatch")
	}
}

func TestDispatchCredentialMissingPassthrough(t *testing.T) {
	adapter := &stubAdapter{name: "nvidia", fn: func(_ context.Context, _ domain.ChatRequest, _ string) (*domain.ChatResponse, error) {
		return nil, domain.CredentialMissing("nvidia")
	}}
	d, _, _ := newTestDispatcher(t, adapter)

	_, err := d.Dispatch(context.Background(), "req-1", "sk-key", "10.0.0.1:1", chatReq("axon-gpt-4", "hi"))
	if domain.KindOf(err) != domain.KindCredentialMissing {
		t.Fatalf("kind = %v, want KindCredentialMissing", domain.KindOf(err))
	}
}
