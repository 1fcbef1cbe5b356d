package secrets

import (
	"context"
	"testing"

	"github.com/axoninnova/axon-gateway/internal/config"
)

func TestInMemoryStore(t *testing.T) {
	store := NewInMemoryStore()
	store.SetSecret("gateway/keys", `{"nvidia_api_key":"nv"}`)

	got, err := store.GetSecret(context.Background(), "gateway/keys")
	if err != nil {
		t.Fatalf("GetSecret: %v", err)
	}
	if got != `{"nvidia_api_key":"nv"}` {
		t.Errorf("GetSecret = %q", got)
	}

	if _, err := store.GetSecret(context.Background(), "missing"); err == nil {
		t.Error("expected an error for a missing secret")
	}
}

func TestApplyProviderKeys(t *testing.T) {
	store := NewInMemoryStore()
	store.SetSecret("gateway/keys", `{
		"nvidia_api_key": "nv-from-secret",
		"mistral_api_key": "ms-from-secret"
	}`)

	cfg := &config.Config{NVIDIAAPIKey: "nv-from-env"}
	if err := ApplyProviderKeys(context.Background(), store, "gateway/keys", cfg); err != nil {
		t.Fatalf("ApplyProviderKeys: %v", err)
	}

	if cfg.NVIDIAAPIKey != "nv-from-env" {
		t.Errorf("environment value should win, got %q", cfg.NVIDIAAPIKey)
	}
	if cfg.MistralAPIKey != "ms-from-secret" {
		t.Errorf("empty field should be filled from secret, got %q", cfg.MistralAPIKey)
	}
}

func TestApplyProviderKeysBadJSON(t *testing.T) {
	store := NewInMemoryStore()
	store.SetSecret("gateway/keys", "not json")

	if err := ApplyProviderKeys(context.Background(), store, "gateway/keys", &config.Config{}); err == nil {
		t.Error("expected a parse error")
	}
}
