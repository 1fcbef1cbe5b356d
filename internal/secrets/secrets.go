// Package secrets loads provider credentials from AWS Secrets Manager as an
// alternative to plain environment variables.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/axoninnova/axon-gateway/internal/config"
)

type Store interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

type AWSSecretsManager struct {
	client *secretsmanager.Client
	cache  map[string]*cachedSecret
	mu     sync.RWMutex
	ttl    time.Duration
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

func NewAWSSecretsManager(ctx context.Context, region string) (*AWSSecretsManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &AWSSecretsManager{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]*cachedSecret),
		ttl:    5 * time.Minute,
	}, nil
}

func (s *AWSSecretsManager) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if cached, ok := s.cache[name]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.value, nil
	}
	s.mu.RUnlock()

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}

	value := ""
	if result.SecretString != nil {
		value = *result.SecretString
	}

	s.mu.Lock()
	s.cache[name] = &cachedSecret{
		value:     value,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	return value, nil
}

// providerKeys is the JSON shape of the gateway's credential secret.
type providerKeys struct {
	NVIDIAAPIKey     string `json:"nvidia_api_key"`
	OpenAIAPIKey     string `json:"openai_api_key"`
	GroqAPIKey       string `json:"groq_api_key"`
	MistralAPIKey    string `json:"mistral_api_key"`
	OpenRouterAPIKey string `json:"openrouter_api_key"`
	TestAPIKey       string `json:"test_api_key"`
}

// ApplyProviderKeys fetches the named secret and fills any provider
// credentials the environment left empty. Environment values win.
func ApplyProviderKeys(ctx context.Context, store Store, name string, cfg *config.Config) error {
	raw, err := store.GetSecret(ctx, name)
	if err != nil {
		return err
	}

	var keys providerKeys
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return fmt.Errorf("parse secret %s: %w", name, err)
	}

	setIfEmpty(&cfg.NVIDIAAPIKey, keys.NVIDIAAPIKey)
	setIfEmpty(&cfg.OpenAIAPIKey, keys.OpenAIAPIKey)
	setIfEmpty(&cfg.GroqAPIKey, keys.GroqAPIKey)
	setIfEmpty(&cfg.MistralAPIKey, keys.MistralAPIKey)
	setIfEmpty(&cfg.OpenRouterAPIKey, keys.OpenRouterAPIKey)
	setIfEmpty(&cfg.TestAPIKey, keys.TestAPIKey)

	return nil
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" && value != "" {
		*dst = value
	}
}

type InMemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{secrets: make(map[string]string)}
}

func (s *InMemoryStore) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.secrets[name]
	if !ok {
		return "", fmt.Errorf("secret %s not found", name)
	}
	return value, nil
}

func (s *InMemoryStore) SetSecret(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = value
}
