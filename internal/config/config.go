package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr     string
	LogLevel string

	// Shared secret that marks the test tier. Any other non-empty bearer
	// token is treated as premium.
	TestAPIKey string

	// One credential per provider. An empty value hides every model alias
	// that requires it.
	NVIDIAAPIKey     string
	OpenAIAPIKey     string
	GroqAPIKey       string
	MistralAPIKey    string
	OpenRouterAPIKey string

	// Optional TOML model table; the compiled-in table is used when empty.
	ModelsFile string

	AWSRegion      string
	BedrockEnabled bool

	// Optional AWS integrations.
	SecretsName      string
	AlertTopicARN    string
	UsageQueueURL    string

	OTLPEndpoint string

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:             getEnv("ADDR", ":8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		TestAPIKey:       getEnv("TEST_API_KEY", "axn_test_123"),
		NVIDIAAPIKey:     getEnv("NVIDIA_API_KEY", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		GroqAPIKey:       getEnv("GROQ_API_KEY", ""),
		MistralAPIKey:    getEnv("MISTRAL_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		ModelsFile:       getEnv("MODELS_FILE", ""),
		AWSRegion:        getEnv("AWS_REGION", ""),
		BedrockEnabled:   getEnv("BEDROCK_ENABLED", "false") == "true",
		SecretsName:      getEnv("SECRETS_NAME", ""),
		AlertTopicARN:    getEnv("ALERT_TOPIC_ARN", ""),
		UsageQueueURL:    getEnv("USAGE_QUEUE_URL", ""),
		OTLPEndpoint:     getEnv("OTLP_ENDPOINT", ""),
		ShutdownTimeout:  getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

// Capabilities returns the credential names that are configured, forming the
// registry's capability set.
func (c *Config) Capabilities() []string {
	caps := []string{}
	if c.NVIDIAAPIKey != "" {
		caps = append(caps, "nvidia")
	}
	if c.OpenAIAPIKey != "" {
		caps = append(caps, "openai")
	}
	if c.GroqAPIKey != "" {
		caps = append(caps, "groq")
	}
	if c.MistralAPIKey != "" {
		caps = append(caps, "mistral")
	}
	if c.OpenRouterAPIKey != "" {
		caps = append(caps, "openrouter")
	}
	if c.BedrockEnabled && c.AWSRegion != "" {
		caps = append(caps, "bedrock")
	}
	return caps
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
