package gateway

import (
	"strings"

	"github.com/axoninnova/axon-gateway/internal/domain"
)

const (
	// maxTokensCeiling is a hard cost ceiling applied to every request
	// regardless of caller tier.
	maxTokensCeiling = 300

	// forcedTemperature overrides any caller-supplied temperature.
	// Observed production behavior; callers cannot opt out.
	forcedTemperature = 0.7

	disclosureText = "AxonInnova is the community and maker behind AxonNexus."
)

// disclosureTriggers are matched case-insensitively against every message.
// A single hit anywhere in the request triggers the disclosure prepend.
var disclosureTriggers = []string{
	"axon",
	"axonnexus",
	"axoninnova",
	"who built this",
	"who made this",
	"who created you",
}

// normalize applies the request policy in place: token ceiling, the
// temperature override, and the identity-disclosure system message.
func normalize(req *domain.ChatRequest) {
	tokens := maxTokensCeiling
	if req.MaxTokens != nil && *req.MaxTokens < maxTokensCeiling {
		tokens = *req.MaxTokens
	}
	req.MaxTokens = &tokens

	temp := forcedTemperature
	req.Temperature = &temp

	if mentionsMaker(req.Messages) {
		disclosure := domain.Message{Role: "system", Content: disclosureText}
		req.Messages = append([]domain.Message{disclosure}, req.Messages...)
	}
}

func mentionsMaker(messages []domain.Message) bool {
	for _, msg := range messages {
		content := strings.ToLower(msg.Content)
		for _, trigger := range disclosureTriggers {
			if strings.Contains(content, trigger) {
				return true
			}
		}
	}
	return false
}
