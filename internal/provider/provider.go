// Package provider defines the contract between the dispatcher and the
// upstream chat-completion backends.
package provider

import (
	"context"

	"github.com/axoninnova/axon-gateway/internal/domain"
)

// Adapter is a stateless translator between the gateway's request/response
// shape and one upstream vendor API. Implementations fail with
// domain.KindCredentialMissing when their key is absent at call time and
// domain.KindUpstream for transport or parse failures; a response without
// usage data is an upstream failure. Adapters do not retry.
type Adapter interface {
	Name() string
	ChatCompletion(ctx context.Context, req domain.ChatRequest, internalModel string) (*domain.ChatResponse, error)
}
