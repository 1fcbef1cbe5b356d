// Package gateway orchestrates the dispatch pipeline: caller
// identification, quota enforcement, request normalization, model
// resolution, tier access control, and provider invocation.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/axoninnova/axon-gateway/internal/domain"
	"github.com/axoninnova/axon-gateway/internal/events"
	"github.com/axoninnova/axon-gateway/internal/identity"
	"github.com/axoninnova/axon-gateway/internal/metrics"
	"github.com/axoninnova/axon-gateway/internal/notifications"
	"github.com/axoninnova/axon-gateway/internal/provider"
	"github.com/axoninnova/axon-gateway/internal/quota"
	"github.com/axoninnova/axon-gateway/internal/registry"
	"github.com/axoninnova/axon-gateway/internal/telemetry"
)

// sideEffectTimeout bounds the async alert and usage-event publishes so
// a stuck broker cannot pile up goroutines forever.
const sideEffectTimeout = 10 * time.Second

type Config struct {
	Identifier *identity.Identifier
	Quotas     *quota.Manager
	Registry   *registry.Registry
	Providers  map[string]provider.Adapter
	Notifier   notifications.Notifier
	Publisher  events.Publisher
	Logger     *slog.Logger
}

type Dispatcher struct {
	identifier *identity.Identifier
	quotas     *quota.Manager
	registry   *registry.Registry
	providers  map[string]provider.Adapter
	notifier   notifications.Notifier
	publisher  events.Publisher
	logger     *slog.Logger
}

func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		identifier: cfg.Identifier,
		quotas:     cfg.Quotas,
		registry:   cfg.Registry,
		providers:  cfg.Providers,
		notifier:   cfg.Notifier,
		publisher:  cfg.Publisher,
		logger:     logger,
	}
}

// Dispatch runs one request through the full pipeline. Failure at any
// stage is terminal for the request; no stage is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, requestID, bearer, remoteAddr string, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway.dispatch")
	defer span.End()

	callerKey, tier := d.identifier.Identify(bearer, remoteAddr)

	allowed, remaining, resetAt := d.quotas.CheckRate(callerKey, tier)
	if !allowed {
		metrics.RecordQuotaRejection(string(tier), "rate")
		d.logger.Warn("rate limit exceeded",
			"request_id", requestID, "tier", tier, "reset_at", resetAt)
		err := domain.NewError(domain.KindRateLimited,
			fmt.Sprintf("rate limit exceeded, retry after %s", time.Until(resetAt).Round(time.Second)))
		telemetry.AddErrorAttribute(span, err)
		return nil, err
	}

	if !d.quotas.CheckUsage(callerKey, tier) {
		metrics.RecordQuotaRejection(string(tier), "daily")
		d.logger.Warn("daily token cap reached", "request_id", requestID, "tier", tier)
		d.notify(notifications.Alert{
			Type:      notifications.AlertDailyCapReach,
			CallerKey: callerKey,
			Tier:      string(tier),
			Message:   "daily token cap reached",
		})
		err := domain.NewError(domain.KindDailyQuota, "daily token quota exhausted")
		telemetry.AddErrorAttribute(span, err)
		return nil, err
	}

	normalize(req)

	entry, ok := d.registry.Resolve(req.Model)
	if !ok {
		if suggestion, found := d.registry.Suggest(req.Model); found {
			d.logger.Info("adopted model suggestion",
				"request_id", requestID, "requested", req.Model, "adopted", suggestion)
			metrics.RecordSuggestionAdoption(suggestion)
			req.Model = suggestion
			entry, ok = d.registry.Resolve(req.Model)
		}
		if !ok {
			err := domain.Validationf("model %q not found", req.Model)
			telemetry.AddErrorAttribute(span, err)
			return nil, err
		}
	}

	if entry.Restricted() && tier == domain.TierGuest {
		err := domain.Validationf("model %q requires an API key", entry.Alias)
		telemetry.AddErrorAttribute(span, err)
		return nil, err
	}
	if entry.PremiumOnly() && tier == domain.TierTest {
		err := domain.Validationf("model %q requires a premium API key", entry.Alias)
		telemetry.AddErrorAttribute(span, err)
		return nil, err
	}

	adapter, ok := d.providers[entry.Provider]
	if !ok {
		d.logger.Error("no adapter for provider",
			"request_id", requestID, "provider", entry.Provider)
		err := domain.NewError(domain.KindInternal, "provider unavailable")
		telemetry.AddErrorAttribute(span, err)
		return nil, err
	}

	telemetry.AddDispatchAttributes(span, string(tier), entry.Provider, entry.Alias, requestID)

	resp, err := adapter.ChatCompletion(ctx, *req, entry.InternalModel)
	if err != nil {
		metrics.RecordProviderError(entry.Provider, domain.KindOf(err).String())
		d.logger.Error("provider call failed",
			"request_id", requestID, "provider", entry.Provider, "model", entry.Alias, "error", err)
		telemetry.AddErrorAttribute(span, err)
		if domain.KindOf(err) == domain.KindInternal {
			err = domain.Upstream(entry.Provider, err)
		}
		return nil, err
	}

	d.quotas.RecordUsage(callerKey, resp.Usage.TotalTokens)
	metrics.RecordTokens(string(tier), entry.Alias, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	telemetry.AddTokenAttributes(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	d.publish(events.UsageEvent{
		RequestID:        requestID,
		CallerKey:        callerKey,
		Tier:             string(tier),
		Model:            entry.Alias,
		Provider:         entry.Provider,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Timestamp:        time.Now().UTC(),
	})

	// Callers only ever see the public alias.
	resp.Model = entry.Alias

	d.logger.Info("request dispatched",
		"request_id", requestID,
		"tier", tier,
		"provider", entry.Provider,
		"model", entry.Alias,
		"total_tokens", resp.Usage.TotalTokens,
		"rate_remaining", remaining)

	return resp, nil
}

// Identify exposes caller classification for the HTTP layer.
func (d *Dispatcher) Identify(bearer, remoteAddr string) (string, domain.Tier) {
	return d.identifier.Identify(bearer, remoteAddr)
}

func (d *Dispatcher) notify(alert notifications.Alert) {
	if d.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := d.notifier.Send(ctx, alert); err != nil {
			d.logger.Error("alert send failed", "type", alert.Type, "error", err)
		}
	}()
}

func (d *Dispatcher) publish(event events.UsageEvent) {
	if d.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := d.publisher.Publish(ctx, event); err != nil {
			d.logger.Error("usage event publish failed", "request_id", event.RequestID, "error", err)
		}
	}()
}
