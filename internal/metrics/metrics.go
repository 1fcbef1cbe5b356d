package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axongateway_requests_total",
			Help: "Total number of chat requests processed",
		},
		[]string{"tier", "provider", "model", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axongateway_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"tier", "provider", "model"},
	)

	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axongateway_tokens_total",
			Help: "Total number of tokens billed against caller quotas",
		},
		[]string{"tier", "model", "type"},
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axongateway_quota_rejections_total",
			Help: "Requests rejected by quota checks",
		},
		[]string{"tier", "kind"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axongateway_provider_errors_total",
			Help: "Total number of provider errors",
		},
		[]string{"provider", "error_type"},
	)

	SuggestionAdoptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axongateway_suggestion_adoptions_total",
			Help: "Model alias misses recovered by fuzzy suggestion",
		},
		[]string{"model"},
	)
)

func RecordRequest(tier, provider, model, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(tier, provider, model, status).Inc()
	RequestDuration.WithLabelValues(tier, provider, model).Observe(durationSec)
}

func RecordTokens(tier, model string, promptTokens, completionTokens int) {
	TokensTotal.WithLabelValues(tier, model, "prompt").Add(float64(promptTokens))
	TokensTotal.WithLabelValues(tier, model, "completion").Add(float64(completionTokens))
}

func RecordQuotaRejection(tier, kind string) {
	QuotaRejections.WithLabelValues(tier, kind).Inc()
}

func RecordProviderError(provider, errorType string) {
	ProviderErrors.WithLabelValues(provider, errorType).Inc()
}

func RecordSuggestionAdoption(model string) {
	SuggestionAdoptions.WithLabelValues(model).Inc()
}
