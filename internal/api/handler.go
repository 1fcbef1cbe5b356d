// Package api exposes the gateway over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/axoninnova/axon-gateway/internal/domain"
	"github.com/axoninnova/axon-gateway/internal/gateway"
	"github.com/axoninnova/axon-gateway/internal/metrics"
	"github.com/axoninnova/axon-gateway/internal/registry"
)

type HandlerConfig struct {
	Dispatcher *gateway.Dispatcher
	Registry   *registry.Registry
	Version    string
}

type Handler struct {
	dispatcher *gateway.Dispatcher
	registry   *registry.Registry
	version    string
	mux        *http.ServeMux
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		dispatcher: cfg.Dispatcher,
		registry:   cfg.Registry,
		version:    cfg.Version,
		mux:        http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /{$}", h.handleWelcome)
	h.mux.HandleFunc("POST /v1/chat", h.handleChat)
	h.mux.HandleFunc("GET /v1/models", h.handleListModels)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		writeError(w, http.StatusBadRequest, "temperature must be between 0.0 and 2.0")
		return
	}

	requestedModel := req.Model
	bearer := extractAPIKey(r)
	_, tier := h.dispatcher.Identify(bearer, clientAddr(r))

	resp, err := h.dispatcher.Dispatch(ctx, requestID, bearer, clientAddr(r), &req)
	if err != nil {
		kind := domain.KindOf(err)
		status := kind.HTTPStatus()

		message := err.Error()
		if kind == domain.KindUpstream || kind == domain.KindInternal {
			// Upstream detail stays in the server logs only.
			message = "provider request failed"
			slog.Error("dispatch failed", "request_id", requestID, "error", err)
		}

		suggestion := domain.SuggestionOf(err)
		if suggestion == "" && kind == domain.KindValidation && strings.Contains(message, "not found") {
			if s, found := h.registry.Suggest(requestedModel); found {
				suggestion = s
			}
		}
		if suggestion != "" {
			message = fmt.Sprintf("%s. Did you mean %q?", message, suggestion)
		}

		metrics.RecordRequest(string(tier), "none", requestedModel, kind.String(), time.Since(start).Seconds())
		writeErrorSuggestion(w, status, message, suggestion)
		return
	}

	providerName := "unknown"
	if entry, ok := h.registry.Resolve(resp.Model); ok {
		providerName = entry.Provider
	}
	metrics.RecordRequest(string(tier), providerName, resp.Model, "ok", time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	aliases := h.registry.ListAvailable()
	out := domain.ModelsResponse{
		Object: "list",
		Data:   make([]domain.Model, 0, len(aliases)),
	}
	for _, alias := range aliases {
		out.Data = append(out.Data, domain.Model{
			ID:      alias,
			Object:  "model",
			OwnedBy: "axoninnova",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

func (h *Handler) handleWelcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service": "AxonNexus Gateway",
		"version": h.version,
		"endpoints": []string{
			"POST /v1/chat",
			"GET /v1/models",
			"GET /health",
			"GET /metrics",
		},
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// clientAddr is the quota fallback key for anonymous callers, so the
// ephemeral port must not be part of it.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeErrorSuggestion(w, status, message, "")
}

func writeErrorSuggestion(w http.ResponseWriter, status int, message, suggestion string) {
	body := map[string]any{
		"message": message,
		"type":    "error",
		"code":    status,
	}
	if suggestion != "" {
		body["suggestion"] = suggestion
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": body})
}
