package domain

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindCredentialMissing, http.StatusBadRequest},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindDailyQuota, http.StatusForbidden},
		{KindUpstream, http.StatusBadGateway},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Validationf("bad model")); got != KindValidation {
		t.Errorf("KindOf(validation error) = %v, want KindValidation", got)
	}

	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain error) = %v, want KindInternal", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("nvidia", cause)

	if !errors.Is(err, cause) {
		t.Error("Upstream error should wrap its cause")
	}
	if err.Kind != KindUpstream {
		t.Errorf("Kind = %v, want KindUpstream", err.Kind)
	}
}

func TestSuggestionOf(t *testing.T) {
	err := Validationf("model alias %q not found", "axon-gpt4")
	err.Suggestion = "axon-gpt-4"

	if got := SuggestionOf(err); got != "axon-gpt-4" {
		t.Errorf("SuggestionOf() = %q, want %q", got, "axon-gpt-4")
	}
	if got := SuggestionOf(errors.New("plain")); got != "" {
		t.Errorf("SuggestionOf(plain) = %q, want empty", got)
	}
}
