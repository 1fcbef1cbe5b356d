package identity

import (
	"testing"

	"github.com/axoninnova/axon-gateway/internal/domain"
)

func TestIdentify(t *testing.T) {
	id := NewIdentifier("axn_test_123")

	tests := []struct {
		name       string
		bearer     string
		remoteAddr string
		wantTier   domain.Tier
	}{
		{"no credential is guest", "", "203.0.113.7:4821", domain.TierGuest},
		{"test secret is test tier", "axn_test_123", "203.0.113.7:4821", domain.TierTest},
		{"any other token is premium", "axn_live_abc", "203.0.113.7:4821", domain.TierPremium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, tier := id.Identify(tt.bearer, tt.remoteAddr)
			if tier != tt.wantTier {
				t.Errorf("tier = %v, want %v", tier, tt.wantTier)
			}
			if key == "" {
				t.Error("key should never be empty")
			}
		})
	}
}

func TestIdentifyGuestKeyedByAddress(t *testing.T) {
	id := NewIdentifier("axn_test_123")

	key1, _ := id.Identify("", "203.0.113.7:4821")
	key2, _ := id.Identify("", "203.0.113.7:4821")
	key3, _ := id.Identify("", "198.51.100.2:9000")

	if key1 != key2 {
		t.Error("same address should produce the same guest key")
	}
	if key1 == key3 {
		t.Error("different addresses should produce different guest keys")
	}
}

func TestIdentifyKeyStableAndOpaque(t *testing.T) {
	id := NewIdentifier("axn_test_123")

	key1, _ := id.Identify("axn_live_abc", "203.0.113.7:4821")
	key2, _ := id.Identify("axn_live_abc", "198.51.100.2:9000")

	if key1 != key2 {
		t.Error("credentialed key should not depend on network address")
	}
	if key1 == "key:axn_live_abc" {
		t.Error("caller key should not contain the raw token")
	}
}

func TestIdentifyEmptyTestSecretNeverMatchesTest(t *testing.T) {
	id := NewIdentifier("")

	_, tier := id.Identify("", "203.0.113.7:4821")
	if tier != domain.TierGuest {
		t.Errorf("tier = %v, want guest", tier)
	}
}
