// Package identity derives a stable caller key and tier classification from
// the inbound credential. Callers without a credential are guests keyed by
// network address; the shared test secret marks the test tier; any other
// non-empty credential is treated as premium. Premium credentials are not
// cryptographically validated.
package identity

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/axoninnova/axon-gateway/internal/domain"
)

type Identifier struct {
	testSecret string
}

func NewIdentifier(testSecret string) *Identifier {
	return &Identifier{testSecret: testSecret}
}

// Identify classifies a caller. It always succeeds.
func (i *Identifier) Identify(bearer, remoteAddr string) (string, domain.Tier) {
	if bearer == "" {
		return "ip:" + remoteAddr, domain.TierGuest
	}
	if i.testSecret != "" && bearer == i.testSecret {
		return "key:" + hashToken(bearer), domain.TierTest
	}
	return "key:" + hashToken(bearer), domain.TierPremium
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
