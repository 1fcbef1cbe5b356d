// Package quota enforces per-caller request-rate and daily token limits.
// The rate check uses a fixed 60-second window: bursts that straddle a
// window boundary can momentarily exceed the logical rate, a known
// approximation that keeps the check O(1). Token usage is counted against
// the UTC calendar day and resets on date rollover.
package quota

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/axoninnova/axon-gateway/internal/domain"
)

const rateWindowDuration = 60 * time.Second

// Limits holds the per-tier quota parameters.
type Limits struct {
	RequestsPerMinute int
	TokensPerDay      int
}

// TierLimits returns the quota parameters for a caller tier.
func TierLimits(tier domain.Tier) Limits {
	switch tier {
	case domain.TierGuest:
		return Limits{RequestsPerMinute: 5, TokensPerDay: 2000}
	case domain.TierTest:
		return Limits{RequestsPerMinute: 10, TokensPerDay: 10000}
	default:
		return Limits{RequestsPerMinute: 30, TokensPerDay: 50000}
	}
}

const shardCount = 16

// Manager holds per-caller quota records. State is sharded by caller key
// with one mutex per shard, so concurrent requests from the same caller
// serialize on their shard while distinct callers proceed independently.
// Records live for the process lifetime; state is not persisted.
type Manager struct {
	shards [shardCount]*shard
	now    func() time.Time
}

type shard struct {
	mu    sync.Mutex
	rates map[string]*rateWindow
	usage map[string]*usageWindow
}

type rateWindow struct {
	start time.Time
	count int
}

type usageWindow struct {
	date   string
	tokens int
}

func NewManager() *Manager {
	m := &Manager{now: time.Now}
	for i := range m.shards {
		m.shards[i] = &shard{
			rates: make(map[string]*rateWindow),
			usage: make(map[string]*usageWindow),
		}
	}
	return m
}

func (m *Manager) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

// CheckRate performs the check-and-increment for the caller's fixed
// 60-second request window. A denied request does not consume a slot.
func (m *Manager) CheckRate(key string, tier domain.Tier) (allowed bool, remaining int, resetAt time.Time) {
	limit := TierLimits(tier).RequestsPerMinute
	now := m.now()

	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.rates[key]
	if !ok || now.Sub(w.start) > rateWindowDuration {
		s.rates[key] = &rateWindow{start: now, count: 1}
		return true, limit - 1, now.Add(rateWindowDuration)
	}

	resetAt = w.start.Add(rateWindowDuration)
	if w.count >= limit {
		return false, 0, resetAt
	}

	w.count++
	return true, limit - w.count, resetAt
}

// CheckUsage reports whether the caller may start a request under its daily
// token cap. It does not consume tokens; RecordUsage bills after the
// provider call succeeds, so callers are pre-empted before the gateway pays
// for an upstream call but are charged only for actual usage.
func (m *Manager) CheckUsage(key string, tier domain.Tier) bool {
	limit := TierLimits(tier).TokensPerDay
	today := m.today()

	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usage[key]
	if !ok || u.date != today {
		s.usage[key] = &usageWindow{date: today}
		return true
	}

	return u.tokens < limit
}

// RecordUsage adds tokens to the caller's total for today, resetting the
// counter first if the stored record is from a previous day.
func (m *Manager) RecordUsage(key string, tokens int) {
	today := m.today()

	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usage[key]
	if !ok || u.date != today {
		s.usage[key] = &usageWindow{date: today, tokens: tokens}
		return
	}

	u.tokens += tokens
}

func (m *Manager) today() string {
	return m.now().UTC().Format("2006-01-02")
}
