// Package registry maps public model aliases to provider backends.
// The table is immutable after startup. Credential availability is injected
// as a capability set, so an alias whose provider key is absent resolves
// identically to an alias that does not exist: callers cannot probe which
// providers are configured.
package registry

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// suggestThreshold is the minimum normalized similarity (0-1) for Suggest
// to return a candidate.
const suggestThreshold = 0.3

// Entry maps one public alias to a provider backend.
type Entry struct {
	Alias         string
	Provider      string
	InternalModel string
	// Credential names the capability the entry requires, empty for none.
	Credential string
	// Flags restricts access by tier, e.g. "premium" or "large".
	Flags []string
}

// Restricted reports whether the entry carries any tier restriction.
func (e Entry) Restricted() bool {
	return len(e.Flags) > 0
}

// PremiumOnly reports whether the entry is restricted to premium callers.
func (e Entry) PremiumOnly() bool {
	for _, f := range e.Flags {
		if f == "premium" {
			return true
		}
	}
	return false
}

// Registry is a static alias table. Entries keep declaration order for
// deterministic listing and suggestion tie-breaking.
type Registry struct {
	entries []Entry
	index   map[string]int
	caps    map[string]bool
}

// New builds a registry over the given entries with the set of credential
// names configured at startup.
func New(entries []Entry, capabilities []string) *Registry {
	r := &Registry{
		entries: entries,
		index:   make(map[string]int, len(entries)),
		caps:    make(map[string]bool, len(capabilities)),
	}
	for i, e := range entries {
		if _, dup := r.index[e.Alias]; !dup {
			r.index[e.Alias] = i
		}
	}
	for _, c := range capabilities {
		r.caps[c] = true
	}
	return r
}

// Resolve looks up an alias. It returns false both for an unknown alias and
// for a known alias whose required credential is not configured.
func (r *Registry) Resolve(alias string) (Entry, bool) {
	i, ok := r.index[alias]
	if !ok {
		return Entry{}, false
	}
	e := r.entries[i]
	if !r.available(e) {
		return Entry{}, false
	}
	return e, true
}

// ListAvailable returns the aliases whose required credential is configured,
// in declaration order.
func (r *Registry) ListAvailable() []string {
	aliases := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if r.available(e) {
			aliases = append(aliases, e.Alias)
		}
	}
	return aliases
}

// Suggest returns the closest available alias by normalized Levenshtein
// similarity, or false if no candidate scores at least the threshold.
// Candidates are restricted to the available set so a suggestion is always
// usable by the caller. Ties keep the first-declared candidate.
func (r *Registry) Suggest(alias string) (string, bool) {
	var (
		best      string
		bestScore float64
	)
	needle := strings.ToLower(alias)
	for _, candidate := range r.ListAvailable() {
		score := similarity(needle, strings.ToLower(candidate))
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore < suggestThreshold {
		return "", false
	}
	return best, true
}

func (r *Registry) available(e Entry) bool {
	return e.Credential == "" || r.caps[e.Credential]
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
