package registry

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type modelsFile struct {
	Models []modelEntry `toml:"models"`
}

type modelEntry struct {
	Alias         string   `toml:"alias"`
	Provider      string   `toml:"provider"`
	InternalModel string   `toml:"internal_model"`
	Credential    string   `toml:"credential"`
	Flags         []string `toml:"flags"`
}

// LoadFile reads a model table from a TOML file. Declaration order in the
// file becomes the registry's declaration order.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) ([]Entry, error) {
	var f modelsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse models file: %w", err)
	}

	entries := make([]Entry, 0, len(f.Models))
	for _, m := range f.Models {
		if m.Alias == "" || m.Provider == "" {
			return nil, fmt.Errorf("model entry %q: alias and provider are required", m.Alias)
		}
		internal := m.InternalModel
		if internal == "" {
			internal = m.Alias
		}
		entries = append(entries, Entry{
			Alias:         m.Alias,
			Provider:      m.Provider,
			InternalModel: internal,
			Credential:    m.Credential,
			Flags:         m.Flags,
		})
	}
	return entries, nil
}

// DefaultEntries is the compiled-in model table used when no models file is
// configured.
func DefaultEntries() []Entry {
	return []Entry{
		{Alias: "llama-3.1", Provider: "nvidia", InternalModel: "meta/llama-3.1-8b-instruct", Credential: "nvidia"},
		{Alias: "axon-gpt-4", Provider: "openai", InternalModel: "gpt-4o", Credential: "openai"},
		{Alias: "axon-gpt-oss", Provider: "groq", InternalModel: "llama-3.1-70b-versatile", Credential: "groq"},
		{Alias: "axon-gemini", Provider: "openrouter", InternalModel: "google/gemini-pro", Credential: "openrouter"},
		{Alias: "axon-mistral-large", Provider: "mistral", InternalModel: "mistral-large-latest", Credential: "mistral", Flags: []string{"premium"}},
		{Alias: "axon-claude", Provider: "bedrock", InternalModel: "anthropic.claude-3-5-sonnet-20241022-v2:0", Credential: "bedrock", Flags: []string{"large"}},
		{Alias: "axon-mock", Provider: "mock", InternalModel: "axon-mock"},
	}
}
