// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the application.
package domain

import (
	"fmt"
	"strings"
)

// ProviderType identifies which adapter family serves a model (e.g., OpenAI, Anthropic, Gemini).
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderGemini    ProviderType = "gemini"
)

// Providers lists every supported provider in display order.
var Providers = []ProviderType{ProviderOpenAI, ProviderAnthropic, ProviderGemini}

// IsValid reports whether p is one of the supported providers.
func (p ProviderType) IsValid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// GenerationParams carries per-entry endpoint parameters. Zero values mean
// "use the adapter default".
type GenerationParams struct {
	// Temperature is forwarded to providers that accept it (Gemini).
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens caps the completion length (Anthropic max_tokens, Gemini maxOutputTokens).
	MaxTokens int `json:"max_tokens,omitempty"`
}

// ModelEntry is one (provider, model) pair the dispatcher fans a prompt out to.
type ModelEntry struct {
	// Provider is the adapter family serving this model.
	Provider ProviderType `json:"provider" mapstructure:"provider"`

	// Model is the provider-side model identifier.
	Model string `json:"model" mapstructure:"model"`

	// Params overrides the adapter's generation defaults for this entry.
	Params GenerationParams `json:"-"`
}

// RoutingError is returned when a model id belongs to no provider group.
type RoutingError struct {
	Model string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("model %q is not routed to any provider", e.Model)
}

// TableError reports a model table that cannot route unambiguously.
type TableError struct {
	Problems []string
}

func (e *TableError) Error() string {
	return "invalid model table: " + strings.Join(e.Problems, "; ")
}

// ModelTable is the immutable, ordered list of model entries for a deployment.
// Result slots are index-aligned with Entries.
type ModelTable struct {
	entries []ModelEntry
	routes  map[string]ProviderType
}

// NewModelTable validates entries and builds the routing lookup.
// Every model id must map to exactly one provider; the same (provider, model)
// pair may appear more than once.
func NewModelTable(entries []ModelEntry) (*ModelTable, error) {
	t := &ModelTable{
		entries: make([]ModelEntry, len(entries)),
		routes:  make(map[string]ProviderType, len(entries)),
	}
	copy(t.entries, entries)

	var problems []string
	for i, e := range entries {
		if e.Model == "" {
			problems = append(problems, fmt.Sprintf("models[%d].model is required", i))
			continue
		}
		if !e.Provider.IsValid() {
			problems = append(problems, fmt.Sprintf("models[%d].provider %q is unknown", i, e.Provider))
			continue
		}
		if existing, ok := t.routes[e.Model]; ok && existing != e.Provider {
			problems = append(problems, fmt.Sprintf("model %q is claimed by both %s and %s", e.Model, existing, e.Provider))
			continue
		}
		t.routes[e.Model] = e.Provider
	}

	if len(problems) > 0 {
		return nil, &TableError{Problems: problems}
	}
	return t, nil
}

// DefaultModelEntries returns the stock model line-up.
func DefaultModelEntries() []ModelEntry {
	return []ModelEntry{
		{Provider: ProviderOpenAI, Model: "gpt-3.5-turbo"},
		{Provider: ProviderOpenAI, Model: "gpt-4"},
		{Provider: ProviderOpenAI, Model: "o1-mini"},
		{Provider: ProviderOpenAI, Model: "o1-preview"},
		{Provider: ProviderAnthropic, Model: "claude-3-opus-20240229"},
		{Provider: ProviderAnthropic, Model: "claude-3-sonnet-20240229"},
		{Provider: ProviderGemini, Model: "gemini-1.5-pro"},
	}
}

// Route returns the provider serving model.
func (t *ModelTable) Route(model string) (ProviderType, error) {
	p, ok := t.routes[model]
	if !ok {
		return "", &RoutingError{Model: model}
	}
	return p, nil
}

// Entries returns a copy of the ordered entries.
func (t *ModelTable) Entries() []ModelEntry {
	out := make([]ModelEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of configured entries.
func (t *ModelTable) Len() int {
	return len(t.entries)
}

// ProvidersInUse returns the distinct providers referenced by the table, in first-use order.
func (t *ModelTable) ProvidersInUse() []ProviderType {
	seen := make(map[ProviderType]struct{})
	var out []ProviderType
	for _, e := range t.entries {
		if _, ok := seen[e.Provider]; ok {
			continue
		}
		seen[e.Provider] = struct{}{}
		out = append(out, e.Provider)
	}
	return out
}
