// Package adapter provides implementations for external AI provider integrations.
// Every provider is driven through one HTTP pipeline; a provider only supplies
// its Wire, which knows how to build the request and where the generated text
// lives in the response envelope.
package adapter

import (
	"context"
	"net/http"

	"github.com/hpn/hpn-svg-arena/internal/domain"
)

// Generator produces an SVG data URL for a prompt.
// All provider adapters satisfy this interface.
type Generator interface {
	// Generate asks the model named by entry to draw prompt and returns a
	// data:image/svg+xml;base64 URL.
	Generate(ctx context.Context, prompt string, entry domain.ModelEntry) (string, error)

	// Name returns the provider's identifier string.
	Name() string
}

// Wire is the provider-specific half of the pipeline.
type Wire interface {
	// BuildRequest creates the HTTP request carrying content for entry.
	// It returns a *ConfigError when a required credential is missing.
	BuildRequest(ctx context.Context, content string, entry domain.ModelEntry) (*http.Request, error)

	// LocateText pulls the generated text out of a successful response body.
	// An absent text field is reported as "" with a nil error.
	LocateText(body []byte) (string, error)
}
