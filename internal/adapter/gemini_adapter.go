package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hpn/hpn-svg-arena/internal/domain"
)

const (
	// DefaultGeminiBaseURL is the default Gemini API endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiTemperature is the sampling temperature used when an entry sets none.
	DefaultGeminiTemperature = 0.7

	// DefaultMaxOutputTokens caps Gemini and Anthropic completions.
	DefaultMaxOutputTokens = 2000
)

// geminiWire calls generateContent directly with the key as a query parameter.
type geminiWire struct {
	apiKey      string
	baseURL     string
	temperature float64
	maxTokens   int
}

// NewGeminiAdapter creates the Gemini-style adapter. An empty apiKey makes
// every Generate call fail with a ConfigError.
func NewGeminiAdapter(apiKey string, opts ...Option) *Adapter {
	s := newSettings(DefaultGeminiBaseURL, opts)
	wire := &geminiWire{
		apiKey:      apiKey,
		baseURL:     s.baseURL,
		temperature: DefaultGeminiTemperature,
		maxTokens:   DefaultMaxOutputTokens,
	}
	if s.temperature != nil {
		wire.temperature = *s.temperature
	}
	if s.maxTokens > 0 {
		wire.maxTokens = s.maxTokens
	}
	return newAdapter(domain.ProviderGemini, wire, "Failed to generate SVG with Gemini", s)
}

func (w *geminiWire) BuildRequest(ctx context.Context, content string, entry domain.ModelEntry) (*http.Request, error) {
	if w.apiKey == "" {
		return nil, &ConfigError{Provider: domain.ProviderGemini, Setting: "API key"}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		w.baseURL, url.PathEscape(entry.Model), url.QueryEscape(w.apiKey))
	return newJSONRequest(ctx, endpoint, w.mapToGeminiRequest(content, entry.Params))
}

// mapToGeminiRequest builds the generateContent body, applying per-entry overrides.
func (w *geminiWire) mapToGeminiRequest(content string, params domain.GenerationParams) GeminiRequest {
	temperature := w.temperature
	if params.Temperature != nil {
		temperature = *params.Temperature
	}
	maxTokens := w.maxTokens
	if params.MaxTokens > 0 {
		maxTokens = params.MaxTokens
	}

	return GeminiRequest{
		Contents: []GeminiContent{
			{
				Role:  "user",
				Parts: []GeminiPart{{Text: content}},
			},
		},
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
}

func (w *geminiWire) LocateText(body []byte) (string, error) {
	var resp GeminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// ============================================================================
// Gemini API Types
// ============================================================================

// GeminiRequest represents a Gemini generateContent request.
type GeminiRequest struct {
	Contents         []GeminiContent        `json:"contents"`
	GenerationConfig GeminiGenerationConfig `json:"generationConfig"`
}

// GeminiContent represents a content block in Gemini format.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of a content block.
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiGenerationConfig contains generation parameters.
type GeminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GeminiResponse represents a Gemini generateContent response.
type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

// GeminiCandidate represents a single generated candidate.
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}
