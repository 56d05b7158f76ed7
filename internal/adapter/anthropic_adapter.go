package adapter

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hpn/hpn-svg-arena/internal/domain"
)

const (
	// DefaultRelayURL is where the same-origin relay listens by default.
	DefaultRelayURL = "http://127.0.0.1:8080/api/claude"

	// DefaultAnthropicBaseURL is the upstream Messages API used by the relay.
	DefaultAnthropicBaseURL = "https://api.anthropic.com"

	// AnthropicVersion is sent as the anthropic-version header.
	AnthropicVersion = "2023-06-01"
)

// relayWire posts to the relay, which holds the Anthropic key server-side.
// The relay answers with the upstream envelope unchanged.
type relayWire struct {
	relayURL string
}

// NewAnthropicAdapter creates the Anthropic-style adapter. relayURL defaults
// to DefaultRelayURL when empty; WithBaseURL also overrides it.
func NewAnthropicAdapter(relayURL string, opts ...Option) *Adapter {
	if relayURL == "" {
		relayURL = DefaultRelayURL
	}
	s := newSettings(relayURL, opts)
	wire := &relayWire{relayURL: s.baseURL}
	return newAdapter(domain.ProviderAnthropic, wire, "Failed to generate SVG with Claude", s)
}

func (w *relayWire) BuildRequest(ctx context.Context, content string, entry domain.ModelEntry) (*http.Request, error) {
	return newJSONRequest(ctx, w.relayURL, RelayRequest{
		Model:     entry.Model,
		Content:   content,
		MaxTokens: entry.Params.MaxTokens,
	})
}

func (w *relayWire) LocateText(body []byte) (string, error) {
	var resp AnthropicMessagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", nil
	}
	return resp.Content[0].Text, nil
}

// ============================================================================
// Relay and Anthropic API Types
// ============================================================================

// RelayRequest is the body the relay endpoint accepts.
type RelayRequest struct {
	Model   string `json:"model"`
	Content string `json:"content"`

	// MaxTokens overrides the relay's default cap when positive.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// AnthropicMessage is one turn of a Messages API conversation.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicMessagesRequest is the upstream Messages API request.
type AnthropicMessagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []AnthropicMessage `json:"messages"`
}

// AnthropicContentBlock is one block of generated content.
type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AnthropicMessagesResponse is the upstream Messages API response.
type AnthropicMessagesResponse struct {
	Content []AnthropicContentBlock `json:"content"`
}
