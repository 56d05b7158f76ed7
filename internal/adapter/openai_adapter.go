package adapter

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIBaseURL is the default OpenAI API endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIWire speaks the chat-completions protocol. Request and response
// shapes come from go-openai so the wire contract tracks the upstream SDK.
type openAIWire struct {
	apiKey  string
	baseURL string
}

// NewOpenAIAdapter creates the OpenAI-style adapter. An empty apiKey is not an
// error here; every Generate call then fails with a ConfigError.
func NewOpenAIAdapter(apiKey string, opts ...Option) *Adapter {
	s := newSettings(DefaultOpenAIBaseURL, opts)
	wire := &openAIWire{apiKey: apiKey, baseURL: s.baseURL}
	return newAdapter(domain.ProviderOpenAI, wire, "Failed to generate SVG", s)
}

func (w *openAIWire) BuildRequest(ctx context.Context, content string, entry domain.ModelEntry) (*http.Request, error) {
	if w.apiKey == "" {
		return nil, &ConfigError{Provider: domain.ProviderOpenAI, Setting: "API key"}
	}

	payload := openai.ChatCompletionRequest{
		Model: entry.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	}

	req, err := newJSONRequest(ctx, w.baseURL+"/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	return req, nil
}

func (w *openAIWire) LocateText(body []byte) (string, error) {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
