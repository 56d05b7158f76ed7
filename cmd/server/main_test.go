// End-to-end tests: browser → API → dispatcher → adapters → (relay) → fake providers.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-svg-arena/internal/adapter"
	"github.com/hpn/hpn-svg-arena/internal/config"
	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/hpn/hpn-svg-arena/internal/svg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	circleSVG = `<svg viewBox="0 0 512 512"><circle cx="256" cy="256" r="100" fill="red"/></svg>`
	squareSVG = `<svg viewBox="0 0 512 512"><rect width="200" height="200"/></svg>`
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// SETUP HELPERS
// ============================================================================

// syncBuffer collects log output written from server goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeOpenAI answers chat completions with a fenced circle.
func fakeOpenAI(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer sk-"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "Here you go:\n```xml\n" + circleSVG + "\n```"}},
			},
		})
	}))
}

// fakeAnthropic is the upstream Messages API the relay talks to.
func fakeAnthropic(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(adapter.AnthropicMessagesResponse{
			Content: []adapter.AnthropicContentBlock{{Type: "text", Text: squareSVG}},
		})
	}))
}

// fakeGemini always reports a rate limit.
func fakeGemini(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"rate limited","status":"RESOURCE_EXHAUSTED"}}`))
	}))
}

func testConfig(openaiURL, anthropicURL, geminiURL string) *config.Configuration {
	return &config.Configuration{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		Providers: config.ProvidersConfig{
			TimeoutSeconds: 5,
			OpenAI:         config.OpenAIConfig{BaseURL: openaiURL},
			Anthropic: config.AnthropicConfig{
				BaseURL:   anthropicURL,
				Version:   "2023-06-01",
				MaxTokens: 2000,
			},
			Gemini: config.GeminiConfig{BaseURL: geminiURL, Temperature: 0.7, MaxOutputTokens: 2000},
		},
		Models: []config.ModelConfig{
			{Provider: "openai", Model: "gpt-4"},
			{Provider: "anthropic", Model: "claude-3-opus-20240229"},
			{Provider: "gemini", Model: "gemini-1.5-pro"},
		},
		Logging: config.LoggingConfig{Level: "debug", Format: "text"},
		Credentials: config.Credentials{
			OpenAIKey:    "sk-openai-test",
			AnthropicKey: "sk-ant-test",
			GeminiKey:    "AIza-test",
		},
	}
}

// startApp serves newApp on a local listener and points the Anthropic
// adapter at that server's own relay.
func startApp(t *testing.T, cfg *config.Configuration, logs io.Writer) *httptest.Server {
	t.Helper()

	ts := httptest.NewUnstartedServer(nil)
	cfg.Providers.Anthropic.RelayURL = "http://" + ts.Listener.Addr().String() + "/api/claude"

	app, err := newApp(cfg, setupLogger(cfg.Logging, logs), false)
	require.NoError(t, err)

	ts.Config.Handler = app.router
	ts.Start()
	t.Cleanup(func() {
		ts.Close()
		app.dispatcher.Close()
	})
	return ts
}

func getSnapshot(t *testing.T, baseURL string) domain.Snapshot {
	t.Helper()
	resp, err := http.Get(baseURL + "/api/generations")
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap domain.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

// settled reports whether every slot has left the loading state.
func settled(baseURL string) bool {
	resp, err := http.Get(baseURL + "/api/generations")
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var snap domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return false
	}
	return len(snap.Results) > 0 && snap.Pending() == 0
}

func submit(t *testing.T, baseURL, prompt string) domain.Snapshot {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"prompt": prompt})
	resp, err := http.Post(baseURL+"/api/generations", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var snap domain.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

// ============================================================================
// E2E TESTS
// ============================================================================

func TestE2E_FanOut(t *testing.T) {
	openai, anthropic, gemini := fakeOpenAI(t), fakeAnthropic(t), fakeGemini(t)
	defer openai.Close()
	defer anthropic.Close()
	defer gemini.Close()

	logs := &syncBuffer{}
	ts := startApp(t, testConfig(openai.URL, anthropic.URL, gemini.URL), logs)

	snap := submit(t, ts.URL, "a red circle")
	require.Len(t, snap.Results, 3)
	for _, r := range snap.Results {
		assert.True(t, r.IsLoading)
	}

	require.Eventually(t, func() bool {
		return settled(ts.URL)
	}, 5*time.Second, 10*time.Millisecond)

	final := getSnapshot(t, ts.URL)
	assert.Equal(t, snap.SubmissionID, final.SubmissionID)

	gpt := final.Results[0]
	assert.Equal(t, "gpt-4", gpt.ModelName)
	require.NotNil(t, gpt.ImageURL)
	assert.Equal(t, svg.DataURL(circleSVG), *gpt.ImageURL)

	claude := final.Results[1]
	assert.Equal(t, "claude-3-opus-20240229", claude.ModelName)
	require.NotNil(t, claude.ImageURL)
	assert.Equal(t, svg.DataURL(squareSVG), *claude.ImageURL)

	gem := final.Results[2]
	assert.Equal(t, "gemini-1.5-pro", gem.ModelName)
	assert.False(t, gem.IsLoading)
	assert.Nil(t, gem.ImageURL)

	resp, err := http.Get(ts.URL + "/api/generations/0/image")
	require.NoError(t, err)
	defer resp.Body.Close()
	image, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, circleSVG, string(image))

	assert.Contains(t, logs.String(), "rate limited")
}

func TestE2E_MissingRelayKey(t *testing.T) {
	openai, anthropic, gemini := fakeOpenAI(t), fakeAnthropic(t), fakeGemini(t)
	defer openai.Close()
	defer anthropic.Close()
	defer gemini.Close()

	cfg := testConfig(openai.URL, anthropic.URL, gemini.URL)
	cfg.Credentials.AnthropicKey = ""

	logs := &syncBuffer{}
	ts := startApp(t, cfg, logs)

	submit(t, ts.URL, "a red circle")
	require.Eventually(t, func() bool {
		return settled(ts.URL)
	}, 5*time.Second, 10*time.Millisecond)

	final := getSnapshot(t, ts.URL)
	assert.True(t, final.Results[0].Succeeded(), "openai must be unaffected")
	assert.Nil(t, final.Results[1].ImageURL)
	assert.Contains(t, logs.String(), "API key not configured")
}

func TestE2E_RelayTimeoutSurfacesAs504(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	openai, gemini := fakeOpenAI(t), fakeGemini(t)
	defer openai.Close()
	defer gemini.Close()

	cfg := testConfig(openai.URL, slow.URL, gemini.URL)
	cfg.Providers.TimeoutSeconds = 1

	logs := &syncBuffer{}
	ts := startApp(t, cfg, logs)

	submit(t, ts.URL, "a red circle")
	require.Eventually(t, func() bool {
		return settled(ts.URL)
	}, 5*time.Second, 20*time.Millisecond)

	final := getSnapshot(t, ts.URL)
	assert.Nil(t, final.Results[1].ImageURL)
	out := logs.String()
	assert.Contains(t, out, "status=504")
	assert.Contains(t, out, "Claude API took too long to respond")
	assert.NotContains(t, out, "relay client went away")
	assert.NotContains(t, out, "context canceled")

	a := adapter.NewAnthropicAdapter(cfg.RelayURL(), adapter.WithTimeout(cfg.ProviderTimeout()+relayClientMargin))
	_, err := a.Generate(context.Background(), "a red circle", domain.ModelEntry{
		Provider: domain.ProviderAnthropic,
		Model:    "claude-3-opus-20240229",
	})
	var httpErr *adapter.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusGatewayTimeout, httpErr.StatusCode)
}

func TestE2E_LogsAreRedacted(t *testing.T) {
	openai, anthropic, gemini := fakeOpenAI(t), fakeAnthropic(t), fakeGemini(t)
	defer openai.Close()
	defer anthropic.Close()
	defer gemini.Close()

	cfg := testConfig(openai.URL, anthropic.URL, gemini.URL)
	cfg.Credentials.OpenAIKey = "sk-abcdefghijklmnopqrstuvwxyz0123456789"

	logs := &syncBuffer{}
	ts := startApp(t, cfg, logs)

	submit(t, ts.URL, "a red circle")
	require.Eventually(t, func() bool {
		return settled(ts.URL)
	}, 5*time.Second, 10*time.Millisecond)

	assert.NotContains(t, logs.String(), "sk-abcdefghijklmnopqrstuvwxyz0123456789")
	assert.NotContains(t, logs.String(), "sk-ant-test-")
}

func TestE2E_Health(t *testing.T) {
	ts := startApp(t, testConfig("http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1"), io.Discard)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["models"])
}

func TestNewApp_InvalidTable(t *testing.T) {
	cfg := testConfig("", "", "")
	cfg.Models = append(cfg.Models, config.ModelConfig{Provider: "gemini", Model: "gpt-4"})

	_, err := newApp(cfg, setupLogger(cfg.Logging, io.Discard), false)
	var tableErr *domain.TableError
	assert.ErrorAs(t, err, &tableErr)
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7200\n"), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7200, cfg.Server.Port)
	assert.Equal(t, "http://127.0.0.1:7200/api/claude", cfg.RelayURL())
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LoggingConfig
		contains string
		excludes string
	}{
		{"json", config.LoggingConfig{Level: "info", Format: "json"}, `"msg":"hello"`, "debug line"},
		{"text", config.LoggingConfig{Level: "debug", Format: "text"}, "msg=hello", ""},
		{"warn hides info", config.LoggingConfig{Level: "warn", Format: "json"}, "", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := setupLogger(tt.cfg, &buf)
			logger.Debug("debug line")
			logger.Info("hello", "api_key", "sk-secretsecretsecretsecret")

			out := buf.String()
			if tt.contains != "" {
				assert.Contains(t, out, tt.contains)
			}
			if tt.excludes != "" {
				assert.NotContains(t, out, tt.excludes)
			}
			assert.False(t, strings.Contains(out, "sk-secret"), "key leaked: %s", out)
		})
	}
}
