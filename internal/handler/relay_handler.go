package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-svg-arena/internal/adapter"
	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/hpn/hpn-svg-arena/internal/metrics"
)

// Relay error messages returned to the browser.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgNoAPIKey         = "API key not configured"
	msgInvalidBody      = "Invalid request body: model and content are required"
	msgUpstreamFailed   = "Failed to generate SVG with Claude"
	msgProxyFailed      = "Failed to proxy request to Claude"
	msgTimeout          = "Request timeout - Claude API took too long to respond"
)

// DefaultRelayMaxTokens is the upstream max_tokens when the caller sends none.
const DefaultRelayMaxTokens = 2000

// maxUpstreamBytes caps how much of an upstream response is buffered.
const maxUpstreamBytes = 8 << 20

// statusClientClosed labels relay requests abandoned by the caller.
const statusClientClosed = 499

// RelayHandler forwards Anthropic-style requests upstream with the
// server-held credential. It performs no retries and no extraction.
type RelayHandler struct {
	apiKey     string
	baseURL    string
	version    string
	maxTokens  int
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// RelayOption is a functional option for configuring RelayHandler.
type RelayOption func(*RelayHandler)

// WithUpstreamURL overrides the Messages API base URL.
func WithUpstreamURL(url string) RelayOption {
	return func(h *RelayHandler) {
		if url != "" {
			h.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithAPIVersion overrides the anthropic-version header.
func WithAPIVersion(version string) RelayOption {
	return func(h *RelayHandler) {
		if version != "" {
			h.version = version
		}
	}
}

// WithMaxTokens sets the default upstream max_tokens.
func WithMaxTokens(n int) RelayOption {
	return func(h *RelayHandler) {
		if n > 0 {
			h.maxTokens = n
		}
	}
}

// WithRelayTimeout bounds the upstream call.
func WithRelayTimeout(timeout time.Duration) RelayOption {
	return func(h *RelayHandler) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// WithRelayHTTPClient sets a custom HTTP client.
func WithRelayHTTPClient(client *http.Client) RelayOption {
	return func(h *RelayHandler) {
		h.httpClient = client
	}
}

// WithRelayLogger sets a custom logger.
func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(h *RelayHandler) {
		h.logger = logger
	}
}

// NewRelayHandler creates a relay holding apiKey. An empty key is allowed;
// every request then fails with 500 "API key not configured".
func NewRelayHandler(apiKey string, opts ...RelayOption) *RelayHandler {
	h := &RelayHandler{
		apiKey:     apiKey,
		baseURL:    adapter.DefaultAnthropicBaseURL,
		version:    adapter.AnthropicVersion,
		maxTokens:  DefaultRelayMaxTokens,
		timeout:    adapter.DefaultTimeout,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleRelay handles every method on the relay path. Preflight is answered
// by CORSMiddleware before this runs.
func (h *RelayHandler) HandleRelay(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		h.fail(c, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	if h.apiKey == "" {
		h.fail(c, http.StatusInternalServerError, msgNoAPIKey)
		return
	}

	var req adapter.RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Model == "" || req.Content == "" {
		h.fail(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	maxTokens := h.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	body, status, err := h.forward(c.Request.Context(), adapter.AnthropicMessagesRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		Messages:  []adapter.AnthropicMessage{{Role: "user", Content: req.Content}},
	})
	if err != nil && errors.Is(c.Request.Context().Err(), context.Canceled) {
		h.logger.Warn("relay client went away",
			slog.String("model", req.Model),
			slog.String("request_id", c.GetString(requestIDKey)),
		)
		metrics.RelayRequestsTotal.WithLabelValues(strconv.Itoa(statusClientClosed)).Inc()
		c.Abort()
		return
	}
	if err != nil {
		h.logger.Error("relay upstream failed",
			slog.String("model", req.Model),
			slog.Int("status", status),
			slog.String("error", err.Error()),
			slog.String("request_id", c.GetString(requestIDKey)),
		)
		if adapter.IsTimeoutError(err) {
			h.fail(c, http.StatusGatewayTimeout, msgTimeout)
			return
		}
		var httpErr *adapter.HTTPError
		if errors.As(err, &httpErr) {
			h.fail(c, http.StatusInternalServerError, httpErr.Message)
			return
		}
		h.fail(c, http.StatusInternalServerError, msgProxyFailed)
		return
	}

	metrics.RelayRequestsTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	c.Data(http.StatusOK, "application/json", body)
}

// forward performs the upstream call and returns the raw success body.
func (h *RelayHandler) forward(ctx context.Context, payload adapter.AnthropicMessagesRequest) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/messages", bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", h.apiKey)
	req.Header.Set("anthropic-version", h.version)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, 0, h.classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBytes))
	if err != nil {
		return nil, resp.StatusCode, h.classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := adapter.ErrorMessage(body)
		if msg == "" {
			msg = msgUpstreamFailed
		}
		return nil, resp.StatusCode, &adapter.HTTPError{
			Provider:   domain.ProviderAnthropic,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	return body, resp.StatusCode, nil
}

func (h *RelayHandler) classify(ctx context.Context, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &adapter.TimeoutError{Provider: domain.ProviderAnthropic, After: h.timeout}
	}
	return err
}

func (h *RelayHandler) fail(c *gin.Context, status int, message string) {
	metrics.RelayRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
