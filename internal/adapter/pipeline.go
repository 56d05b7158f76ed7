package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/hpn/hpn-svg-arena/internal/svg"
)

const (
	// DefaultTimeout bounds every provider call, relay included.
	DefaultTimeout = 50 * time.Second

	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 8 << 20
)

// Instruction is the fixed drawing brief prepended to every prompt.
const Instruction = `You are an SVG generation expert. Create a simple, clean SVG code for the given prompt.
- Generate the SVG code wrapped in ` + "```xml" + ` code blocks
- Use a 512x512 viewBox
- Keep the design minimal and clean
- Use appropriate colors
- Make sure the SVG is valid and can be rendered directly
- Include helpful comments in the SVG code
- You may include a brief description of what you created`

// BuildContent renders the user message sent to every provider.
func BuildContent(prompt string) string {
	return Instruction + "\n\nCreate an SVG drawing of: " + prompt
}

// settings collects option values before a wire is built.
type settings struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	temperature *float64
	maxTokens   int
	logger      *slog.Logger
}

// Option is a functional option shared by all provider constructors.
type Option func(*settings)

// WithBaseURL overrides the provider endpoint (the relay URL for Anthropic).
func WithBaseURL(url string) Option {
	return func(s *settings) {
		s.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.timeout = timeout
	}
}

// WithGenerationDefaults sets the sampling temperature and token cap used when
// a model entry does not override them.
func WithGenerationDefaults(temperature float64, maxTokens int) Option {
	return func(s *settings) {
		s.temperature = &temperature
		s.maxTokens = maxTokens
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func newSettings(defaultBaseURL string, opts []Option) settings {
	s := settings{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Adapter runs the shared call-and-extract pipeline for one provider.
type Adapter struct {
	provider       domain.ProviderType
	wire           Wire
	httpClient     *http.Client
	timeout        time.Duration
	failureMessage string
	logger         *slog.Logger
}

var _ Generator = (*Adapter)(nil)

// NewAdapter builds a pipeline around wire. failureMessage is surfaced when
// an error response carries no parseable message.
func NewAdapter(provider domain.ProviderType, wire Wire, failureMessage string, opts ...Option) *Adapter {
	s := newSettings("", opts)
	return newAdapter(provider, wire, failureMessage, s)
}

func newAdapter(provider domain.ProviderType, wire Wire, failureMessage string, s settings) *Adapter {
	return &Adapter{
		provider:       provider,
		wire:           wire,
		httpClient:     s.httpClient,
		timeout:        s.timeout,
		failureMessage: failureMessage,
		logger:         s.logger,
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return string(a.provider)
}

// Generate performs one POST, locates the generated text, extracts the SVG
// element and returns it as a data URL.
func (a *Adapter) Generate(ctx context.Context, prompt string, entry domain.ModelEntry) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := a.wire.BuildRequest(ctx, BuildContent(prompt), entry)
	if err != nil {
		return "", err
	}

	a.logger.Debug("provider request",
		slog.String("provider", a.Name()),
		slog.String("model", entry.Model),
	)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", a.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", a.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ErrorMessage(body)
		if msg == "" {
			msg = a.failureMessage
		}
		return "", &HTTPError{Provider: a.provider, StatusCode: resp.StatusCode, Message: msg}
	}

	text, err := a.wire.LocateText(body)
	if err != nil {
		return "", fmt.Errorf("%s: decode response: %w", a.provider, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &EmptyResponseError{Provider: a.provider}
	}

	markup, err := svg.Extract(text)
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.provider, err)
	}
	return svg.DataURL(markup), nil
}

// transportError classifies a failed round trip. The request URL is cut at
// the query string, which carries the Gemini key.
func (a *Adapter) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isNetTimeout(err) {
		return &TimeoutError{Provider: a.provider, After: a.timeout}
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL, _, _ = strings.Cut(ue.URL, "?")
	}
	return fmt.Errorf("%s: request: %w", a.provider, err)
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ErrorMessage returns the message of an error envelope. Both
// {"error":{"message":"..."}} and {"error":"..."} are understood; anything
// else yields "".
func ErrorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(envelope.Error, &plain); err == nil {
		return plain
	}

	var detail struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		return detail.Message
	}
	return ""
}

// newJSONRequest marshals payload and builds a POST request to url.
func newJSONRequest(ctx context.Context, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
