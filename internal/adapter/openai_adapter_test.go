package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/hpn/hpn-svg-arena/internal/svg"
)

var gpt4 = domain.ModelEntry{Provider: domain.ProviderOpenAI, Model: "gpt-4"}

func TestOpenAIAdapter_Generate(t *testing.T) {
	circle := "<svg viewBox='0 0 512 512'><circle r='10'/></svg>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %s, want 'Bearer sk-test'", got)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "gpt-4" {
			t.Errorf("model = %v, want gpt-4", body["model"])
		}
		messages, _ := body["messages"].([]interface{})
		if len(messages) != 1 {
			t.Fatalf("len(messages) = %d, want 1", len(messages))
		}
		msg := messages[0].(map[string]interface{})
		if msg["role"] != "user" {
			t.Errorf("role = %v, want user", msg["role"])
		}
		want := BuildContent("a red circle")
		if msg["content"] != want {
			t.Errorf("content = %v, want %q", msg["content"], want)
		}
		if !strings.HasSuffix(want, "\n\nCreate an SVG drawing of: a red circle") {
			t.Errorf("content suffix wrong: %q", want)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{
					"role":    "assistant",
					"content": "```xml\n" + circle + "\n```",
				}},
			},
		})
	}))
	defer srv.Close()

	a := NewOpenAIAdapter("sk-test", WithBaseURL(srv.URL))
	got, err := a.Generate(context.Background(), "a red circle", gpt4)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != svg.DataURL(circle) {
		t.Errorf("Generate() = %s, want %s", got, svg.DataURL(circle))
	}
}

func TestOpenAIAdapter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(*testing.T, error)
	}{
		{
			name:   "rate limited with message",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"rate limited"}}`,
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				if !errors.As(err, &httpErr) {
					t.Fatalf("error = %v, want *HTTPError", err)
				}
				if httpErr.StatusCode != 429 || httpErr.Message != "rate limited" {
					t.Errorf("HTTPError = %+v", httpErr)
				}
				if !strings.Contains(err.Error(), "rate limited") {
					t.Errorf("Error() = %s, should contain 'rate limited'", err.Error())
				}
			},
		},
		{
			name:   "unparseable error body",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				if !errors.As(err, &httpErr) {
					t.Fatalf("error = %v, want *HTTPError", err)
				}
				if httpErr.Message != "Failed to generate SVG" {
					t.Errorf("Message = %s, want generic failure", httpErr.Message)
				}
			},
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			check: func(t *testing.T, err error) {
				if !IsEmptyResponseError(err) {
					t.Errorf("error = %v, want EmptyResponseError", err)
				}
			},
		},
		{
			name:   "whitespace content",
			status: http.StatusOK,
			body:   `{"choices":[{"message":{"role":"assistant","content":"   \n"}}]}`,
			check: func(t *testing.T, err error) {
				if !IsEmptyResponseError(err) {
					t.Errorf("error = %v, want EmptyResponseError", err)
				}
			},
		},
		{
			name:   "text without svg",
			status: http.StatusOK,
			body:   `{"choices":[{"message":{"role":"assistant","content":"I can't draw."}}]}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, svg.ErrNoSVGFound) {
					t.Errorf("error = %v, want ErrNoSVGFound", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			a := NewOpenAIAdapter("sk-test", WithBaseURL(srv.URL))
			_, err := a.Generate(context.Background(), "p", gpt4)
			if err == nil {
				t.Fatal("Generate() error = nil")
			}
			tt.check(t, err)
		})
	}
}

func TestOpenAIAdapter_MissingKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	a := NewOpenAIAdapter("", WithBaseURL(srv.URL))
	_, err := a.Generate(context.Background(), "p", gpt4)
	if !IsConfigError(err) {
		t.Fatalf("Generate() error = %v, want ConfigError", err)
	}
	if called {
		t.Error("provider was called without a credential")
	}
}

func TestOpenAIAdapter_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := NewOpenAIAdapter("sk-test", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := a.Generate(context.Background(), "p", gpt4)
	if !IsTimeoutError(err) {
		t.Fatalf("Generate() error = %v, want TimeoutError", err)
	}
}

func TestOpenAIAdapter_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewOpenAIAdapter("sk-test", WithBaseURL(srv.URL))
	_, err := a.Generate(ctx, "p", gpt4)
	if err == nil {
		t.Fatal("Generate() error = nil")
	}
	if IsTimeoutError(err) {
		t.Errorf("canceled call reported as timeout: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want wrapped context.Canceled", err)
	}
}
