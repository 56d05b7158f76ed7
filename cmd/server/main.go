// Package main is the entry point for the svg-arena server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-svg-arena/internal/adapter"
	"github.com/hpn/hpn-svg-arena/internal/config"
	"github.com/hpn/hpn-svg-arena/internal/dispatcher"
	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/hpn/hpn-svg-arena/internal/handler"
	"github.com/hpn/hpn-svg-arena/internal/security"
	"github.com/hpn/hpn-svg-arena/internal/ui"
)

// relayClientMargin keeps the Anthropic adapter waiting longer than the relay,
// so a relay timeout reaches it as a 504 instead of a local timeout.
const relayClientMargin = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a config file (default: search ., ./configs, /etc/svg-arena)")
	flag.Parse()

	ui.PrintBanner()

	// =========================================================================
	// 1. Load configuration (.env, environment, config.yaml)
	// =========================================================================
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// 2. Setup structured logger with redaction
	// =========================================================================
	logger := setupLogger(cfg.Logging, os.Stdout)

	logger.Info("configuration loaded",
		slog.String("address", cfg.Address()),
		slog.Int("models", len(cfg.Models)),
		slog.Duration("provider_timeout", cfg.ProviderTimeout()),
		slog.Int("max_concurrency", cfg.Dispatch.MaxConcurrency),
	)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// =========================================================================
	// 3. Wire adapters, dispatcher and HTTP surface
	// =========================================================================
	app, err := newApp(cfg, logger, true)
	if err != nil {
		logger.Error("failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, p := range cfg.Credentials.Missing(app.dispatcher.Table().ProvidersInUse()) {
		logger.Warn("provider credential missing", slog.String("provider", string(p)))
		ui.PrintMissingCredential(p)
	}

	// =========================================================================
	// 4. Start HTTP server with graceful shutdown
	// =========================================================================
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      app.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("address", srv.Addr))
		ui.PrintStartupInfo(srv.Addr, app.dispatcher.Table().Entries())

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	app.dispatcher.Close()

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

// loadConfig reads the explicit file when one is given, else searches the
// default locations.
func loadConfig(path string) (*config.Configuration, error) {
	if path != "" {
		return config.GetConfigWithPath(path)
	}
	return config.GetConfig()
}

// application bundles what main serves and shuts down.
type application struct {
	router     *gin.Engine
	dispatcher *dispatcher.Dispatcher
}

// newApp builds the adapters, the dispatcher and the router from cfg.
// console mirrors submissions, results and requests to the terminal.
func newApp(cfg *config.Configuration, logger *slog.Logger, console bool) (*application, error) {
	table, err := cfg.ModelTable()
	if err != nil {
		return nil, err
	}

	timeout := cfg.ProviderTimeout()
	options := func(extra ...adapter.Option) []adapter.Option {
		return append([]adapter.Option{
			adapter.WithTimeout(timeout),
			adapter.WithLogger(logger),
		}, extra...)
	}

	generators := map[domain.ProviderType]adapter.Generator{
		domain.ProviderOpenAI: adapter.NewOpenAIAdapter(cfg.Credentials.OpenAIKey,
			options(adapter.WithBaseURL(cfg.Providers.OpenAI.BaseURL))...),
		domain.ProviderAnthropic: adapter.NewAnthropicAdapter(cfg.RelayURL(),
			options(adapter.WithTimeout(timeout+relayClientMargin))...),
		domain.ProviderGemini: adapter.NewGeminiAdapter(cfg.Credentials.GeminiKey,
			options(
				adapter.WithBaseURL(cfg.Providers.Gemini.BaseURL),
				adapter.WithGenerationDefaults(cfg.Providers.Gemini.Temperature, cfg.Providers.Gemini.MaxOutputTokens),
			)...),
	}

	dispatchOpts := []dispatcher.Option{
		dispatcher.WithLogger(logger),
		dispatcher.WithMaxConcurrency(cfg.Dispatch.MaxConcurrency),
	}
	genOpts := []handler.GenerationOption{handler.WithLogger(logger)}
	var extra []gin.HandlerFunc
	if console {
		dispatchOpts = append(dispatchOpts, dispatcher.WithCompletionHook(ui.PrintResult))
		genOpts = append(genOpts, handler.WithSubmitHook(func(s domain.Snapshot) {
			ui.PrintSubmission(s.SubmissionID, s.Prompt, len(s.Results))
		}))
		extra = append(extra, handler.ConsoleMiddleware(ui.PrintRequest))
	}

	d, err := dispatcher.New(table, generators, domain.NewResultsStore(), dispatchOpts...)
	if err != nil {
		return nil, err
	}

	relay := handler.NewRelayHandler(cfg.Credentials.AnthropicKey,
		handler.WithUpstreamURL(cfg.Providers.Anthropic.BaseURL),
		handler.WithAPIVersion(cfg.Providers.Anthropic.Version),
		handler.WithMaxTokens(cfg.Providers.Anthropic.MaxTokens),
		handler.WithRelayTimeout(timeout),
		handler.WithRelayLogger(logger),
	)

	return &application{
		router:     handler.NewRouter(logger, relay, handler.NewGenerationHandler(d, genOpts...), extra...),
		dispatcher: d,
	}, nil
}

// setupLogger creates a structured logger whose output passes through the
// redacting handler, and installs it as the default.
func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var base slog.Handler
	if cfg.Format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(security.NewRedactedHandler(base))
	slog.SetDefault(logger)

	return logger
}
