// Package ui provides colorized console output for the SVG arena server.
// Everything is written to color.Output so tests can capture it. Text that
// may carry credentials passes through security.Redact first.
package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/hpn/hpn-svg-arena/internal/security"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// Badge colors
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)
	debugBadge   = color.New(color.FgMagenta)

	// Text colors
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)
	neonBlue    = color.New(color.FgHiCyan, color.Bold)

	// Method colors
	methodPOST = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET  = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATION EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// PrintSubmission announces a new prompt fan-out.
// Format: [ARENA] "prompt" → 7 models (id)
func PrintSubmission(submissionID, prompt string, models int) {
	out := color.Output
	infoBadge.Fprint(out, "[ARENA]")
	fmt.Fprintf(out, " %q ", truncate(security.Redact(prompt), 60))
	accentText.Fprintf(out, "→ %d models", models)
	mutedText.Fprintf(out, " (%s)\n", shortID(submissionID))
}

// PrintResult logs one settled model slot.
// Format: [ DONE ] provider/model  or  [ FAIL ] provider/model error
func PrintResult(c domain.Completion) {
	out := color.Output
	mutedText.Fprintf(out, "%s ", time.Now().Format("15:04:05"))

	label := fmt.Sprintf("%-10s %s", c.Entry.Provider, c.Entry.Model)
	if c.Err == nil {
		successBadge.Fprint(out, " DONE ")
		fmt.Fprint(out, " ")
		successText.Fprintln(out, label)
		return
	}

	errorBadge.Fprint(out, " FAIL ")
	fmt.Fprint(out, " ")
	errorText.Fprint(out, label)
	mutedText.Fprintf(out, " %s\n", security.Redact(c.Err.Error()))
}

// PrintMissingCredential warns that every model of a provider will fail.
func PrintMissingCredential(provider domain.ProviderType) {
	out := color.Output
	warningBadge.Fprint(out, "[WARN]")
	warningText.Fprintf(out, " no API key for %s, its models will fail\n", provider)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// PrintRequest logs a request with styled output.
func PrintRequest(method, path string, status int, latency time.Duration) {
	out := color.Output
	mutedText.Fprintf(out, "%s ", time.Now().Format("15:04:05"))

	printMethodBadge(method)
	fmt.Fprint(out, " ")

	fmt.Fprintf(out, "%-30s ", truncate(security.Redact(path), 30))

	printStatusBadge(status)
	fmt.Fprint(out, " ")

	printLatency(latency)
	fmt.Fprintln(out)
}

// printMethodBadge prints the HTTP method with appropriate color.
func printMethodBadge(method string) {
	switch method {
	case "POST":
		methodPOST.Fprintf(color.Output, " %s ", method)
	case "GET":
		methodGET.Fprintf(color.Output, " %s ", method)
	default:
		debugBadge.Fprintf(color.Output, " %s ", method)
	}
}

// printStatusBadge prints the status code with appropriate color.
func printStatusBadge(status int) {
	switch {
	case status >= 200 && status < 300:
		successBadge.Fprintf(color.Output, " %d ", status)
	case status >= 300 && status < 400:
		infoBadge.Fprintf(color.Output, " %d ", status)
	case status >= 400 && status < 500:
		warningBadge.Fprintf(color.Output, " %d ", status)
	default:
		errorBadge.Fprintf(color.Output, " %d ", status)
	}
}

// printLatency prints latency with color gradient.
// Green: < 1s, Yellow: < 10s, Red: >= 10s
func printLatency(latency time.Duration) {
	ms := latency.Milliseconds()
	latencyStr := fmt.Sprintf("%6dms", ms)

	switch {
	case latency < time.Second:
		successText.Fprint(color.Output, latencyStr)
	case latency < 10*time.Second:
		warningText.Fprint(color.Output, latencyStr)
	default:
		errorText.Fprint(color.Output, latencyStr)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UTILITY FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// shortID returns the first block of a uuid.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// truncate shortens s to maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// ══════════════════════════════════════════════════════════════════════════════
// STARTUP MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// PrintStartupInfo prints styled server startup information.
func PrintStartupInfo(addr string, entries []domain.ModelEntry) {
	out := color.Output
	fmt.Fprintln(out)
	infoBadge.Fprint(out, "[ARENA]")
	fmt.Fprint(out, " Server starting on ")
	neonBlue.Fprintf(out, "http://%s\n", addr)

	infoBadge.Fprint(out, "[ARENA]")
	fmt.Fprint(out, " Models: ")
	if len(entries) > 0 {
		successText.Fprintf(out, "%d\n", len(entries))
	} else {
		errorText.Fprintf(out, "%d\n", len(entries))
	}
	for i, e := range entries {
		mutedText.Fprintf(out, "  %2d ", i)
		infoText.Fprintf(out, "%-10s ", e.Provider)
		fmt.Fprintln(out, e.Model)
	}

	fmt.Fprintln(out)
	printEndpoints()
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	out := color.Output
	endpoints := []struct {
		method string
		path   string
		desc   string
	}{
		{"POST", "/api/generations", "Fan a prompt out to every model"},
		{"GET", "/api/generations", "Current results"},
		{"GET", "/api/generations/:index/image", "Rendered SVG of one result"},
		{"GET", "/api/models", "Configured model table"},
		{"POST", "/api/claude", "Anthropic relay"},
		{"GET", "/health", "Health check"},
		{"GET", "/metrics", "Prometheus metrics"},
	}

	mutedText.Fprintln(out, "  ┌────────────────────────────────────────────────────────────────────┐")
	for _, ep := range endpoints {
		mutedText.Fprint(out, "  │ ")
		if ep.method == "POST" {
			methodPOST.Fprint(out, " POST ")
		} else {
			methodGET.Fprint(out, " GET  ")
		}
		fmt.Fprintf(out, " %-30s ", ep.path)
		mutedText.Fprintf(out, "%-31s", ep.desc)
		mutedText.Fprintln(out, "│")
	}
	mutedText.Fprintln(out, "  └────────────────────────────────────────────────────────────────────┘")
	fmt.Fprintln(out)
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Fprintln(color.Output)
	warningBadge.Fprint(color.Output, "[SHUTDOWN]")
	warningText.Fprintln(color.Output, " Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successBadge.Fprint(color.Output, " OK ")
	fmt.Fprint(color.Output, " ")
	successText.Fprintln(color.Output, "Server stopped. Goodbye!")
}
