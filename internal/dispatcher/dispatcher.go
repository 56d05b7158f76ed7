// Package dispatcher fans a prompt out to every configured model and folds
// the results back into the ResultsStore as they arrive.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/hpn/hpn-svg-arena/internal/adapter"
	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/hpn/hpn-svg-arena/internal/metrics"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("dispatcher is closed")

	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is required")

	// ErrNoAdapter means a routed provider has no registered Generator.
	ErrNoAdapter = errors.New("no adapter registered for provider")
)

// eventBuffer sizes the completion channel so producers rarely block on the consumer.
const eventBuffer = 64

// Dispatcher issues one independent provider call per model entry. Calls
// report back through a channel; a single consumer goroutine applies each
// completion to the store only if it belongs to the active submission.
type Dispatcher struct {
	table      *domain.ModelTable
	generators map[domain.ProviderType]adapter.Generator
	store      *domain.ResultsStore
	pool       pond.Pool
	events     chan domain.Completion
	logger     *slog.Logger
	onComplete func(domain.Completion)
	newID      func() string

	rootCtx    context.Context
	rootCancel context.CancelFunc
	done       chan struct{}
	consumed   chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// Option is a functional option for configuring Dispatcher.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	maxConcurrency int
	onComplete     func(domain.Completion)
	newID          func() string
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMaxConcurrency caps simultaneous provider calls. Zero means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxConcurrency = n
		}
	}
}

// WithCompletionHook registers a callback run by the consumer after a
// completion has been applied to the store.
func WithCompletionHook(fn func(domain.Completion)) Option {
	return func(c *config) {
		c.onComplete = fn
	}
}

// WithIDGenerator replaces the submission id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *config) {
		c.newID = fn
	}
}

// New validates that every entry of table routes to a registered generator
// and starts the completion consumer.
func New(
	table *domain.ModelTable,
	generators map[domain.ProviderType]adapter.Generator,
	store *domain.ResultsStore,
	opts ...Option,
) (*Dispatcher, error) {
	cfg := config{
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	for _, entry := range table.Entries() {
		provider, err := table.Route(entry.Model)
		if err != nil {
			return nil, err
		}
		if _, ok := generators[provider]; !ok {
			return nil, fmt.Errorf("%w %s (model %s)", ErrNoAdapter, provider, entry.Model)
		}
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		table:      table,
		generators: generators,
		store:      store,
		pool:       pond.NewPool(cfg.maxConcurrency),
		events:     make(chan domain.Completion, eventBuffer),
		logger:     cfg.logger,
		onComplete: cfg.onComplete,
		newID:      cfg.newID,
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		done:       make(chan struct{}),
		consumed:   make(chan struct{}),
	}

	go d.consume()

	return d, nil
}

// Submit replaces the results with one loading slot per entry, cancels the
// previous submission's calls, and starts a call per entry without waiting
// for any of them. The returned snapshot is taken before any call can settle.
func (d *Dispatcher) Submit(prompt string) (domain.Snapshot, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.Snapshot{}, ErrEmptyPrompt
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return domain.Snapshot{}, ErrClosed
	}
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(d.rootCtx)
	d.cancel = cancel

	id := d.newID()
	entries := d.table.Entries()
	d.store.Reset(id, prompt, entries)
	snap := d.store.Snapshot()

	d.logger.Info("submission started",
		slog.String("submission_id", id),
		slog.Int("models", len(entries)),
	)

	for i, entry := range entries {
		provider, _ := d.table.Route(entry.Model)
		gen := d.generators[provider]

		metrics.InFlight.Inc()
		d.pool.Submit(func() {
			d.call(ctx, gen, domain.Completion{SubmissionID: id, Index: i, Entry: entry}, prompt)
		})
	}

	return snap, nil
}

// call runs one provider request and emits its completion.
func (d *Dispatcher) call(ctx context.Context, gen adapter.Generator, c domain.Completion, prompt string) {
	start := time.Now()
	c.ImageURL, c.Err = gen.Generate(ctx, prompt, c.Entry)

	metrics.InFlight.Dec()
	metrics.GenerationDuration.WithLabelValues(string(c.Entry.Provider)).Observe(time.Since(start).Seconds())

	select {
	case d.events <- c:
	case <-d.done:
	}
}

// consume is the single writer of the store for completions.
func (d *Dispatcher) consume() {
	defer close(d.consumed)

	for {
		select {
		case c := <-d.events:
			d.apply(c)
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) apply(c domain.Completion) {
	provider := string(c.Entry.Provider)

	if c.SubmissionID != d.store.ActiveSubmission() {
		d.discard(c)
		return
	}

	if c.Err != nil {
		attrs := []any{
			slog.String("submission_id", c.SubmissionID),
			slog.Int("index", c.Index),
			slog.String("provider", provider),
			slog.String("model", c.Entry.Model),
			slog.String("error", c.Err.Error()),
		}
		if status := adapter.StatusCode(c.Err); status != 0 {
			attrs = append(attrs, slog.Int("status", status))
		}
		d.logger.Error("generation failed", attrs...)
	}

	if !d.store.Apply(c) {
		d.discard(c)
		return
	}

	outcome := metrics.OutcomeSuccess
	if c.Err != nil {
		outcome = metrics.OutcomeFailure
	} else {
		d.logger.Info("generation completed",
			slog.String("submission_id", c.SubmissionID),
			slog.Int("index", c.Index),
			slog.String("provider", provider),
			slog.String("model", c.Entry.Model),
		)
	}
	metrics.GenerationsTotal.WithLabelValues(provider, c.Entry.Model, outcome).Inc()

	if d.onComplete != nil {
		d.onComplete(c)
	}
}

func (d *Dispatcher) discard(c domain.Completion) {
	attrs := []any{
		slog.String("submission_id", c.SubmissionID),
		slog.Int("index", c.Index),
		slog.String("model", c.Entry.Model),
	}
	if c.Err != nil {
		attrs = append(attrs, slog.String("error", c.Err.Error()))
	}
	d.logger.Debug("stale completion ignored", attrs...)
	metrics.GenerationsTotal.WithLabelValues(string(c.Entry.Provider), c.Entry.Model, metrics.OutcomeStale).Inc()
}

// Snapshot returns the current results.
func (d *Dispatcher) Snapshot() domain.Snapshot {
	return d.store.Snapshot()
}

// Table returns the model table the dispatcher fans out to.
func (d *Dispatcher) Table() *domain.ModelTable {
	return d.table
}

// Close cancels in-flight calls, waits for them to return, and stops the consumer.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.rootCancel()
	d.mu.Unlock()

	d.pool.StopAndWait()
	close(d.done)
	<-d.consumed
}
