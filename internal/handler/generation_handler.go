package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-svg-arena/internal/dispatcher"
	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/hpn/hpn-svg-arena/internal/svg"
)

// Dispatcher is the part of dispatcher.Dispatcher the API needs.
type Dispatcher interface {
	Submit(prompt string) (domain.Snapshot, error)
	Snapshot() domain.Snapshot
	Table() *domain.ModelTable
}

// GenerationHandler exposes submissions and their results to the browser.
type GenerationHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	onSubmit   func(domain.Snapshot)
}

// GenerationOption is a functional option for configuring GenerationHandler.
type GenerationOption func(*GenerationHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) GenerationOption {
	return func(h *GenerationHandler) {
		h.logger = logger
	}
}

// WithSubmitHook is called with the fresh snapshot after every accepted submission.
func WithSubmitHook(fn func(domain.Snapshot)) GenerationOption {
	return func(h *GenerationHandler) {
		h.onSubmit = fn
	}
}

// NewGenerationHandler creates a GenerationHandler.
func NewGenerationHandler(d Dispatcher, opts ...GenerationOption) *GenerationHandler {
	h := &GenerationHandler{
		dispatcher: d,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SubmitRequest is the body of POST /api/generations.
type SubmitRequest struct {
	Prompt string `json:"prompt"`
}

// HandleSubmit handles POST /api/generations. It answers 202 with every
// slot loading; results arrive through HandleSnapshot.
func (h *GenerationHandler) HandleSubmit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	snap, err := h.dispatcher.Submit(req.Prompt)
	switch {
	case errors.Is(err, dispatcher.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a prompt"})
		return
	case errors.Is(err, dispatcher.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server is shutting down"})
		return
	case err != nil:
		h.logger.Error("submission failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start generation"})
		return
	}

	if h.onSubmit != nil {
		h.onSubmit(snap)
	}
	c.JSON(http.StatusAccepted, snap)
}

// HandleSnapshot handles GET /api/generations.
func (h *GenerationHandler) HandleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.dispatcher.Snapshot())
}

// HandleImage handles GET /api/generations/:index/image and serves the
// decoded SVG of a successful slot.
func (h *GenerationHandler) HandleImage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
		return
	}

	snap := h.dispatcher.Snapshot()
	if index < 0 || index >= len(snap.Results) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
		return
	}

	result := snap.Results[index]
	if result.IsLoading {
		c.JSON(http.StatusConflict, gin.H{"error": "Result is still loading"})
		return
	}
	if result.ImageURL == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Failed to generate SVG"})
		return
	}

	markup, err := svg.DecodeDataURL(*result.ImageURL)
	if err != nil {
		h.logger.Error("stored image is not decodable",
			slog.Int("index", index),
			slog.String("model", result.ModelName),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Data(http.StatusOK, "image/svg+xml", []byte(markup))
}

// HandleModels handles GET /api/models.
func (h *GenerationHandler) HandleModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.dispatcher.Table().Entries())
}

// HandleHealth handles GET /health.
func (h *GenerationHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"models":        h.dispatcher.Table().Len(),
		"submission_id": h.dispatcher.Snapshot().SubmissionID,
	})
}
