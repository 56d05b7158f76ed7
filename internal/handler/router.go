package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires middleware and every route onto a fresh gin engine.
// extra middleware runs after the built-in chain.
func NewRouter(logger *slog.Logger, relay *RelayHandler, gen *GenerationHandler, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()

	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))
	router.Use(MetricsMiddleware())
	router.Use(CORSMiddleware())
	router.Use(extra...)

	api := router.Group("/api")
	{
		// Every method reaches the relay so it can answer 405 itself.
		api.Any("/claude", relay.HandleRelay)

		api.POST("/generations", gen.HandleSubmit)
		api.GET("/generations", gen.HandleSnapshot)
		api.GET("/generations/:index/image", gen.HandleImage)
		api.GET("/models", gen.HandleModels)
	}

	router.GET("/health", gen.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
