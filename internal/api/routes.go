package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"homescope/server/internal/metrics"
)

// NewRouter builds the gin engine with the shared middleware stack. A nil
// recorder disables Prometheus instrumentation.
func NewRouter(handler *Handler, recorder *metrics.Recorder) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(handler.logger))
	router.Use(cors.New(corsConfig(handler.config.Server.AllowedOrigins)))

	if recorder != nil {
		router.Use(recorder.Middleware())
		router.GET("/metrics", gin.WrapH(recorder.Handler()))
	}

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/healthz", handler.Healthz)

	api := router.Group("/")
	if rps := handler.config.Server.RateLimitRPS; rps > 0 {
		api.Use(NewRateLimiter(rps, handler.config.Server.RateLimitBurst).Middleware())
	}
	api.Use(Timeout(handler.config.Server.RequestTimeout))
	{
		api.GET("/similar-properties", handler.GetSimilarProperties)
		api.POST("/cma/generate", handler.GenerateCMA)

		properties := api.Group("/properties")
		properties.GET("", handler.ListProperties)
		properties.POST("", handler.CreateProperty)
		properties.GET("/:id", handler.GetProperty)
		properties.POST("/import", handler.ImportProperties)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
