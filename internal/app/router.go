package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"negotiation/internal/handler"
	"negotiation/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	NegotiationHandler *handler.NegotiationHandler
	PricingHandler     *handler.PricingHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Negotiation routes.
		negotiations := v1.Group("/negotiations")
		{
			negotiations.POST("", deps.NegotiationHandler.Open)
			negotiations.GET("/:id", deps.NegotiationHandler.Get)
			negotiations.POST("/:id/respond", deps.NegotiationHandler.Respond)
			negotiations.POST("/:id/accept-counter", deps.NegotiationHandler.AcceptCounter)
			negotiations.POST("/:id/decline-counter", deps.NegotiationHandler.DeclineCounter)
		}

		// Trip history routes.
		trips := v1.Group("/trips")
		{
			trips.GET("/:id/negotiations", deps.NegotiationHandler.ListByTrip)
		}

		// Fare quote routes.
		fares := v1.Group("/fares")
		{
			fares.POST("/quote", deps.PricingHandler.Quote)
		}
	}

	return router
}
