package routes

import (
	"anitrack-api/internal/cache"
	"anitrack-api/internal/handlers"
	"anitrack-api/internal/logging"
	"anitrack-api/internal/middleware"
	"anitrack-api/internal/realtime"
	"anitrack-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Dependencies are the shared services the HTTP layer is built on.
type Dependencies struct {
	Store      *store.Store
	Cache      *cache.Manager[any]
	Hub        *realtime.Hub
	Logger     zerolog.Logger
	CORSOrigin string
}

func SetupRoutes(deps Dependencies) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery())
	ginRouter.Use(middleware.RequestLogger(logging.WithScope(deps.Logger, "http")))

	// CORS middleware (for frontend integration)
	ginRouter.Use(middleware.CORS(deps.CORSOrigin))

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "AniTrack API is running",
		})
	})

	documents := handlers.NewDocumentHandler(deps.Store, deps.Cache, logging.WithScope(deps.Logger, "documents"))
	cacheAdmin := handlers.NewCacheHandler(deps.Cache)
	events := handlers.NewEventsHandler(deps.Hub, logging.WithScope(deps.Logger, "events"))

	api := ginRouter.Group("/api")
	{
		// Document endpoints
		api.GET("/documents", documents.ListDocuments)
		api.GET("/documents/:key", documents.GetDocument)
		api.PUT("/documents/:key", documents.PutDocument)
		api.DELETE("/documents/:key", documents.DeleteDocument)

		// Cache endpoints
		api.GET("/cache/stats", cacheAdmin.GetStats)
		api.GET("/cache/keys", cacheAdmin.GetKeys)
		api.DELETE("/cache/entries/:key", cacheAdmin.DeleteEntry)
		api.POST("/cache/invalidate", cacheAdmin.Invalidate)
		api.POST("/cache/clear", cacheAdmin.Clear)
		api.POST("/cache/sweep", cacheAdmin.Sweep)
		api.GET("/cache/events", events.Stream)
	}

	return ginRouter
}
