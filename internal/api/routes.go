package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Durgaprasad40/mira-nearby/internal/ratelimit"
)

func SetupRoutes(r *gin.Engine, handler *Handler, streamHandler StreamHandler, rlMiddleware *ratelimit.Middleware) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Session-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gin.Recovery())
	r.Use(rlMiddleware.IPRateLimit())

	api := r.Group("/api")
	{
		session := api.Group("/session")
		{
			session.POST("/create", handler.CreateSession)
		}

		location := api.Group("/location", handler.RequireSession())
		{
			location.POST("/record", handler.RecordLocation)
			location.POST("/publish", handler.PublishLocation)
		}

		api.GET("/nearby", handler.RequireSession(), handler.GetNearby)

		privacy := api.Group("/privacy", handler.RequireSession())
		{
			privacy.PATCH("/hide-distance", handler.SetHideDistance)
		}

		block := api.Group("/block", handler.RequireSession())
		{
			block.POST("", handler.BlockUser)
			block.DELETE("/:user_id", handler.UnblockUser)
		}

		api.GET("/analytics", handler.GetAnalytics)

		// Health check (no session required)
		api.GET("/health", handler.Health)
	}

	// Live stream route
	r.GET("/ws", streamHandler.HandleWebSocket)
}

type StreamHandler interface {
	HandleWebSocket(c *gin.Context)
}
