package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tagithq/tagit/internal/auth"
	"github.com/tagithq/tagit/internal/middleware"
)

type Router struct {
	handler        *Handler
	authMiddleware *auth.Middleware
}

func NewRouter(handler *Handler, authService auth.Service) *Router {
	return &Router{
		handler:        handler,
		authMiddleware: auth.NewMiddleware(authService),
	}
}

func (r *Router) SetupRouter(logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Apply global middleware
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.SecurityHeadersMiddleware(),
		middleware.RecoveryMiddleware(logger),
		middleware.LoggerMiddleware(logger),
		middleware.RateLimitMiddleware(rate.Every(time.Second), 30), // 30 requests per second
		middleware.CORS(),
	)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Document retrieval; the URL is the capability
	router.GET("/files/*key", r.handler.ResolveFile)

	api := router.Group("/api")
	{
		// Auth routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", r.handler.Register)
			authGroup.POST("/login", r.handler.Login)
		}

		// Responder routes: anonymous, read-only, restricted field subset
		public := api.Group("/public")
		{
			public.GET("/profiles/:id", r.handler.GetPublicProfile)
			public.POST("/profiles/:id/sos", r.handler.TriggerSOS)
		}

		// Owner routes (require authentication)
		owner := api.Group("/profile")
		owner.Use(r.authMiddleware.RequireOwner())
		{
			owner.GET("", r.handler.GetMyProfile)
			owner.PUT("/basic", r.handler.UpdateBasicInfo)
			owner.PUT("/medical", r.handler.UpdateMedicalInfo)
			owner.PUT("/contacts", r.handler.UpdateContacts)
			owner.POST("/documents", r.handler.UploadDocument)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}
