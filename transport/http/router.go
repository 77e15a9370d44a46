package http

import (
	"github.com/gin-gonic/gin"

	"github.com/gridpool/gridpool/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, registry *service.Registry, discovery *service.Discovery) *gin.Engine {
	router := gin.Default()

	authHandlers := NewAuthHandlers(authService)
	providerHandlers := NewProviderHandlers(registry, discovery)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/challenge", authHandlers.Challenge)
		auth.POST("/login", authHandlers.Login)
		auth.POST("/refresh", authHandlers.Refresh)
		auth.POST("/logout", authHandlers.Logout)
	}

	// Public discovery routes
	router.GET("/providers", providerHandlers.List)
	router.POST("/discovery", providerHandlers.Discover)

	// Provider management requires an authenticated identity
	api := router.Group("/providers")
	api.Use(AuthMiddleware(authService))
	{
		api.POST("", providerHandlers.Register)
		api.DELETE("/:id", providerHandlers.Deregister)
		api.PUT("/:id/status", providerHandlers.UpdateStatus)
		api.POST("/:id/reputation", providerHandlers.ApplyReputationDelta)
	}

	return router
}
