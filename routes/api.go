package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shipping-mapper/app/controllers"
)

// SetupAPIRoutes thiết lập tất cả API routes
func SetupAPIRoutes(router *gin.Engine, shippingController *controllers.ShippingController, adminController *controllers.AdminController) {
	// API v1 group
	v1 := router.Group("/v1")
	{
		// Shipping routes
		shipping := v1.Group("/shipping")
		{
			shipping.POST("/quote", shippingController.Quote)
			shipping.POST("/resolve", shippingController.Resolve)
			shipping.GET("/providers", shippingController.ListProviders)
			shipping.POST("/pickup", shippingController.BookPickup)
		}

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.POST("/import/:provider", adminController.StartImport)
			admin.GET("/import/jobs", adminController.ListImportJobs)
			admin.GET("/import/jobs/:jobID", adminController.GetImportJob)
			admin.DELETE("/import/jobs/:jobID", adminController.CancelImportJob)
			admin.GET("/cache/stats", adminController.GetCacheStats)
			admin.POST("/cache/clear", adminController.ClearCache)
		}

		// Health check route
		v1.GET("/health", shippingController.HealthCheck)
	}
}

// SetupHealthRoutes thiết lập health check routes
func SetupHealthRoutes(router *gin.Engine, shippingController *controllers.ShippingController) {
	// Root health check
	router.GET("/health", shippingController.HealthCheck)

	// Readiness check
	router.GET("/ready", shippingController.HealthCheck)

	// Liveness check
	router.GET("/live", shippingController.HealthCheck)
}

// SetupAllRoutes thiết lập tất cả routes
func SetupAllRoutes(router *gin.Engine, shippingController *controllers.ShippingController, adminController *controllers.AdminController) {
	// Thiết lập middleware
	setupMiddleware(router)

	// Thiết lập các loại routes
	SetupWebRoutes(router)
	SetupHealthRoutes(router, shippingController)
	SetupAPIRoutes(router, shippingController, adminController)

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"error":  "Route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

// setupMiddleware thiết lập middleware cho router
func setupMiddleware(router *gin.Engine) {
	// Recovery middleware
	router.Use(gin.Recovery())

	// Logger middleware
	router.Use(gin.Logger())
}
