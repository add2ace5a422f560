package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes thiết lập web routes
func SetupWebRoutes(router *gin.Engine) {
	web := router.Group("/")
	{
		// Home page
		web.GET("/", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"message": "Shipping Mapper Service",
				"version": "1.0.0",
				"docs":    "/docs",
			})
		})

		// API documentation
		web.GET("/docs", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"api": "Shipping Mapper API v1",
				"endpoints": map[string]string{
					"quote":      "POST /v1/shipping/quote",
					"resolve":    "POST /v1/shipping/resolve",
					"providers":  "GET /v1/shipping/providers",
					"pickup":     "POST /v1/shipping/pickup",
					"import":     "POST /v1/admin/import/:provider",
					"import_job": "GET /v1/admin/import/jobs/:jobID",
					"health":     "GET /v1/health",
				},
			})
		})
	}
}
