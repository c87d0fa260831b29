package health

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the health module. Health is mounted ahead
// of the API key and company scope handlers.
func RegisterRoutes(g *gin.RouterGroup, store string) {
	backend = store
	g.GET("/health", getStatus)
}
