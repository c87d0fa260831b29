package providers

import (
	"github.com/ethanbaker/tollsync/internal/tollsync"
	"github.com/gin-gonic/gin"
)

var service *tollsync.Service

// RegisterRoutes registers the routes for the providers module
func RegisterRoutes(g *gin.RouterGroup, s *tollsync.Service) {
	service = s

	group := g.Group("/providers")
	group.GET("", ListProviders)          // List every known provider
	group.GET("/:id", GetProvider)        // Get one provider
	group.POST("/:id/test", TestProvider) // Check a provider with ad hoc credentials
}
