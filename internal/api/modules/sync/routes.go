package sync_module

import (
	"github.com/ethanbaker/tollsync/pkg/outbox"
	"github.com/gin-gonic/gin"
)

var processor *outbox.Processor

// RegisterRoutes registers the routes for the sync queue module
func RegisterRoutes(g *gin.RouterGroup, p *outbox.Processor) {
	processor = p

	group := g.Group("/sync")
	group.POST("/queue", EnqueueItem)    // Queue a mutation for the caller's company
	group.POST("/process", ProcessQueue) // Drain every pending item
	group.GET("/status", GetStatus)      // Item counts of the caller's company
}
