package accounts

import (
	"github.com/ethanbaker/tollsync/internal/tollsync"
	"github.com/gin-gonic/gin"
)

var service *tollsync.Service

// RegisterRoutes registers the routes for the accounts module
func RegisterRoutes(g *gin.RouterGroup, s *tollsync.Service) {
	service = s

	group := g.Group("/accounts")
	group.GET("", ListAccounts)         // List the company's accounts
	group.POST("", CreateAccount)       // Create an account after validating its credentials
	group.GET("/:id", GetAccount)       // Get one account
	group.PUT("/:id", UpdateAccount)    // Update an account
	group.DELETE("/:id", DeleteAccount) // Delete an account and its sync logs

	group.POST("/:id/sync", SyncAccount)               // Run a manual sync
	group.GET("/:id/sync-logs", ListSyncLogs)          // Recent sync history
	group.GET("/:id/info", GetAccountInfo)             // Remote account lookup
	group.POST("/:id/tolls/calculate", CalculateTolls) // Quote a route through the account's provider
}
