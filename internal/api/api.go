package api

import (
	"context"
	"log"
	"time"

	"github.com/ethanbaker/api/pkg/api_key"
	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/ethanbaker/tollsync/internal/api/common"
	"github.com/ethanbaker/tollsync/pkg/sdk"
	"github.com/ethanbaker/tollsync/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	accounts_module "github.com/ethanbaker/tollsync/internal/api/modules/accounts"
	health_module "github.com/ethanbaker/tollsync/internal/api/modules/health"
	providers_module "github.com/ethanbaker/tollsync/internal/api/modules/providers"
	sync_module "github.com/ethanbaker/tollsync/internal/api/modules/sync"
)

// NewEngine builds the gin engine with every module mounted under /api
func NewEngine(settings *utils.Settings, deps *Dependencies) *gin.Engine {
	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(api_utils.NoRouteHandler)

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     settings.CORSOrigins,
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", sdk.APIKeyHeader, sdk.CompanyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")
	health_module.RegisterRoutes(baseGroup, deps.Backend)

	// Everything else needs the shared key and a company scope
	apiKey := settings.APIKey
	scoped := baseGroup.Group("")
	scoped.Use(api_key.APIKeyHeaderHandler(func(key string) bool {
		return key == apiKey
	}))
	scoped.Use(common.CompanyScopeHandler())

	// Adding custom modules
	providers_module.RegisterRoutes(scoped, deps.Accounts)
	accounts_module.RegisterRoutes(scoped, deps.Accounts)
	sync_module.RegisterRoutes(scoped, deps.Queue)

	return engine
}

// Start builds the services and runs the server until it fails
func Start(settings *utils.Settings) {
	deps, err := Build(context.Background(), settings)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize services: ", err)
	}

	if settings.OutboxDrainSchedule != "" {
		scheduler, err := ScheduleDrain(settings.OutboxDrainSchedule, deps.Queue)
		if err != nil {
			log.Fatal("[API-MAIN]: ", err)
		}
		defer scheduler.Stop()
		log.Printf("[API-MAIN]: Draining sync queue on schedule '%s'", settings.OutboxDrainSchedule)
	}

	// Then after performing initial setup, start the server
	engine := NewEngine(settings, deps)
	if err := engine.Run(":" + settings.Port); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}
