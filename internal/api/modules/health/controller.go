package health

import (
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
	"github.com/gin-gonic/gin"
)

// Status is the health payload
type Status struct {
	Store  string `json:"store"` // mysql or memory
	Uptime string `json:"uptime"`
}

var (
	backend string
	started = time.Now()
)

// Return status of the API and the store backend it runs on
func getStatus(c *gin.Context) {
	res := api_types.NewSuccessResponse("OK", Status{
		Store:  backend,
		Uptime: time.Since(started).Round(time.Second).String(),
	})
	c.JSON(res.AsGinResponse())
}
