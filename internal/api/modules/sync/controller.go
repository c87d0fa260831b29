package sync_module

import (
	"net/http"

	"github.com/ethanbaker/tollsync/internal/api/common"
	"github.com/ethanbaker/tollsync/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// EnqueueItem handles POST requests to queue a mutation
func EnqueueItem(c *gin.Context) {
	var req sdk.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	item, err := processor.Enqueue(c.Request.Context(), common.CompanyID(c), req.TableName, req.Action, req.Payload)
	if err != nil {
		common.Fail(c, "Failed to queue item", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Item queued successfully", item).WithCode(http.StatusCreated).AsGinResponse())
}

// ProcessQueue handles POST requests to drain the queue. Failed items are counted,
// not returned as errors.
func ProcessQueue(c *gin.Context) {
	result, err := processor.Process(c.Request.Context())
	if err != nil {
		common.Fail(c, "Failed to process sync queue", err)
		return
	}

	resp := sdk.ProcessQueueResponse{Success: true, Processed: result.Processed, Failed: result.Failed}
	c.JSON(sdk.NewSuccessResponse("Sync queue processed", resp).AsGinResponse())
}

// GetStatus handles GET requests for the queue counts of the caller's company
func GetStatus(c *gin.Context) {
	counts, err := processor.Status(c.Request.Context(), common.CompanyID(c))
	if err != nil {
		common.Fail(c, "Failed to get sync queue status", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Sync queue status retrieved successfully", counts).AsGinResponse())
}
