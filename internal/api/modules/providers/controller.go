package providers

import (
	"errors"
	"io"
	"net/http"

	"github.com/ethanbaker/tollsync/internal/api/common"
	"github.com/ethanbaker/tollsync/internal/tollsync"
	"github.com/ethanbaker/tollsync/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// ListProviders handles GET requests for the provider catalog
func ListProviders(c *gin.Context) {
	details, err := service.ListProviders(c.Request.Context())
	if err != nil {
		common.Fail(c, "Failed to list toll providers", err)
		return
	}

	providers := make([]sdk.Provider, 0, len(details))
	for _, d := range details {
		providers = append(providers, toSDKProvider(d))
	}

	c.JSON(sdk.NewSuccessResponse("Toll providers retrieved successfully", sdk.ProviderList{Providers: providers}).AsGinResponse())
}

// GetProvider handles GET requests for a single provider
func GetProvider(c *gin.Context) {
	details, err := service.GetProvider(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.Fail(c, "Failed to get toll provider", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Toll provider retrieved successfully", toSDKProvider(*details)).AsGinResponse())
}

// TestProvider handles POST requests to check a provider. The body is optional.
func TestProvider(c *gin.Context) {
	var req sdk.TestProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	result, err := service.TestProvider(c.Request.Context(), c.Param("id"), req.Credentials)
	if err != nil {
		common.Fail(c, "Failed to test toll provider", err)
		return
	}

	resp := sdk.TestProviderResponse{Success: result.Success, Message: result.Message}
	c.JSON(sdk.NewSuccessResponse(result.Message, resp).AsGinResponse())
}

// Helper method to convert merged provider details to the sdk view
func toSDKProvider(d tollsync.ProviderDetails) sdk.Provider {
	return sdk.Provider{ProviderInfo: d.ProviderInfo, Active: d.Active, Supported: d.Supported}
}
