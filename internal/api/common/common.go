// Package common holds the request scope and error mapping shared by the API modules
package common

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethanbaker/tollsync/internal/tollsync"
	"github.com/ethanbaker/tollsync/pkg/outbox"
	"github.com/ethanbaker/tollsync/pkg/sdk"
	"github.com/ethanbaker/tollsync/pkg/tolls"
	"github.com/gin-gonic/gin"
)

const companyKey = "company_id"

// CompanyScopeHandler requires the authenticated company identity on every request.
// The upstream auth layer sets the header; the value is opaque here.
func CompanyScopeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.GetHeader(sdk.CompanyHeader), 10, 0)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(sdk.NewErrorResponse(http.StatusUnauthorized, "Missing or invalid company scope", nil).AsGinResponse())
			return
		}

		c.Set(companyKey, uint(id))
		c.Next()
	}
}

// CompanyID returns the company set by CompanyScopeHandler
func CompanyID(c *gin.Context) uint {
	return c.GetUint(companyKey)
}

// ParseID reads a positive numeric path parameter
func ParseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid "+name, err).AsGinResponse())
		return 0, false
	}
	return uint(id), true
}

// StatusFor maps a service error onto its HTTP status and public message. Server side
// failures keep the fallback message.
func StatusFor(err error, fallback string) (int, string) {
	var (
		validation     *tollsync.ValidationError
		credential     *tollsync.CredentialError
		notFound       *tollsync.NotFoundError
		conflict       *tollsync.ConflictError
		unsupported    *tolls.UnsupportedProviderError
		queueRejection *outbox.ValidationError
	)

	switch {
	case errors.As(err, &credential):
		return http.StatusBadRequest, tollsync.InvalidCredentialsMessage
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.As(err, &queueRejection):
		return http.StatusBadRequest, queueRejection.Message
	case errors.As(err, &unsupported):
		return http.StatusBadRequest, unsupported.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Message
	case errors.Is(err, outbox.ErrAlreadyRunning):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, fallback
	}
}

// Fail writes the error envelope for err
func Fail(c *gin.Context, fallback string, err error) {
	code, message := StatusFor(err, fallback)
	c.JSON(sdk.NewErrorResponse(code, message, err).AsGinResponse())
}
