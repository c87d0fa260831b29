package accounts

import (
	"net/http"
	"strconv"

	"github.com/ethanbaker/tollsync/internal/api/common"
	"github.com/ethanbaker/tollsync/internal/tollsync"
	"github.com/ethanbaker/tollsync/pkg/sdk"
	"github.com/ethanbaker/tollsync/pkg/tolls"
	"github.com/gin-gonic/gin"
)

// ListAccounts handles GET requests for a page of accounts
func ListAccounts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	accounts, total, err := service.ListAccounts(c.Request.Context(), common.CompanyID(c), limit, offset)
	if err != nil {
		common.Fail(c, "Failed to list accounts", err)
		return
	}

	resp := sdk.AccountList{Accounts: make([]sdk.Account, 0, len(accounts)), Total: total}
	for i := range accounts {
		resp.Accounts = append(resp.Accounts, sdk.NewAccount(&accounts[i]))
	}

	c.JSON(sdk.NewSuccessResponse("Accounts retrieved successfully", resp).AsGinResponse())
}

// CreateAccount handles POST requests to create an account
func CreateAccount(c *gin.Context) {
	var req sdk.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	account, err := service.CreateAccount(c.Request.Context(), common.CompanyID(c), tollsync.CreateAccountInput{
		ProviderID:      req.TollProviderID,
		AccountNumber:   req.AccountNumber,
		AccountName:     req.AccountName,
		Credentials:     req.Credentials,
		AccountSettings: req.AccountSettings,
	})
	if err != nil {
		common.Fail(c, "Failed to create account", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Account created successfully", sdk.NewAccount(account)).WithCode(http.StatusCreated).AsGinResponse())
}

// GetAccount handles GET requests for one account
func GetAccount(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}

	account, err := service.GetAccount(c.Request.Context(), common.CompanyID(c), id)
	if err != nil {
		common.Fail(c, "Failed to get account", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Account retrieved successfully", sdk.NewAccount(account)).AsGinResponse())
}

// UpdateAccount handles PUT requests to change an account
func UpdateAccount(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}

	var req sdk.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	account, err := service.UpdateAccount(c.Request.Context(), common.CompanyID(c), id, tollsync.UpdateAccountInput{
		AccountNumber:   req.AccountNumber,
		AccountName:     req.AccountName,
		Credentials:     req.Credentials,
		AccountSettings: req.AccountSettings,
		AccountStatus:   req.AccountStatus,
	})
	if err != nil {
		common.Fail(c, "Failed to update account", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Account updated successfully", sdk.NewAccount(account)).AsGinResponse())
}

// DeleteAccount handles DELETE requests for an account
func DeleteAccount(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}

	if err := service.DeleteAccount(c.Request.Context(), common.CompanyID(c), id); err != nil {
		common.Fail(c, "Failed to delete account", err)
		return
	}

	c.JSON(sdk.NewSuccess("Account deleted successfully").AsGinResponse())
}

// SyncAccount handles POST requests to sync an account now. A sync the provider
// reported as failed is still a 200 with success false.
func SyncAccount(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}

	result, err := service.SyncAccount(c.Request.Context(), common.CompanyID(c), id)
	if err != nil {
		common.Fail(c, "Failed to sync account", err)
		return
	}

	message := "Account synced successfully"
	if !result.Success {
		message = "Account sync completed with errors"
	}

	c.JSON(sdk.NewSuccessResponse(message, sdk.SyncAccountResponse{Success: result.Success, SyncResult: result}).AsGinResponse())
}

// ListSyncLogs handles GET requests for the sync history of an account
func ListSyncLogs(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	logs, err := service.ListSyncLogs(c.Request.Context(), common.CompanyID(c), id, limit)
	if err != nil {
		common.Fail(c, "Failed to list sync logs", err)
		return
	}
	if logs == nil {
		logs = []tolls.SyncLog{}
	}

	c.JSON(sdk.NewSuccessResponse("Sync logs retrieved successfully", sdk.SyncLogList{Logs: logs}).AsGinResponse())
}

// GetAccountInfo handles GET requests for the remote view of an account
func GetAccountInfo(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}

	info, err := service.AccountInfo(c.Request.Context(), common.CompanyID(c), id)
	if err != nil {
		common.Fail(c, "Failed to get account info from toll provider", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Account info retrieved successfully", info).AsGinResponse())
}

// CalculateTolls handles POST requests for a route quote
func CalculateTolls(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}

	var req tolls.TollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	quote, err := service.CalculateTolls(c.Request.Context(), common.CompanyID(c), id, &req)
	if err != nil {
		common.Fail(c, "Failed to calculate tolls", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Tolls calculated successfully", quote).AsGinResponse())
}
