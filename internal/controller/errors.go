package controller

import (
	"net/http"

	"crescer/internal/importer"
	"crescer/internal/portfolio"
	"crescer/internal/repo"
	"crescer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

var (
	ErrInvalidControllerConfig = errors.New("invalid controller config")
)

type APIError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func errorResponse(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, APIError{Error: message})
}

func errorWithDetails(ctx *gin.Context, status int, message string, details string) {
	ctx.JSON(status, APIError{Error: message, Details: details})
}

func badRequest(ctx *gin.Context, message string) {
	errorResponse(ctx, http.StatusBadRequest, message)
}

func badRequestWithDetails(ctx *gin.Context, message string, details string) {
	errorWithDetails(ctx, http.StatusBadRequest, message, details)
}

func unauthorized(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, APIError{Error: message})
}

func notFound(ctx *gin.Context, message string) {
	errorResponse(ctx, http.StatusNotFound, message)
}

func conflict(ctx *gin.Context, message string) {
	errorResponse(ctx, http.StatusConflict, message)
}

func unprocessable(ctx *gin.Context, message string) {
	errorResponse(ctx, http.StatusUnprocessableEntity, message)
}

func internalError(ctx *gin.Context, message string) {
	errorResponse(ctx, http.StatusInternalServerError, message)
}

func serviceUnavailable(ctx *gin.Context, message string) {
	errorResponse(ctx, http.StatusServiceUnavailable, message)
}

// validationMessages are the short texts shown for user-correctable errors.
var validationMessages = []struct {
	err     error
	message string
}{
	{service.ErrMissingFields, "Please fill in all fields"},
	{service.ErrPasswordMismatch, "Passwords do not match"},
	{service.ErrPasswordTooShort, "Password must be at least 6 characters"},
	{portfolio.ErrInsufficientBalance, "Insufficient bitcoin balance for this sale"},
	{portfolio.ErrUnsupportedCurrency, "Currency must be one of BRL, USD, EUR, GBP"},
	{portfolio.ErrMissingPrice, "Bitcoin price is required"},
	{portfolio.ErrInvalidQuantity, "Amount must be greater than zero"},
	{portfolio.ErrInvalidTransaction, "Invalid transaction"},
	{importer.ErrUnsupportedFileType, "Unsupported file type. Please upload a CSV or JSON file"},
	{importer.ErrMalformedFile, "Could not read the uploaded file"},
	{service.ErrMissingTitle, "Title is required"},
}

// handleError maps service errors onto HTTP responses. Anything unknown is
// logged and answered with fallback.
func (c *Controller) handleError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrUsernameTaken):
		conflict(ctx, "Username already exists")
		return
	case errors.Is(err, service.ErrUserNotFound):
		unauthorized(ctx, "User not found")
		return
	case errors.Is(err, service.ErrWrongPassword):
		unauthorized(ctx, "Incorrect password")
		return
	case errors.Is(err, service.ErrTransactionNotFound), errors.Is(err, repo.ErrNotFound):
		notFound(ctx, "Not found")
		return
	case errors.Is(err, importer.ErrNoMatchingRows):
		unprocessable(ctx, "No BTC Supply or CowCollateralSwap transactions found in file")
		return
	}

	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			badRequestWithDetails(ctx, v.message, err.Error())
			return
		}
	}

	c.logger.Error(fallback, "path", ctx.FullPath(), "error", err)
	internalError(ctx, fallback)
}
