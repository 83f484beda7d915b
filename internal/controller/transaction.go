package controller

import (
	"net/http"

	"crescer/internal/portfolio"
	"crescer/internal/service"

	"github.com/gin-gonic/gin"
)

// ListTransactions godoc
// @Summary List transactions
// @Description Newest first, valued in the requested currency with per-buy profit/loss
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param currency query string false "Display currency (BRL, USD, EUR, GBP)"
// @Success 200 {array} service.TransactionView
// @Failure 400 {object} APIError
// @Router /api/transactions [get]
func (c *Controller) ListTransactions(ctx *gin.Context) {
	cur, ok := c.currency(ctx)
	if !ok {
		return
	}

	views, err := c.ledger.List(ctx.Request.Context(), userID(ctx), cur)
	if err != nil {
		c.handleError(ctx, err, "Failed to fetch transactions")
		return
	}
	ctx.JSON(http.StatusOK, views)
}

// Buy godoc
// @Summary Record a purchase
// @Description A zero bitcoinPrice uses the historical price at date/time
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.TradeInput true "Purchase"
// @Success 201 {object} portfolio.Transaction
// @Failure 400 {object} APIError
// @Router /api/transactions/buy [post]
func (c *Controller) Buy(ctx *gin.Context) {
	c.trade(ctx, portfolio.Buy)
}

// Sell godoc
// @Summary Record a sale
// @Description Rejected when the amount exceeds the current balance
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.TradeInput true "Sale"
// @Success 201 {object} portfolio.Transaction
// @Failure 400 {object} APIError
// @Router /api/transactions/sell [post]
func (c *Controller) Sell(ctx *gin.Context) {
	c.trade(ctx, portfolio.Sell)
}

func (c *Controller) trade(ctx *gin.Context, t portfolio.TransactionType) {
	var in service.TradeInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequestWithDetails(ctx, "Invalid input", err.Error())
		return
	}
	in.Type = t
	if in.Currency == "" {
		in.Currency = c.display.String()
	}

	tx, err := c.ledger.AddTransaction(ctx.Request.Context(), userID(ctx), in)
	if err != nil {
		c.handleError(ctx, err, "Failed to save transaction")
		return
	}
	ctx.JSON(http.StatusCreated, tx)
}

// UpdateTransaction godoc
// @Summary Edit a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param body body service.TradeInput true "New values"
// @Success 200 {object} portfolio.Transaction
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Router /api/transactions/{id} [put]
func (c *Controller) UpdateTransaction(ctx *gin.Context) {
	var in service.TradeInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequestWithDetails(ctx, "Invalid input", err.Error())
		return
	}
	if in.Currency == "" {
		in.Currency = c.display.String()
	}

	tx, err := c.ledger.UpdateTransaction(ctx.Request.Context(), userID(ctx), ctx.Param("id"), in)
	if err != nil {
		c.handleError(ctx, err, "Failed to update transaction")
		return
	}
	ctx.JSON(http.StatusOK, tx)
}

// DeleteTransaction godoc
// @Summary Delete a transaction
// @Tags transactions
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 204
// @Failure 404 {object} APIError
// @Router /api/transactions/{id} [delete]
func (c *Controller) DeleteTransaction(ctx *gin.Context) {
	if err := c.ledger.DeleteTransaction(ctx.Request.Context(), userID(ctx), ctx.Param("id")); err != nil {
		c.handleError(ctx, err, "Failed to delete transaction")
		return
	}
	ctx.Status(http.StatusNoContent)
}
