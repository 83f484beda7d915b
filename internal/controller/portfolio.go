package controller

import (
	"net/http"

	"crescer/internal/portfolio"

	"github.com/gin-gonic/gin"
)

// SummaryResponse pairs the raw figures with display strings.
type SummaryResponse struct {
	portfolio.Summary
	Formatted FormattedSummary `json:"formatted"`
}

type FormattedSummary struct {
	TotalBitcoin     string `json:"total_bitcoin"`
	TotalInvested    string `json:"total_invested"`
	AverageBuyPrice  string `json:"average_buy_price"`
	AverageSellPrice string `json:"average_sell_price"`
	CurrentPrice     string `json:"current_price"`
	CurrentValue     string `json:"current_value"`
	Profit           string `json:"profit"`
	ProfitPercentage string `json:"profit_percentage"`
}

// PortfolioSummary godoc
// @Summary Portfolio summary
// @Description Balance, invested total, average prices and unrealized result
// @Tags portfolio
// @Produce json
// @Security BearerAuth
// @Param currency query string false "Display currency (BRL, USD, EUR, GBP)"
// @Success 200 {object} SummaryResponse
// @Failure 400 {object} APIError
// @Router /api/portfolio/summary [get]
func (c *Controller) PortfolioSummary(ctx *gin.Context) {
	cur, ok := c.currency(ctx)
	if !ok {
		return
	}

	s, err := c.ledger.Summary(ctx.Request.Context(), userID(ctx), cur)
	if err != nil {
		c.handleError(ctx, err, "Failed to calculate summary")
		return
	}

	ctx.JSON(http.StatusOK, SummaryResponse{
		Summary: s,
		Formatted: FormattedSummary{
			TotalBitcoin:     portfolio.FormatBTC(s.TotalBitcoin),
			TotalInvested:    portfolio.FormatFiat(s.TotalInvested, cur),
			AverageBuyPrice:  portfolio.FormatFiat(s.AverageBuyPrice, cur),
			AverageSellPrice: portfolio.FormatFiat(s.AverageSellPrice, cur),
			CurrentPrice:     portfolio.FormatFiat(s.CurrentPrice, cur),
			CurrentValue:     portfolio.FormatFiat(s.CurrentValue, cur),
			Profit:           portfolio.FormatFiat(s.Profit, cur),
			ProfitPercentage: portfolio.FormatPercent(s.ProfitPercentage),
		},
	})
}

// PortfolioPerformance godoc
// @Summary Portfolio performance
// @Description Running balance and invested total after each transaction, valued at the current price
// @Tags portfolio
// @Produce json
// @Security BearerAuth
// @Param currency query string false "Display currency (BRL, USD, EUR, GBP)"
// @Success 200 {array} service.PerformancePoint
// @Failure 400 {object} APIError
// @Router /api/portfolio/performance [get]
func (c *Controller) PortfolioPerformance(ctx *gin.Context) {
	cur, ok := c.currency(ctx)
	if !ok {
		return
	}

	points, err := c.ledger.Performance(ctx.Request.Context(), userID(ctx), cur)
	if err != nil {
		c.handleError(ctx, err, "Failed to calculate performance")
		return
	}
	ctx.JSON(http.StatusOK, points)
}
