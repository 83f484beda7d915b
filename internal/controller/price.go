package controller

import (
	"net/http"
	"strings"

	"crescer/internal/portfolio"
	"crescer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type HistoricalPriceResponse struct {
	Date     string             `json:"date"`
	Time     string             `json:"time"`
	Currency portfolio.Currency `json:"currency"`
	Price    float64            `json:"price"`
}

// GetSpotPrice godoc
// @Summary Current bitcoin price
// @Description Last spot quote converted into BRL, USD, EUR and GBP
// @Tags prices
// @Produce json
// @Success 200 {object} service.SpotQuote
// @Failure 503 {object} APIError
// @Router /api/prices [get]
func (c *Controller) GetSpotPrice(ctx *gin.Context) {
	quote := c.prices.Quote()
	if quote == nil {
		serviceUnavailable(ctx, "Price service not available")
		return
	}
	ctx.JSON(http.StatusOK, quote)
}

// GetRates godoc
// @Summary Exchange rates
// @Description Units of each supported currency per one USD
// @Tags prices
// @Produce json
// @Success 200 {object} portfolio.Rates
// @Router /api/prices/rates [get]
func (c *Controller) GetRates(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.rates.Current())
}

// GetHistoricalPrice godoc
// @Summary Bitcoin price at a moment
// @Description Closest historical sample to date/time, falling back to the spot price
// @Tags prices
// @Produce json
// @Param date query string true "YYYY-MM-DD"
// @Param time query string false "HH:MM"
// @Param currency query string false "Currency (BRL, USD, EUR, GBP)"
// @Success 200 {object} HistoricalPriceResponse
// @Failure 400 {object} APIError
// @Failure 503 {object} APIError
// @Router /api/prices/historical [get]
func (c *Controller) GetHistoricalPrice(ctx *gin.Context) {
	cur, ok := c.currency(ctx)
	if !ok {
		return
	}

	tx := portfolio.Transaction{Date: strings.TrimSpace(ctx.Query("date")), Time: strings.TrimSpace(ctx.Query("time"))}
	at, err := tx.Timestamp(c.location)
	if err != nil {
		badRequest(ctx, "date must be YYYY-MM-DD and time HH:MM")
		return
	}

	price, err := c.historic.PriceAt(ctx.Request.Context(), at, cur)
	if err != nil {
		if errors.Is(err, service.ErrPriceUnavailable) {
			serviceUnavailable(ctx, "Price not available")
			return
		}
		c.handleError(ctx, err, "Failed to fetch historical price")
		return
	}

	ctx.JSON(http.StatusOK, HistoricalPriceResponse{
		Date:     tx.Date,
		Time:     tx.Time,
		Currency: cur,
		Price:    price,
	})
}
