package controller

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crescer/internal/importer"
	"crescer/internal/models"
	"crescer/internal/portfolio"
	"crescer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type ImportResponse struct {
	ID       int64               `json:"id"`
	Status   string              `json:"status"`
	Total    int                 `json:"total"`
	Matched  int                 `json:"matched"`
	Imported int                 `json:"imported"`
	Failed   int                 `json:"failed"`
	Messages []string            `json:"messages"`
	Errors   []importer.RowError `json:"errors,omitempty"`
}

// ImportError is a failed import. ImportID points at the stored log.
type ImportError struct {
	APIError
	ImportID int64    `json:"import_id"`
	Messages []string `json:"messages"`
}

// ExportTransactions exports the caller's ledger as CSV or JSON
// @Summary Export transactions
// @Description Download every transaction as a CSV or JSON file
// @Tags data
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "Export format (csv or json)"
// @Success 200 {file} file
// @Failure 400 {object} APIError
// @Router /api/transactions/export [get]
func (c *Controller) ExportTransactions(ctx *gin.Context) {
	format := strings.ToLower(ctx.DefaultQuery("format", "csv"))
	if format != "csv" && format != "json" {
		badRequest(ctx, "format must be csv or json")
		return
	}

	txs, err := c.ledger.Transactions(ctx.Request.Context(), userID(ctx))
	if err != nil {
		c.handleError(ctx, err, "Failed to fetch transactions")
		return
	}

	filename := fmt.Sprintf("bitcoin_transactions_%s.%s", time.Now().Format(portfolio.DateLayout), format)
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if format == "json" {
		ctx.Header("Content-Type", "application/json")
		ctx.JSON(http.StatusOK, txs)
		return
	}

	data, err := transactionsToCSV(txs)
	if err != nil {
		c.logger.Error("failed to write csv export", "user_id", userID(ctx), "error", err)
		internalError(ctx, "Failed to export transactions")
		return
	}
	ctx.Data(http.StatusOK, "text/csv", data)
}

// ImportTransactions imports BTC deposits from a lending-protocol history export
// @Summary Import transactions
// @Description Upload a CSV or JSON history. BTC Supply and CowCollateralSwap rows become buys.
// @Tags data
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to import"
// @Param format formData string false "csv or json; detected from the file name when omitted"
// @Success 200 {object} ImportResponse
// @Failure 400 {object} APIError
// @Failure 422 {object} ImportError
// @Router /api/imports [post]
func (c *Controller) ImportTransactions(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBytes)

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		badRequest(ctx, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(ctx, "failed to read file")
		return
	}

	log, err := c.imports.Import(ctx.Request.Context(), service.ImportRequest{
		UserID:   userID(ctx),
		Filename: header.Filename,
		Format:   strings.ToLower(strings.TrimSpace(ctx.PostForm("format"))),
		Data:     data,
	}, nil)
	if err != nil {
		if log == nil {
			c.handleError(ctx, err, "Import failed")
			return
		}
		c.importFailed(ctx, err, log)
		return
	}

	ctx.JSON(http.StatusOK, c.toImportResponse(log))
}

func (c *Controller) importFailed(ctx *gin.Context, err error, log *models.ImportLog) {
	resp := ImportError{
		APIError: APIError{Error: "Import failed", Details: err.Error()},
		ImportID: log.ID,
		Messages: log.Progress,
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, importer.ErrNoMatchingRows):
		status = http.StatusUnprocessableEntity
		resp.Error = "No BTC Supply or CowCollateralSwap transactions found in file"
	case errors.Is(err, importer.ErrUnsupportedFileType):
		status = http.StatusBadRequest
		resp.Error = "Unsupported file type. Please upload a CSV or JSON file"
	case errors.Is(err, importer.ErrMalformedFile):
		status = http.StatusBadRequest
		resp.Error = "Could not read the uploaded file"
	default:
		c.logger.Error("import failed", "import_id", log.ID, "error", err)
		resp.Details = ""
	}
	ctx.JSON(status, resp)
}

// ListImportLogs returns the caller's import history
// @Summary List import logs
// @Tags data
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ImportLog
// @Router /api/imports [get]
func (c *Controller) ListImportLogs(ctx *gin.Context) {
	logs, err := c.imports.Logs(ctx.Request.Context(), userID(ctx))
	if err != nil {
		internalError(ctx, "failed to fetch import logs")
		return
	}
	ctx.JSON(http.StatusOK, logs)
}

// GetImportLog returns a specific import log
// @Summary Get import log
// @Description Get a specific import log with its progress messages and failed rows
// @Tags data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Import log ID"
// @Success 200 {object} models.ImportLog
// @Failure 404 {object} APIError
// @Router /api/imports/{id} [get]
func (c *Controller) GetImportLog(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		badRequest(ctx, "invalid id")
		return
	}

	log, err := c.imports.Log(ctx.Request.Context(), userID(ctx), id)
	if err != nil {
		notFound(ctx, "import log not found")
		return
	}

	ctx.JSON(http.StatusOK, log)
}

// DeleteImportLog deletes an import log
// @Summary Delete import log
// @Description Removes the log entry only; imported transactions stay in the ledger
// @Tags data
// @Security BearerAuth
// @Param id path int true "Import log ID"
// @Success 204
// @Failure 404 {object} APIError
// @Router /api/imports/{id} [delete]
func (c *Controller) DeleteImportLog(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		badRequest(ctx, "invalid id")
		return
	}

	if err := c.imports.DeleteLog(ctx.Request.Context(), userID(ctx), id); err != nil {
		notFound(ctx, "import log not found")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) toImportResponse(log *models.ImportLog) ImportResponse {
	resp := ImportResponse{
		ID:       log.ID,
		Status:   log.Status,
		Total:    log.TotalRows,
		Matched:  log.MatchedRows,
		Imported: log.ImportedRows,
		Failed:   log.FailedRows,
		Messages: log.Progress,
	}
	if log.FailedData != "" {
		if err := json.Unmarshal([]byte(log.FailedData), &resp.Errors); err != nil {
			c.logger.Warn("failed to decode failed rows", "import_id", log.ID, "error", err)
		}
	}
	return resp
}

var csvHeader = []string{
	"id", "type", "date", "time", "bitcoinAmount", "satoshis",
	"fiatAmount", "fiatCurrency", "bitcoinPrice", "createdAt",
}

func transactionsToCSV(txs []portfolio.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTransactionsCSV(&buf, txs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTransactionsCSV(out io.Writer, txs []portfolio.Transaction) error {
	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}

	for _, tx := range txs {
		if err := w.Write([]string{
			csvSafe(tx.ID),
			string(tx.Type),
			tx.Date,
			tx.Time,
			strconv.FormatFloat(tx.BitcoinAmount, 'f', -1, 64),
			strconv.FormatInt(tx.Satoshis, 10),
			strconv.FormatFloat(tx.FiatAmount, 'f', -1, 64),
			string(tx.FiatCurrency),
			strconv.FormatFloat(tx.BitcoinPrice, 'f', -1, 64),
			tx.CreatedAt.Format(time.RFC3339),
		}); err != nil {
			return errors.Wrapf(err, "failed to write transaction %s", tx.ID)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "failed to flush csv")
	}
	return nil
}

// csvSafe keeps spreadsheet apps from evaluating a cell as a formula.
func csvSafe(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
