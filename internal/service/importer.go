package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"crescer/internal/importer"
	"crescer/internal/models"
	"crescer/internal/portfolio"
	"crescer/pkg/types/pubsub"

	"github.com/pkg/errors"
)

var ErrInvalidImportConfig = errors.New("invalid import service config")

type ImportRepository interface {
	CreateImportLog(log *models.ImportLog) error
	UpdateImportLog(log *models.ImportLog) error
	GetImportLog(userID string, id int64) (*models.ImportLog, error)
	ListImportLogs(userID string) ([]models.ImportLog, error)
	DeleteImportLog(userID string, id int64) error
}

// TransactionAppender stores one imported transaction in a user's ledger.
type TransactionAppender interface {
	AppendTransaction(ctx context.Context, userID string, tx portfolio.Transaction) error
}

// ProgressFunc receives each human-readable status line as the import advances.
type ProgressFunc func(message string)

// ImportRequest is one uploaded file. An empty Format is detected from Filename.
type ImportRequest struct {
	UserID   string
	Filename string
	Format   string
	Data     []byte
}

// ProgressEvent is what the import progress topic carries.
type ProgressEvent struct {
	UserID   string `json:"user_id"`
	ImportID int64  `json:"import_id"`
	Message  string `json:"message"`
	Done     bool   `json:"done"`
}

type ImportService struct {
	logger     *slog.Logger
	repo       ImportRepository
	ledger     TransactionAppender
	normalizer *importer.Normalizer
	rates      RatesProvider
	publisher  pubsub.Publisher
}

type ImportOption func(*ImportService)

func WithImportLogger(l *slog.Logger) ImportOption {
	return func(s *ImportService) {
		s.logger = l
	}
}

func WithImportRepo(r ImportRepository) ImportOption {
	return func(s *ImportService) {
		s.repo = r
	}
}

func WithImportLedger(l TransactionAppender) ImportOption {
	return func(s *ImportService) {
		s.ledger = l
	}
}

func WithImportNormalizer(n *importer.Normalizer) ImportOption {
	return func(s *ImportService) {
		s.normalizer = n
	}
}

func WithImportRates(r RatesProvider) ImportOption {
	return func(s *ImportService) {
		s.rates = r
	}
}

// WithImportPublisher broadcasts progress events; optional.
func WithImportPublisher(p pubsub.Publisher) ImportOption {
	return func(s *ImportService) {
		s.publisher = p
	}
}

func (s *ImportService) IsValid() error {
	switch {
	case s.logger == nil:
		return errors.Wrap(ErrInvalidImportConfig, "logger cannot be nil")
	case s.repo == nil:
		return errors.Wrap(ErrInvalidImportConfig, "repo cannot be nil")
	case s.ledger == nil:
		return errors.Wrap(ErrInvalidImportConfig, "ledger cannot be nil")
	case s.normalizer == nil:
		return errors.Wrap(ErrInvalidImportConfig, "normalizer cannot be nil")
	case s.rates == nil:
		return errors.Wrap(ErrInvalidImportConfig, "rates provider cannot be nil")
	default:
		return nil
	}
}

func NewImportService(opts ...ImportOption) (*ImportService, error) {
	s := &ImportService{}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.IsValid(); err != nil {
		return nil, err
	}

	return s, nil
}

// Import parses the file, keeps BTC-acquiring rows and appends them one by one.
// Each append is its own read-modify-write; a failed row is recorded and the
// loop moves on. The returned log is persisted even when err is non-nil.
func (s *ImportService) Import(ctx context.Context, req ImportRequest, progress ProgressFunc) (*models.ImportLog, error) {
	log := &models.ImportLog{
		UserID:   req.UserID,
		Filename: req.Filename,
		Status:   models.ImportStatusFailed,
	}
	if err := s.repo.CreateImportLog(log); err != nil {
		return nil, errors.Wrap(err, "failed to create import log")
	}

	report := func(msg string) {
		log.Progress = append(log.Progress, msg)
		if progress != nil {
			progress(msg)
		}
		s.publish(ProgressEvent{UserID: req.UserID, ImportID: log.ID, Message: msg})
	}

	err := s.run(ctx, req, log, report)
	if err != nil {
		log.Status = models.ImportStatusFailed
		report(failureMessage(err))
	}

	if uerr := s.repo.UpdateImportLog(log); uerr != nil {
		s.logger.Error("failed to update import log", "import_id", log.ID, "error", uerr)
	}
	s.publish(ProgressEvent{UserID: req.UserID, ImportID: log.ID, Message: log.Status, Done: true})

	return log, err
}

func (s *ImportService) run(ctx context.Context, req ImportRequest, log *models.ImportLog, report ProgressFunc) error {
	ft, err := s.fileType(req)
	if err != nil {
		return err
	}
	log.Format = string(ft)

	report("Reading file...")
	rows, err := importer.Parse(req.Data, ft)
	if err != nil {
		return err
	}
	log.TotalRows = len(rows)
	report(fmt.Sprintf("Found %d rows in file", len(rows)))

	res := s.normalizer.Normalize(rows, req.UserID, s.rates.Current())
	log.MatchedRows = res.Matched
	if res.Matched == 0 {
		return importer.ErrNoMatchingRows
	}
	report(fmt.Sprintf("Found %d BTC Supply/CowCollateralSwap transactions", res.Matched))

	var failed []importer.RowError
	failed = append(failed, res.Skipped...)

	for i, tx := range res.Transactions {
		if err := s.ledger.AppendTransaction(ctx, req.UserID, tx); err != nil {
			s.logger.Error("failed to import transaction", "user_id", req.UserID, "tx_id", tx.ID, "error", err)
			data, _ := json.Marshal(tx)
			failed = append(failed, importer.RowError{Row: i + 1, Data: data, Message: err.Error()})
			continue
		}
		log.ImportedRows++
		report(fmt.Sprintf("Imported %d/%d transactions...", log.ImportedRows, len(res.Transactions)))
	}

	log.FailedRows = len(failed)
	if len(failed) > 0 {
		if data, err := json.Marshal(failed); err == nil {
			log.FailedData = string(data)
		}
	}

	switch {
	case log.ImportedRows == 0:
		log.Status = models.ImportStatusFailed
		report("Import failed: no transactions could be saved")
	case log.FailedRows > 0:
		log.Status = models.ImportStatusPartial
		report(fmt.Sprintf("Successfully imported %d BTC transactions (%d failed)", log.ImportedRows, log.FailedRows))
	default:
		log.Status = models.ImportStatusCompleted
		report(fmt.Sprintf("Successfully imported %d BTC transactions", log.ImportedRows))
	}

	s.logger.Info("import finished", "user_id", req.UserID, "import_id", log.ID,
		"total", log.TotalRows, "matched", log.MatchedRows, "imported", log.ImportedRows, "failed", log.FailedRows)
	return nil
}

func (s *ImportService) fileType(req ImportRequest) (importer.FileType, error) {
	if req.Format != "" {
		return importer.ParseFileType(req.Format)
	}
	return importer.DetectFileType(req.Filename)
}

func (s *ImportService) Logs(_ context.Context, userID string) ([]models.ImportLog, error) {
	return s.repo.ListImportLogs(userID)
}

func (s *ImportService) Log(_ context.Context, userID string, id int64) (*models.ImportLog, error) {
	return s.repo.GetImportLog(userID, id)
}

func (s *ImportService) DeleteLog(_ context.Context, userID string, id int64) error {
	return s.repo.DeleteImportLog(userID, id)
}

func (s *ImportService) publish(ev ProgressEvent) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(data); err != nil {
		s.logger.Debug("failed to publish import progress", "error", err)
	}
}

func failureMessage(err error) string {
	if errors.Is(err, importer.ErrNoMatchingRows) {
		return "No BTC Supply or CowCollateralSwap transactions found in file"
	}
	return "Import failed: " + err.Error()
}
