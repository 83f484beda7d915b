package controller

import (
	"log/slog"
	"strings"
	"time"

	"crescer/internal/auth"
	"crescer/internal/models"
	"crescer/internal/portfolio"
	"crescer/internal/service"
	"crescer/pkg/types/pubsub"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"

	defaultMaxUploadBytes = 10 << 20
)

type UserLister interface {
	ListUsers() ([]models.User, error)
}

type Controller struct {
	logger         *slog.Logger
	auth           *service.AuthService
	tokens         *auth.Tokens
	ledger         *service.LedgerService
	imports        *service.ImportService
	prices         *service.LivePriceService
	rates          service.RatesProvider
	historic       service.HistoricProvider
	content        *service.ContentService
	users          UserLister
	importProgress pubsub.Subscriber
	display        portfolio.Currency
	location       *time.Location
	maxUploadBytes int64
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func WithAuthService(s *service.AuthService) Option {
	return func(c *Controller) {
		c.auth = s
	}
}

func WithTokens(t *auth.Tokens) Option {
	return func(c *Controller) {
		c.tokens = t
	}
}

func WithLedgerService(s *service.LedgerService) Option {
	return func(c *Controller) {
		c.ledger = s
	}
}

func WithImportService(s *service.ImportService) Option {
	return func(c *Controller) {
		c.imports = s
	}
}

func WithLivePriceService(s *service.LivePriceService) Option {
	return func(c *Controller) {
		c.prices = s
	}
}

func WithRates(r service.RatesProvider) Option {
	return func(c *Controller) {
		c.rates = r
	}
}

func WithHistoric(h service.HistoricProvider) Option {
	return func(c *Controller) {
		c.historic = h
	}
}

func WithContentService(s *service.ContentService) Option {
	return func(c *Controller) {
		c.content = s
	}
}

func WithUsers(u UserLister) Option {
	return func(c *Controller) {
		c.users = u
	}
}

// WithImportProgress enables the import progress stream.
func WithImportProgress(s pubsub.Subscriber) Option {
	return func(c *Controller) {
		c.importProgress = s
	}
}

// WithDisplayCurrency sets the currency used when a request does not name one.
func WithDisplayCurrency(cur portfolio.Currency) Option {
	return func(c *Controller) {
		c.display = cur
	}
}

func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		c.location = loc
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(c *Controller) {
		c.maxUploadBytes = n
	}
}

func (c *Controller) IsValid() error {
	switch {
	case c.logger == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "logger cannot be nil")
	case c.auth == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "auth service cannot be nil")
	case c.tokens == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "tokens cannot be nil")
	case c.ledger == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "ledger service cannot be nil")
	case c.imports == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "import service cannot be nil")
	case c.prices == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "live price service cannot be nil")
	case c.rates == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "rates provider cannot be nil")
	case c.historic == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "historic provider cannot be nil")
	case c.content == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "content service cannot be nil")
	case c.users == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "user lister cannot be nil")
	case !c.display.IsValid():
		return errors.Wrapf(ErrInvalidControllerConfig, "display currency %q not supported", c.display)
	case c.location == nil:
		return errors.Wrap(ErrInvalidControllerConfig, "location cannot be nil")
	case c.maxUploadBytes <= 0:
		return errors.Wrap(ErrInvalidControllerConfig, "max upload bytes must be positive")
	default:
		return nil
	}
}

func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		display:        portfolio.BRL,
		location:       time.Local,
		maxUploadBytes: defaultMaxUploadBytes,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.IsValid(); err != nil {
		return nil, err
	}

	return c, nil
}

func userID(ctx *gin.Context) string {
	return ctx.GetString(ctxUserID)
}

// currency reads the "currency" query parameter, defaulting to the configured display currency.
func (c *Controller) currency(ctx *gin.Context) (portfolio.Currency, bool) {
	raw := strings.TrimSpace(ctx.Query("currency"))
	if raw == "" {
		return c.display, true
	}
	cur, err := portfolio.ParseCurrency(raw)
	if err != nil {
		badRequest(ctx, "currency must be one of BRL, USD, EUR, GBP")
		return "", false
	}
	return cur, true
}
