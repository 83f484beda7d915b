package handler

import (
	"errors"
	"net/http"

	"crescer/internal/controller"
	"crescer/pkg/types/pubsub"

	"github.com/gin-gonic/gin"
)

var (
	ErrNilEngine       = errors.New("engine is required")
	ErrNilController   = errors.New("controller is required")
	ErrNilPriceStream  = errors.New("price stream is required")
	ErrMissingAdminKey = errors.New("admin username and password are required when admin routes are enabled")
)

// AdminAccount guards the admin route group with HTTP basic auth.
type AdminAccount struct {
	Username string
	Password string
}

type Handler struct {
	engine      *gin.Engine
	ctrl        *controller.Controller
	priceStream pubsub.Subscriber
	admin       *AdminAccount
}

func (h *Handler) IsValid() error {
	if h.engine == nil {
		return ErrNilEngine
	}
	if h.ctrl == nil {
		return ErrNilController
	}
	if h.priceStream == nil {
		return ErrNilPriceStream
	}
	if h.admin != nil && (h.admin.Username == "" || h.admin.Password == "") {
		return ErrMissingAdminKey
	}
	return nil
}

type Option func(*Handler)

func WithEngine(engine *gin.Engine) Option {
	return func(h *Handler) {
		h.engine = engine
	}
}

func WithController(c *controller.Controller) Option {
	return func(h *Handler) {
		h.ctrl = c
	}
}

func WithPriceStream(s pubsub.Subscriber) Option {
	return func(h *Handler) {
		h.priceStream = s
	}
}

// WithAdmin enables /api/admin behind basic auth.
func WithAdmin(username, password string) Option {
	return func(h *Handler) {
		h.admin = &AdminAccount{Username: username, Password: password}
	}
}

func New(opts ...Option) (*Handler, error) {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.IsValid(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handler) Setup() error {
	ctrl := h.ctrl

	h.engine.GET("/health", health)

	api := h.engine.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", ctrl.Register)
	authGroup.POST("/login", ctrl.Login)

	api.GET("/content", ctrl.GetContent)

	prices := api.Group("/prices")
	prices.GET("", ctrl.GetSpotPrice)
	prices.GET("/rates", ctrl.GetRates)
	prices.GET("/historical", ctrl.GetHistoricalPrice)
	prices.GET("/stream", controller.SSEPrices(h.priceStream))

	private := api.Group("", ctrl.RequireAuth())
	private.GET("/me", ctrl.Me)

	transactions := private.Group("/transactions")
	transactions.GET("", ctrl.ListTransactions)
	transactions.GET("/export", ctrl.ExportTransactions)
	transactions.POST("/buy", ctrl.Buy)
	transactions.POST("/sell", ctrl.Sell)
	transactions.PUT("/:id", ctrl.UpdateTransaction)
	transactions.DELETE("/:id", ctrl.DeleteTransaction)

	portfolio := private.Group("/portfolio")
	portfolio.GET("/summary", ctrl.PortfolioSummary)
	portfolio.GET("/performance", ctrl.PortfolioPerformance)

	imports := private.Group("/imports")
	imports.GET("", ctrl.ListImportLogs)
	imports.POST("", ctrl.ImportTransactions)
	imports.GET("/stream", ctrl.ImportProgressStream)
	imports.GET("/:id", ctrl.GetImportLog)
	imports.DELETE("/:id", ctrl.DeleteImportLog)

	if h.admin != nil {
		admin := api.Group("/admin", gin.BasicAuth(gin.Accounts{h.admin.Username: h.admin.Password}))
		admin.PUT("/content", ctrl.UpdateContent)
		admin.GET("/users", ctrl.ListUsers)
	}

	return nil
}

func health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
