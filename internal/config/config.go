package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crescer/internal/portfolio"
	"crescer/pkg/database"
	"crescer/pkg/types/scheduler"
	"crescer/pkg/utils"

	"github.com/pkg/errors"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds every setting of the application, read from the environment
// (optionally seeded by a .env file).
type Config struct {
	Port     string
	DBPath   string
	LogLevel slog.Level
	Location *time.Location

	DisplayCurrency portfolio.Currency

	// Security
	JWTSecret      string
	SessionTTL     time.Duration
	MaxUploadBytes int64
	SessionFile    string

	// Feeds
	SpotInterval     time.Duration
	RatesInterval    time.Duration
	SpotSource       string
	CoinGeckoAPIKey  string
	HistoricThrottle time.Duration

	// Admin content route
	AdminEnabled  bool
	AdminUsername string
	AdminPassword string
}

func (c *Config) IsValid() error {
	switch {
	case c.Port == "":
		return errors.Wrap(ErrInvalidConfig, "APP_PORT cannot be empty")
	case len(c.JWTSecret) < 16:
		return errors.Wrap(ErrInvalidConfig, "JWT_SECRET must be at least 16 characters")
	case c.SpotInterval <= 0 || c.RatesInterval <= 0:
		return errors.Wrap(ErrInvalidConfig, "feed intervals must be positive")
	case c.MaxUploadBytes <= 0:
		return errors.Wrap(ErrInvalidConfig, "MAX_UPLOAD_BYTES must be positive")
	case c.AdminEnabled && (c.AdminUsername == "" || c.AdminPassword == ""):
		return errors.Wrap(ErrInvalidConfig, "ADMIN_USERNAME and ADMIN_PASSWORD are required when ADMIN_ENABLED")
	default:
		return nil
	}
}

// Load reads the environment. envFiles are loaded first when present.
func Load(envFiles ...string) (*Config, error) {
	utils.LoadEnv(envFiles...)

	display, err := portfolio.ParseCurrency(utils.GetEnv("DISPLAY_CURRENCY", string(portfolio.BRL)))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	loc, err := time.LoadLocation(utils.GetEnv("TZ_NAME", "Local"))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "TZ_NAME: %v", err)
	}

	cfg := &Config{
		Port:             utils.GetEnv("APP_PORT", "8080"),
		DBPath:           utils.GetEnv("DB_PATH", database.DefaultPath),
		LogLevel:         parseLevel(utils.GetEnv("LOG_LEVEL", "info")),
		Location:         loc,
		DisplayCurrency:  display,
		JWTSecret:        utils.GetEnv("JWT_SECRET", ""),
		SessionTTL:       utils.GetEnvDuration("SESSION_TTL", 0),
		MaxUploadBytes:   utils.GetEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		SessionFile:      utils.GetEnv("SESSION_FILE", defaultSessionFile()),
		SpotInterval:     utils.GetEnvDuration("SPOT_INTERVAL", scheduler.IntervalSpotPrice),
		RatesInterval:    utils.GetEnvDuration("RATES_INTERVAL", scheduler.IntervalRates),
		SpotSource:       utils.GetEnv("SPOT_SOURCE", ""),
		CoinGeckoAPIKey:  utils.GetEnv("COINGECKO_API_KEY", ""),
		HistoricThrottle: utils.GetEnvDuration("HISTORIC_THROTTLE", 500*time.Millisecond),
		AdminEnabled:     utils.GetEnvBool("ADMIN_ENABLED", false),
		AdminUsername:    utils.GetEnv("ADMIN_USERNAME", ""),
		AdminPassword:    utils.GetEnv("ADMIN_PASSWORD", ""),
	}

	if err := cfg.IsValid(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".crescer_user_session"
	}
	return filepath.Join(dir, "crescer", "crescer_user_session")
}

// Logger builds the process logger for the configured level.
func (c *Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel}))
}
