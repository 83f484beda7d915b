package database

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultPath = "./data/crescer.db"

// Database owns the GORM connection to the SQLite document store.
type Database struct {
	conn   *gorm.DB
	logger *slog.Logger
}

// Option is the functional options pattern for Database
type Option func(*Database) error

func New(opts ...Option) (*Database, error) {
	db := &Database{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		if err := opt(db); err != nil {
			return nil, err
		}
	}
	if db.conn == nil {
		if err := WithPath(DefaultPath)(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// WithLogger must come before WithPath to log the connection.
func WithLogger(l *slog.Logger) Option {
	return func(db *Database) error {
		if l != nil {
			db.logger = l
		}
		return nil
	}
}

func inMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}

// WithPath opens the SQLite file at path, creating its directory when needed.
func WithPath(path string) Option {
	return func(db *Database) error {
		if path == "" {
			path = DefaultPath
		}

		if !inMemory(path) {
			dir := filepath.Dir(path)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create data directory %s: %w", dir, err)
			}
			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("failed to stat data directory %s: %w", dir, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("data path %s is not a directory", dir)
			}
		}

		conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database %s: %w", path, err)
		}

		// SQLite serializes writers; one connection avoids "database is locked"
		// and keeps in-memory databases from splitting per connection.
		sqlDB, err := conn.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)

		db.conn = conn
		db.logger.Info("database connected", "path", path)
		return nil
	}
}

// Get returns the underlying GORM database instance
func (d *Database) Get() *gorm.DB {
	return d.conn
}

func (d *Database) Close() error {
	if d.conn == nil {
		return nil
	}
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
