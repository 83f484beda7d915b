package repo

import (
	"strings"

	"crescer/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNilDatabase = errors.New("database cannot be nil")
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("record already exists")
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.Ledger{},
		&models.ImportLog{},
		&models.Setting{},
	)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return errors.Wrap(ErrDuplicate, err.Error())
	default:
		return err
	}
}
