package models

import (
	"time"

	"crescer/internal/portfolio"
)

type User struct {
	ID           string    `json:"id"         gorm:"primaryKey"`
	Username     string    `json:"username"   gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-"          gorm:"not null"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// Ledger is the single document holding all of a user's transactions.
// It is always rewritten as a whole.
type Ledger struct {
	UserID       string                  `json:"userId"       gorm:"primaryKey"`
	Transactions []portfolio.Transaction `json:"transactions" gorm:"serializer:json;type:text"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

type Setting struct {
	ID        int64     `json:"id"         gorm:"primaryKey"`
	Key       string    `json:"key"        gorm:"column:setting_key;uniqueIndex;not null"`
	Value     string    `json:"value"      gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	ImportStatusCompleted = "completed"
	ImportStatusPartial   = "partial"
	ImportStatusFailed    = "failed"
)

type ImportLog struct {
	ID           int64     `json:"id"            gorm:"primaryKey"`
	UserID       string    `json:"user_id"       gorm:"index"`
	Filename     string    `json:"filename"`
	Format       string    `json:"format"`
	TotalRows    int       `json:"total_rows"`
	MatchedRows  int       `json:"matched_rows"`
	ImportedRows int       `json:"imported_rows"`
	FailedRows   int       `json:"failed_rows"`
	Status       string    `json:"status"`
	FailedData   string    `json:"failed_data"   gorm:"type:text"`
	Progress     []string  `json:"progress"      gorm:"serializer:json;type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (Ledger) TableName() string {
	return "user_transactions"
}

func (Setting) TableName() string {
	return "settings"
}

func (ImportLog) TableName() string {
	return "import_logs"
}
