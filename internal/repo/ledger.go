package repo

import (
	"crescer/internal/models"
	"crescer/internal/portfolio"

	"gorm.io/gorm/clause"
)

// GetTransactions returns the user's stored list in order. A user without a
// ledger document has an empty list.
func (r *Repository) GetTransactions(userID string) ([]portfolio.Transaction, error) {
	var ledger models.Ledger
	err := r.db.Where("user_id = ?", userID).First(&ledger).Error
	if err != nil {
		if err = translate(err); err == ErrNotFound {
			return []portfolio.Transaction{}, nil
		}
		return nil, err
	}
	if ledger.Transactions == nil {
		return []portfolio.Transaction{}, nil
	}
	return ledger.Transactions, nil
}

// SaveTransactions overwrites the user's whole ledger document.
func (r *Repository) SaveTransactions(userID string, txs []portfolio.Transaction) error {
	if txs == nil {
		txs = []portfolio.Transaction{}
	}
	ledger := models.Ledger{UserID: userID, Transactions: txs}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&ledger).Error
}

// AppendTransaction is one read-modify-write round of the ledger.
func (r *Repository) AppendTransaction(userID string, tx portfolio.Transaction) error {
	txs, err := r.GetTransactions(userID)
	if err != nil {
		return err
	}
	return r.SaveTransactions(userID, append(txs, tx))
}
