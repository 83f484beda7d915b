package repo

import (
	"crescer/internal/models"
)

func (r *Repository) CreateImportLog(log *models.ImportLog) error {
	return r.db.Create(log).Error
}

func (r *Repository) GetImportLog(userID string, id int64) (*models.ImportLog, error) {
	var log models.ImportLog
	if err := r.db.Where("user_id = ?", userID).First(&log, id).Error; err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

func (r *Repository) ListImportLogs(userID string) ([]models.ImportLog, error) {
	var logs []models.ImportLog
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *Repository) UpdateImportLog(log *models.ImportLog) error {
	return r.db.Save(log).Error
}

func (r *Repository) DeleteImportLog(userID string, id int64) error {
	res := r.db.Where("user_id = ?", userID).Delete(&models.ImportLog{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
