package repo

import (
	"crescer/internal/models"

	"gorm.io/gorm/clause"
)

func (r *Repository) GetSetting(key string) (*models.Setting, error) {
	var s models.Setting
	if err := r.db.Where("setting_key = ?", key).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *Repository) GetSettings(keys ...string) (map[string]string, error) {
	var settings []models.Setting
	if err := r.db.Where("setting_key IN ?", keys).Find(&settings).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out, nil
}

func (r *Repository) SetSetting(key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}
