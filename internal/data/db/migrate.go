package db

import (
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.FeatureSnapshot{},
		&types.ModelVersion{},
		&types.Prediction{},
		&types.PredictionExplanation{},
	)
}
