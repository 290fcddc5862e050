package repos

import (
	"gorm.io/gorm"

	"github.com/runitlabs/prediction-backend/internal/audit"
	"github.com/runitlabs/prediction-backend/internal/data/repos/features"
	"github.com/runitlabs/prediction-backend/internal/data/repos/models"
	"github.com/runitlabs/prediction-backend/internal/data/repos/predictions"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

type FeatureSnapshotRepo = features.FeatureSnapshotRepo
type ModelVersionRepo = models.ModelVersionRepo
type PredictionRepo = predictions.PredictionRepo
type PredictionExplanationRepo = predictions.PredictionExplanationRepo

// Set bundles every repo behind one constructor for the entrypoints.
type Set struct {
	FeatureSnapshots FeatureSnapshotRepo
	ModelVersions    ModelVersionRepo
	Predictions      PredictionRepo
	Explanations     PredictionExplanationRepo
}

func New(db *gorm.DB, baseLog *logger.Logger, auditor *audit.Coordinator) *Set {
	return &Set{
		FeatureSnapshots: features.NewFeatureSnapshotRepo(db, baseLog, auditor),
		ModelVersions:    models.NewModelVersionRepo(db, baseLog),
		Predictions:      predictions.NewPredictionRepo(db, baseLog, auditor),
		Explanations:     predictions.NewPredictionExplanationRepo(db, baseLog, auditor),
	}
}
