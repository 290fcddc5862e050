package ml

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ModelVersion is one trained, immutable artifact. Versions are never
// deleted, soft or hard: the registry is the audit trail for rollbacks.
// At most one row per model_type has Active=true; the swap happens inside
// ModelVersionRepo.SetActiveExclusive under a per-type row lock.
type ModelVersion struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ModelType   ModelType `gorm:"type:text;not null;uniqueIndex:idx_model_version_type_name,priority:1;index:idx_model_version_active,priority:1" json:"model_type"`
	VersionName string    `gorm:"not null;uniqueIndex:idx_model_version_type_name,priority:2;column:version_name" json:"version_name"`

	FilePath  string    `gorm:"not null;column:file_path" json:"file_path"`
	TrainedAt time.Time `gorm:"not null;column:trained_at;index" json:"trained_at"`

	// Classification metrics (meaningful for CHURN versions).
	Accuracy  *float64 `gorm:"column:accuracy" json:"accuracy,omitempty"`
	Precision *float64 `gorm:"column:precision" json:"precision,omitempty"`
	Recall    *float64 `gorm:"column:recall" json:"recall,omitempty"`
	F1Score   *float64 `gorm:"column:f1_score" json:"f1_score,omitempty"`

	// Regression metrics (meaningful for LTV versions).
	RMSE *float64 `gorm:"column:rmse" json:"rmse,omitempty"`
	MAE  *float64 `gorm:"column:mae" json:"mae,omitempty"`
	R2   *float64 `gorm:"column:r2" json:"r2,omitempty"`

	Hyperparameters datatypes.JSON `gorm:"column:hyperparameters;type:jsonb" json:"hyperparameters,omitempty"`

	Active bool `gorm:"not null;default:false;column:active;index:idx_model_version_active,priority:2" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ModelVersion) TableName() string { return "model_versions" }

// Metrics carries the training metrics for Register. Only the subset
// matching the model type is persisted.
type Metrics struct {
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Precision *float64 `json:"precision,omitempty"`
	Recall    *float64 `json:"recall,omitempty"`
	F1Score   *float64 `json:"f1_score,omitempty"`
	RMSE      *float64 `json:"rmse,omitempty"`
	MAE       *float64 `json:"mae,omitempty"`
	R2        *float64 `json:"r2,omitempty"`
}
