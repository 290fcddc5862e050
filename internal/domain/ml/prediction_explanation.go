package ml

import (
	"time"

	"github.com/google/uuid"
)

// PredictionExplanation is one feature's contribution to a single
// prediction. Ranks within a prediction are a contiguous 1..N permutation
// ordered by importance score descending. An explanation's active state
// tracks its parent prediction's; it is never un-deleted on its own while
// the parent stays deleted.
type PredictionExplanation struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PredictionID uuid.UUID `gorm:"type:uuid;not null;index:idx_explanation_prediction_rank,priority:1" json:"prediction_id"`

	FeatureName     string      `gorm:"not null;column:feature_name" json:"feature_name"`
	FeatureValue    float64     `gorm:"not null;column:feature_value" json:"feature_value"`
	FeatureType     FeatureType `gorm:"type:text;not null;default:'raw';column:feature_type" json:"feature_type"`
	ImportanceScore float64     `gorm:"not null;column:importance_score" json:"importance_score"`
	Rank            int         `gorm:"not null;column:rank;index:idx_explanation_prediction_rank,priority:2" json:"rank"`

	IsActive  bool       `gorm:"not null;default:true;column:is_active;index" json:"is_active"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (PredictionExplanation) TableName() string { return "prediction_explanations" }

func (e *PredictionExplanation) AuditState() (bool, *time.Time) { return e.IsActive, e.DeletedAt }

func (e *PredictionExplanation) SetAuditState(active bool, deletedAt *time.Time, at time.Time) {
	e.IsActive = active
	e.DeletedAt = deletedAt
	e.UpdatedAt = at
}
