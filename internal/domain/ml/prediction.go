package ml

import (
	"time"

	"github.com/google/uuid"
)

// Prediction is one ledger entry: a score produced by a specific model
// version for one user, plus the risk bucket derived from it. Rows are
// immutable after creation except for soft delete.
type Prediction struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_prediction_user_type,priority:1" json:"user_id"`

	ModelType ModelType `gorm:"type:text;not null;index:idx_prediction_user_type,priority:2;index:idx_prediction_type_risk,priority:1" json:"model_type"`

	// Score is a churn probability in [0,1], or a normalized LTV value.
	Score            float64   `gorm:"not null;column:score" json:"score"`
	ConfidenceScore  float64   `gorm:"not null;column:confidence_score" json:"confidence_score"`
	RiskLevel        RiskLevel `gorm:"type:text;not null;column:risk_level;index:idx_prediction_type_risk,priority:2" json:"risk_level"`
	ModelVersionName string    `gorm:"not null;column:model_version_name" json:"model_version_name"`

	IsActive  bool       `gorm:"not null;default:true;column:is_active;index:idx_prediction_user_type,priority:3" json:"is_active"`
	CreatedAt time.Time  `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	Explanations []*PredictionExplanation `gorm:"-" json:"explanations,omitempty"`
}

func (Prediction) TableName() string { return "predictions" }

func (p *Prediction) AuditState() (bool, *time.Time) { return p.IsActive, p.DeletedAt }

func (p *Prediction) SetAuditState(active bool, deletedAt *time.Time, at time.Time) {
	p.IsActive = active
	p.DeletedAt = deletedAt
	p.UpdatedAt = at
}
