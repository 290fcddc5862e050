package predictions

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/runitlabs/prediction-backend/internal/audit"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/pkg/dbctx"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

type PredictionExplanationRepo interface {
	Create(dbc dbctx.Context, rows []*types.PredictionExplanation) error

	GetByID(dbc dbctx.Context, id uuid.UUID, includeDeleted bool) (*types.PredictionExplanation, error)
	GetByPredictionID(dbc dbctx.Context, predictionID uuid.UUID, includeDeleted bool) ([]*types.PredictionExplanation, error)

	SoftDeleteByPredictionID(dbc dbctx.Context, predictionID uuid.UUID) error
	RestoreByPredictionID(dbc dbctx.Context, predictionID uuid.UUID) error
	RestoreByID(dbc dbctx.Context, id uuid.UUID) error
}

type predictionExplanationRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	auditor *audit.Coordinator
}

func NewPredictionExplanationRepo(db *gorm.DB, baseLog *logger.Logger, auditor *audit.Coordinator) PredictionExplanationRepo {
	return &predictionExplanationRepo{
		db:      db,
		log:     baseLog.With("repo", "PredictionExplanationRepo"),
		auditor: auditor,
	}
}

func (r *predictionExplanationRepo) Create(dbc dbctx.Context, rows []*types.PredictionExplanation) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(&rows).Error
}

func (r *predictionExplanationRepo) GetByID(dbc dbctx.Context, id uuid.UUID, includeDeleted bool) (*types.PredictionExplanation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.PredictionExplanation
	err := t.WithContext(dbc.Ctx).
		Scopes(r.auditor.Scope(includeDeleted)).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("explanation %s: %w", id, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *predictionExplanationRepo) GetByPredictionID(dbc dbctx.Context, predictionID uuid.UUID, includeDeleted bool) ([]*types.PredictionExplanation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.PredictionExplanation
	if err := t.WithContext(dbc.Ctx).
		Scopes(r.auditor.Scope(includeDeleted)).
		Where("prediction_id = ?", predictionID).
		Order("rank ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *predictionExplanationRepo) SoftDeleteByPredictionID(dbc dbctx.Context, predictionID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.PredictionExplanation{}).
		Where("prediction_id = ? AND deleted_at IS NULL", predictionID).
		Updates(r.auditor.SoftDeleteAssignments(time.Now())).Error
}

func (r *predictionExplanationRepo) RestoreByPredictionID(dbc dbctx.Context, predictionID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.PredictionExplanation{}).
		Where("prediction_id = ?", predictionID).
		Updates(r.auditor.RestoreAssignments(time.Now())).Error
}

func (r *predictionExplanationRepo) RestoreByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.PredictionExplanation{}).
		Where("id = ?", id).
		Updates(r.auditor.RestoreAssignments(time.Now())).Error
}
