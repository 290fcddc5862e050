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

type PredictionRepo interface {
	Create(dbc dbctx.Context, row *types.Prediction) error

	GetByID(dbc dbctx.Context, id uuid.UUID, includeDeleted bool) (*types.Prediction, error)
	Latest(dbc dbctx.Context, userID uuid.UUID, modelType types.ModelType) (*types.Prediction, error)
	History(dbc dbctx.Context, userID uuid.UUID, limit, offset int, includeDeleted bool) ([]*types.Prediction, int64, error)
	ListByRisk(dbc dbctx.Context, modelType types.ModelType, risk types.RiskLevel, limit, offset int) ([]*types.Prediction, int64, error)
	CountByRisk(dbc dbctx.Context, modelType types.ModelType) (map[types.RiskLevel]int64, error)

	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
	RestoreByID(dbc dbctx.Context, id uuid.UUID) error
}

type predictionRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	auditor *audit.Coordinator
}

func NewPredictionRepo(db *gorm.DB, baseLog *logger.Logger, auditor *audit.Coordinator) PredictionRepo {
	return &predictionRepo{
		db:      db,
		log:     baseLog.With("repo", "PredictionRepo"),
		auditor: auditor,
	}
}

func (r *predictionRepo) Create(dbc dbctx.Context, row *types.Prediction) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Omit("Explanations").Create(row).Error
}

func (r *predictionRepo) GetByID(dbc dbctx.Context, id uuid.UUID, includeDeleted bool) (*types.Prediction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Prediction
	err := t.WithContext(dbc.Ctx).
		Scopes(r.auditor.Scope(includeDeleted)).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("prediction %s: %w", id, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *predictionRepo) Latest(dbc dbctx.Context, userID uuid.UUID, modelType types.ModelType) (*types.Prediction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Prediction
	err := t.WithContext(dbc.Ctx).
		Scopes(r.auditor.Scope(false)).
		Where("user_id = ? AND model_type = ?", userID, modelType).
		Order("created_at DESC").
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no %s prediction for user %s: %w", modelType, userID, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *predictionRepo) History(dbc dbctx.Context, userID uuid.UUID, limit, offset int, includeDeleted bool) ([]*types.Prediction, int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Model(&types.Prediction{}).
		Scopes(r.auditor.Scope(includeDeleted)).
		Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.Prediction
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *predictionRepo) ListByRisk(dbc dbctx.Context, modelType types.ModelType, risk types.RiskLevel, limit, offset int) ([]*types.Prediction, int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Model(&types.Prediction{}).
		Scopes(r.auditor.Scope(false)).
		Where("model_type = ? AND risk_level = ?", modelType, risk)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.Prediction
	if err := q.
		Order("score DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *predictionRepo) CountByRisk(dbc dbctx.Context, modelType types.ModelType) (map[types.RiskLevel]int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	type riskCount struct {
		RiskLevel types.RiskLevel
		N         int64
	}
	var rows []riskCount
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Prediction{}).
		Scopes(r.auditor.Scope(false)).
		Select("risk_level, COUNT(*) AS n").
		Where("model_type = ?", modelType).
		Group("risk_level").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	// Every bucket is present in the result, zero or not.
	out := map[types.RiskLevel]int64{
		types.RiskLevelLow:    0,
		types.RiskLevelMedium: 0,
		types.RiskLevelHigh:   0,
	}
	for _, row := range rows {
		out[row.RiskLevel] = row.N
	}
	return out, nil
}

func (r *predictionRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Prediction{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(r.auditor.SoftDeleteAssignments(time.Now())).Error
}

func (r *predictionRepo) RestoreByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Prediction{}).
		Where("id = ?", id).
		Updates(r.auditor.RestoreAssignments(time.Now())).Error
}
