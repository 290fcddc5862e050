package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/pkg/dbctx"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

type ModelVersionRepo interface {
	Create(dbc dbctx.Context, row *types.ModelVersion) error

	GetByTypeAndName(dbc dbctx.Context, modelType types.ModelType, versionName string) (*types.ModelVersion, error)
	GetActive(dbc dbctx.Context, modelType types.ModelType) (*types.ModelVersion, error)
	ListByType(dbc dbctx.Context, modelType types.ModelType) ([]*types.ModelVersion, error)

	// LockType takes FOR UPDATE locks on every version row of the type,
	// serializing concurrent activations. Must run inside a transaction.
	LockType(dbc dbctx.Context, modelType types.ModelType) ([]*types.ModelVersion, error)
	SetActiveExclusive(dbc dbctx.Context, modelType types.ModelType, versionID uuid.UUID) error
}

type modelVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelVersionRepo(db *gorm.DB, baseLog *logger.Logger) ModelVersionRepo {
	return &modelVersionRepo{db: db, log: baseLog.With("repo", "ModelVersionRepo")}
}

func (r *modelVersionRepo) Create(dbc dbctx.Context, row *types.ModelVersion) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%s %s: %w", row.ModelType, row.VersionName, pkgerrors.ErrDuplicateVersion)
		}
		return err
	}
	return nil
}

func (r *modelVersionRepo) GetByTypeAndName(dbc dbctx.Context, modelType types.ModelType, versionName string) (*types.ModelVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.ModelVersion
	err := t.WithContext(dbc.Ctx).
		Where("model_type = ? AND version_name = ?", modelType, versionName).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("model version %s %s: %w", modelType, versionName, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *modelVersionRepo) GetActive(dbc dbctx.Context, modelType types.ModelType) (*types.ModelVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.ModelVersion
	err := t.WithContext(dbc.Ctx).
		Where("model_type = ? AND active = ?", modelType, true).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no active %s model: %w", modelType, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *modelVersionRepo) ListByType(dbc dbctx.Context, modelType types.ModelType) ([]*types.ModelVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ModelVersion
	if err := t.WithContext(dbc.Ctx).
		Where("model_type = ?", modelType).
		Order("trained_at DESC, version_name DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelVersionRepo) LockType(dbc dbctx.Context, modelType types.ModelType) ([]*types.ModelVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ModelVersion
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("model_type = ?", modelType).
		Order("trained_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetActiveExclusive flips every row of the type off and the target on, in
// two statements the caller wraps in one transaction behind LockType.
func (r *modelVersionRepo) SetActiveExclusive(dbc dbctx.Context, modelType types.ModelType, versionID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now()
	if err := t.WithContext(dbc.Ctx).
		Model(&types.ModelVersion{}).
		Where("model_type = ? AND active = ?", modelType, true).
		Updates(map[string]interface{}{"active": false, "updated_at": now}).Error; err != nil {
		return err
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.ModelVersion{}).
		Where("id = ? AND model_type = ?", versionID, modelType).
		Updates(map[string]interface{}{"active": true, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("model version %s: %w", versionID, pkgerrors.ErrNotFound)
	}
	return nil
}
