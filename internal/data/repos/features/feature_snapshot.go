package features

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/runitlabs/prediction-backend/internal/audit"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/pkg/dbctx"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

type FeatureSnapshotRepo interface {
	Create(dbc dbctx.Context, row *types.FeatureSnapshot) error
	Save(dbc dbctx.Context, row *types.FeatureSnapshot) error

	GetByUserID(dbc dbctx.Context, userID uuid.UUID, includeDeleted bool) (*types.FeatureSnapshot, error)
	ListActiveUserIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	// GetByUserIDForUpdate locks the user's row regardless of active state.
	// The upsert path uses it to serialize concurrent recomputes.
	GetByUserIDForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.FeatureSnapshot, error)

	SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
	RestoreByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type featureSnapshotRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	auditor *audit.Coordinator
}

func NewFeatureSnapshotRepo(db *gorm.DB, baseLog *logger.Logger, auditor *audit.Coordinator) FeatureSnapshotRepo {
	return &featureSnapshotRepo{
		db:      db,
		log:     baseLog.With("repo", "FeatureSnapshotRepo"),
		auditor: auditor,
	}
}

func (r *featureSnapshotRepo) Create(dbc dbctx.Context, row *types.FeatureSnapshot) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another writer inserted this user's row first.
			return fmt.Errorf("snapshot for user %s: %w", row.UserID, pkgerrors.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *featureSnapshotRepo) Save(dbc dbctx.Context, row *types.FeatureSnapshot) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	// Full-row update keyed by primary key; created_at is never rewritten.
	return t.WithContext(dbc.Ctx).
		Model(&types.FeatureSnapshot{}).
		Where("id = ?", row.ID).
		Omit("id", "user_id", "created_at").
		Select("*").
		Updates(row).Error
}

func (r *featureSnapshotRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID, includeDeleted bool) (*types.FeatureSnapshot, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.FeatureSnapshot
	err := t.WithContext(dbc.Ctx).
		Scopes(r.auditor.Scope(includeDeleted)).
		Where("user_id = ?", userID).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("snapshot for user %s: %w", userID, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *featureSnapshotRepo) GetByUserIDForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.FeatureSnapshot, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.FeatureSnapshot
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("snapshot for user %s: %w", userID, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *featureSnapshotRepo) ListActiveUserIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []uuid.UUID
	if err := t.WithContext(dbc.Ctx).
		Model(&types.FeatureSnapshot{}).
		Scopes(r.auditor.Scope(false)).
		Order("user_id ASC").
		Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *featureSnapshotRepo) SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.FeatureSnapshot{}).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Updates(r.auditor.SoftDeleteAssignments(time.Now())).Error
}

func (r *featureSnapshotRepo) RestoreByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.FeatureSnapshot{}).
		Where("user_id = ?", userID).
		Updates(r.auditor.RestoreAssignments(time.Now())).Error
}
