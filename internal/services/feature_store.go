package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/runitlabs/prediction-backend/internal/audit"
	"github.com/runitlabs/prediction-backend/internal/data/repos"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/features"
	"github.com/runitlabs/prediction-backend/internal/pkg/dbctx"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

type FeatureStoreService interface {
	// Upsert validates the raw vector, computes derived scores, and
	// replaces the user's snapshot in place. Concurrent upserts for the
	// same user serialize on the row lock; last committed write wins.
	Upsert(ctx context.Context, userID uuid.UUID, raw features.RawFeatures) (*types.FeatureSnapshot, error)
	Get(ctx context.Context, userID uuid.UUID, includeDeleted bool) (*types.FeatureSnapshot, error)
	ListActiveUserIDs(ctx context.Context) ([]uuid.UUID, error)
	SoftDelete(ctx context.Context, userID uuid.UUID) error
	Restore(ctx context.Context, userID uuid.UUID) error
}

type featureStoreService struct {
	db        *gorm.DB
	log       *logger.Logger
	auditor   *audit.Coordinator
	snapshots repos.FeatureSnapshotRepo
}

func NewFeatureStoreService(
	db *gorm.DB,
	baseLog *logger.Logger,
	auditor *audit.Coordinator,
	snapshots repos.FeatureSnapshotRepo,
) FeatureStoreService {
	return &featureStoreService{
		db:        db,
		log:       baseLog.With("service", "FeatureStoreService"),
		auditor:   auditor,
		snapshots: snapshots,
	}
}

func (s *featureStoreService) Upsert(ctx context.Context, userID uuid.UUID, raw features.RawFeatures) (*types.FeatureSnapshot, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id required", pkgerrors.ErrValidation)
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	var out *types.FeatureSnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		existing, err := s.snapshots.GetByUserIDForUpdate(dbc, userID)
		switch {
		case err == nil:
			raw.Apply(existing)
			// Recomputing a soft-deleted snapshot brings it back to life.
			s.auditor.MarkActive(existing)
			if err := s.snapshots.Save(dbc, existing); err != nil {
				return fmt.Errorf("update snapshot: %w", err)
			}
			out = existing
			return nil
		case errors.Is(err, pkgerrors.ErrNotFound):
			row := &types.FeatureSnapshot{ID: uuid.New(), UserID: userID}
			raw.Apply(row)
			s.auditor.MarkActive(row)
			if err := s.snapshots.Create(dbc, row); err != nil {
				return fmt.Errorf("create snapshot: %w", err)
			}
			out = row
			return nil
		default:
			return err
		}
	})
	if err != nil {
		s.log.Error("Upsert failed", "user_id", userID, "error", err)
		return nil, err
	}
	s.log.Debug("Upsert", "user_id", userID, "engagement_score", out.EngagementScore)
	return out, nil
}

func (s *featureStoreService) Get(ctx context.Context, userID uuid.UUID, includeDeleted bool) (*types.FeatureSnapshot, error) {
	return s.snapshots.GetByUserID(dbctx.Context{Ctx: ctx}, userID, includeDeleted)
}

func (s *featureStoreService) ListActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.snapshots.ListActiveUserIDs(dbctx.Context{Ctx: ctx})
}

func (s *featureStoreService) SoftDelete(ctx context.Context, userID uuid.UUID) error {
	return s.snapshots.SoftDeleteByUserID(dbctx.Context{Ctx: ctx}, userID)
}

func (s *featureStoreService) Restore(ctx context.Context, userID uuid.UUID) error {
	return s.snapshots.RestoreByUserID(dbctx.Context{Ctx: ctx}, userID)
}
