package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/runitlabs/prediction-backend/internal/data/repos"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/pkg/dbctx"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

type RegisterVersionInput struct {
	ModelType       types.ModelType
	VersionName     string
	FilePath        string
	Metrics         types.Metrics
	Hyperparameters map[string]interface{}
	TrainedAt       time.Time
}

type ModelRegistryService interface {
	// Register stores a new trained version, created inactive.
	Register(ctx context.Context, in RegisterVersionInput) (*types.ModelVersion, error)
	// Activate atomically swaps the active version for the type. The swap
	// runs under a per-type row lock so two racing activations serialize
	// and the at-most-one-active invariant holds.
	Activate(ctx context.Context, modelType types.ModelType, versionName string) (*types.ModelVersion, error)
	GetActive(ctx context.Context, modelType types.ModelType) (*types.ModelVersion, error)
	ListVersions(ctx context.Context, modelType types.ModelType) ([]*types.ModelVersion, error)
	FindByName(ctx context.Context, modelType types.ModelType, versionName string) (*types.ModelVersion, error)
}

type modelRegistryService struct {
	db       *gorm.DB
	log      *logger.Logger
	versions repos.ModelVersionRepo
}

func NewModelRegistryService(db *gorm.DB, baseLog *logger.Logger, versions repos.ModelVersionRepo) ModelRegistryService {
	return &modelRegistryService{
		db:       db,
		log:      baseLog.With("service", "ModelRegistryService"),
		versions: versions,
	}
}

func (s *modelRegistryService) Register(ctx context.Context, in RegisterVersionInput) (*types.ModelVersion, error) {
	if !in.ModelType.Valid() {
		return nil, fmt.Errorf("%w: unknown model type %q", pkgerrors.ErrValidation, in.ModelType)
	}
	if strings.TrimSpace(in.VersionName) == "" {
		return nil, fmt.Errorf("%w: version name required", pkgerrors.ErrValidation)
	}
	if strings.TrimSpace(in.FilePath) == "" {
		return nil, fmt.Errorf("%w: file path required", pkgerrors.ErrValidation)
	}
	if in.TrainedAt.IsZero() {
		return nil, fmt.Errorf("%w: trained_at required", pkgerrors.ErrValidation)
	}

	row := &types.ModelVersion{
		ID:          uuid.New(),
		ModelType:   in.ModelType,
		VersionName: strings.TrimSpace(in.VersionName),
		FilePath:    strings.TrimSpace(in.FilePath),
		TrainedAt:   in.TrainedAt,
		Active:      false,
	}

	// Only the metric family matching the type is meaningful; the other
	// family is discarded rather than stored as noise.
	switch in.ModelType {
	case types.ModelTypeChurn:
		row.Accuracy = in.Metrics.Accuracy
		row.Precision = in.Metrics.Precision
		row.Recall = in.Metrics.Recall
		row.F1Score = in.Metrics.F1Score
	case types.ModelTypeLTV:
		row.RMSE = in.Metrics.RMSE
		row.MAE = in.Metrics.MAE
		row.R2 = in.Metrics.R2
	}

	if len(in.Hyperparameters) > 0 {
		raw, err := json.Marshal(in.Hyperparameters)
		if err != nil {
			return nil, fmt.Errorf("%w: hyperparameters not serializable: %v", pkgerrors.ErrValidation, err)
		}
		row.Hyperparameters = datatypes.JSON(raw)
	}

	if err := s.versions.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		s.log.Error("Register failed", "model_type", in.ModelType, "version_name", in.VersionName, "error", err)
		return nil, err
	}
	s.log.Info("Register", "model_type", in.ModelType, "version_name", row.VersionName)
	return row, nil
}

func (s *modelRegistryService) Activate(ctx context.Context, modelType types.ModelType, versionName string) (*types.ModelVersion, error) {
	if !modelType.Valid() {
		return nil, fmt.Errorf("%w: unknown model type %q", pkgerrors.ErrValidation, modelType)
	}

	var out *types.ModelVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		rows, err := s.versions.LockType(dbc, modelType)
		if err != nil {
			return fmt.Errorf("lock versions: %w", err)
		}
		var target *types.ModelVersion
		for _, row := range rows {
			if row.VersionName == versionName {
				target = row
				break
			}
		}
		if target == nil {
			return fmt.Errorf("model version %s %s: %w", modelType, versionName, pkgerrors.ErrNotFound)
		}

		if err := s.versions.SetActiveExclusive(dbc, modelType, target.ID); err != nil {
			return fmt.Errorf("activate %s: %w", versionName, err)
		}
		target.Active = true
		out = target
		return nil
	})
	if err != nil {
		s.log.Error("Activate failed", "model_type", modelType, "version_name", versionName, "error", err)
		return nil, err
	}
	s.log.Info("Activate", "model_type", modelType, "version_name", versionName)
	return out, nil
}

func (s *modelRegistryService) GetActive(ctx context.Context, modelType types.ModelType) (*types.ModelVersion, error) {
	return s.versions.GetActive(dbctx.Context{Ctx: ctx}, modelType)
}

func (s *modelRegistryService) ListVersions(ctx context.Context, modelType types.ModelType) ([]*types.ModelVersion, error) {
	return s.versions.ListByType(dbctx.Context{Ctx: ctx}, modelType)
}

func (s *modelRegistryService) FindByName(ctx context.Context, modelType types.ModelType, versionName string) (*types.ModelVersion, error) {
	return s.versions.GetByTypeAndName(dbctx.Context{Ctx: ctx}, modelType, versionName)
}
