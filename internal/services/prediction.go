package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/runitlabs/prediction-backend/internal/audit"
	"github.com/runitlabs/prediction-backend/internal/data/repos"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/domain/ml"
	"github.com/runitlabs/prediction-backend/internal/pkg/dbctx"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// ExplanationInput is one feature contribution as reported by the
// inference runtime, before ranks are assigned.
type ExplanationInput struct {
	FeatureName     string            `json:"feature_name"`
	FeatureValue    float64           `json:"feature_value"`
	FeatureType     types.FeatureType `json:"feature_type,omitempty"`
	ImportanceScore float64           `json:"importance_score"`
}

// InferenceResult is what an InferFn must produce. Score and confidence
// are normalized into [0,1] by the runtime before they get here.
type InferenceResult struct {
	Score           float64
	ConfidenceScore float64
	Explanations    []ExplanationInput
}

// InferFn is the opaque model runtime. It is never retried here; a failure
// or out-of-domain result surfaces as ErrInference and no ledger write
// happens.
type InferFn func(ctx context.Context, version *types.ModelVersion, snapshot *types.FeatureSnapshot) (InferenceResult, error)

type RecordInput struct {
	UserID           uuid.UUID
	ModelType        types.ModelType
	Score            float64
	ConfidenceScore  float64
	ModelVersionName string
	Explanations     []ExplanationInput
}

type PredictionService interface {
	// Predict is the only operation touching features, registry, and
	// ledger. It sequences lookups and inference, then delegates to Record.
	Predict(ctx context.Context, userID uuid.UUID, modelType types.ModelType, infer InferFn) (*types.Prediction, error)

	// Record persists a prediction header and its explanation set as one
	// atomic unit. Explanations are re-ranked by importance descending.
	Record(ctx context.Context, in RecordInput) (*types.Prediction, error)

	Get(ctx context.Context, predictionID uuid.UUID, includeDeleted bool) (*types.Prediction, error)
	Latest(ctx context.Context, userID uuid.UUID, modelType types.ModelType) (*types.Prediction, error)
	History(ctx context.Context, userID uuid.UUID, page, pageSize int, includeDeleted bool) ([]*types.Prediction, int64, error)
	ListByRisk(ctx context.Context, modelType types.ModelType, risk types.RiskLevel, page, pageSize int) ([]*types.Prediction, int64, error)
	CountByRisk(ctx context.Context, modelType types.ModelType) (map[types.RiskLevel]int64, error)

	SoftDelete(ctx context.Context, predictionID uuid.UUID) error
	Restore(ctx context.Context, predictionID uuid.UUID) error
	RestoreExplanation(ctx context.Context, explanationID uuid.UUID) error
}

type predictionService struct {
	db           *gorm.DB
	log          *logger.Logger
	auditor      *audit.Coordinator
	featureStore FeatureStoreService
	registry     ModelRegistryService
	predictions  repos.PredictionRepo
	explanations repos.PredictionExplanationRepo
}

func NewPredictionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	auditor *audit.Coordinator,
	featureStore FeatureStoreService,
	registry ModelRegistryService,
	predictions repos.PredictionRepo,
	explanations repos.PredictionExplanationRepo,
) PredictionService {
	return &predictionService{
		db:           db,
		log:          baseLog.With("service", "PredictionService"),
		auditor:      auditor,
		featureStore: featureStore,
		registry:     registry,
		predictions:  predictions,
		explanations: explanations,
	}
}

func (s *predictionService) Predict(ctx context.Context, userID uuid.UUID, modelType types.ModelType, infer InferFn) (*types.Prediction, error) {
	if !modelType.Valid() {
		return nil, fmt.Errorf("%w: unknown model type %q", pkgerrors.ErrValidation, modelType)
	}
	if infer == nil {
		return nil, fmt.Errorf("%w: no inference function", pkgerrors.ErrInference)
	}

	snapshot, err := s.featureStore.Get(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	version, err := s.registry.GetActive(ctx, modelType)
	if err != nil {
		return nil, err
	}

	result, err := infer(ctx, version, snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInference, err)
	}
	if result.Score < 0 || result.Score > 1 {
		return nil, fmt.Errorf("%w: score %v outside [0,1]", pkgerrors.ErrInference, result.Score)
	}
	if result.ConfidenceScore < 0 || result.ConfidenceScore > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", pkgerrors.ErrInference, result.ConfidenceScore)
	}

	return s.Record(ctx, RecordInput{
		UserID:           userID,
		ModelType:        modelType,
		Score:            result.Score,
		ConfidenceScore:  result.ConfidenceScore,
		ModelVersionName: version.VersionName,
		Explanations:     result.Explanations,
	})
}

func (s *predictionService) Record(ctx context.Context, in RecordInput) (*types.Prediction, error) {
	if in.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id required", pkgerrors.ErrValidation)
	}
	if !in.ModelType.Valid() {
		return nil, fmt.Errorf("%w: unknown model type %q", pkgerrors.ErrValidation, in.ModelType)
	}
	if in.Score < 0 || in.Score > 1 {
		return nil, fmt.Errorf("%w: score %v outside [0,1]", pkgerrors.ErrValidation, in.Score)
	}
	if in.ConfidenceScore < 0 || in.ConfidenceScore > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", pkgerrors.ErrValidation, in.ConfidenceScore)
	}
	if in.ModelVersionName == "" {
		return nil, fmt.Errorf("%w: model version name required", pkgerrors.ErrValidation)
	}
	// Auditability is a hard requirement: a prediction with no recorded
	// feature contribution is incomplete and rejected outright.
	if len(in.Explanations) == 0 {
		return nil, fmt.Errorf("%w: at least one explanation required", pkgerrors.ErrValidation)
	}
	for _, e := range in.Explanations {
		if e.FeatureName == "" {
			return nil, fmt.Errorf("%w: explanation feature name required", pkgerrors.ErrValidation)
		}
		if e.ImportanceScore < 0 || e.ImportanceScore > 1 {
			return nil, fmt.Errorf("%w: importance %v for %s outside [0,1]", pkgerrors.ErrValidation, e.ImportanceScore, e.FeatureName)
		}
	}

	header := &types.Prediction{
		ID:               uuid.New(),
		UserID:           in.UserID,
		ModelType:        in.ModelType,
		Score:            in.Score,
		ConfidenceScore:  in.ConfidenceScore,
		RiskLevel:        ml.RiskLevelForScore(in.Score),
		ModelVersionName: in.ModelVersionName,
	}
	s.auditor.MarkActive(header)
	header.Explanations = rankExplanations(header.ID, in.Explanations)
	for _, e := range header.Explanations {
		s.auditor.MarkActive(e)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.predictions.Create(dbc, header); err != nil {
			return fmt.Errorf("create prediction: %w", err)
		}
		if err := s.explanations.Create(dbc, header.Explanations); err != nil {
			return fmt.Errorf("create explanations: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("Record failed", "user_id", in.UserID, "model_type", in.ModelType, "error", err)
		return nil, err
	}

	s.log.Info("Record",
		"user_id", in.UserID,
		"model_type", in.ModelType,
		"score", in.Score,
		"risk_level", header.RiskLevel,
		"model_version", in.ModelVersionName,
		"explanations", len(header.Explanations),
	)
	return header, nil
}

// rankExplanations orders by importance descending and assigns the
// contiguous 1..N ranks the audit queries rely on.
func rankExplanations(predictionID uuid.UUID, in []ExplanationInput) []*types.PredictionExplanation {
	sorted := make([]ExplanationInput, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ImportanceScore > sorted[j].ImportanceScore
	})

	out := make([]*types.PredictionExplanation, len(sorted))
	for i, e := range sorted {
		featureType := e.FeatureType
		if featureType == "" {
			featureType = types.FeatureTypeRaw
		}
		out[i] = &types.PredictionExplanation{
			ID:              uuid.New(),
			PredictionID:    predictionID,
			FeatureName:     e.FeatureName,
			FeatureValue:    e.FeatureValue,
			FeatureType:     featureType,
			ImportanceScore: e.ImportanceScore,
			Rank:            i + 1,
		}
	}
	return out
}

func (s *predictionService) Get(ctx context.Context, predictionID uuid.UUID, includeDeleted bool) (*types.Prediction, error) {
	dbc := dbctx.Context{Ctx: ctx}
	p, err := s.predictions.GetByID(dbc, predictionID, includeDeleted)
	if err != nil {
		return nil, err
	}
	expl, err := s.explanations.GetByPredictionID(dbc, p.ID, includeDeleted)
	if err != nil {
		return nil, err
	}
	p.Explanations = expl
	return p, nil
}

func (s *predictionService) Latest(ctx context.Context, userID uuid.UUID, modelType types.ModelType) (*types.Prediction, error) {
	dbc := dbctx.Context{Ctx: ctx}
	p, err := s.predictions.Latest(dbc, userID, modelType)
	if err != nil {
		return nil, err
	}
	expl, err := s.explanations.GetByPredictionID(dbc, p.ID, false)
	if err != nil {
		return nil, err
	}
	p.Explanations = expl
	return p, nil
}

func (s *predictionService) History(ctx context.Context, userID uuid.UUID, page, pageSize int, includeDeleted bool) ([]*types.Prediction, int64, error) {
	limit, offset := pageBounds(page, pageSize)
	return s.predictions.History(dbctx.Context{Ctx: ctx}, userID, limit, offset, includeDeleted)
}

func (s *predictionService) ListByRisk(ctx context.Context, modelType types.ModelType, risk types.RiskLevel, page, pageSize int) ([]*types.Prediction, int64, error) {
	if !modelType.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown model type %q", pkgerrors.ErrValidation, modelType)
	}
	if !risk.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown risk level %q", pkgerrors.ErrValidation, risk)
	}
	limit, offset := pageBounds(page, pageSize)
	return s.predictions.ListByRisk(dbctx.Context{Ctx: ctx}, modelType, risk, limit, offset)
}

func (s *predictionService) CountByRisk(ctx context.Context, modelType types.ModelType) (map[types.RiskLevel]int64, error) {
	if !modelType.Valid() {
		return nil, fmt.Errorf("%w: unknown model type %q", pkgerrors.ErrValidation, modelType)
	}
	return s.predictions.CountByRisk(dbctx.Context{Ctx: ctx}, modelType)
}

// SoftDelete deactivates the prediction and every explanation under it in
// one transaction, keeping the parent/child active states in lockstep.
func (s *predictionService) SoftDelete(ctx context.Context, predictionID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.predictions.GetByID(dbc, predictionID, true); err != nil {
			return err
		}
		if err := s.predictions.SoftDeleteByID(dbc, predictionID); err != nil {
			return fmt.Errorf("soft delete prediction: %w", err)
		}
		if err := s.explanations.SoftDeleteByPredictionID(dbc, predictionID); err != nil {
			return fmt.Errorf("soft delete explanations: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("SoftDelete failed", "prediction_id", predictionID, "error", err)
		return err
	}
	return nil
}

// Restore reactivates a prediction together with its explanation set.
func (s *predictionService) Restore(ctx context.Context, predictionID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.predictions.GetByID(dbc, predictionID, true); err != nil {
			return err
		}
		if err := s.predictions.RestoreByID(dbc, predictionID); err != nil {
			return fmt.Errorf("restore prediction: %w", err)
		}
		if err := s.explanations.RestoreByPredictionID(dbc, predictionID); err != nil {
			return fmt.Errorf("restore explanations: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("Restore failed", "prediction_id", predictionID, "error", err)
		return err
	}
	return nil
}

// RestoreExplanation un-deletes a single explanation. It refuses to leave
// an active child under a deleted parent.
func (s *predictionService) RestoreExplanation(ctx context.Context, explanationID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		expl, err := s.explanations.GetByID(dbc, explanationID, true)
		if err != nil {
			return err
		}
		if err := s.auditor.Restore(expl, func() (bool, error) {
			parent, err := s.predictions.GetByID(dbc, expl.PredictionID, true)
			if err != nil {
				return false, err
			}
			return parent.IsActive, nil
		}); err != nil {
			return err
		}
		return s.explanations.RestoreByID(dbc, explanationID)
	})
}

func pageBounds(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
