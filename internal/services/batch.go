package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

const defaultBatchWorkers = 8

// BatchResult collects the outcome of one batch run. Failures are
// per-user and never abort the rest of the batch.
type BatchResult struct {
	Predicted []*types.Prediction
	Failed    map[uuid.UUID]error
}

type BatchService interface {
	// PredictAll runs inference for every user with an active feature
	// snapshot. Only context cancellation stops the run early.
	PredictAll(ctx context.Context, modelType types.ModelType, infer InferFn) (*BatchResult, error)

	// PredictUsers runs inference for an explicit user set.
	PredictUsers(ctx context.Context, userIDs []uuid.UUID, modelType types.ModelType, infer InferFn) (*BatchResult, error)
}

type batchService struct {
	log          *logger.Logger
	featureStore FeatureStoreService
	predictions  PredictionService
	workers      int
}

func NewBatchService(baseLog *logger.Logger, featureStore FeatureStoreService, predictions PredictionService, workers int) BatchService {
	if workers <= 0 {
		workers = defaultBatchWorkers
	}
	return &batchService{
		log:          baseLog.With("service", "BatchService"),
		featureStore: featureStore,
		predictions:  predictions,
		workers:      workers,
	}
}

func (s *batchService) PredictAll(ctx context.Context, modelType types.ModelType, infer InferFn) (*BatchResult, error) {
	userIDs, err := s.featureStore.ListActiveUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	return s.PredictUsers(ctx, userIDs, modelType, infer)
}

func (s *batchService) PredictUsers(ctx context.Context, userIDs []uuid.UUID, modelType types.ModelType, infer InferFn) (*BatchResult, error) {
	result := &BatchResult{Failed: make(map[uuid.UUID]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := s.predictions.Predict(gctx, userID, modelType, infer)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[userID] = err
				s.log.Warn("batch predict failed", "user_id", userID, "model_type", modelType, "error", err)
				return nil
			}
			result.Predicted = append(result.Predicted, p)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	s.log.Info("batch predict done",
		"model_type", modelType,
		"requested", len(userIDs),
		"predicted", len(result.Predicted),
		"failed", len(result.Failed),
	)
	return result, nil
}
