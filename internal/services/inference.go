package services

import (
	"context"
	"fmt"
	"math"

	types "github.com/runitlabs/prediction-backend/internal/domain"
)

// BaselineInfer returns a heuristic InferFn scoring directly off the
// derived snapshot columns. It stands in when no trained model runtime is
// attached; real runtimes implement InferFn themselves.
func BaselineInfer(modelType types.ModelType) InferFn {
	return func(ctx context.Context, version *types.ModelVersion, snapshot *types.FeatureSnapshot) (InferenceResult, error) {
		if snapshot == nil {
			return InferenceResult{}, fmt.Errorf("nil snapshot")
		}
		switch modelType {
		case types.ModelTypeChurn:
			return churnBaseline(snapshot), nil
		case types.ModelTypeLTV:
			return ltvBaseline(snapshot), nil
		default:
			return InferenceResult{}, fmt.Errorf("no baseline for model type %q", modelType)
		}
	}
}

func churnBaseline(s *types.FeatureSnapshot) InferenceResult {
	inactivity := clamp01(s.DaysInactiveRatio)
	disengagement := clamp01(1 - s.EngagementScore/100)
	inconsistency := clamp01(1 - s.ConsistencyScore)

	score := clamp01(0.5*inactivity + 0.3*disengagement + 0.2*inconsistency)
	return InferenceResult{
		Score:           round4(score),
		ConfidenceScore: round4(math.Max(score, 1-score)),
		Explanations: []ExplanationInput{
			{FeatureName: "days_inactive_ratio", FeatureValue: s.DaysInactiveRatio, FeatureType: types.FeatureTypeDerived, ImportanceScore: 0.5 * inactivity},
			{FeatureName: "engagement_score", FeatureValue: s.EngagementScore, FeatureType: types.FeatureTypeDerived, ImportanceScore: 0.3 * disengagement},
			{FeatureName: "consistency_score", FeatureValue: s.ConsistencyScore, FeatureType: types.FeatureTypeDerived, ImportanceScore: 0.2 * inconsistency},
		},
	}
}

func ltvBaseline(s *types.FeatureSnapshot) InferenceResult {
	engagement := clamp01(s.EngagementScore / 100)
	consistency := clamp01(s.ConsistencyScore)
	activity := clamp01(s.MonthlyActivityRate)

	score := clamp01(0.4*engagement + 0.3*consistency + 0.3*activity)
	return InferenceResult{
		Score:           round4(score),
		ConfidenceScore: round4(math.Max(score, 1-score)),
		Explanations: []ExplanationInput{
			{FeatureName: "engagement_score", FeatureValue: s.EngagementScore, FeatureType: types.FeatureTypeDerived, ImportanceScore: 0.4 * engagement},
			{FeatureName: "consistency_score", FeatureValue: s.ConsistencyScore, FeatureType: types.FeatureTypeDerived, ImportanceScore: 0.3 * consistency},
			{FeatureName: "monthly_activity_rate", FeatureValue: s.MonthlyActivityRate, FeatureType: types.FeatureTypeDerived, ImportanceScore: 0.3 * activity},
		},
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
