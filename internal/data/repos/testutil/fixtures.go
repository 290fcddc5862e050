package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/domain/ml"
	"github.com/runitlabs/prediction-backend/internal/features"
)

// SampleRawFeatures is a healthy, active runner.
func SampleRawFeatures() features.RawFeatures {
	return features.RawFeatures{
		RunningSessionsCount:   50,
		RunsLast30Days:         10,
		RunsLast90Days:         35,
		DistanceLast30DaysKm:   100,
		DistanceLast90DaysKm:   320,
		AvgDistancePerRunKm:    10,
		DaysSinceLastRun:       5,
		DaysOnPlatform:         365,
		DaysSinceLastLogin:     2,
		AvgHeartRateLast30Days: 148,
		PeakHeartRateMax:       182,
		AvgElevationGain:       45,
		AvgPaceMinPerKm:        6.2,
		AchievementCount:       15,
		HasBiometrics:          true,
		MembershipTypeID:       2,
		RaceParticipationCount: 4,
	}
}

func SeedSnapshot(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.FeatureSnapshot {
	tb.Helper()
	s := &types.FeatureSnapshot{
		ID:       uuid.New(),
		UserID:   userID,
		IsActive: true,
	}
	SampleRawFeatures().Apply(s)
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed snapshot: %v", err)
	}
	return s
}

func SeedModelVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, modelType types.ModelType, versionName string, active bool) *types.ModelVersion {
	tb.Helper()
	mv := &types.ModelVersion{
		ID:          uuid.New(),
		ModelType:   modelType,
		VersionName: versionName,
		FilePath:    "models/" + versionName + ".pkl",
		TrainedAt:   time.Now().Add(-24 * time.Hour),
		Active:      active,
	}
	if err := tx.WithContext(ctx).Create(mv).Error; err != nil {
		tb.Fatalf("seed model version: %v", err)
	}
	return mv
}

func SeedPrediction(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, modelType types.ModelType, score float64) *types.Prediction {
	tb.Helper()
	p := &types.Prediction{
		ID:               uuid.New(),
		UserID:           userID,
		ModelType:        modelType,
		Score:            score,
		ConfidenceScore:  0.9,
		RiskLevel:        ml.RiskLevelForScore(score),
		ModelVersionName: "v1.0.0",
		IsActive:         true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed prediction: %v", err)
	}
	return p
}

func SeedExplanation(tb testing.TB, ctx context.Context, tx *gorm.DB, predictionID uuid.UUID, rank int, importance float64) *types.PredictionExplanation {
	tb.Helper()
	e := &types.PredictionExplanation{
		ID:              uuid.New(),
		PredictionID:    predictionID,
		FeatureName:     "days_since_last_run",
		FeatureValue:    5,
		FeatureType:     types.FeatureTypeRaw,
		ImportanceScore: importance,
		Rank:            rank,
		IsActive:        true,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed explanation: %v", err)
	}
	return e
}
