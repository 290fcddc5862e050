package domain

import (
	"github.com/runitlabs/prediction-backend/internal/domain/ml"
)

type ModelType = ml.ModelType
type RiskLevel = ml.RiskLevel
type FeatureType = ml.FeatureType

const (
	ModelTypeChurn = ml.ModelTypeChurn
	ModelTypeLTV   = ml.ModelTypeLTV

	RiskLevelLow    = ml.RiskLevelLow
	RiskLevelMedium = ml.RiskLevelMedium
	RiskLevelHigh   = ml.RiskLevelHigh

	FeatureTypeRaw     = ml.FeatureTypeRaw
	FeatureTypeDerived = ml.FeatureTypeDerived
)

var (
	ParseModelType    = ml.ParseModelType
	ParseRiskLevel    = ml.ParseRiskLevel
	RiskLevelForScore = ml.RiskLevelForScore
)

type FeatureSnapshot = ml.FeatureSnapshot
type ModelVersion = ml.ModelVersion
type Metrics = ml.Metrics
type Prediction = ml.Prediction
type PredictionExplanation = ml.PredictionExplanation
