package ml

import (
	"fmt"
	"strings"
)

// ModelType identifies which trained model family a version or prediction
// belongs to. The set is closed: every switch over it must be exhaustive.
type ModelType string

const (
	ModelTypeChurn ModelType = "CHURN"
	ModelTypeLTV   ModelType = "LTV"
)

func (t ModelType) Valid() bool {
	switch t {
	case ModelTypeChurn, ModelTypeLTV:
		return true
	default:
		return false
	}
}

func ParseModelType(s string) (ModelType, error) {
	t := ModelType(strings.ToUpper(s))
	if !t.Valid() {
		return "", fmt.Errorf("unknown model type %q", s)
	}
	return t, nil
}

// RiskLevel buckets a prediction score for dashboard filtering.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
		return true
	default:
		return false
	}
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.ToUpper(s))
	if !r.Valid() {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return r, nil
}

// Risk thresholds are policy, shared by every model type. Scores are always
// normalized into [0,1] before they reach the ledger.
const (
	RiskThresholdLow  = 0.3
	RiskThresholdHigh = 0.7
)

func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score < RiskThresholdLow:
		return RiskLevelLow
	case score > RiskThresholdHigh:
		return RiskLevelHigh
	default:
		return RiskLevelMedium
	}
}

// FeatureType tags whether an explanation refers to a raw counter or a
// derived score.
type FeatureType string

const (
	FeatureTypeRaw     FeatureType = "raw"
	FeatureTypeDerived FeatureType = "derived"
)
