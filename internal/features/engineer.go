package features

import (
	"fmt"
	"math"

	types "github.com/runitlabs/prediction-backend/internal/domain"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
)

// RawFeatures is the vector the external extraction ETL supplies. Field
// names mirror the extraction query's column names.
type RawFeatures struct {
	RunningSessionsCount   int     `json:"running_sessions_count"`
	RunsLast30Days         int     `json:"runs_last_30_days"`
	RunsLast90Days         int     `json:"runs_last_90_days"`
	DistanceLast30DaysKm   float64 `json:"distance_last_30_days_km"`
	DistanceLast90DaysKm   float64 `json:"distance_last_90_days_km"`
	AvgDistancePerRunKm    float64 `json:"avg_distance_per_run_km"`
	DaysSinceLastRun       int     `json:"days_since_last_run"`
	DaysOnPlatform         int     `json:"days_on_platform"`
	DaysSinceLastLogin     int     `json:"days_since_last_login"`
	AvgHeartRateLast30Days float64 `json:"avg_heart_rate_last_30_days"`
	PeakHeartRateMax       float64 `json:"peak_heart_rate_max"`
	AvgElevationGain       float64 `json:"avg_elevation_gain"`
	AvgPaceMinPerKm        float64 `json:"avg_pace_min_per_km"`
	AchievementCount       int     `json:"achievement_count"`
	HasBiometrics          bool    `json:"has_biometrics"`
	MembershipTypeID       int     `json:"membership_type_id"`
	RaceParticipationCount int     `json:"race_participation_count"`
}

// Engagement score component weights. They sum to 1 before the 0-100 scale.
const (
	engagementWeightActivity     = 0.4
	engagementWeightRecency      = 0.3
	engagementWeightAchievements = 0.3

	achievementSaturation = 20.0
)

// Validate checks every raw input against its documented domain. It
// reports all violations at once, wrapped in ErrValidation.
func (r RawFeatures) Validate() error {
	var bad []string
	nonNegInts := map[string]int{
		"running_sessions_count":   r.RunningSessionsCount,
		"runs_last_30_days":        r.RunsLast30Days,
		"runs_last_90_days":        r.RunsLast90Days,
		"days_since_last_run":      r.DaysSinceLastRun,
		"days_on_platform":         r.DaysOnPlatform,
		"days_since_last_login":    r.DaysSinceLastLogin,
		"achievement_count":        r.AchievementCount,
		"race_participation_count": r.RaceParticipationCount,
	}
	for name, v := range nonNegInts {
		if v < 0 {
			bad = append(bad, fmt.Sprintf("%s=%d must be >= 0", name, v))
		}
	}
	nonNegFloats := map[string]float64{
		"distance_last_30_days_km":    r.DistanceLast30DaysKm,
		"distance_last_90_days_km":    r.DistanceLast90DaysKm,
		"avg_distance_per_run_km":     r.AvgDistancePerRunKm,
		"avg_heart_rate_last_30_days": r.AvgHeartRateLast30Days,
		"peak_heart_rate_max":         r.PeakHeartRateMax,
		"avg_elevation_gain":          r.AvgElevationGain,
		"avg_pace_min_per_km":         r.AvgPaceMinPerKm,
	}
	for name, v := range nonNegFloats {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, fmt.Sprintf("%s=%v must be a finite value >= 0", name, v))
		}
	}
	if r.MembershipTypeID < 1 {
		bad = append(bad, fmt.Sprintf("membership_type_id=%d must be >= 1", r.MembershipTypeID))
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %v", pkgerrors.ErrValidation, bad)
	}
	return nil
}

// Derived holds the scores computed deterministically from a raw vector.
type Derived struct {
	EngagementScore     float64
	DaysInactiveRatio   float64
	ConsistencyScore    float64
	MonthlyActivityRate float64
	DistanceTrend       float64
	IsPremium           bool
	ActivityLevel       int
	PaceCategory        int
}

// Derive computes every derived feature. Inputs are assumed validated.
func (r RawFeatures) Derive() Derived {
	monthlyActivityRate := float64(r.RunsLast30Days) / 30.0

	daysInactiveRatio := float64(r.DaysSinceLastRun) / math.Max(float64(r.DaysOnPlatform), 1)

	consistency := clamp(float64(r.RunsLast30Days)/math.Max(float64(r.RunsLast90Days)/3.0, 1), 0, 1)

	achievementsNorm := math.Min(float64(r.AchievementCount)/achievementSaturation, 1)
	engagement := clamp(100*(engagementWeightActivity*monthlyActivityRate+
		engagementWeightRecency*(1-daysInactiveRatio)+
		engagementWeightAchievements*achievementsNorm), 0, 100)

	return Derived{
		EngagementScore:     round2(engagement),
		DaysInactiveRatio:   round4(daysInactiveRatio),
		ConsistencyScore:    round4(consistency),
		MonthlyActivityRate: round4(monthlyActivityRate),
		DistanceTrend:       round4(distanceTrend(r.DistanceLast30DaysKm, r.DistanceLast90DaysKm)),
		IsPremium:           r.MembershipTypeID > 1,
		ActivityLevel:       activityLevel(r.RunningSessionsCount),
		PaceCategory:        paceCategory(r.AvgPaceMinPerKm),
	}
}

// Apply writes the raw vector and its derived scores onto a snapshot row.
func (r RawFeatures) Apply(s *types.FeatureSnapshot) {
	d := r.Derive()

	s.RunningSessionsCount = r.RunningSessionsCount
	s.RunsLast30Days = r.RunsLast30Days
	s.RunsLast90Days = r.RunsLast90Days
	s.DistanceLast30DaysKm = r.DistanceLast30DaysKm
	s.DistanceLast90DaysKm = r.DistanceLast90DaysKm
	s.AvgDistancePerRunKm = r.AvgDistancePerRunKm
	s.DaysSinceLastRun = r.DaysSinceLastRun
	s.DaysOnPlatform = r.DaysOnPlatform
	s.DaysSinceLastLogin = r.DaysSinceLastLogin
	s.AvgHeartRateLast30Days = r.AvgHeartRateLast30Days
	s.PeakHeartRateMax = r.PeakHeartRateMax
	s.AvgElevationGain = r.AvgElevationGain
	s.AvgPaceMinPerKm = r.AvgPaceMinPerKm
	s.AchievementCount = r.AchievementCount
	s.HasBiometrics = r.HasBiometrics
	s.MembershipTypeID = r.MembershipTypeID
	s.RaceParticipationCount = r.RaceParticipationCount

	s.EngagementScore = d.EngagementScore
	s.DaysInactiveRatio = d.DaysInactiveRatio
	s.ConsistencyScore = d.ConsistencyScore
	s.MonthlyActivityRate = d.MonthlyActivityRate
	s.DistanceTrend = d.DistanceTrend
	s.IsPremium = d.IsPremium
	s.ActivityLevel = d.ActivityLevel
	s.PaceCategory = d.PaceCategory
}

// distanceTrend compares the last 30 days against the 90-day monthly
// average. Positive means the user is ramping up.
func distanceTrend(last30Km, last90Km float64) float64 {
	monthly := last90Km / 3.0
	if monthly <= 0 {
		return 0
	}
	return clamp((last30Km-monthly)/monthly, -1, 1)
}

// activityLevel buckets lifetime session count: 0 inactive through 4 very high.
func activityLevel(sessions int) int {
	switch {
	case sessions <= 0:
		return 0
	case sessions <= 5:
		return 1
	case sessions <= 20:
		return 2
	case sessions <= 50:
		return 3
	default:
		return 4
	}
}

// paceCategory buckets average pace: 4 fastest through 0 slowest. A zero
// pace means no recorded runs and maps to the slowest bucket.
func paceCategory(pace float64) int {
	switch {
	case pace <= 0:
		return 0
	case pace <= 5:
		return 4
	case pace <= 6:
		return 3
	case pace <= 7:
		return 2
	case pace <= 8:
		return 1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
