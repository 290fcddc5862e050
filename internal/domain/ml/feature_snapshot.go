package ml

import (
	"time"

	"github.com/google/uuid"
)

// FeatureSnapshot is the current computed input vector for one user. Exactly
// one row exists per user; recomputation updates the row in place.
type FeatureSnapshot struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feature_snapshot_user" json:"user_id"`

	// Raw counters supplied by the feature extraction ETL.
	RunningSessionsCount   int     `gorm:"not null;default:0;column:running_sessions_count" json:"running_sessions_count"`
	RunsLast30Days         int     `gorm:"not null;default:0;column:runs_last_30_days" json:"runs_last_30_days"`
	RunsLast90Days         int     `gorm:"not null;default:0;column:runs_last_90_days" json:"runs_last_90_days"`
	DistanceLast30DaysKm   float64 `gorm:"not null;default:0;column:distance_last_30_days_km" json:"distance_last_30_days_km"`
	DistanceLast90DaysKm   float64 `gorm:"not null;default:0;column:distance_last_90_days_km" json:"distance_last_90_days_km"`
	AvgDistancePerRunKm    float64 `gorm:"not null;default:0;column:avg_distance_per_run_km" json:"avg_distance_per_run_km"`
	DaysSinceLastRun       int     `gorm:"not null;default:0;column:days_since_last_run" json:"days_since_last_run"`
	DaysOnPlatform         int     `gorm:"not null;default:0;column:days_on_platform" json:"days_on_platform"`
	DaysSinceLastLogin     int     `gorm:"not null;default:0;column:days_since_last_login" json:"days_since_last_login"`
	AvgHeartRateLast30Days float64 `gorm:"not null;default:0;column:avg_heart_rate_last_30_days" json:"avg_heart_rate_last_30_days"`
	PeakHeartRateMax       float64 `gorm:"not null;default:0;column:peak_heart_rate_max" json:"peak_heart_rate_max"`
	AvgElevationGain       float64 `gorm:"not null;default:0;column:avg_elevation_gain" json:"avg_elevation_gain"`
	AvgPaceMinPerKm        float64 `gorm:"not null;default:0;column:avg_pace_min_per_km" json:"avg_pace_min_per_km"`
	AchievementCount       int     `gorm:"not null;default:0;column:achievement_count" json:"achievement_count"`
	HasBiometrics          bool    `gorm:"not null;default:false;column:has_biometrics" json:"has_biometrics"`
	MembershipTypeID       int     `gorm:"not null;default:1;column:membership_type_id" json:"membership_type_id"`
	RaceParticipationCount int     `gorm:"not null;default:0;column:race_participation_count" json:"race_participation_count"`

	// Derived scores, recomputed deterministically on every upsert.
	EngagementScore     float64 `gorm:"not null;default:0;column:engagement_score" json:"engagement_score"`
	DaysInactiveRatio   float64 `gorm:"not null;default:0;column:days_inactive_ratio" json:"days_inactive_ratio"`
	ConsistencyScore    float64 `gorm:"not null;default:0;column:consistency_score" json:"consistency_score"`
	MonthlyActivityRate float64 `gorm:"not null;default:0;column:monthly_activity_rate" json:"monthly_activity_rate"`
	DistanceTrend       float64 `gorm:"not null;default:0;column:distance_trend" json:"distance_trend"`
	IsPremium           bool    `gorm:"not null;default:false;column:is_premium" json:"is_premium"`
	ActivityLevel       int     `gorm:"not null;default:0;column:activity_level" json:"activity_level"`
	PaceCategory        int     `gorm:"not null;default:0;column:pace_category" json:"pace_category"`

	IsActive  bool       `gorm:"not null;default:true;column:is_active;index" json:"is_active"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (FeatureSnapshot) TableName() string { return "feature_snapshots" }

func (s *FeatureSnapshot) AuditState() (bool, *time.Time) { return s.IsActive, s.DeletedAt }

func (s *FeatureSnapshot) SetAuditState(active bool, deletedAt *time.Time, at time.Time) {
	s.IsActive = active
	s.DeletedAt = deletedAt
	s.UpdatedAt = at
}
