package features

import (
	"errors"
	"math"
	"strings"
	"testing"

	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDeriveActiveUser(t *testing.T) {
	raw := RawFeatures{
		RunsLast30Days:   10,
		RunsLast90Days:   35,
		DaysSinceLastRun: 5,
		DaysOnPlatform:   365,
		AchievementCount: 15,
		MembershipTypeID: 1,
	}
	d := raw.Derive()

	if !almostEqual(d.MonthlyActivityRate, 0.3333) {
		t.Fatalf("monthly_activity_rate = %v, want 0.3333", d.MonthlyActivityRate)
	}
	if !almostEqual(d.DaysInactiveRatio, 0.0137) {
		t.Fatalf("days_inactive_ratio = %v, want 0.0137", d.DaysInactiveRatio)
	}
	if !almostEqual(d.ConsistencyScore, 0.8571) {
		t.Fatalf("consistency_score = %v, want 0.8571", d.ConsistencyScore)
	}
	if !almostEqual(d.EngagementScore, 65.42) {
		t.Fatalf("engagement_score = %v, want 65.42", d.EngagementScore)
	}
}

func TestDeriveEdgeDomains(t *testing.T) {
	tests := []struct {
		name string
		raw  RawFeatures
		chk  func(t *testing.T, d Derived)
	}{
		{
			name: "zero days on platform divides by one",
			raw:  RawFeatures{DaysSinceLastRun: 3, DaysOnPlatform: 0, MembershipTypeID: 1},
			chk: func(t *testing.T, d Derived) {
				if !almostEqual(d.DaysInactiveRatio, 3) {
					t.Fatalf("days_inactive_ratio = %v, want 3", d.DaysInactiveRatio)
				}
			},
		},
		{
			name: "zero runs in 90 days keeps consistency in domain",
			raw:  RawFeatures{RunsLast30Days: 2, RunsLast90Days: 0, MembershipTypeID: 1},
			chk: func(t *testing.T, d Derived) {
				if !almostEqual(d.ConsistencyScore, 1) {
					t.Fatalf("consistency_score = %v, want 1 (clamped)", d.ConsistencyScore)
				}
			},
		},
		{
			name: "consistency clamps above one",
			raw:  RawFeatures{RunsLast30Days: 30, RunsLast90Days: 30, MembershipTypeID: 1},
			chk: func(t *testing.T, d Derived) {
				if !almostEqual(d.ConsistencyScore, 1) {
					t.Fatalf("consistency_score = %v, want 1", d.ConsistencyScore)
				}
			},
		},
		{
			name: "engagement clamps to 100",
			raw:  RawFeatures{RunsLast30Days: 200, DaysSinceLastRun: 0, DaysOnPlatform: 100, AchievementCount: 100, MembershipTypeID: 1},
			chk: func(t *testing.T, d Derived) {
				if !almostEqual(d.EngagementScore, 100) {
					t.Fatalf("engagement_score = %v, want 100", d.EngagementScore)
				}
			},
		},
		{
			name: "premium from membership type",
			raw:  RawFeatures{MembershipTypeID: 2},
			chk: func(t *testing.T, d Derived) {
				if !d.IsPremium {
					t.Fatal("is_premium = false, want true")
				}
			},
		},
		{
			name: "no distance history means flat trend",
			raw:  RawFeatures{MembershipTypeID: 1},
			chk: func(t *testing.T, d Derived) {
				if !almostEqual(d.DistanceTrend, 0) {
					t.Fatalf("distance_trend = %v, want 0", d.DistanceTrend)
				}
			},
		},
		{
			name: "ramping distance trends positive",
			raw:  RawFeatures{DistanceLast30DaysKm: 60, DistanceLast90DaysKm: 90, MembershipTypeID: 1},
			chk: func(t *testing.T, d Derived) {
				if !almostEqual(d.DistanceTrend, 1) {
					t.Fatalf("distance_trend = %v, want 1 (clamped)", d.DistanceTrend)
				}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.chk(t, tc.raw.Derive())
		})
	}
}

func TestActivityLevelBuckets(t *testing.T) {
	tests := []struct {
		sessions int
		want     int
	}{
		{0, 0}, {1, 1}, {5, 1}, {6, 2}, {20, 2}, {21, 3}, {50, 3}, {51, 4}, {500, 4},
	}
	for _, tc := range tests {
		if got := activityLevel(tc.sessions); got != tc.want {
			t.Errorf("activityLevel(%d) = %d, want %d", tc.sessions, got, tc.want)
		}
	}
}

func TestPaceCategoryBuckets(t *testing.T) {
	tests := []struct {
		pace float64
		want int
	}{
		{0, 0}, {4.5, 4}, {5, 4}, {5.5, 3}, {6.5, 2}, {7.5, 1}, {9, 0},
	}
	for _, tc := range tests {
		if got := paceCategory(tc.pace); got != tc.want {
			t.Errorf("paceCategory(%v) = %d, want %d", tc.pace, got, tc.want)
		}
	}
}

func TestValidateRejectsBadDomains(t *testing.T) {
	tests := []struct {
		name string
		mod  func(r *RawFeatures)
	}{
		{"negative runs", func(r *RawFeatures) { r.RunsLast30Days = -1 }},
		{"negative days since last run", func(r *RawFeatures) { r.DaysSinceLastRun = -3 }},
		{"negative distance", func(r *RawFeatures) { r.DistanceLast30DaysKm = -0.1 }},
		{"NaN pace", func(r *RawFeatures) { r.AvgPaceMinPerKm = math.NaN() }},
		{"infinite heart rate", func(r *RawFeatures) { r.AvgHeartRateLast30Days = math.Inf(1) }},
		{"zero membership type", func(r *RawFeatures) { r.MembershipTypeID = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := RawFeatures{MembershipTypeID: 1}
			tc.mod(&raw)
			err := raw.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, pkgerrors.ErrValidation) {
				t.Fatalf("error %v is not ErrValidation", err)
			}
		})
	}
}

func TestValidateAcceptsZeroVector(t *testing.T) {
	raw := RawFeatures{MembershipTypeID: 1}
	if err := raw.Validate(); err != nil {
		t.Fatalf("zero vector should validate, got %v", err)
	}
}

func TestValidateReportsAllViolations(t *testing.T) {
	raw := RawFeatures{
		RunsLast30Days:       -1,
		DistanceLast30DaysKm: -5,
		MembershipTypeID:     0,
	}
	err := raw.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, field := range []string{"runs_last_30_days", "distance_last_30_days_km", "membership_type_id"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error %q missing violation for %s", msg, field)
		}
	}
}
