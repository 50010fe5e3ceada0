package api

import (
	"time"

	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/progression"
)

// ProfileView is the public profile representation.
type ProfileView struct {
	UserID           string                   `json:"user_id"`
	Username         string                   `json:"username"`
	Progress         progression.UserProgress `json:"progress"`
	EquippedTitle    string                   `json:"equipped_title,omitempty"`
	EquippedCosmetic string                   `json:"equipped_cosmetic,omitempty"`
	Titles           []string                 `json:"titles"`
	Cosmetics        []string                 `json:"cosmetics"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

func toProfileView(p domain.Profile) ProfileView {
	view := ProfileView{
		UserID:           p.UserID,
		Username:         p.Username,
		Progress:         p.Progress,
		EquippedTitle:    p.EquippedTitle,
		EquippedCosmetic: p.EquippedCosmetic,
		Titles:           p.Titles,
		Cosmetics:        p.Cosmetics,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if view.Titles == nil {
		view.Titles = []string{}
	}
	if view.Cosmetics == nil {
		view.Cosmetics = []string{}
	}
	return view
}

// StatsView is the dashboard summary.
type StatsView struct {
	Progress              progression.UserProgress `json:"progress"`
	WorkoutsThisWeek      int                      `json:"workouts_this_week"`
	WorkoutsThisMonth     int                      `json:"workouts_this_month"`
	TotalWorkouts         int                      `json:"total_workouts"`
	TierProgress          progression.TierProgress `json:"tier_progress"`
	StreakStatus          progression.StreakStatus `json:"streak_status"`
	DaysSinceLastActivity int                      `json:"days_since_last_activity"`
	WeekStart             progression.Date         `json:"week_start"`
	MonthStart            progression.Date         `json:"month_start"`
}

// WorkoutView exposes a logged workout.
type WorkoutView struct {
	WorkoutID       string           `json:"workout_id"`
	Date            progression.Date `json:"date"`
	ActivityName    string           `json:"activity_name"`
	Category        string           `json:"category"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	IsRestDay       bool             `json:"is_rest_day"`
	PointsAwarded   int64            `json:"points_awarded"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func toWorkoutView(w domain.Workout) WorkoutView {
	return WorkoutView{
		WorkoutID:       w.ID,
		Date:            w.Date,
		ActivityName:    w.ActivityName,
		Category:        w.Category,
		DurationMinutes: w.DurationMinutes,
		Notes:           w.Notes,
		IsRestDay:       w.IsRestDay,
		PointsAwarded:   w.PointsAwarded,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

// LogWorkoutResponse describes the response body for POST /v1/workouts.
type LogWorkoutResponse struct {
	Workout      WorkoutView              `json:"workout"`
	Progress     progression.UserProgress `json:"progress"`
	BasePoints   int64                    `json:"base_points"`
	BonusPoints  int64                    `json:"bonus_points"`
	Milestone    int                      `json:"milestone,omitempty"`
	TierChanged  bool                     `json:"tier_changed"`
	PreviousTier string                   `json:"previous_tier"`
}

// ListWorkoutsResponse packages list results.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// WheelStatusView reports spin eligibility.
type WheelStatusView struct {
	CanSpin    bool       `json:"can_spin"`
	LastSpinAt *time.Time `json:"last_spin_at,omitempty"`
	NextSpinAt *time.Time `json:"next_spin_at,omitempty"`
}

// SpinResponse describes a completed spin.
type SpinResponse struct {
	SpinID      string      `json:"spin_id"`
	Category    string      `json:"category"`
	Points      int64       `json:"points,omitempty"`
	Label       string      `json:"label,omitempty"`
	Duplicate   bool        `json:"duplicate"`
	SpunAt      time.Time   `json:"spun_at"`
	NextSpinAt  time.Time   `json:"next_spin_at"`
	TierChanged bool        `json:"tier_changed"`
	Profile     ProfileView `json:"profile"`
}

// RankingEntryView is one leaderboard row.
type RankingEntryView struct {
	Position         int    `json:"position"`
	UserID           string `json:"user_id"`
	Username         string `json:"username"`
	KaiPoints        int64  `json:"kai_points"`
	CurrentRank      string `json:"current_rank"`
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	EquippedTitle    string `json:"equipped_title,omitempty"`
	EquippedCosmetic string `json:"equipped_cosmetic,omitempty"`
}

// RankingsResponse is one leaderboard page.
type RankingsResponse struct {
	Page  int                `json:"page"`
	Items []RankingEntryView `json:"items"`
}

// InteractionView exposes a social gesture.
type InteractionView struct {
	InteractionID string    `json:"interaction_id"`
	SenderID      string    `json:"sender_id"`
	ReceiverID    string    `json:"receiver_id"`
	Type          string    `json:"interaction_type"`
	CreatedAt     time.Time `json:"created_at"`
}

func toInteractionView(i domain.Interaction) InteractionView {
	return InteractionView{
		InteractionID: i.ID,
		SenderID:      i.SenderID,
		ReceiverID:    i.ReceiverID,
		Type:          string(i.Type),
		CreatedAt:     i.CreatedAt,
	}
}
