package domain

import (
	"time"

	"example.com/kaitrack/internal/progression"
	"example.com/kaitrack/internal/reward"
)

// DefaultUsername is assigned when the token carries no preferred name.
const DefaultUsername = "User"

// Profile is the per-user account row: progression state plus the reward collection.
type Profile struct {
	UserID           string
	Username         string
	Progress         progression.UserProgress
	EquippedTitle    string
	EquippedCosmetic string
	Titles           []string
	Cosmetics        []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OwnsTitle reports whether label is in the title collection.
func (p Profile) OwnsTitle(label string) bool {
	return contains(p.Titles, label)
}

// OwnsCosmetic reports whether label is in the cosmetic collection.
func (p Profile) OwnsCosmetic(label string) bool {
	return contains(p.Cosmetics, label)
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	out := p
	out.Titles = append([]string(nil), p.Titles...)
	out.Cosmetics = append([]string(nil), p.Cosmetics...)
	if p.Progress.LastActivityDate != nil {
		d := *p.Progress.LastActivityDate
		out.Progress.LastActivityDate = &d
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Workout is one logged training day.
type Workout struct {
	ID              string
	UserID          string
	Date            progression.Date
	ActivityName    string
	Category        string
	DurationMinutes *int
	Notes           string
	IsRestDay       bool
	PointsAwarded   int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Cursor models the workout pagination token.
type Cursor struct {
	Date progression.Date
	ID   string
}

// WorkoutQuery filters a user's workout list. From and To are inclusive.
type WorkoutQuery struct {
	From   *progression.Date
	To     *progression.Date
	Cursor *Cursor
	Limit  int
}

// Spin is a recorded wheel draw.
type Spin struct {
	ID     string
	UserID string
	Reward reward.Definition
	// Duplicate is set when the title or cosmetic was already owned.
	Duplicate bool
	SpunAt    time.Time
}

// InteractionType is the closed set of social gestures.
type InteractionType string

const (
	InteractionEnergySalute      InteractionType = "energy_salute"
	InteractionEncouragementBeam InteractionType = "encouragement_beam"
)

// Valid reports whether t is a known interaction.
func (t InteractionType) Valid() bool {
	return t == InteractionEnergySalute || t == InteractionEncouragementBeam
}

// Interaction is a gesture from one user to another. Day is the sender's calendar day.
type Interaction struct {
	ID         string
	SenderID   string
	ReceiverID string
	Type       InteractionType
	Day        progression.Date
	CreatedAt  time.Time
}

// RankingPeriod restricts the leaderboard to recently active users.
type RankingPeriod string

const (
	PeriodGlobal  RankingPeriod = "global"
	PeriodMonthly RankingPeriod = "monthly"
	PeriodWeekly  RankingPeriod = "weekly"
)

// RankingSort is the leaderboard order key.
type RankingSort string

const (
	SortKaiPoints RankingSort = "kai_points"
	SortStreak    RankingSort = "streak"
	SortRank      RankingSort = "rank"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// RankingQuery is a leaderboard page request. Page is 1-based.
type RankingQuery struct {
	Period    RankingPeriod
	Sort      RankingSort
	Direction SortDirection
	Page      int
	PageSize  int
	// ActiveSince is derived from Period by the service; nil means everyone.
	ActiveSince *progression.Date
}

// Offset returns the row offset of the page.
func (q RankingQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// RankingEntry is one leaderboard row.
type RankingEntry struct {
	Position         int
	UserID           string
	Username         string
	Score            int64
	CurrentTier      string
	CurrentStreak    int
	LongestStreak    int
	EquippedTitle    string
	EquippedCosmetic string
}

// Stats summarises a user's activity for the dashboard.
type Stats struct {
	Progress              progression.UserProgress
	WorkoutsThisWeek      int
	WorkoutsThisMonth     int
	TotalWorkouts         int
	TierProgress          progression.TierProgress
	StreakStatus          progression.StreakStatus
	DaysSinceLastActivity int
	WeekStart             progression.Date
	MonthStart            progression.Date
}

// WheelStatus reports spin eligibility.
type WheelStatus struct {
	CanSpin    bool
	LastSpinAt *time.Time
	NextSpinAt *time.Time
}
