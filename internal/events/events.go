// Package events defines the event payloads published through the outbox.
package events

import "time"

// Event types carried in the outbox and the Kafka event_type header.
const (
	TypeWorkoutLogged   = "workout.logged"
	TypeProgressUpdated = "progress.updated"
	TypeTierPromoted    = "tier.promoted"
	TypeRewardGranted   = "reward.granted"
)

// Aggregate types recorded alongside outbox rows.
const (
	AggregateWorkout   = "workout"
	AggregateProfile   = "profile"
	AggregateWheelSpin = "wheel_spin"
)

// WorkoutLogged is emitted once per accepted workout.
type WorkoutLogged struct {
	WorkoutID       string    `json:"workout_id"`
	UserID          string    `json:"user_id"`
	Date            string    `json:"date"`
	ActivityName    string    `json:"activity_name"`
	Category        string    `json:"category"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	IsRestDay       bool      `json:"is_rest_day"`
	PointsAwarded   int64     `json:"points_awarded"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ProgressUpdated carries the progression state after a workout or points reward.
type ProgressUpdated struct {
	UserID            string    `json:"user_id"`
	Cause             string    `json:"cause"`
	CumulativeScore   int64     `json:"cumulative_score"`
	CurrentStreakDays int       `json:"current_streak_days"`
	LongestStreakDays int       `json:"longest_streak_days"`
	LastActivityDate  string    `json:"last_activity_date,omitempty"`
	CurrentTier       string    `json:"current_tier"`
	BasePoints        int64     `json:"base_points"`
	BonusPoints       int64     `json:"bonus_points"`
	RewardPoints      int64     `json:"reward_points,omitempty"`
	Milestone         int       `json:"milestone,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// TierPromoted is emitted when a score change moves the user into a new tier.
type TierPromoted struct {
	UserID       string    `json:"user_id"`
	PreviousTier string    `json:"previous_tier"`
	CurrentTier  string    `json:"current_tier"`
	Score        int64     `json:"score"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// RewardGranted is emitted for every wheel spin.
type RewardGranted struct {
	SpinID     string    `json:"spin_id"`
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Points     int64     `json:"points,omitempty"`
	Label      string    `json:"label,omitempty"`
	Duplicate  bool      `json:"duplicate"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Envelope is an event queued for the outbox.
type Envelope struct {
	Type          string
	AggregateType string
	AggregateID   string
	UserID        string
	Payload       any
}

// DedupeKey identifies the envelope for idempotent inserts.
func (e Envelope) DedupeKey() string {
	return e.AggregateID + ":" + e.Type
}

// Route describes where an event type is delivered.
type Route struct {
	Topic         string
	SchemaSubject string
}

var catalog = map[string]Route{
	TypeWorkoutLogged:   {Topic: "workout_events", SchemaSubject: "workout_events-value"},
	TypeProgressUpdated: {Topic: "progression_events", SchemaSubject: "progression_events-progress_updated-value"},
	TypeTierPromoted:    {Topic: "progression_events", SchemaSubject: "progression_events-tier_promoted-value"},
	TypeRewardGranted:   {Topic: "reward_events", SchemaSubject: "reward_events-value"},
}

// RouteFor returns the delivery route for eventType.
func RouteFor(eventType string) (Route, bool) {
	r, ok := catalog[eventType]
	return r, ok
}

// Topics lists every topic the outbox publishes to.
func Topics() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(catalog))
	for _, t := range []string{TypeWorkoutLogged, TypeProgressUpdated, TypeTierPromoted, TypeRewardGranted} {
		topic := catalog[t].Topic
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		out = append(out, topic)
	}
	return out
}
