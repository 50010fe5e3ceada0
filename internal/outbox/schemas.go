package outbox

import "example.com/kaitrack/internal/events"

const workoutLoggedSchema = `{
  "type": "object",
  "title": "WorkoutLogged",
  "properties": {
    "workout_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "activity_name": {"type": "string"},
    "category": {"type": "string"},
    "duration_minutes": {"type": "integer"},
    "is_rest_day": {"type": "boolean"},
    "points_awarded": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workout_id", "user_id", "date", "activity_name", "category", "is_rest_day", "points_awarded", "occurred_at"],
  "additionalProperties": false
}`

const progressUpdatedSchema = `{
  "type": "object",
  "title": "ProgressUpdated",
  "properties": {
    "user_id": {"type": "string"},
    "cause": {"type": "string", "enum": ["workout", "wheel"]},
    "cumulative_score": {"type": "integer", "minimum": 0},
    "current_streak_days": {"type": "integer", "minimum": 0},
    "longest_streak_days": {"type": "integer", "minimum": 0},
    "last_activity_date": {"type": "string", "format": "date"},
    "current_tier": {"type": "string"},
    "base_points": {"type": "integer"},
    "bonus_points": {"type": "integer"},
    "reward_points": {"type": "integer", "minimum": 0},
    "milestone": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["user_id", "cause", "cumulative_score", "current_streak_days", "longest_streak_days", "current_tier", "base_points", "bonus_points", "occurred_at"],
  "additionalProperties": false
}`

const tierPromotedSchema = `{
  "type": "object",
  "title": "TierPromoted",
  "properties": {
    "user_id": {"type": "string"},
    "previous_tier": {"type": "string"},
    "current_tier": {"type": "string"},
    "score": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["user_id", "previous_tier", "current_tier", "score", "occurred_at"],
  "additionalProperties": false
}`

const rewardGrantedSchema = `{
  "type": "object",
  "title": "RewardGranted",
  "properties": {
    "spin_id": {"type": "string"},
    "user_id": {"type": "string"},
    "category": {"type": "string", "enum": ["points", "title", "cosmetic"]},
    "points": {"type": "integer"},
    "label": {"type": "string"},
    "duplicate": {"type": "boolean"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["spin_id", "user_id", "category", "duplicate", "occurred_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeWorkoutLogged:   {Schema: workoutLoggedSchema},
	events.TypeProgressUpdated: {Schema: progressUpdatedSchema},
	events.TypeTierPromoted:    {Schema: tierPromotedSchema},
	events.TypeRewardGranted:   {Schema: rewardGrantedSchema},
}
