package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/kaitrack/internal/events"
	"example.com/kaitrack/internal/observability"
	"example.com/kaitrack/internal/progression"
)

const (
	defaultCategory  = "general"
	restDayActivity  = "Rest Day"
	maxDurationMin   = 24 * 60
	maxNotesLength   = 2000
	defaultPageLimit = 50
	maxPageLimit     = 200

	causeWorkout = "workout"
	causeWheel   = "wheel"
)

// LogWorkoutInput captures the payload from the API layer.
type LogWorkoutInput struct {
	UserID          string
	Username        string
	Date            *progression.Date
	ActivityName    string
	Category        string
	DurationMinutes *int
	Notes           string
	IsRestDay       bool
}

// LogWorkoutResult is the accepted workout with the progression change it caused.
type LogWorkoutResult struct {
	Workout Workout
	Outcome progression.Outcome
}

func normaliseWorkoutFields(name, category *string, duration *int, notes *string, restDay bool) error {
	*name = strings.TrimSpace(*name)
	if *name == "" {
		if !restDay {
			return fmt.Errorf("%w: activity name required", ErrInvalidArgument)
		}
		*name = restDayActivity
	}
	*category = strings.ToLower(strings.TrimSpace(*category))
	if *category == "" {
		*category = defaultCategory
	}
	if duration != nil && (*duration <= 0 || *duration > maxDurationMin) {
		return fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrInvalidArgument, maxDurationMin)
	}
	if len(*notes) > maxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", ErrInvalidArgument, maxNotesLength)
	}
	return nil
}

// LogWorkout records today's workout and applies progression in one transaction.
func (s *Service) LogWorkout(ctx context.Context, input LogWorkoutInput) (*LogWorkoutResult, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidArgument)
	}
	today := s.today()
	if input.Date != nil && *input.Date != today {
		return nil, fmt.Errorf("%w: got %s, today is %s", ErrNotToday, *input.Date, today)
	}
	if err := normaliseWorkoutFields(&input.ActivityName, &input.Category, input.DurationMinutes, &input.Notes, input.IsRestDay); err != nil {
		return nil, err
	}

	var result LogWorkoutResult
	err := s.repo.WithinUser(ctx, input.UserID, func(ctx context.Context, uow UnitOfWork) error {
		profile, err := s.lockOrCreate(ctx, uow, input.UserID, input.Username)
		if err != nil {
			return err
		}
		// A day is credited once. Deleting its workout does not reopen it.
		if last := profile.Progress.LastActivityDate; last != nil && *last == today {
			return ErrWorkoutExists
		}

		outcome, err := s.evaluator.ApplyWorkout(profile.Progress, today, input.IsRestDay)
		if err != nil {
			return err
		}

		now := s.now()
		workout := Workout{
			ID:              newID(),
			UserID:          input.UserID,
			Date:            today,
			ActivityName:    input.ActivityName,
			Category:        input.Category,
			DurationMinutes: input.DurationMinutes,
			Notes:           input.Notes,
			IsRestDay:       input.IsRestDay,
			PointsAwarded:   outcome.PointsAwarded(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := uow.InsertWorkout(ctx, workout); err != nil {
			return err
		}

		next := profile.Clone()
		next.Progress = outcome.Progress
		next.UpdatedAt = now
		if err := uow.SaveProfile(ctx, next); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}

		envelopes := []events.Envelope{
			{
				Type:          events.TypeWorkoutLogged,
				AggregateType: events.AggregateWorkout,
				AggregateID:   workout.ID,
				UserID:        workout.UserID,
				Payload: events.WorkoutLogged{
					WorkoutID:       workout.ID,
					UserID:          workout.UserID,
					Date:            workout.Date.String(),
					ActivityName:    workout.ActivityName,
					Category:        workout.Category,
					DurationMinutes: workout.DurationMinutes,
					IsRestDay:       workout.IsRestDay,
					PointsAwarded:   workout.PointsAwarded,
					OccurredAt:      now,
				},
			},
			progressEnvelope(workout.ID, input.UserID, causeWorkout, outcome, 0, now),
		}
		if outcome.TierChanged {
			envelopes = append(envelopes, tierEnvelope(workout.ID, input.UserID, outcome.PreviousTier, outcome.Progress, now))
		}
		if err := uow.Publish(ctx, envelopes...); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}

		result = LogWorkoutResult{Workout: workout, Outcome: outcome}
		return nil
	})
	if err != nil {
		if errors.Is(err, progression.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return nil, err
	}

	observability.RecordWorkout(input.IsRestDay, result.Outcome.BasePoints, result.Outcome.BonusPoints)
	observability.RecordWorkoutPersisted(result.Workout.CreatedAt)
	if result.Outcome.TierChanged {
		observability.RecordTierPromotion(result.Outcome.Progress.CurrentTier)
	}

	entry := s.log.WithFields(logrus.Fields{
		"user_id":    input.UserID,
		"workout_id": result.Workout.ID,
		"streak":     result.Outcome.Progress.CurrentStreakDays,
		"points":     result.Outcome.PointsAwarded(),
	})
	if result.Outcome.Milestone > 0 {
		entry = entry.WithField("milestone", result.Outcome.Milestone)
	}
	entry.Info("workout logged")

	return &result, nil
}

// progressEnvelope builds the progress.updated event. rewardPoints is the wheel
// payout and stays zero for workouts.
func progressEnvelope(aggregateID, userID, cause string, outcome progression.Outcome, rewardPoints int64, at time.Time) events.Envelope {
	p := outcome.Progress
	payload := events.ProgressUpdated{
		UserID:            userID,
		Cause:             cause,
		CumulativeScore:   p.CumulativeScore,
		CurrentStreakDays: p.CurrentStreakDays,
		LongestStreakDays: p.LongestStreakDays,
		CurrentTier:       p.CurrentTier,
		BasePoints:        outcome.BasePoints,
		BonusPoints:       outcome.BonusPoints,
		RewardPoints:      rewardPoints,
		Milestone:         outcome.Milestone,
		OccurredAt:        at,
	}
	if p.LastActivityDate != nil {
		payload.LastActivityDate = p.LastActivityDate.String()
	}
	return events.Envelope{
		Type:          events.TypeProgressUpdated,
		AggregateType: events.AggregateProfile,
		AggregateID:   aggregateID,
		UserID:        userID,
		Payload:       payload,
	}
}

func tierEnvelope(aggregateID, userID, previous string, p progression.UserProgress, at time.Time) events.Envelope {
	return events.Envelope{
		Type:          events.TypeTierPromoted,
		AggregateType: events.AggregateProfile,
		AggregateID:   aggregateID,
		UserID:        userID,
		Payload: events.TierPromoted{
			UserID:       userID,
			PreviousTier: previous,
			CurrentTier:  p.CurrentTier,
			Score:        p.CumulativeScore,
			OccurredAt:   at,
		},
	}
}

// UpdateWorkoutInput carries editable workout fields. Date, rest-day flag and points are fixed.
type UpdateWorkoutInput struct {
	ActivityName    *string
	Category        *string
	DurationMinutes *int
	ClearDuration   bool
	Notes           *string
}

// UpdateWorkout edits the descriptive fields of the caller's workout. Progression is not re-run.
func (s *Service) UpdateWorkout(ctx context.Context, userID, workoutID string, input UpdateWorkoutInput) (*Workout, error) {
	var out Workout
	err := s.repo.WithinUser(ctx, userID, func(ctx context.Context, uow UnitOfWork) error {
		existing, err := uow.GetWorkout(ctx, workoutID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrWorkoutNotFound
		}
		next := *existing
		if input.ActivityName != nil {
			next.ActivityName = *input.ActivityName
		}
		if input.Category != nil {
			next.Category = *input.Category
		}
		if input.DurationMinutes != nil {
			d := *input.DurationMinutes
			next.DurationMinutes = &d
		}
		if input.ClearDuration {
			next.DurationMinutes = nil
		}
		if input.Notes != nil {
			next.Notes = *input.Notes
		}
		if err := normaliseWorkoutFields(&next.ActivityName, &next.Category, next.DurationMinutes, &next.Notes, next.IsRestDay); err != nil {
			return err
		}
		next.UpdatedAt = s.now()
		if err := uow.UpdateWorkout(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWorkout removes the caller's workout. Points and streak already earned are kept,
// and the day stays credited so a new workout cannot be logged for it.
func (s *Service) DeleteWorkout(ctx context.Context, userID, workoutID string) error {
	err := s.repo.WithinUser(ctx, userID, func(ctx context.Context, uow UnitOfWork) error {
		return uow.DeleteWorkout(ctx, workoutID)
	})
	if err != nil {
		return err
	}
	s.log.WithField("user_id", userID).WithField("workout_id", workoutID).Info("workout deleted")
	return nil
}

// GetWorkout fetches one of the caller's workouts.
func (s *Service) GetWorkout(ctx context.Context, userID, workoutID string) (*Workout, error) {
	w, err := s.repo.GetWorkout(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWorkoutNotFound
	}
	return w, nil
}

// ListWorkouts returns the caller's workouts, newest first, with cursor pagination.
func (s *Service) ListWorkouts(ctx context.Context, userID string, query WorkoutQuery) ([]Workout, *Cursor, error) {
	if query.Limit <= 0 {
		query.Limit = defaultPageLimit
	}
	if query.Limit > maxPageLimit {
		query.Limit = maxPageLimit
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return nil, nil, fmt.Errorf("%w: range end precedes start", ErrInvalidArgument)
	}
	return s.repo.ListWorkouts(ctx, userID, query)
}
