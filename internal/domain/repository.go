package domain

import (
	"context"
	"time"

	"example.com/kaitrack/internal/events"
	"example.com/kaitrack/internal/progression"
)

// Repository captures persistence operations.
type Repository interface {
	// WithinUser runs fn in one transaction scoped to userID. Any error rolls back every write.
	WithinUser(ctx context.Context, userID string, fn func(ctx context.Context, uow UnitOfWork) error) error

	GetProfile(ctx context.Context, userID string) (*Profile, error)
	GetWorkout(ctx context.Context, userID, workoutID string) (*Workout, error)
	ListWorkouts(ctx context.Context, userID string, query WorkoutQuery) ([]Workout, *Cursor, error)
	CountWorkouts(ctx context.Context, userID string, from, to *progression.Date) (int, error)
	LastSpin(ctx context.Context, userID string) (*Spin, error)
	Rankings(ctx context.Context, query RankingQuery) ([]RankingEntry, error)
	ListInteractions(ctx context.Context, receiverID string, since time.Time) ([]Interaction, error)

	// ResetLapsedStreaks zeroes the current streak of every profile whose last activity
	// is before cutoff and returns the affected user IDs.
	ResetLapsedStreaks(ctx context.Context, cutoff progression.Date) ([]string, error)
}

// UnitOfWork is the transactional view handed to Repository.WithinUser.
// Lookups return nil, nil when the row does not exist.
type UnitOfWork interface {
	// LockProfile reads the profile row and holds it until the transaction ends.
	LockProfile(ctx context.Context) (*Profile, error)
	CreateProfile(ctx context.Context, profile Profile) error
	SaveProfile(ctx context.Context, profile Profile) error
	GrantTitle(ctx context.Context, label string, at time.Time) error
	GrantCosmetic(ctx context.Context, label string, at time.Time) error

	GetWorkout(ctx context.Context, workoutID string) (*Workout, error)
	// InsertWorkout returns ErrWorkoutExists when the user already has a workout that day.
	InsertWorkout(ctx context.Context, workout Workout) error
	UpdateWorkout(ctx context.Context, workout Workout) error
	DeleteWorkout(ctx context.Context, workoutID string) error

	LastSpin(ctx context.Context) (*Spin, error)
	InsertSpin(ctx context.Context, spin Spin) error

	// ProfileExists checks another user's profile without locking it.
	ProfileExists(ctx context.Context, userID string) (bool, error)
	// InsertInteraction returns ErrInteractionExists on a same-day duplicate.
	InsertInteraction(ctx context.Context, interaction Interaction) error

	// Publish records events in the outbox.
	Publish(ctx context.Context, envelopes ...events.Envelope) error
}
