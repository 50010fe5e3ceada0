package domain

import "errors"

var (
	// ErrInvalidArgument indicates a malformed request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProfileNotFound is returned when a user has no profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrWorkoutExists indicates a workout was already logged for the day.
	ErrWorkoutExists = errors.New("workout already logged for this day")
	// ErrWorkoutNotFound is returned when a workout cannot be located for the caller.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrNotToday indicates a workout dated anything other than the current day.
	ErrNotToday = errors.New("workouts can only be logged for today")
	// ErrSpinNotEligible indicates the wheel cooldown has not elapsed.
	ErrSpinNotEligible = errors.New("wheel spin not yet available")
	// ErrInteractionExists indicates the same gesture was already sent today.
	ErrInteractionExists = errors.New("interaction already sent today")
	// ErrSelfInteraction indicates a user targeted themselves.
	ErrSelfInteraction = errors.New("cannot interact with yourself")
	// ErrNotOwned indicates an equip request for an item outside the collection.
	ErrNotOwned = errors.New("item not in collection")
)
