// Package progression evaluates streak, score and rank changes for logged workouts.
//
// Everything here is pure: callers pass the current UserProgress in and persist the
// returned value. Nothing is mutated in place.
package progression

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration indicates a malformed rank table or rule set.
	ErrInvalidConfiguration = errors.New("invalid progression configuration")
	// ErrInvalidInput indicates progress or a workout date that cannot be applied.
	ErrInvalidInput = errors.New("invalid progression input")
)

// UserProgress is the per-user progression state.
type UserProgress struct {
	CumulativeScore   int64  `json:"cumulative_score"`
	CurrentStreakDays int    `json:"current_streak_days"`
	LongestStreakDays int    `json:"longest_streak_days"`
	LastActivityDate  *Date  `json:"last_activity_date,omitempty"`
	CurrentTier       string `json:"current_tier"`
}

// NewUserProgress returns the state of a freshly created account.
func NewUserProgress(table *RankTable) UserProgress {
	return UserProgress{CurrentTier: table.Lowest().Label}
}

func (p UserProgress) validate() error {
	if p.CumulativeScore < 0 {
		return fmt.Errorf("%w: negative score %d", ErrInvalidInput, p.CumulativeScore)
	}
	if p.CurrentStreakDays < 0 || p.LongestStreakDays < 0 {
		return fmt.Errorf("%w: negative streak", ErrInvalidInput)
	}
	return nil
}

func (p UserProgress) clone() UserProgress {
	out := p
	if p.LastActivityDate != nil {
		d := *p.LastActivityDate
		out.LastActivityDate = &d
	}
	return out
}

// Milestone awards Bonus the moment a streak grows to exactly StreakDays.
type Milestone struct {
	StreakDays int   `json:"streak_days"`
	Bonus      int64 `json:"bonus"`
}

// Rules are the scoring constants applied per workout.
type Rules struct {
	BasePoints    int64
	RestDayPoints int64
	Milestones    []Milestone
}

// DefaultRules returns 100 points per workout, nothing for rest days, and the
// 7-day (+500) and 30-day (+1500) streak bonuses.
func DefaultRules() Rules {
	return Rules{
		BasePoints:    100,
		RestDayPoints: 0,
		Milestones: []Milestone{
			{StreakDays: 7, Bonus: 500},
			{StreakDays: 30, Bonus: 1500},
		},
	}
}

// Validate checks the rule set.
func (r Rules) Validate() error {
	if r.BasePoints < 0 || r.RestDayPoints < 0 {
		return fmt.Errorf("%w: point awards must be >= 0", ErrInvalidConfiguration)
	}
	seen := make(map[int]struct{}, len(r.Milestones))
	for _, m := range r.Milestones {
		if m.StreakDays <= 0 || m.Bonus < 0 {
			return fmt.Errorf("%w: milestone %d/+%d", ErrInvalidConfiguration, m.StreakDays, m.Bonus)
		}
		if _, dup := seen[m.StreakDays]; dup {
			return fmt.Errorf("%w: duplicate milestone at %d days", ErrInvalidConfiguration, m.StreakDays)
		}
		seen[m.StreakDays] = struct{}{}
	}
	return nil
}

func (r Rules) bonusFor(streak int) (int64, bool) {
	for _, m := range r.Milestones {
		if m.StreakDays == streak {
			return m.Bonus, true
		}
	}
	return 0, false
}

// Outcome is the result of applying one workout.
type Outcome struct {
	Progress UserProgress
	// BasePoints is the per-workout award (RestDayPoints for rest days).
	BasePoints int64
	// BonusPoints is non-zero only on the call that reached a milestone.
	BonusPoints int64
	// Milestone is the streak length that earned BonusPoints, or 0.
	Milestone    int
	PreviousTier string
	TierChanged  bool
}

// PointsAwarded is the total score delta of the outcome.
func (o Outcome) PointsAwarded() int64 {
	return o.BasePoints + o.BonusPoints
}

// Evaluator applies Rules against a RankTable.
type Evaluator struct {
	table *RankTable
	rules Rules
}

// NewEvaluator validates rules and binds them to table.
func NewEvaluator(table *RankTable, rules Rules) (*Evaluator, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil rank table", ErrInvalidConfiguration)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	rules.Milestones = append([]Milestone(nil), rules.Milestones...)
	return &Evaluator{table: table, rules: rules}, nil
}

// Table returns the rank table the evaluator resolves tiers against.
func (e *Evaluator) Table() *RankTable {
	return e.table
}

// ApplyWorkout returns the progress after a workout (or rest day) on date.
//
// Streak: first workout starts at 1; same day keeps it; next day adds 1; any gap resets
// to 1. A date before LastActivityDate fails with ErrInvalidInput.
func (e *Evaluator) ApplyWorkout(p UserProgress, date Date, restDay bool) (Outcome, error) {
	if err := p.validate(); err != nil {
		return Outcome{}, err
	}

	next := p.clone()
	incremented := false

	if p.LastActivityDate == nil {
		next.CurrentStreakDays = 1
	} else {
		delta := DaysBetween(*p.LastActivityDate, date)
		switch {
		case delta < 0:
			return Outcome{}, fmt.Errorf("%w: workout date %s precedes last activity %s", ErrInvalidInput, date, *p.LastActivityDate)
		case delta == 0:
		case delta == 1:
			next.CurrentStreakDays++
			incremented = true
		default:
			next.CurrentStreakDays = 1
		}
	}

	if next.CurrentStreakDays > next.LongestStreakDays {
		next.LongestStreakDays = next.CurrentStreakDays
	}
	d := date
	next.LastActivityDate = &d

	out := Outcome{PreviousTier: p.CurrentTier, BasePoints: e.rules.BasePoints}
	if restDay {
		out.BasePoints = e.rules.RestDayPoints
	}
	if incremented {
		if bonus, ok := e.rules.bonusFor(next.CurrentStreakDays); ok {
			out.BonusPoints = bonus
			out.Milestone = next.CurrentStreakDays
		}
	}

	next.CumulativeScore += out.PointsAwarded()
	next.CurrentTier = e.table.Resolve(next.CumulativeScore)
	out.TierChanged = next.CurrentTier != p.CurrentTier
	out.Progress = next
	return out, nil
}

// AwardPoints adds points outside the workout flow (for example a wheel reward) and
// re-resolves the tier. Streak fields are untouched.
func (e *Evaluator) AwardPoints(p UserProgress, points int64) (UserProgress, error) {
	if err := p.validate(); err != nil {
		return UserProgress{}, err
	}
	if points < 0 {
		return UserProgress{}, fmt.Errorf("%w: negative award %d", ErrInvalidInput, points)
	}
	next := p.clone()
	next.CumulativeScore += points
	next.CurrentTier = e.table.Resolve(next.CumulativeScore)
	return next, nil
}

// ApplyWorkout applies a regular (non rest day) workout under DefaultRules.
func ApplyWorkout(p UserProgress, date Date, table *RankTable) (UserProgress, error) {
	e, err := NewEvaluator(table, DefaultRules())
	if err != nil {
		return UserProgress{}, err
	}
	out, err := e.ApplyWorkout(p, date, false)
	if err != nil {
		return UserProgress{}, err
	}
	return out.Progress, nil
}
