package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/events"
)

// unitOfWork is the transactional view for one user.
type unitOfWork struct {
	tx     pgx.Tx
	userID string
}

func (u *unitOfWork) LockProfile(ctx context.Context) (*domain.Profile, error) {
	p, err := scanProfile(u.tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id=$1 FOR UPDATE`, u.userID))
	if err != nil || p == nil {
		return p, err
	}
	if err := loadCollection(ctx, u.tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *unitOfWork) CreateProfile(ctx context.Context, p domain.Profile) error {
	tag, err := u.tx.Exec(ctx,
		`INSERT INTO profiles (user_id, username, kai_points, current_streak, longest_streak, last_activity_date, current_rank, created_at, updated_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (user_id) DO NOTHING`,
		u.userID, p.Username, p.Progress.CumulativeScore, p.Progress.CurrentStreakDays, p.Progress.LongestStreakDays,
		lastActivity(p), p.Progress.CurrentTier, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errProfileRace
	}
	return nil
}

func lastActivity(p domain.Profile) interface{} {
	if p.Progress.LastActivityDate == nil {
		return nil
	}
	return p.Progress.LastActivityDate.Time()
}

func (u *unitOfWork) SaveProfile(ctx context.Context, p domain.Profile) error {
	tag, err := u.tx.Exec(ctx,
		`UPDATE profiles
            SET username=$2, kai_points=$3, current_streak=$4, longest_streak=$5, last_activity_date=$6,
                current_rank=$7, equipped_title=$8, equipped_cosmetic=$9, updated_at=$10
          WHERE user_id=$1`,
		u.userID, p.Username, p.Progress.CumulativeScore, p.Progress.CurrentStreakDays, p.Progress.LongestStreakDays,
		lastActivity(p), p.Progress.CurrentTier, nullIfEmpty(p.EquippedTitle), nullIfEmpty(p.EquippedCosmetic), p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (u *unitOfWork) GrantTitle(ctx context.Context, label string, at time.Time) error {
	_, err := u.tx.Exec(ctx, `INSERT INTO user_titles (user_id, label, granted_at) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`, u.userID, label, at)
	return err
}

func (u *unitOfWork) GrantCosmetic(ctx context.Context, label string, at time.Time) error {
	_, err := u.tx.Exec(ctx, `INSERT INTO user_cosmetics (user_id, label, granted_at) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`, u.userID, label, at)
	return err
}

func (u *unitOfWork) GetWorkout(ctx context.Context, workoutID string) (*domain.Workout, error) {
	return getWorkout(ctx, u.tx, u.userID, workoutID)
}

func durationArg(d *int) interface{} {
	if d == nil {
		return nil
	}
	return int32(*d)
}

func (u *unitOfWork) InsertWorkout(ctx context.Context, w domain.Workout) error {
	_, err := u.tx.Exec(ctx,
		`INSERT INTO workouts (workout_id, user_id, workout_date, activity_name, category, duration_minutes, notes, is_rest_day, points_awarded, created_at, updated_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		w.ID, u.userID, w.Date.Time(), w.ActivityName, w.Category, durationArg(w.DurationMinutes), w.Notes, w.IsRestDay,
		w.PointsAwarded, w.CreatedAt, w.UpdatedAt,
	)
	if constraint, ok := constraintViolation(err, pgUniqueViolation); ok && constraint == "workouts_one_per_day" {
		return domain.ErrWorkoutExists
	}
	return err
}

func (u *unitOfWork) UpdateWorkout(ctx context.Context, w domain.Workout) error {
	tag, err := u.tx.Exec(ctx,
		`UPDATE workouts SET activity_name=$3, category=$4, duration_minutes=$5, notes=$6, updated_at=$7
          WHERE user_id=$1 AND workout_id::text=$2`,
		u.userID, w.ID, w.ActivityName, w.Category, durationArg(w.DurationMinutes), w.Notes, w.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkoutNotFound
	}
	return nil
}

func (u *unitOfWork) DeleteWorkout(ctx context.Context, workoutID string) error {
	tag, err := u.tx.Exec(ctx, `DELETE FROM workouts WHERE user_id=$1 AND workout_id::text=$2`, u.userID, workoutID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkoutNotFound
	}
	return nil
}

func (u *unitOfWork) LastSpin(ctx context.Context) (*domain.Spin, error) {
	return lastSpin(ctx, u.tx, u.userID)
}

func (u *unitOfWork) InsertSpin(ctx context.Context, s domain.Spin) error {
	var points interface{}
	if s.Reward.Points > 0 {
		points = s.Reward.Points
	}
	_, err := u.tx.Exec(ctx,
		`INSERT INTO wheel_spins (spin_id, user_id, category, points, label, weight, duplicate, spun_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, u.userID, string(s.Reward.Category), points, nullIfEmpty(s.Reward.Label), s.Reward.Weight, s.Duplicate, s.SpunAt,
	)
	return err
}

func (u *unitOfWork) ProfileExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := u.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE user_id=$1)`, userID).Scan(&exists)
	return exists, err
}

func (u *unitOfWork) InsertInteraction(ctx context.Context, i domain.Interaction) error {
	_, err := u.tx.Exec(ctx,
		`INSERT INTO user_interactions (interaction_id, sender_id, receiver_id, interaction_type, interaction_day, created_at)
         VALUES ($1,$2,$3,$4,$5,$6)`,
		i.ID, u.userID, i.ReceiverID, string(i.Type), i.Day.Time(), i.CreatedAt,
	)
	if constraint, ok := constraintViolation(err, pgUniqueViolation); ok && constraint == "unique_daily_interaction" {
		return domain.ErrInteractionExists
	}
	if _, ok := constraintViolation(err, pgForeignKeyViolation); ok {
		return domain.ErrProfileNotFound
	}
	if constraint, ok := constraintViolation(err, pgCheckViolation); ok && constraint == "no_self_interaction" {
		return domain.ErrSelfInteraction
	}
	return err
}

func (u *unitOfWork) Publish(ctx context.Context, envelopes ...events.Envelope) error {
	for _, env := range envelopes {
		if err := insertOutbox(ctx, u.tx, env); err != nil {
			return err
		}
	}
	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, env events.Envelope) error {
	body, err := json.Marshal(env.Payload)
	if err != nil {
		return err
	}

	route, ok := events.RouteFor(env.Type)
	if !ok {
		return fmt.Errorf("unknown event type: %s", env.Type)
	}

	const stmt = `INSERT INTO outbox (user_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		env.UserID,
		env.AggregateType,
		env.AggregateID,
		env.Type,
		route.Topic,
		route.SchemaSubject,
		env.UserID,
		body,
		env.DedupeKey(),
	)
	return err
}
