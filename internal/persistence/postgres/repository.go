// Package postgres implements domain.Repository on PostgreSQL with row level security.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/progression"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// errProfileRace signals that a concurrent transaction created the same profile first.
var errProfileRace = errors.New("profile created concurrently")

// Repository provides Postgres-backed persistence for profiles, workouts, spins and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// inTx runs fn in a transaction with the RLS settings applied. An empty userID runs as system.
func (r *Repository) inTx(ctx context.Context, userID string, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if userID == "" {
		if _, err = tx.Exec(ctx, "SELECT set_config('app.role', 'system', true)"); err != nil {
			return err
		}
	} else if _, err = tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return err
	}

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// WithinUser implements domain.Repository. A lost profile-creation race is retried once.
func (r *Repository) WithinUser(ctx context.Context, userID string, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = r.inTx(ctx, userID, func(tx pgx.Tx) error {
			return fn(ctx, &unitOfWork{tx: tx, userID: userID})
		})
		if !errors.Is(err, errProfileRace) {
			return err
		}
	}
	return err
}

const profileColumns = `user_id, username, kai_points, current_streak, longest_streak, last_activity_date, current_rank,
        COALESCE(equipped_title, ''), COALESCE(equipped_cosmetic, ''), created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p    domain.Profile
		last *time.Time
	)
	err := row.Scan(&p.UserID, &p.Username, &p.Progress.CumulativeScore, &p.Progress.CurrentStreakDays,
		&p.Progress.LongestStreakDays, &last, &p.Progress.CurrentTier, &p.EquippedTitle, &p.EquippedCosmetic,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if last != nil {
		d := progression.DateOf(last.UTC())
		p.Progress.LastActivityDate = &d
	}
	return &p, nil
}

func loadLabels(ctx context.Context, tx pgx.Tx, table, userID string) ([]string, error) {
	rows, err := tx.Query(ctx, fmt.Sprintf(`SELECT label FROM %s WHERE user_id=$1 ORDER BY granted_at, label`, table), userID)
	if err != nil {
		return nil, err
	}
	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return labels, nil
}

func loadCollection(ctx context.Context, tx pgx.Tx, p *domain.Profile) error {
	titles, err := loadLabels(ctx, tx, "user_titles", p.UserID)
	if err != nil {
		return fmt.Errorf("load titles: %w", err)
	}
	cosmetics, err := loadLabels(ctx, tx, "user_cosmetics", p.UserID)
	if err != nil {
		return fmt.Errorf("load cosmetics: %w", err)
	}
	p.Titles = titles
	p.Cosmetics = cosmetics
	return nil
}

// GetProfile implements domain.Repository.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var out *domain.Profile
	err := r.inTx(ctx, userID, func(tx pgx.Tx) error {
		p, err := scanProfile(tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id=$1`, userID))
		if err != nil || p == nil {
			return err
		}
		if err := loadCollection(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

const workoutColumns = `workout_id::text, user_id, workout_date, activity_name, category, duration_minutes, notes, is_rest_day,
        points_awarded, created_at, updated_at`

func scanWorkout(row pgx.Row) (*domain.Workout, error) {
	var (
		w        domain.Workout
		day      time.Time
		duration *int32
	)
	err := row.Scan(&w.ID, &w.UserID, &day, &w.ActivityName, &w.Category, &duration, &w.Notes, &w.IsRestDay,
		&w.PointsAwarded, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.Date = progression.DateOf(day.UTC())
	if duration != nil {
		d := int(*duration)
		w.DurationMinutes = &d
	}
	return &w, nil
}

func getWorkout(ctx context.Context, tx pgx.Tx, userID, workoutID string) (*domain.Workout, error) {
	w, err := scanWorkout(tx.QueryRow(ctx, `SELECT `+workoutColumns+` FROM workouts WHERE user_id=$1 AND workout_id::text=$2`, userID, workoutID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

// GetWorkout implements domain.Repository.
func (r *Repository) GetWorkout(ctx context.Context, userID, workoutID string) (*domain.Workout, error) {
	var out *domain.Workout
	err := r.inTx(ctx, userID, func(tx pgx.Tx) error {
		w, err := getWorkout(ctx, tx, userID, workoutID)
		out = w
		return err
	})
	return out, err
}

// ListWorkouts implements domain.Repository. Results are ordered by date then ID, descending.
func (r *Repository) ListWorkouts(ctx context.Context, userID string, query domain.WorkoutQuery) ([]domain.Workout, *domain.Cursor, error) {
	args := []interface{}{userID, query.Limit}
	stmt := `SELECT ` + workoutColumns + ` FROM workouts WHERE user_id=$1`
	if query.From != nil {
		args = append(args, query.From.Time())
		stmt += fmt.Sprintf(` AND workout_date >= $%d`, len(args))
	}
	if query.To != nil {
		args = append(args, query.To.Time())
		stmt += fmt.Sprintf(` AND workout_date <= $%d`, len(args))
	}
	if query.Cursor != nil {
		args = append(args, query.Cursor.Date.Time(), query.Cursor.ID)
		stmt += fmt.Sprintf(` AND (workout_date, workout_id::text) < ($%d, $%d)`, len(args)-1, len(args))
	}
	stmt += ` ORDER BY workout_date DESC, workout_id::text DESC LIMIT $2`

	results := make([]domain.Workout, 0, query.Limit)
	err := r.inTx(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, stmt, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			w, err := scanWorkout(rows)
			if err != nil {
				return err
			}
			results = append(results, *w)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if len(results) == query.Limit && query.Limit > 0 {
		last := results[len(results)-1]
		next = &domain.Cursor{Date: last.Date, ID: last.ID}
	}
	return results, next, nil
}

// CountWorkouts implements domain.Repository.
func (r *Repository) CountWorkouts(ctx context.Context, userID string, from, to *progression.Date) (int, error) {
	var fromArg, toArg interface{}
	if from != nil {
		fromArg = from.Time()
	}
	if to != nil {
		toArg = to.Time()
	}
	var n int
	err := r.inTx(ctx, userID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM workouts
              WHERE user_id=$1
                AND ($2::date IS NULL OR workout_date >= $2::date)
                AND ($3::date IS NULL OR workout_date <= $3::date)`,
			userID, fromArg, toArg,
		).Scan(&n)
	})
	return n, err
}

const spinColumns = `spin_id::text, user_id, category, COALESCE(points, 0), COALESCE(label, ''), weight, duplicate, spun_at`

func lastSpin(ctx context.Context, tx pgx.Tx, userID string) (*domain.Spin, error) {
	var s domain.Spin
	err := tx.QueryRow(ctx, `SELECT `+spinColumns+` FROM wheel_spins WHERE user_id=$1 ORDER BY spun_at DESC LIMIT 1`, userID).
		Scan(&s.ID, &s.UserID, &s.Reward.Category, &s.Reward.Points, &s.Reward.Label, &s.Reward.Weight, &s.Duplicate, &s.SpunAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LastSpin implements domain.Repository.
func (r *Repository) LastSpin(ctx context.Context, userID string) (*domain.Spin, error) {
	var out *domain.Spin
	err := r.inTx(ctx, userID, func(tx pgx.Tx) error {
		s, err := lastSpin(ctx, tx, userID)
		out = s
		return err
	})
	return out, err
}

var rankingOrder = map[domain.RankingSort]string{
	domain.SortKaiPoints: "kai_points",
	domain.SortStreak:    "current_streak",
	domain.SortRank:      "kai_points",
}

// Rankings implements domain.Repository. Tiers are monotonic in score, so rank sorts by score.
func (r *Repository) Rankings(ctx context.Context, query domain.RankingQuery) ([]domain.RankingEntry, error) {
	column, ok := rankingOrder[query.Sort]
	if !ok {
		return nil, fmt.Errorf("%w: sort %q", domain.ErrInvalidArgument, query.Sort)
	}
	direction := "DESC"
	if query.Direction == domain.SortAsc {
		direction = "ASC"
	}

	var since interface{}
	if query.ActiveSince != nil {
		since = query.ActiveSince.Time()
	}

	stmt := fmt.Sprintf(`SELECT user_id, username, kai_points, current_rank, current_streak, longest_streak,
            COALESCE(equipped_title, ''), COALESCE(equipped_cosmetic, '')
          FROM profiles
         WHERE ($1::date IS NULL OR last_activity_date >= $1::date)
         ORDER BY %s %s, user_id ASC
         LIMIT $2 OFFSET $3`, column, direction)

	entries := make([]domain.RankingEntry, 0, query.PageSize)
	err := r.inTx(ctx, "", func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, stmt, since, query.PageSize, query.Offset())
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e domain.RankingEntry
			if err := rows.Scan(&e.UserID, &e.Username, &e.Score, &e.CurrentTier, &e.CurrentStreak, &e.LongestStreak,
				&e.EquippedTitle, &e.EquippedCosmetic); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	return entries, err
}

// ListInteractions implements domain.Repository.
func (r *Repository) ListInteractions(ctx context.Context, receiverID string, since time.Time) ([]domain.Interaction, error) {
	out := make([]domain.Interaction, 0)
	err := r.inTx(ctx, receiverID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT interaction_id::text, sender_id, receiver_id, interaction_type, interaction_day, created_at
               FROM user_interactions
              WHERE receiver_id=$1 AND created_at >= $2
              ORDER BY created_at DESC`, receiverID, since)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				i   domain.Interaction
				day time.Time
			)
			if err := rows.Scan(&i.ID, &i.SenderID, &i.ReceiverID, &i.Type, &day, &i.CreatedAt); err != nil {
				return err
			}
			i.Day = progression.DateOf(day.UTC())
			out = append(out, i)
		}
		return rows.Err()
	})
	return out, err
}

// ResetLapsedStreaks implements domain.Repository.
func (r *Repository) ResetLapsedStreaks(ctx context.Context, cutoff progression.Date) ([]string, error) {
	var users []string
	err := r.inTx(ctx, "", func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`UPDATE profiles SET current_streak = 0, updated_at = NOW()
              WHERE current_streak > 0 AND last_activity_date < $1
              RETURNING user_id`, cutoff.Time())
		if err != nil {
			return err
		}
		users, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	return users, err
}

func constraintViolation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
